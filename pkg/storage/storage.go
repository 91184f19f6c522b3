// Package storage gives read access to the object stores that hold array
// containers: local directories and in-memory buckets through gocloud, public
// Google Cloud Storage buckets, and public S3 buckets over plain HTTPS.
//
// Keys are slash-separated paths relative to the store root, the same way
// they appear inside an N5 or zarr container.
package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"

	cerrors "github.com/microsim/cosem/pkg/errors"
)

// ErrNotExist is returned by [Store.Get] when a key has no object.
var ErrNotExist = errors.New("object does not exist")

// Store reads objects by key.
type Store interface {
	// Get returns the object stored at key, or ErrNotExist.
	Get(ctx context.Context, key string) ([]byte, error)

	// URL returns the location of the store root.
	URL() string

	// Close releases the store.
	Close() error
}

// Writer is implemented by stores that accept writes.
type Writer interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Open returns the store rooted at rawURL. Supported schemes are file, mem
// and gs (gocloud buckets), s3 (rewritten to the public HTTPS endpoint), and
// http or https.
func Open(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidPath, err, "parse store url %q", rawURL)
	}
	switch u.Scheme {
	case "file", "mem", "gs":
		return OpenBucket(ctx, rawURL)
	case "s3":
		return NewHTTPStore(S3ToHTTPS(rawURL), nil), nil
	case "http", "https":
		return NewHTTPStore(rawURL, nil), nil
	}
	return nil, cerrors.New(cerrors.ErrCodeInvalidPath, "unsupported store scheme %q in %q", u.Scheme, rawURL)
}

// S3ToHTTPS rewrites s3://bucket/prefix to the bucket's public virtual-host
// endpoint, https://bucket.s3.amazonaws.com/prefix. Other URLs are returned
// unchanged.
func S3ToHTTPS(rawURL string) string {
	rest, ok := strings.CutPrefix(rawURL, "s3://")
	if !ok {
		return rawURL
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	out := "https://" + bucket + ".s3.amazonaws.com"
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		out += "/" + prefix
	}
	return out
}

// containerSuffixes mark the directory that is the root of an array container.
var containerSuffixes = []string{".n5", ".zarr"}

// Split separates the URL of a container root from the path of an array
// inside it: "s3://b/d/d.n5/em/s0" gives ("s3://b/d/d.n5", "em/s0"). A URL
// with no container component is returned whole with an empty path.
func Split(rawURL string) (root, path string) {
	scheme, rest, found := strings.Cut(rawURL, "://")
	if !found {
		scheme, rest = "", rawURL
	}
	parts := strings.Split(rest, "/")
	for i, p := range parts {
		for _, suffix := range containerSuffixes {
			if strings.HasSuffix(p, suffix) && i > 0 {
				root = strings.Join(parts[:i+1], "/")
				path = strings.Trim(strings.Join(parts[i+1:], "/"), "/")
				if found {
					root = scheme + "://" + root
				}
				return root, path
			}
		}
	}
	return strings.TrimSuffix(rawURL, "/"), ""
}

// Join appends slash-separated elements to a key, skipping empty ones.
func Join(elem ...string) string {
	var parts []string
	for _, e := range elem {
		if e = strings.Trim(e, "/"); e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}

// NopCloser returns s with a Close method that does nothing, for stores
// shared between several readers.
func NopCloser(s Store) Store { return nopCloser{s} }

type nopCloser struct{ Store }

func (nopCloser) Close() error { return nil }
