package storage

import (
	"context"
	"net/url"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/gcp"

	cerrors "github.com/microsim/cosem/pkg/errors"
)

// BucketStore reads objects from a gocloud bucket, optionally below a prefix.
type BucketStore struct {
	bucket *blob.Bucket
	prefix string
	url    string
}

// NewBucketStore wraps an open bucket. Keys are resolved below prefix.
// The store takes ownership of the bucket.
func NewBucketStore(bucket *blob.Bucket, prefix, location string) *BucketStore {
	return &BucketStore{bucket: bucket, prefix: Join(prefix), url: location}
}

// OpenBucket opens a file://, mem:// or gs:// URL. Public gs:// buckets are
// read anonymously; any path after the bucket name becomes the key prefix.
func OpenBucket(ctx context.Context, rawURL string) (*BucketStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidPath, err, "parse bucket url %q", rawURL)
	}
	if u.Scheme == "gs" {
		client := gcp.NewAnonymousHTTPClient(gcp.DefaultTransport())
		bucket, err := gcsblob.OpenBucket(ctx, client, u.Host, nil)
		if err != nil {
			return nil, err
		}
		return NewBucketStore(bucket, u.Path, rawURL), nil
	}

	bucket, err := blob.OpenBucket(ctx, rawURL)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidPath, err, "open bucket %q", rawURL)
	}
	return NewBucketStore(bucket, "", rawURL), nil
}

// Get reads the object at key.
func (s *BucketStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, Join(s.prefix, key))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

// Put writes data at key.
func (s *BucketStore) Put(ctx context.Context, key string, data []byte) error {
	return s.bucket.WriteAll(ctx, Join(s.prefix, key), data, nil)
}

// Sub returns a store rooted at prefix below this one, sharing the bucket.
// Closing the returned store closes the shared bucket.
func (s *BucketStore) Sub(prefix string) *BucketStore {
	return &BucketStore{bucket: s.bucket, prefix: Join(s.prefix, prefix), url: s.url + "/" + Join(prefix)}
}

// URL returns the location the store was opened from.
func (s *BucketStore) URL() string { return s.url }

// Close closes the bucket.
func (s *BucketStore) Close() error { return s.bucket.Close() }

var (
	_ Store  = (*BucketStore)(nil)
	_ Writer = (*BucketStore)(nil)
)
