// Package cache provides the byte caches used by the catalog client and the
// chunk store.
//
// Every cache is an explicit object owned by its caller; nothing in this
// module keeps a package-level cache. Backends:
//
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [MemoryCache]: a bounded in-process cache backed by freecache
//   - [RedisCache]: a shared cache for server deployments
//   - [MongoCache]: a shared cache for deployments that already run MongoDB
//
// All backends honour a per-entry TTL; a TTL of zero means no expiry.
// Keys are built by a [Keyer] so that different kinds of data never collide.
package cache

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value for key. A miss is reported as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key for ttl. Zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the backend.
	Close() error
}

// Clearer is implemented by backends that can drop all their entries.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Keyer builds cache keys for each kind of cached data.
type Keyer interface {
	// HTTPKey is the key for a raw HTTP response body.
	HTTPKey(namespace, key string) string

	// CatalogKey is the key for a catalog document (kind "index",
	// "manifest" or "thumbnail") of a dataset.
	CatalogKey(kind, datasetID string) string

	// ChunkKey is the key for one encoded block of an array inside a container.
	ChunkKey(container, path string, coords []int) string
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// CatalogKey returns "catalog:<kind>:<datasetID>".
func (DefaultKeyer) CatalogKey(kind, datasetID string) string {
	return "catalog:" + kind + ":" + datasetID
}

// ChunkKey hashes the container and path so arbitrarily long URLs give
// fixed-size keys.
func (DefaultKeyer) ChunkKey(container, path string, coords []int) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.Itoa(c)
	}
	return digestKey("chunk", container, path, strings.Join(parts, "/"))
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = DefaultKeyer{}
