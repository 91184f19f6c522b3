// Package source maps the storage format tag of a data source onto the
// reader that can open it.
//
// The set of format tags is closed: the catalog only ever names the formats
// listed here. Only some of them have a reader; asking for any other fails
// with [ErrUnsupportedFormat], which callers loading several sources treat
// as "skip this one".
package source

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strconv"
	"sync"

	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/geom"
	"github.com/microsim/cosem/pkg/ndarray"
)

// Format is a storage format tag as it appears in a dataset manifest.
type Format string

// Known format tags.
const (
	N5                Format = "n5"
	Zarr              Format = "zarr"
	Precomputed       Format = "precomputed"
	MultiLODDracoMesh Format = "neuroglancer_multilod_draco"
	LegacyMesh        Format = "neuroglancer_legacy_mesh"
)

var knownFormats = []Format{N5, Zarr, Precomputed, MultiLODDracoMesh, LegacyMesh}

// KnownFormats returns every format tag the catalog may use.
func KnownFormats() []Format { return slices.Clone(knownFormats) }

// Known reports whether f is one of the catalog's format tags.
func (f Format) Known() bool { return slices.Contains(knownFormats, f) }

// IsMesh reports whether f stores surface meshes rather than voxels.
func (f Format) IsMesh() bool { return f == MultiLODDracoMesh || f == LegacyMesh }

// ErrUnsupportedFormat is returned for formats without a registered reader.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// Volume is one resolution level of a voxel source.
type Volume interface {
	// Dims returns the axis names in array order.
	Dims() []string
	// Shape returns the extent of each axis.
	Shape() []int
	// Transform maps voxel indices to physical coordinates.
	Transform() geom.Transform
	// DType names the stored element type.
	DType() string
	// URL locates the level.
	URL() string
	// Read returns the voxels inside box with physical coordinates attached.
	Read(ctx context.Context, box geom.Box) (*ndarray.Array, error)
	// Close releases the underlying store.
	Close() error
}

// Reader opens one resolution level of a source stored at url.
type Reader interface {
	Open(ctx context.Context, url string, level int) (Volume, error)
}

// ReaderFunc adapts a function to [Reader].
type ReaderFunc func(ctx context.Context, url string, level int) (Volume, error)

// Open calls f.
func (f ReaderFunc) Open(ctx context.Context, url string, level int) (Volume, error) {
	return f(ctx, url, level)
}

// LevelPath is the name of the group holding a resolution level: "s0" is
// full resolution, each further level halves it.
func LevelPath(level int) string { return "s" + strconv.Itoa(level) }

// Registry maps formats to readers. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	readers map[Format]Reader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[Format]Reader)}
}

// NewDefaultRegistry returns a registry with the built-in readers: N5 over
// any store that [storage.Open] understands.
func NewDefaultRegistry(opts ...N5Option) *Registry {
	r := NewRegistry()
	r.Register(N5, NewN5Reader(opts...))
	return r
}

// Register installs rd for f, replacing any previous reader.
func (r *Registry) Register(f Format, rd Reader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readers[f] = rd
}

// Lookup returns the reader for f.
func (r *Registry) Lookup(f Format) (Reader, error) {
	r.mu.RLock()
	rd, ok := r.readers[f]
	r.mu.RUnlock()
	if !ok {
		return nil, cerrors.Wrap(cerrors.ErrCodeUnsupported, ErrUnsupportedFormat, "format %q", f)
	}
	return rd, nil
}

// Formats returns the formats with a registered reader, sorted.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.readers))
	for f := range r.readers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Open looks up the reader for f and opens level of the source at url.
func (r *Registry) Open(ctx context.Context, f Format, url string, level int) (Volume, error) {
	rd, err := r.Lookup(f)
	if err != nil {
		return nil, err
	}
	if level < 0 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "negative resolution level %d", level)
	}
	return rd.Open(ctx, url, level)
}
