package n5

import (
	"context"
	"errors"
	"iter"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/microsim/cosem/pkg/cache"
	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/geom"
	"github.com/microsim/cosem/pkg/ndarray"
	"github.com/microsim/cosem/pkg/storage"
)

// ErrNotArray is returned when a path has no attributes.json or does not
// describe an array.
var ErrNotArray = errors.New("not an n5 array")

// Array is an open N5 array. It is safe for concurrent reads.
type Array struct {
	store     storage.Store
	path      string
	attrs     *Attributes
	shape     []int
	chunks    []int
	transform geom.Transform
	codec     Codec

	cache       cache.Cache
	keyer       cache.Keyer
	ttl         time.Duration
	concurrency int
	logger      *log.Logger
}

// Option configures an Array.
type Option func(*Array)

// WithCache caches encoded blocks in c for ttl.
func WithCache(c cache.Cache, keyer cache.Keyer, ttl time.Duration) Option {
	return func(a *Array) {
		a.cache = c
		a.keyer = keyer
		a.ttl = ttl
	}
}

// WithConcurrency bounds the number of blocks fetched at once.
func WithConcurrency(n int) Option {
	return func(a *Array) { a.concurrency = n }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(a *Array) { a.logger = l }
}

// Open reads the attributes of the array at path inside store.
func Open(ctx context.Context, store storage.Store, path string, opts ...Option) (*Array, error) {
	path = storage.Join(path)
	raw, err := store.Get(ctx, storage.Join(path, AttributesFile))
	if errors.Is(err, storage.ErrNotExist) {
		return nil, cerrors.Wrap(cerrors.ErrCodeNotFound, ErrNotArray, "%s/%s", store.URL(), path)
	}
	if err != nil {
		return nil, err
	}
	attrs, err := ParseAttributes(raw)
	if err != nil {
		return nil, err
	}
	codec, err := CodecFor(attrs.Compression)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeUnsupported, err, "%s/%s", store.URL(), path)
	}

	a := &Array{
		store:       store,
		path:        path,
		attrs:       attrs,
		shape:       attrs.Shape(),
		chunks:      attrs.Chunks(),
		transform:   attrs.CTransform(),
		codec:       codec,
		concurrency: runtime.GOMAXPROCS(0) * 4,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cache == nil {
		a.cache = cache.NewNullCache()
	}
	if a.keyer == nil {
		a.keyer = cache.NewDefaultKeyer()
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	return a, nil
}

// Dims returns the axis names in C order.
func (a *Array) Dims() []string { return a.transform.Axes }

// Shape returns the array extent in C order.
func (a *Array) Shape() []int { return a.shape }

// Chunks returns the block size in C order.
func (a *Array) Chunks() []int { return a.chunks }

// Transform returns the voxel-to-physical transform.
func (a *Array) Transform() geom.Transform { return a.transform }

// DType returns the stored element type.
func (a *Array) DType() string { return string(a.attrs.DataType) }

// Attributes returns the parsed attributes.json.
func (a *Array) Attributes() *Attributes { return a.attrs }

// URL returns the location of the array.
func (a *Array) URL() string { return a.store.URL() + "/" + a.path }

// NumBlocks returns the number of blocks along each axis, in C order.
func (a *Array) NumBlocks() []int {
	out := make([]int, len(a.shape))
	for i := range a.shape {
		out[i] = (a.shape[i] + a.chunks[i] - 1) / a.chunks[i]
	}
	return out
}

// BlockKey returns the store key of the block at C-ordered block coordinates.
func (a *Array) BlockKey(coords []int) string {
	parts := make([]string, 0, len(coords)+1)
	parts = append(parts, a.path)
	for i := len(coords) - 1; i >= 0; i-- {
		parts = append(parts, strconv.Itoa(coords[i]))
	}
	return storage.Join(parts...)
}

// ReadBlock returns the block at C-ordered block coordinates, or nil with no
// error when the block does not exist.
func (a *Array) ReadBlock(ctx context.Context, coords []int) (*Block, error) {
	key := a.keyer.ChunkKey(a.store.URL(), a.path, coords)
	raw, hit, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Debug("block cache read failed", "key", key, "err", err)
	}
	if !hit {
		raw, err = a.store.Get(ctx, a.BlockKey(coords))
		if errors.Is(err, storage.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if err := a.cache.Set(ctx, key, raw, a.ttl); err != nil {
			a.logger.Debug("block cache write failed", "key", key, "err", err)
		}
	}
	b, err := DecodeBlock(raw, a.attrs.DataType, a.codec)
	if err != nil {
		return nil, err
	}
	if len(b.Shape) != len(a.shape) {
		return nil, cerrors.New(cerrors.ErrCodeInvalidFormat,
			"block %v has rank %d in array of rank %d", coords, len(b.Shape), len(a.shape))
	}
	return b, nil
}

// Read returns the voxels inside box (C order) as a labeled array with
// physical coordinates. The box is clipped to the array; blocks are
// fetched concurrently and missing blocks leave zeros.
func (a *Array) Read(ctx context.Context, box geom.Box) (*ndarray.Array, error) {
	if box.Rank() != len(a.shape) {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput,
			"read box of rank %d from array of rank %d", box.Rank(), len(a.shape))
	}
	box = box.Intersect(geom.BoxOf(a.shape))
	out, err := ndarray.New(a.Dims(), box.Size())
	if err != nil {
		return nil, err
	}
	out.Name = a.path
	out.Attrs["dtype"] = a.DType()
	out.Attrs["url"] = a.URL()
	out.Attrs["units"] = a.transform.Units
	for i, name := range a.transform.Axes {
		out.Coords[name] = a.transform.Coords(i, box.Min[i], out.Shape[i])
	}
	if box.Empty() {
		return out, nil
	}

	first, last := box.Blocks(a.chunks)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.concurrency, 1))
	n := 0
	for coords := range blockRange(first, last) {
		n++
		g.Go(func() error {
			b, err := a.ReadBlock(gctx, coords)
			if err != nil || b == nil {
				return err
			}
			origin := make([]int, len(coords))
			for i := range coords {
				origin[i] = coords[i] * a.chunks[i]
			}
			copyOverlap(out, box.Min, b, origin)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.logger.Debug("read region", "array", a.URL(), "box", box.String(), "blocks", n)
	return out, nil
}

// blockRange yields every block coordinate between first and last inclusive,
// in row-major order. Each yielded slice is fresh.
func blockRange(first, last []int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		cur := append([]int(nil), first...)
		for {
			if !yield(append([]int(nil), cur...)) {
				return
			}
			ax := len(cur) - 1
			for ; ax >= 0; ax-- {
				cur[ax]++
				if cur[ax] <= last[ax] {
					break
				}
				cur[ax] = first[ax]
			}
			if ax < 0 {
				return
			}
		}
	}
}

// copyOverlap copies the part of block b (placed at origin) that falls inside
// dst (placed at dstMin). Concurrent calls write disjoint elements.
func copyOverlap(dst *ndarray.Array, dstMin []int, b *Block, origin []int) {
	rank := len(origin)
	lo := make([]int, rank)
	hi := make([]int, rank)
	for i := range rank {
		lo[i] = max(dstMin[i], origin[i])
		hi[i] = min(dstMin[i]+dst.Shape[i], origin[i]+b.Shape[i])
		if hi[i] <= lo[i] {
			return
		}
	}

	last := rank - 1
	run := hi[last] - lo[last]
	p := append([]int(nil), lo...)
	for {
		d, s := 0, 0
		for i := range rank {
			d = d*dst.Shape[i] + (p[i] - dstMin[i])
			s = s*b.Shape[i] + (p[i] - origin[i])
		}
		copy(dst.Data[d:d+run], b.Data[s:s+run])

		ax := last - 1
		for ; ax >= 0; ax-- {
			p[ax]++
			if p[ax] < hi[ax] {
				break
			}
			p[ax] = lo[ax]
		}
		if ax < 0 {
			return
		}
	}
}
