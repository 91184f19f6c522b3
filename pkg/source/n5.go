package source

import (
	"context"

	"github.com/microsim/cosem/pkg/n5"
	"github.com/microsim/cosem/pkg/storage"
)

// N5Reader opens N5 arrays. A source URL points at the multiscale group;
// level selects its "s{level}" child.
type N5Reader struct {
	openStore func(ctx context.Context, url string) (storage.Store, error)
	arrayOpts []n5.Option
}

// N5Option configures an [N5Reader].
type N5Option func(*N5Reader)

// WithStoreOpener replaces [storage.Open] as the way container roots are opened.
func WithStoreOpener(fn func(ctx context.Context, url string) (storage.Store, error)) N5Option {
	return func(r *N5Reader) { r.openStore = fn }
}

// WithArrayOptions passes options to every opened array.
func WithArrayOptions(opts ...n5.Option) N5Option {
	return func(r *N5Reader) { r.arrayOpts = append(r.arrayOpts, opts...) }
}

// NewN5Reader creates an N5 reader.
func NewN5Reader(opts ...N5Option) *N5Reader {
	r := &N5Reader{openStore: storage.Open}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open opens the store holding the container and the array at level.
func (r *N5Reader) Open(ctx context.Context, url string, level int) (Volume, error) {
	root, path := storage.Split(url)
	store, err := r.openStore(ctx, root)
	if err != nil {
		return nil, err
	}
	arr, err := n5.Open(ctx, store, storage.Join(path, LevelPath(level)), r.arrayOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &n5Volume{Array: arr, store: store}, nil
}

type n5Volume struct {
	*n5.Array
	store storage.Store
}

func (v *n5Volume) Close() error { return v.store.Close() }

var _ Reader = (*N5Reader)(nil)
