package cache

// ScopedKeyer prefixes every key of an inner Keyer. Deployments that share
// one redis or mongo server use it to keep their entries apart:
//
//	keyer := cache.NewScopedKeyer(nil, "mirror:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the default keyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = DefaultKeyer{}
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

func (k *ScopedKeyer) CatalogKey(kind, datasetID string) string {
	return k.prefix + k.inner.CatalogKey(kind, datasetID)
}

func (k *ScopedKeyer) ChunkKey(container, path string, coords []int) string {
	return k.prefix + k.inner.ChunkKey(container, path, coords)
}

var _ Keyer = (*ScopedKeyer)(nil)
