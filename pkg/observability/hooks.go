// Package observability provides hooks for logging and metrics.
//
// Libraries report events through the package-level hooks without knowing
// who listens. Every hook defaults to a no-op. A program installs its own
// once at startup; the cosem command logs them at debug level:
//
//	observability.SetLoadHooks(myLoadHooks{})
//
// and libraries emit through the accessors:
//
//	observability.Load().OnSourceSkipped(ctx, dataset, source, err)
package observability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// LoadHooks receives events from dataset loading and rasterization.
type LoadHooks interface {
	OnLoadStart(ctx context.Context, dataset string, sources []string)
	OnLoadComplete(ctx context.Context, dataset string, loaded int, duration time.Duration, err error)
	// OnSourceSkipped is called when a missing or unreadable source is left
	// out of a stack.
	OnSourceSkipped(ctx context.Context, dataset, source string, err error)
	// OnRasterize reports one batch of segments drawn into a grid.
	OnRasterize(ctx context.Context, segments, marked int, duration time.Duration, err error)
}

// CacheHooks receives lookups against the response cache. namespace is the
// kind of document, such as "catalog".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, namespace string)
	OnCacheMiss(ctx context.Context, namespace string)
	OnCacheSet(ctx context.Context, namespace string, size int)
}

// HTTPHooks receives outgoing requests to the catalog and object stores.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError reports transport failures; error statuses go to OnResponse.
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopLoadHooks ignores every event. Embed it to implement a subset.
type NoopLoadHooks struct{}

func (NoopLoadHooks) OnLoadStart(context.Context, string, []string)                     {}
func (NoopLoadHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {}
func (NoopLoadHooks) OnSourceSkipped(context.Context, string, string, error)            {}
func (NoopLoadHooks) OnRasterize(context.Context, int, int, time.Duration, error)       {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// hookSet is replaced as a whole so readers never take a lock.
type hookSet struct {
	load  LoadHooks
	cache CacheHooks
	http  HTTPHooks
}

var (
	current  atomic.Pointer[hookSet]
	updateMu sync.Mutex
)

func init() { Reset() }

func update(fn func(*hookSet)) {
	updateMu.Lock()
	defer updateMu.Unlock()
	next := *current.Load()
	fn(&next)
	current.Store(&next)
}

// SetLoadHooks installs h. A nil h is ignored.
func SetLoadHooks(h LoadHooks) {
	if h != nil {
		update(func(s *hookSet) { s.load = h })
	}
}

// SetCacheHooks installs h. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(s *hookSet) { s.cache = h })
	}
}

// SetHTTPHooks installs h. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(s *hookSet) { s.http = h })
	}
}

func Load() LoadHooks   { return current.Load().load }
func Cache() CacheHooks { return current.Load().cache }
func HTTP() HTTPHooks   { return current.Load().http }

// Reset restores the no-op hooks.
func Reset() {
	current.Store(&hookSet{load: NoopLoadHooks{}, cache: NoopCacheHooks{}, http: NoopHTTPHooks{}})
}
