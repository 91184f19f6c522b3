// Package integrations provides the shared HTTP client used by remote API
// clients such as [catalog].
//
// # Client Pattern
//
// API clients embed [*Client] and wrap every fetch in [Client.Cached]:
//
//	type Client struct {
//	    *integrations.Client
//	    baseURL string
//	}
//
//	func (c *Client) Thing(ctx context.Context, id string, refresh bool) (*Thing, error) {
//	    var t Thing
//	    err := c.Cached(ctx, c.Key(id), refresh, &t, func() error {
//	        return c.Get(ctx, integrations.JoinURL(c.baseURL, id), &t)
//	    })
//	    return &t, err
//	}
//
// [Client] handles:
//   - response caching in any [cache.Cache] backend with a TTL
//   - retries with exponential backoff for network failures and 5xx responses
//   - the User-Agent header and per-client default headers
//   - HTTP and cache events reported to [observability] hooks
//
// # Errors
//
// A 404 response is [ErrNotFound]. Network failures and 5xx responses are
// [ErrNetwork] wrapped in [httputil.RetryableError].
//
// [catalog]: github.com/microsim/cosem/pkg/catalog
package integrations
