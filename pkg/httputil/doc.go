// Package httputil provides the HTTP plumbing shared by the catalog client
// and the HTTP chunk store.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff, but only when the
// returned error is wrapped in [RetryableError]. Callers decide what is
// transient; by convention that is connection failures and 5xx responses:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return fetch(ctx)
//	})
//
// # Clients
//
// [NewClient] returns an *http.Client with a request timeout and a
// User-Agent naming this tool and its version. [CheckStatus] maps response
// codes onto [ErrNotFound], [ErrForbidden] and (retryable) [ErrNetwork].
package httputil
