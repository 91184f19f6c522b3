package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/microsim/cosem/pkg/buildinfo"
)

// DefaultTimeout bounds a single request made by [NewClient] clients.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned for 401 and 403 responses. Public buckets
	// answer 403 for keys that do not exist.
	ErrForbidden = errors.New("access denied")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// NewClient creates an HTTP client with [DefaultTimeout] that sends this
// tool's User-Agent on every request.
func NewClient() *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &userAgent{next: http.DefaultTransport, ua: buildinfo.UserAgent()},
	}
}

type userAgent struct {
	next http.RoundTripper
	ua   string
}

func (t *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.ua)
	}
	return t.next.RoundTrip(req)
}

// CheckStatus maps an HTTP status code to an error. 2xx is success; 5xx
// and 429 are retryable.
func CheckStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", ErrForbidden, code)
	case code >= 500 || code == http.StatusTooManyRequests:
		return Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// TransportError wraps a failure of http.Client.Do as a retryable network error.
func TransportError(err error) error {
	return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
}
