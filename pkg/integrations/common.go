package integrations

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/microsim/cosem/pkg/httputil"
)

var (
	// ErrNotFound is returned when a resource doesn't exist on the remote API.
	ErrNotFound = httputil.ErrNotFound

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = httputil.ErrNetwork
)

// NewHTTPClient creates an HTTP client with a standard timeout and User-Agent.
func NewHTTPClient() *http.Client {
	return httputil.NewClient()
}

// JoinURL appends path elements to base, escaping each element and
// collapsing duplicate slashes at the joins.
func JoinURL(base string, elem ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	for _, e := range elem {
		e = strings.Trim(e, "/")
		if e == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(escapePath(e))
	}
	return b.String()
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
