package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/microsim/cosem/pkg/httputil"
)

// HTTPStore reads objects with anonymous GET requests below a base URL.
// Transient failures are retried with backoff.
type HTTPStore struct {
	base   string
	client *http.Client
}

// NewHTTPStore creates a store rooted at base. A nil client uses
// [httputil.NewClient].
func NewHTTPStore(base string, client *http.Client) *HTTPStore {
	if client == nil {
		client = httputil.NewClient()
	}
	return &HTTPStore{base: strings.TrimSuffix(base, "/"), client: client}
}

// Get fetches base/key. Both 404 and 403 map to ErrNotExist, since public
// S3 buckets deny listing and answer 403 for missing keys.
func (s *HTTPStore) Get(ctx context.Context, key string) ([]byte, error) {
	url := s.base + "/" + Join(key)
	var data []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return httputil.TransportError(err)
		}
		defer resp.Body.Close()
		if err := httputil.CheckStatus(resp.StatusCode); err != nil {
			return err
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return httputil.TransportError(err)
		}
		return nil
	})
	if errors.Is(err, httputil.ErrNotFound) || errors.Is(err, httputil.ErrForbidden) {
		return nil, ErrNotExist
	}
	return data, err
}

// URL returns the base URL.
func (s *HTTPStore) URL() string { return s.base }

// Close does nothing; the HTTP client is shared.
func (s *HTTPStore) Close() error { return nil }

var _ Store = (*HTTPStore)(nil)
