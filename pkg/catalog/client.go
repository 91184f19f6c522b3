// Package catalog fetches dataset descriptions from the fibsem-metadata JSON
// API: the dataset index, per-dataset manifests and thumbnails.
//
// All responses go through an injected [cache.Cache] with a TTL, so repeat
// lookups are served locally until they expire or [Client.Invalidate] drops
// them.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/microsim/cosem/pkg/cache"
	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/integrations"
)

// DefaultBaseURL is the published metadata API.
const DefaultBaseURL = "https://raw.githubusercontent.com/janelia-cosem/fibsem-metadata/stable/api"

// DefaultTTL is how long catalog responses are cached.
const DefaultTTL = 24 * time.Hour

var (
	// ErrNotFound is returned when a dataset or document doesn't exist.
	ErrNotFound = integrations.ErrNotFound

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = integrations.ErrNetwork
)

// Client provides access to the metadata API.
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
	keyer   cache.Keyer
	logger  *log.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL points the client at another copy of the API.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.SetHTTPClient(h) }
}

// WithKeyer sets the cache keyer, for example a [cache.ScopedKeyer] when
// several deployments share one cache.
func WithKeyer(k cache.Keyer) Option {
	return func(c *Client) { c.keyer = k }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a catalog client caching responses in backend for ttl.
// A nil backend disables caching.
func NewClient(backend cache.Cache, ttl time.Duration, opts ...Option) *Client {
	c := &Client{
		Client:  integrations.NewClient(backend, "catalog:", ttl, nil),
		baseURL: DefaultBaseURL,
		keyer:   cache.NewDefaultKeyer(),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root in use.
func (c *Client) BaseURL() string { return c.baseURL }

// Datasets returns the dataset index, mapping dataset id to its location.
//
// If refresh is true, the cache is bypassed and a fresh API call is made.
func (c *Client) Datasets(ctx context.Context, refresh bool) (map[string]string, error) {
	var idx index
	err := c.Cached(ctx, c.keyer.CatalogKey("index", ""), refresh, &idx, func() error {
		c.logger.Debug("fetching dataset index", "url", c.baseURL)
		return c.Get(ctx, integrations.JoinURL(c.baseURL, "index.json"), &idx)
	})
	if err != nil {
		return nil, fmt.Errorf("dataset index: %w", err)
	}
	if idx.Datasets == nil {
		idx.Datasets = map[string]string{}
	}
	return idx.Datasets, nil
}

// Manifest returns the manifest of dataset id.
//
// Returns [ErrNotFound] if the dataset doesn't exist and [ErrNetwork] for
// HTTP failures. The returned Manifest is never nil if err is nil.
func (c *Client) Manifest(ctx context.Context, id string, refresh bool) (*Manifest, error) {
	if err := cerrors.ValidateDatasetID(id); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "manifest")
	}
	var m Manifest
	err := c.Cached(ctx, c.keyer.CatalogKey("manifest", id), refresh, &m, func() error {
		c.logger.Debug("fetching manifest", "dataset", id)
		return c.Get(ctx, integrations.JoinURL(c.baseURL, id, "manifest.json"), &m)
	})
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", id, err)
	}
	if m.Sources == nil {
		m.Sources = map[string]Source{}
	}
	return &m, nil
}

// ThumbnailBytes returns the encoded JPEG thumbnail of dataset id.
func (c *Client) ThumbnailBytes(ctx context.Context, id string, refresh bool) ([]byte, error) {
	if err := cerrors.ValidateDatasetID(id); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "thumbnail")
	}
	data, err := c.CachedBytes(ctx, c.keyer.CatalogKey("thumbnail", id), refresh, func() ([]byte, error) {
		c.logger.Debug("fetching thumbnail", "dataset", id)
		return c.GetBytes(ctx, integrations.JoinURL(c.baseURL, id, "thumbnail.jpg"))
	})
	if err != nil {
		return nil, fmt.Errorf("thumbnail %s: %w", id, err)
	}
	return data, nil
}

// Thumbnail returns the decoded thumbnail of dataset id.
func (c *Client) Thumbnail(ctx context.Context, id string, refresh bool) (image.Image, error) {
	data, err := c.ThumbnailBytes(ctx, id, refresh)
	if err != nil {
		return nil, err
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidFormat, err, "thumbnail %s", id)
	}
	return img, nil
}

// Invalidate drops the cached manifest and thumbnail of dataset id. An
// empty id drops the dataset index instead.
func (c *Client) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return c.Client.Invalidate(ctx, c.keyer.CatalogKey("index", ""))
	}
	return c.Client.Invalidate(ctx,
		c.keyer.CatalogKey("manifest", id),
		c.keyer.CatalogKey("thumbnail", id),
	)
}
