// Package cosem wraps one catalog dataset and loads cropped multi-source
// stacks from its sources and curated views.
//
// A typical session:
//
//	client := catalog.NewClient(c, catalog.DefaultTTL)
//	ds, err := cosem.New(ctx, client, "jrc_hela-2")
//	stack, err := ds.LoadView(ctx, cosem.LoadOptions{
//	    Name:   "mito",
//	    Extent: []float64{1000},
//	})
//
// Positions and extents are physical (nanometers) and given in X, Y, Z order;
// arrays are indexed z, y, x.
package cosem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/microsim/cosem/pkg/catalog"
	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/source"
)

var (
	// ErrViewNotFound is returned when no view name starts with the requested prefix.
	ErrViewNotFound = errors.New("view not found")

	// ErrSourceNotFound is returned for source names missing from the manifest.
	ErrSourceNotFound = errors.New("source not found")

	// ErrNothingLoaded is returned when none of the requested sources could be read.
	ErrNothingLoaded = errors.New("nothing loaded")

	// ErrUnsupportedFormat is returned for sources without a reader.
	ErrUnsupportedFormat = source.ErrUnsupportedFormat
)

// Catalog resolves dataset ids to manifests. [*catalog.Client] implements it.
type Catalog interface {
	Manifest(ctx context.Context, id string, refresh bool) (*catalog.Manifest, error)
}

// Dataset is a dataset whose manifest has been fetched.
// It is safe for concurrent use.
type Dataset struct {
	id       string
	manifest *catalog.Manifest
	registry *source.Registry
	logger   *log.Logger
}

// Option configures a [Dataset].
type Option func(*Dataset)

// WithRegistry sets the format registry used to open sources.
func WithRegistry(r *source.Registry) Option {
	return func(d *Dataset) { d.registry = r }
}

// WithLogger sets the logger used for warnings about skipped sources.
func WithLogger(l *log.Logger) Option {
	return func(d *Dataset) { d.logger = l }
}

// New fetches the manifest of dataset id.
func New(ctx context.Context, cat Catalog, id string, opts ...Option) (*Dataset, error) {
	m, err := cat.Manifest(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return FromManifest(id, m, opts...), nil
}

// FromManifest wraps an already fetched manifest.
func FromManifest(id string, m *catalog.Manifest, opts ...Option) *Dataset {
	d := &Dataset{
		id:       id,
		manifest: m,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = source.NewDefaultRegistry()
	}
	return d
}

// ID returns the dataset identifier, e.g. "jrc_hela-3".
func (d *Dataset) ID() string { return d.id }

func (d *Dataset) String() string { return d.id }

// Summary describes the dataset in one line.
func (d *Dataset) Summary() string {
	return fmt.Sprintf("<Dataset '%s' sources: %d, views: %d>", d.id, len(d.manifest.Sources), len(d.manifest.Views))
}

// Name returns the manifest name.
func (d *Dataset) Name() string { return d.manifest.Name }

// Title returns the human-readable title.
func (d *Dataset) Title() string { return d.manifest.Metadata.Title }

// Manifest returns the underlying manifest.
func (d *Dataset) Manifest() *catalog.Manifest { return d.manifest }

// Metadata returns acquisition metadata.
func (d *Dataset) Metadata() catalog.Metadata { return d.manifest.Metadata }

// Sources returns every source keyed by name.
func (d *Dataset) Sources() map[string]catalog.Source { return d.manifest.Sources }

// SourceNames returns the source names, sorted.
func (d *Dataset) SourceNames() []string {
	names := make([]string, 0, len(d.manifest.Sources))
	for name := range d.manifest.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Views returns the curated views in manifest order.
func (d *Dataset) Views() []catalog.View { return d.manifest.Views }

// View returns the first view whose name starts with name, ignoring case.
func (d *Dataset) View(name string) (catalog.View, error) {
	prefix := strings.ToLower(name)
	for _, v := range d.manifest.Views {
		if strings.HasPrefix(strings.ToLower(v.Name), prefix) {
			return v, nil
		}
	}
	return catalog.View{}, cerrors.Wrap(cerrors.ErrCodeViewNotFound, ErrViewNotFound,
		"no view named or starting with %q in %s", name, d.id)
}

// Source returns the source called key.
func (d *Dataset) Source(key string) (catalog.Source, error) {
	s, ok := d.manifest.Sources[key]
	if !ok {
		return catalog.Source{}, cerrors.Wrap(cerrors.ErrCodeSourceNotFound, ErrSourceNotFound,
			"no source %q in %s", key, d.id)
	}
	return s, nil
}

// ReadSource opens resolution level of source key. The returned volume is
// lazy: voxels are fetched by [source.Volume.Read]. Callers must Close it.
func (d *Dataset) ReadSource(ctx context.Context, key string, level int) (source.Volume, error) {
	s, err := d.Source(key)
	if err != nil {
		return nil, err
	}
	vol, err := d.registry.Open(ctx, source.Format(s.Format), s.URL, level)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", key, err)
	}
	return vol, nil
}
