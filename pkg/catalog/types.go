package catalog

import (
	"encoding/json"

	"github.com/microsim/cosem/pkg/geom"
)

// Metadata describes how and where a dataset was acquired.
type Metadata struct {
	Title                string            `json:"title"`
	ID                   string            `json:"id"`
	Imaging              map[string]any    `json:"imaging,omitempty"`
	Sample               map[string]any    `json:"sample,omitempty"`
	Institution          []string          `json:"institution,omitempty"`
	SoftwareAvailability string            `json:"softwareAvailability,omitempty"`
	DOI                  []json.RawMessage `json:"DOI,omitempty"`
	Publications         []json.RawMessage `json:"publications,omitempty"`
}

// View is a curated camera position over a subset of sources.
type View struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Sources     []string `json:"sources"`
	// Position is the [X, Y, Z] centre of the feature in nanometers.
	Position *geom.Vec3 `json:"position,omitempty"`
	// Scale is the nm/pixel at which to show the view.
	Scale       *float64  `json:"scale,omitempty"`
	Orientation []float64 `json:"orientation,omitempty"`
}

// SourceTransform places a source in physical space. Axes are listed in
// array order (normally z, y, x).
type SourceTransform struct {
	Axes      []string  `json:"axes"`
	Units     []string  `json:"units,omitempty"`
	Scale     []float64 `json:"scale"`
	Translate []float64 `json:"translate"`
}

// Geom converts the transform for use with [geom].
func (t SourceTransform) Geom() geom.Transform {
	return geom.Transform{Axes: t.Axes, Units: t.Units, Scale: t.Scale, Translate: t.Translate}
}

// Source is one named layer of a dataset: EM data, a segmentation or a mesh.
type Source struct {
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	URL             string          `json:"url"`
	Format          string          `json:"format"`
	Transform       SourceTransform `json:"transform"`
	SampleType      string          `json:"sampleType,omitempty"`
	ContentType     string          `json:"contentType,omitempty"`
	DisplaySettings map[string]any  `json:"displaySettings,omitempty"`
	Subsources      []any           `json:"subsources,omitempty"`
}

// Manifest lists everything known about one dataset.
type Manifest struct {
	Name     string            `json:"name"`
	Metadata Metadata          `json:"metadata"`
	Sources  map[string]Source `json:"sources"`
	Views    []View            `json:"views"`
}

type index struct {
	Datasets map[string]string `json:"datasets"`
}
