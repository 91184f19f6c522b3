package cosem

import (
	"context"
	"fmt"
	"sort"
	"strings"

	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/geom"
	"github.com/microsim/cosem/pkg/ndarray"
	"github.com/microsim/cosem/pkg/source"
)

// BucketURL is the public bucket holding every dataset container.
const BucketURL = "s3://janelia-cosem-datasets"

// DatasetURL returns the location of source inside the container of dataset,
// e.g. s3://janelia-cosem-datasets/jrc_hela-2/jrc_hela-2.n5/em/fibsem-uint16.
func DatasetURL(dataset, src string) string {
	return fmt.Sprintf("%s/%s/%s.n5/%s", BucketURL, dataset, dataset, strings.Trim(src, "/"))
}

// ReadDataset opens a source by its path inside the dataset container,
// without fetching the manifest.
func ReadDataset(ctx context.Context, reg *source.Registry, dataset, src string, level int) (source.Volume, error) {
	if err := cerrors.ValidateDatasetID(dataset); err != nil {
		return nil, err
	}
	if err := cerrors.ValidatePath(src); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = source.NewDefaultRegistry()
	}
	return reg.Open(ctx, source.N5, DatasetURL(dataset, src), level)
}

// Sample is a named region of a dataset that is useful as simulation input.
// A sample is either a physical crop (Position and Extent, X, Y, Z in nm) or
// a voxel box at Level (Box, z, y, x).
type Sample struct {
	Name        string
	Description string
	Dataset     string
	Sources     []string
	Position    []float64
	Extent      []float64
	Box         *geom.Box
	Level       int
}

var samples = map[string]Sample{
	"hela_cytosol": {
		Name:        "hela_cytosol",
		Description: "HeLa cytosol with ER and microtubules",
		Dataset:     "jrc_hela-3",
		Sources:     []string{"er_seg", "mt-out_seg"},
		Position:    []float64{35026, 1533, 18200},
		Extent:      []float64{17361, 2296, 16082},
	},
	"hela_2_roi": {
		Name:        "hela_2_roi",
		Description: "HeLa mitochondrial membranes and microtubules, 4x binned",
		Dataset:     "jrc_hela-2",
		Sources:     []string{"mito-mem_seg", "mt-out_seg"},
		Box:         &geom.Box{Min: []int{300, 20, 2100}, Max: []int{1000, 220, 2800}},
		Level:       2,
	},
}

// Samples returns every preset, sorted by name.
func Samples() []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupSample returns the preset called name.
func LookupSample(name string) (Sample, error) {
	s, ok := samples[name]
	if !ok {
		names := make([]string, 0, len(samples))
		for n := range samples {
			names = append(names, n)
		}
		sort.Strings(names)
		return Sample{}, cerrors.New(cerrors.ErrCodeNotFound, "unknown sample %q (available: %s)", name, strings.Join(names, ", "))
	}
	return s, nil
}

// LoadSample fetches the dataset of preset name and loads its region.
func LoadSample(ctx context.Context, cat Catalog, name string, opts ...Option) (*ndarray.Array, error) {
	s, err := LookupSample(name)
	if err != nil {
		return nil, err
	}
	ds, err := New(ctx, cat, s.Dataset, opts...)
	if err != nil {
		return nil, err
	}
	return ds.LoadSample(ctx, s)
}

// LoadSample loads the region described by s from this dataset.
func (d *Dataset) LoadSample(ctx context.Context, s Sample) (*ndarray.Array, error) {
	return d.LoadView(ctx, LoadOptions{
		Sources:  s.Sources,
		Position: s.Position,
		Extent:   s.Extent,
		Box:      s.Box,
		Level:    s.Level,
	})
}
