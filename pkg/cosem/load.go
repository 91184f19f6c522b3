package cosem

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/geom"
	"github.com/microsim/cosem/pkg/n5"
	"github.com/microsim/cosem/pkg/ndarray"
	"github.com/microsim/cosem/pkg/observability"
	"github.com/microsim/cosem/pkg/source"
)

// SourceDim names the axis along which multiple sources are stacked.
const SourceDim = "source"

// DefaultExtent is the crop size, in nm, used by the CLI when none is given.
const DefaultExtent = 1000.0

// LoadOptions selects what [Dataset.LoadView] reads.
type LoadOptions struct {
	// Name selects a view by case-insensitive prefix. The view supplies the
	// position, and the sources when Sources is empty.
	Name string
	// Sources lists source names to load, in stacking order.
	Sources []string
	// Position is the crop centre in X, Y, Z (nm).
	Position []float64
	// Exclude drops sources whose content type is listed (e.g. "segmentation").
	Exclude []string
	// Extent is the crop size in nm: one value for a cube or X, Y, Z.
	// Nil reads whole volumes.
	Extent []float64
	// Box selects voxels (z, y, x at Level) directly and takes precedence
	// over Extent.
	Box *geom.Box
	// Level is the resolution level; 0 is full resolution.
	Level int
}

// LoadView reads the requested sources around a position and stacks them
// along [SourceDim] when there is more than one.
//
// Sources that are missing from the manifest, stored in a format without a
// reader, or missing the requested level are skipped with a warning. If no
// source could be opened, [ErrNothingLoaded] is returned.
//
// With an extent, only the voxels inside the crop are fetched. Without a
// position the crop is centred on the first loaded source. Later sources are
// resampled onto the grid of the first when their voxel sizes differ.
func (d *Dataset) LoadView(ctx context.Context, opts LoadOptions) (arr *ndarray.Array, err error) {
	sources, position := opts.Sources, opts.Position
	if opts.Name != "" {
		v, err := d.View(opts.Name)
		if err != nil {
			return nil, err
		}
		if v.Position != nil {
			position = v.Position[:]
		}
		if len(sources) == 0 {
			sources = v.Sources
		}
	}
	sources = d.selectSources(sources, opts.Exclude)

	hooks := observability.Load()
	hooks.OnLoadStart(ctx, d.id, sources)
	start := time.Now()
	loaded := 0
	defer func() {
		hooks.OnLoadComplete(ctx, d.id, loaded, time.Since(start), err)
	}()

	vols, names, err := d.openSources(ctx, sources, opts.Level)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, v := range vols {
			v.Close()
		}
	}()
	loaded = len(vols)

	var ranges map[string]geom.Range
	if opts.Extent != nil && opts.Box == nil {
		if position == nil {
			position = Centre(vols[0])
		}
		if ranges, err = CropRanges(position, opts.Extent); err != nil {
			return nil, err
		}
	}

	arrs := make([]*ndarray.Array, len(vols))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range vols {
		g.Go(func() error {
			box := v.Transform().VoxelBox(v.Shape(), ranges)
			if opts.Box != nil {
				if opts.Box.Rank() != len(box.Min) {
					return cerrors.New(cerrors.ErrCodeInvalidInput,
						"box %v for %s of rank %d", opts.Box, names[i], len(box.Min))
				}
				box = opts.Box.Intersect(box)
			}
			a, err := v.Read(gctx, box)
			if err != nil {
				return fmt.Errorf("read %s: %w", names[i], err)
			}
			a.Name = names[i]
			arrs[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(arrs) == 1 {
		return arrs[0], nil
	}
	for i, a := range arrs[1:] {
		if slices.Equal(a.Shape, arrs[0].Shape) && sameCoords(a, arrs[0]) {
			continue
		}
		if arrs[i+1], err = a.Nearest(arrs[0]); err != nil {
			return nil, fmt.Errorf("align %s to %s: %w", names[i+1], names[0], err)
		}
	}
	return ndarray.Concat(arrs, SourceDim, names)
}

// selectSources drops excluded content types and maps the 8-bit EM source to
// its 16-bit original, without duplicates.
func (d *Dataset) selectSources(sources, exclude []string) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if src, ok := d.manifest.Sources[s]; ok && slices.Contains(exclude, src.ContentType) {
			continue
		}
		if s == "fibsem-uint8" {
			s = "fibsem-uint16"
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// openSources opens every source concurrently. Skipped sources are logged
// and reported to the load hooks; the result keeps request order.
func (d *Dataset) openSources(ctx context.Context, sources []string, level int) ([]source.Volume, []string, error) {
	vols := make([]source.Volume, len(sources))
	errs := make([]error, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range sources {
		g.Go(func() error {
			vols[i], errs[i] = d.ReadSource(gctx, name, level)
			if errs[i] != nil && !skippable(errs[i]) {
				return errs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, v := range vols {
			if v != nil {
				v.Close()
			}
		}
		return nil, nil, err
	}

	var (
		out   []source.Volume
		names []string
	)
	for i, name := range sources {
		if errs[i] != nil {
			d.logger.Warn("could not load source", "dataset", d.id, "source", name, "err", errs[i])
			observability.Load().OnSourceSkipped(ctx, d.id, name, errs[i])
			continue
		}
		out = append(out, vols[i])
		names = append(names, name)
	}
	if len(out) == 0 {
		return nil, nil, cerrors.Wrap(cerrors.ErrCodeNotFound, ErrNothingLoaded,
			"none of %v could be read from %s", sources, d.id)
	}
	return out, names, nil
}

func skippable(err error) bool {
	return errors.Is(err, ErrSourceNotFound) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, n5.ErrNotArray)
}

func sameCoords(a, b *ndarray.Array) bool {
	for _, d := range a.Dims {
		if !slices.Equal(a.Coords[d], b.Coords[d]) {
			return false
		}
	}
	return true
}

// Centre returns the physical centre of a volume in X, Y, Z.
func Centre(v source.Volume) []float64 {
	tr, shape := v.Transform(), v.Shape()
	out := make([]float64, 3)
	for i, name := range geom.XYZ {
		if ax := tr.AxisIndex(name); ax >= 0 {
			out[i] = tr.ToPhysical(ax, float64(shape[ax]-1)/2)
		}
	}
	return out
}

// CropRanges converts a position (X, Y, Z) and an extent (one value or X, Y,
// Z) into the inclusive physical range [p - e/2, p + e/2] on each axis.
func CropRanges(position, extent []float64) (map[string]geom.Range, error) {
	if len(position) != 3 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "position must be of length 3 (X, Y, Z), got %d", len(position))
	}
	ext, err := geom.Vec3From(extent)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "extent")
	}
	ranges := make(map[string]geom.Range, 3)
	for i, name := range geom.XYZ {
		if ext[i] < 0 {
			return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "negative extent %g on %s", ext[i], name)
		}
		ranges[name] = geom.Around(position[i], ext[i])
	}
	return ranges, nil
}

// CropAround selects the part of arr within extent/2 of position on x, y
// and z. arr must carry coordinates for those dims.
func CropAround(arr *ndarray.Array, position, extent []float64) (*ndarray.Array, error) {
	ranges, err := CropRanges(position, extent)
	if err != nil {
		return nil, err
	}
	return arr.Sel(ranges)
}
