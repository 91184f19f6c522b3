// Package geom holds the small amount of geometry shared by the volume
// readers: physical points, half-open voxel boxes and per-axis affine
// transforms between voxel indices and physical (nanometer) coordinates.
package geom

import (
	"fmt"
	"math"
	"strings"

	cerrors "github.com/microsim/cosem/pkg/errors"
)

// Vec3 is a physical position or extent in X, Y, Z order.
type Vec3 [3]float64

// XYZ names the components of a Vec3, in order.
var XYZ = [3]string{"x", "y", "z"}

// Vec3From converts a slice of 1 or 3 values. A single value is repeated
// on every axis.
func Vec3From(v []float64) (Vec3, error) {
	switch len(v) {
	case 1:
		return Vec3{v[0], v[0], v[0]}, nil
	case 3:
		return Vec3{v[0], v[1], v[2]}, nil
	}
	return Vec3{}, cerrors.New(cerrors.ErrCodeInvalidInput, "need 1 or 3 values (X, Y, Z), got %d", len(v))
}

// Get returns the component for the named axis ("x", "y" or "z").
func (v Vec3) Get(axis string) (float64, bool) {
	for i, name := range XYZ {
		if name == axis {
			return v[i], true
		}
	}
	return 0, false
}

// Box is a half-open region of voxel indices: Min is inclusive, Max exclusive.
type Box struct {
	Min []int
	Max []int
}

// NewBox copies min and max into a Box.
func NewBox(min, max []int) Box {
	return Box{Min: append([]int(nil), min...), Max: append([]int(nil), max...)}
}

// BoxOf returns the box covering an entire array of the given shape.
func BoxOf(shape []int) Box {
	return Box{Min: make([]int, len(shape)), Max: append([]int(nil), shape...)}
}

// Rank returns the number of axes.
func (b Box) Rank() int { return len(b.Min) }

// Size returns the extent along every axis; empty axes report 0.
func (b Box) Size() []int {
	out := make([]int, len(b.Min))
	for i := range b.Min {
		out[i] = max(b.Max[i]-b.Min[i], 0)
	}
	return out
}

// NumVoxels returns the number of voxels inside the box.
func (b Box) NumVoxels() int64 {
	n := int64(1)
	for _, s := range b.Size() {
		n *= int64(s)
	}
	return n
}

// Empty reports whether the box holds no voxels.
func (b Box) Empty() bool {
	for i := range b.Min {
		if b.Max[i] <= b.Min[i] {
			return true
		}
	}
	return false
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p []int) bool {
	if len(p) != len(b.Min) {
		return false
	}
	for i, c := range p {
		if c < b.Min[i] || c >= b.Max[i] {
			return false
		}
	}
	return true
}

// Intersect returns the overlap of two boxes of the same rank.
func (b Box) Intersect(o Box) Box {
	out := Box{Min: make([]int, len(b.Min)), Max: make([]int, len(b.Min))}
	for i := range b.Min {
		out.Min[i] = max(b.Min[i], o.Min[i])
		out.Max[i] = min(b.Max[i], o.Max[i])
	}
	return out
}

// Blocks returns the inclusive range of block indices, per axis, that the
// box touches on a grid of the given block size.
func (b Box) Blocks(blockSize []int) (first, last []int) {
	first = make([]int, len(b.Min))
	last = make([]int, len(b.Min))
	for i := range b.Min {
		first[i] = b.Min[i] / blockSize[i]
		last[i] = (b.Max[i] - 1) / blockSize[i]
	}
	return first, last
}

func (b Box) String() string {
	parts := make([]string, len(b.Min))
	for i := range b.Min {
		parts[i] = fmt.Sprintf("%d:%d", b.Min[i], b.Max[i])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Transform maps voxel indices to physical coordinates, one axis at a time:
// physical = index*Scale + Translate. Axes are listed in array order.
type Transform struct {
	Axes      []string  `json:"axes"`
	Units     []string  `json:"units,omitempty"`
	Scale     []float64 `json:"scale"`
	Translate []float64 `json:"translate"`
}

// Identity returns a unit-scale, zero-offset transform over the named axes.
func Identity(axes ...string) Transform {
	t := Transform{
		Axes:      append([]string(nil), axes...),
		Units:     make([]string, len(axes)),
		Scale:     make([]float64, len(axes)),
		Translate: make([]float64, len(axes)),
	}
	for i := range axes {
		t.Units[i] = "nm"
		t.Scale[i] = 1
	}
	return t
}

// Validate checks that the transform describes rank axes with positive scales.
func (t Transform) Validate(rank int) error {
	if len(t.Axes) != rank || len(t.Scale) != rank || len(t.Translate) != rank {
		return cerrors.New(cerrors.ErrCodeInvalidInput,
			"transform has %d axes, %d scales and %d offsets, want %d",
			len(t.Axes), len(t.Scale), len(t.Translate), rank)
	}
	for i, s := range t.Scale {
		if !(s > 0) {
			return cerrors.New(cerrors.ErrCodeInvalidInput, "transform scale on axis %q must be positive, got %g", t.Axes[i], s)
		}
	}
	return nil
}

// AxisIndex returns the array position of the named axis, or -1.
func (t Transform) AxisIndex(name string) int {
	for i, a := range t.Axes {
		if a == name {
			return i
		}
	}
	return -1
}

// ToPhysical converts a voxel index on the given axis to a physical coordinate.
func (t Transform) ToPhysical(axis int, index float64) float64 {
	return index*t.Scale[axis] + t.Translate[axis]
}

// ToVoxel converts a physical coordinate on the given axis to a fractional voxel index.
func (t Transform) ToVoxel(axis int, v float64) float64 {
	return (v - t.Translate[axis]) / t.Scale[axis]
}

// Coords returns the physical coordinate of every index in [start, start+n) on axis.
func (t Transform) Coords(axis, start, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = t.ToPhysical(axis, float64(start+i))
	}
	return out
}

// Sub returns the transform of a region starting at the given voxel offset.
func (t Transform) Sub(offset []int) Transform {
	out := Transform{
		Axes:      append([]string(nil), t.Axes...),
		Units:     append([]string(nil), t.Units...),
		Scale:     append([]float64(nil), t.Scale...),
		Translate: make([]float64, len(t.Translate)),
	}
	for i := range t.Translate {
		out.Translate[i] = t.ToPhysical(i, float64(offset[i]))
	}
	return out
}

// Range is an inclusive physical interval.
type Range struct {
	Lo, Hi float64
}

// Around returns the interval of width extent centred on p.
func Around(p, extent float64) Range {
	return Range{Lo: p - extent/2, Hi: p + extent/2}
}

// VoxelBox returns the voxels of an array of the given shape whose physical
// coordinates fall inside the named ranges. Axes without a range keep their
// full extent. The result may be empty.
func (t Transform) VoxelBox(shape []int, ranges map[string]Range) Box {
	b := BoxOf(shape)
	for name, r := range ranges {
		ax := t.AxisIndex(name)
		if ax < 0 {
			continue
		}
		lo := int(math.Ceil(t.ToVoxel(ax, r.Lo) - 1e-9))
		hi := int(math.Floor(t.ToVoxel(ax, r.Hi)+1e-9)) + 1
		b.Min[ax] = min(max(lo, 0), shape[ax])
		b.Max[ax] = min(max(hi, 0), shape[ax])
	}
	return b
}
