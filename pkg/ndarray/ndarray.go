// Package ndarray provides dense float64 arrays with named dimensions and
// per-dimension physical coordinates.
//
// Arrays are stored in row-major (C) order: the last dimension varies
// fastest. Coordinates are optional per dimension; selection by physical
// range needs them, index slicing does not.
package ndarray

import (
	"errors"
	"fmt"
	"math"
	"slices"

	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/geom"
)

var (
	// ErrShape is returned when shapes, dimension names or data lengths disagree.
	ErrShape = errors.New("shape mismatch")

	// ErrNoDim is returned when a named dimension does not exist.
	ErrNoDim = errors.New("no such dimension")
)

// Array is a labeled N-dimensional array.
type Array struct {
	Name   string
	Dims   []string
	Shape  []int
	Data   []float64
	Coords map[string][]float64
	// Labels holds string coordinates, such as source names along a
	// concatenation axis.
	Labels map[string][]string
	Attrs  map[string]any
}

// New allocates a zero-filled array.
func New(dims []string, shape []int) (*Array, error) {
	if len(dims) != len(shape) {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrShape,
			"%d dimension names for %d axes", len(dims), len(shape))
	}
	n := 1
	for i, s := range shape {
		if s < 0 {
			return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrShape,
				"negative extent %d on %q", s, dims[i])
		}
		n *= s
	}
	return &Array{
		Dims:   slices.Clone(dims),
		Shape:  slices.Clone(shape),
		Data:   make([]float64, n),
		Coords: map[string][]float64{},
		Labels: map[string][]string{},
		Attrs:  map[string]any{},
	}, nil
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.Shape) }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.Data) }

// Axis returns the position of the named dimension, or -1.
func (a *Array) Axis(dim string) int {
	return slices.Index(a.Dims, dim)
}

// Sizes maps every dimension name to its extent.
func (a *Array) Sizes() map[string]int {
	out := make(map[string]int, len(a.Dims))
	for i, d := range a.Dims {
		out[d] = a.Shape[i]
	}
	return out
}

// At returns the element at idx. It panics if idx is out of range.
func (a *Array) At(idx ...int) float64 {
	return a.Data[a.offset(idx)]
}

// Set stores v at idx. It panics if idx is out of range.
func (a *Array) Set(v float64, idx ...int) {
	a.Data[a.offset(idx)] = v
}

// SetTransform fills the coordinates of every dimension named by t.
func (a *Array) SetTransform(t geom.Transform) {
	for ax, name := range t.Axes {
		if i := a.Axis(name); i >= 0 {
			a.Coords[name] = t.Coords(ax, 0, a.Shape[i])
		}
	}
}

// MinMax returns the smallest and largest element. An empty array reports NaN twice.
func (a *Array) MinMax() (lo, hi float64) {
	if len(a.Data) == 0 {
		return math.NaN(), math.NaN()
	}
	lo, hi = a.Data[0], a.Data[0]
	for _, v := range a.Data[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Slice returns a copy of the elements inside box, with coordinates and
// labels cut to match.
func (a *Array) Slice(box geom.Box) (*Array, error) {
	if box.Rank() != a.Rank() {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrShape,
			"box rank %d for array rank %d", box.Rank(), a.Rank())
	}
	box = box.Intersect(geom.BoxOf(a.Shape))
	for i := range box.Min {
		box.Min[i] = min(box.Min[i], a.Shape[i])
	}
	out, err := New(a.Dims, box.Size())
	if err != nil {
		return nil, err
	}
	out.Name = a.Name
	for k, v := range a.Attrs {
		out.Attrs[k] = v
	}
	for i, d := range a.Dims {
		lo, hi := box.Min[i], box.Min[i]+out.Shape[i]
		if c, ok := a.Coords[d]; ok {
			out.Coords[d] = slices.Clone(c[lo:hi])
		}
		if l, ok := a.Labels[d]; ok {
			out.Labels[d] = slices.Clone(l[lo:hi])
		}
	}
	if out.Len() == 0 {
		return out, nil
	}

	// Copy contiguous runs along the last axis.
	last := a.Rank() - 1
	run := out.Shape[last]
	idx := slices.Clone(box.Min)
	for dst := 0; dst < out.Len(); dst += run {
		src := a.offset(idx)
		copy(out.Data[dst:dst+run], a.Data[src:src+run])
		for ax := last - 1; ax >= 0; ax-- {
			idx[ax]++
			if idx[ax] < box.Min[ax]+out.Shape[ax] {
				break
			}
			idx[ax] = box.Min[ax]
		}
	}
	return out, nil
}

// Sel selects, for each named dimension, the elements whose coordinate lies in
// the inclusive range. Dimensions not named keep their full extent.
func (a *Array) Sel(ranges map[string]geom.Range) (*Array, error) {
	box := geom.BoxOf(a.Shape)
	for dim, r := range ranges {
		i := a.Axis(dim)
		if i < 0 {
			return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrNoDim, "select on %q", dim)
		}
		coords, ok := a.Coords[dim]
		if !ok {
			return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "dimension %q has no coordinates", dim)
		}
		lo, hi := coordSpan(coords, r)
		box.Min[i], box.Max[i] = lo, hi
	}
	return a.Slice(box)
}

// coordSpan returns the half-open index range of coords inside r. Coordinates
// may be ascending or descending but are assumed monotonic.
func coordSpan(coords []float64, r geom.Range) (int, int) {
	lo, hi := -1, -1
	for i, c := range coords {
		if c >= r.Lo && c <= r.Hi {
			if lo < 0 {
				lo = i
			}
			hi = i + 1
		}
	}
	if lo < 0 {
		return 0, 0
	}
	return lo, hi
}

// Concat stacks arrays of identical dims and shape along a new leading
// dimension. labels, when given, name each input and become the string
// coordinates of the new dimension. Coordinates and attributes come from the
// first input.
func Concat(arrs []*Array, dim string, labels []string) (*Array, error) {
	if len(arrs) == 0 {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrShape, "concat of zero arrays")
	}
	if labels != nil && len(labels) != len(arrs) {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrShape,
			"%d labels for %d arrays", len(labels), len(arrs))
	}
	first := arrs[0]
	if first.Axis(dim) >= 0 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "dimension %q already exists", dim)
	}
	for i, arr := range arrs[1:] {
		if !slices.Equal(arr.Dims, first.Dims) || !slices.Equal(arr.Shape, first.Shape) {
			return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrShape,
				"array %d has dims %v shape %v, want %v %v", i+1, arr.Dims, arr.Shape, first.Dims, first.Shape)
		}
	}

	out, err := New(append([]string{dim}, first.Dims...), append([]int{len(arrs)}, first.Shape...))
	if err != nil {
		return nil, err
	}
	for i, arr := range arrs {
		copy(out.Data[i*first.Len():], arr.Data)
	}
	for k, v := range first.Coords {
		out.Coords[k] = slices.Clone(v)
	}
	for k, v := range first.Labels {
		out.Labels[k] = slices.Clone(v)
	}
	for k, v := range first.Attrs {
		out.Attrs[k] = v
	}
	if labels != nil {
		out.Labels[dim] = slices.Clone(labels)
	}
	return out, nil
}

// Index returns the sub-array at position i along dim, with dim removed.
func (a *Array) Index(dim string, i int) (*Array, error) {
	ax := a.Axis(dim)
	if ax < 0 {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrNoDim, "index %q", dim)
	}
	if i < 0 || i >= a.Shape[ax] {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "index %d out of range for %q of length %d", i, dim, a.Shape[ax])
	}
	box := geom.BoxOf(a.Shape)
	box.Min[ax], box.Max[ax] = i, i+1
	sub, err := a.Slice(box)
	if err != nil {
		return nil, err
	}
	sub.Dims = slices.Delete(sub.Dims, ax, ax+1)
	sub.Shape = slices.Delete(sub.Shape, ax, ax+1)
	if l, ok := a.Labels[dim]; ok {
		sub.Name = l[i]
	}
	delete(sub.Coords, dim)
	delete(sub.Labels, dim)
	return sub, nil
}

// MaxProject collapses dim by taking the maximum along it.
func (a *Array) MaxProject(dim string) (*Array, error) {
	ax := a.Axis(dim)
	if ax < 0 {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrNoDim, "project along %q", dim)
	}
	dims := slices.Delete(slices.Clone(a.Dims), ax, ax+1)
	shape := slices.Delete(slices.Clone(a.Shape), ax, ax+1)
	out, err := New(dims, shape)
	if err != nil {
		return nil, err
	}
	out.Name = a.Name
	for _, d := range dims {
		if c, ok := a.Coords[d]; ok {
			out.Coords[d] = slices.Clone(c)
		}
		if l, ok := a.Labels[d]; ok {
			out.Labels[d] = slices.Clone(l)
		}
	}
	if out.Len() == 0 {
		return out, nil
	}
	if a.Shape[ax] == 0 {
		for i := range out.Data {
			out.Data[i] = math.NaN()
		}
		return out, nil
	}

	// outer × n × inner, reduced over n.
	outer, inner := 1, 1
	for i := 0; i < ax; i++ {
		outer *= a.Shape[i]
	}
	for i := ax + 1; i < a.Rank(); i++ {
		inner *= a.Shape[i]
	}
	n := a.Shape[ax]
	for o := 0; o < outer; o++ {
		dst := out.Data[o*inner : (o+1)*inner]
		copy(dst, a.Data[o*n*inner:o*n*inner+inner])
		for k := 1; k < n; k++ {
			src := a.Data[(o*n+k)*inner:]
			for i := range dst {
				dst[i] = max(dst[i], src[i])
			}
		}
	}
	return out, nil
}

func (a *Array) String() string {
	return fmt.Sprintf("Array(%s, dims=%v, shape=%v)", a.Name, a.Dims, a.Shape)
}

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("ndarray: index rank %d for array rank %d", len(idx), len(a.Shape)))
	}
	off := 0
	for i, c := range idx {
		if c < 0 || c >= a.Shape[i] {
			panic(fmt.Sprintf("ndarray: index %v out of range for shape %v", idx, a.Shape))
		}
		off = off*a.Shape[i] + c
	}
	return off
}

// Nearest resamples a onto the coordinates of like: every element of the
// result takes the value of the element of a whose coordinate is closest,
// per dimension. Dims must match and every dim of like needs coordinates.
// Coordinates must be ascending.
func (a *Array) Nearest(like *Array) (*Array, error) {
	if !slices.Equal(a.Dims, like.Dims) {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrShape,
			"resample dims %v onto %v", a.Dims, like.Dims)
	}
	index := make([][]int, a.Rank())
	for i, d := range a.Dims {
		src, ok := a.Coords[d]
		dst, ok2 := like.Coords[d]
		if !ok || !ok2 {
			return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "dimension %q has no coordinates", d)
		}
		if len(src) == 0 && len(dst) > 0 {
			return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrShape, "resample empty dimension %q", d)
		}
		index[i] = make([]int, len(dst))
		for j, c := range dst {
			index[i][j] = nearestIndex(src, c)
		}
	}

	out, err := New(a.Dims, like.Shape)
	if err != nil {
		return nil, err
	}
	out.Name = a.Name
	for k, v := range a.Attrs {
		out.Attrs[k] = v
	}
	for _, d := range a.Dims {
		out.Coords[d] = slices.Clone(like.Coords[d])
	}
	if out.Len() == 0 {
		return out, nil
	}

	dst := make([]int, out.Rank())
	src := make([]int, out.Rank())
	for o := range out.Data {
		for i := range dst {
			src[i] = index[i][dst[i]]
		}
		out.Data[o] = a.At(src...)
		for ax := len(dst) - 1; ax >= 0; ax-- {
			dst[ax]++
			if dst[ax] < out.Shape[ax] {
				break
			}
			dst[ax] = 0
		}
	}
	return out, nil
}

// nearestIndex returns the index of the ascending coords entry closest to c.
func nearestIndex(coords []float64, c float64) int {
	i, _ := slices.BinarySearch(coords, c)
	switch {
	case i == 0:
		return 0
	case i == len(coords):
		return len(coords) - 1
	case c-coords[i-1] <= coords[i]-c:
		return i - 1
	default:
		return i
	}
}
