package bresenham

import (
	"fmt"
	"strings"

	cerrors "github.com/microsim/cosem/pkg/errors"
)

// Grid is a dense integer buffer stored in row-major order.
//
// Shape holds the extent of each axis; the last axis varies fastest in Data.
// A Grid is owned by its caller and is not safe for concurrent mutation,
// except through [DrawLinesParallel].
type Grid struct {
	Shape []int
	Data  []int32
}

// NewGrid allocates a zero-filled grid with the given extents.
// It panics if any extent is negative.
func NewGrid(shape ...int) *Grid {
	n := 1
	for _, s := range shape {
		if s < 0 {
			panic(fmt.Sprintf("bresenham: negative grid extent %d", s))
		}
		n *= s
	}
	return &Grid{
		Shape: append([]int(nil), shape...),
		Data:  make([]int32, n),
	}
}

// Rank returns the number of axes.
func (g *Grid) Rank() int { return len(g.Shape) }

// Len returns the number of cells implied by Shape.
func (g *Grid) Len() int {
	n := 1
	for _, s := range g.Shape {
		n *= s
	}
	return n
}

// At returns the value at the given index. It panics if idx is out of range.
func (g *Grid) At(idx ...int) int32 {
	return g.Data[g.offset(idx)]
}

// Set stores v at the given index. It panics if idx is out of range.
func (g *Grid) Set(v int32, idx ...int) {
	g.Data[g.offset(idx)] = v
}

// Contains reports whether idx addresses a cell of the grid.
func (g *Grid) Contains(idx []int) bool {
	if len(idx) != len(g.Shape) {
		return false
	}
	for i, c := range idx {
		if c < 0 || c >= g.Shape[i] {
			return false
		}
	}
	return true
}

// Count returns the number of non-zero cells.
func (g *Grid) Count() int {
	n := 0
	for _, v := range g.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clear zeroes every cell.
func (g *Grid) Clear() {
	clear(g.Data)
}

// Union sets every cell of g to 1 where other is non-zero.
// Both grids must have the same shape.
func (g *Grid) Union(other *Grid) error {
	if !sameShape(g.Shape, other.Shape) {
		return cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrDimensionMismatch,
			"union of shapes %v and %v", g.Shape, other.Shape)
	}
	for i, v := range other.Data {
		if v != 0 {
			g.Data[i] = 1
		}
	}
	return nil
}

// Equal reports whether both grids have the same shape and contents.
func (g *Grid) Equal(other *Grid) bool {
	if !sameShape(g.Shape, other.Shape) || len(g.Data) != len(other.Data) {
		return false
	}
	for i := range g.Data {
		if g.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// Marked returns the indices of all non-zero cells in row-major order.
func (g *Grid) Marked() [][]int {
	var out [][]int
	idx := make([]int, len(g.Shape))
	for off, v := range g.Data {
		if v == 0 {
			continue
		}
		rem := off
		for ax := len(g.Shape) - 1; ax >= 0; ax-- {
			idx[ax] = rem % g.Shape[ax]
			rem /= g.Shape[ax]
		}
		out = append(out, append([]int(nil), idx...))
	}
	return out
}

// String renders a 2D grid as rows of digits, mostly for debugging and examples.
func (g *Grid) String() string {
	if len(g.Shape) != 2 {
		return fmt.Sprintf("Grid%v", g.Shape)
	}
	var b strings.Builder
	for x := 0; x < g.Shape[0]; x++ {
		for y := 0; y < g.Shape[1]; y++ {
			if y > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", g.At(x, y))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (g *Grid) offset(idx []int) int {
	if len(idx) != len(g.Shape) {
		panic(fmt.Sprintf("bresenham: index rank %d for grid rank %d", len(idx), len(g.Shape)))
	}
	off := 0
	for i, c := range idx {
		if c < 0 || c >= g.Shape[i] {
			panic(fmt.Sprintf("bresenham: index %v out of range for shape %v", idx, g.Shape))
		}
		off = off*g.Shape[i] + c
	}
	return off
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
