package bresenham

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	cerrors "github.com/microsim/cosem/pkg/errors"
)

var (
	// ErrDimensionMismatch is returned when a grid is not rank 2 or 3, or a
	// segment does not hold twice as many coordinates as the grid has axes.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrOutOfRange is returned when a segment endpoint lies outside the grid.
	ErrOutOfRange = errors.New("segment out of range")
)

// Segment is a straight line between two integer points, laid out as the
// start coordinates followed by the end coordinates: (x0, y0, x1, y1) in 2D
// or (x0, y0, z0, x1, y1, z1) in 3D.
type Segment []int

// Dim returns the number of coordinates per endpoint.
func (s Segment) Dim() int { return len(s) / 2 }

// Start returns the first endpoint.
func (s Segment) Start() []int { return s[:len(s)/2] }

// End returns the second endpoint.
func (s Segment) End() []int { return s[len(s)/2:] }

// Reverse returns the segment with its endpoints swapped.
func (s Segment) Reverse() Segment {
	d := len(s) / 2
	out := make(Segment, 0, len(s))
	out = append(out, s[d:]...)
	return append(out, s[:d]...)
}

// DrawLines sets every grid cell on the path of each segment to 1.
//
// The batch is validated before any write: see the package documentation
// for the dimension and range rules. On error the grid is left untouched.
func DrawLines(segments []Segment, grid *Grid) error {
	if err := validate(segments, grid); err != nil {
		return err
	}
	for _, seg := range segments {
		walk(seg, func(p []int) {
			grid.Data[grid.offset(p)] = 1
		})
	}
	return nil
}

// DrawLinesParallel is DrawLines with segments spread over up to workers
// goroutines. A workers value below 1 uses GOMAXPROCS.
//
// Cells are written with atomic 32-bit stores of the constant 1, so
// overlapping segments need no further synchronization. Cancelling ctx stops
// scheduling new segments and returns ctx.Err(); segments already walked stay
// marked.
func DrawLinesParallel(ctx context.Context, segments []Segment, grid *Grid, workers int) error {
	if err := validate(segments, grid); err != nil {
		return err
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, seg := range segments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			walk(seg, func(p []int) {
				atomic.StoreInt32(&grid.Data[grid.offset(p)], 1)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Walk calls visit for every cell on the path of seg, in path order.
//
// The slice passed to visit is reused between calls and must not be
// retained. Walk only checks that seg describes a 2D or 3D segment; it does
// not know about grid bounds.
func Walk(seg Segment, visit func(p []int)) error {
	if len(seg) != 4 && len(seg) != 6 {
		return cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrDimensionMismatch,
			"segment has %d coordinates, want 4 or 6", len(seg))
	}
	walk(seg, visit)
	return nil
}

// Path returns the cells visited by seg, in path order.
func Path(seg Segment) ([][]int, error) {
	var out [][]int
	err := Walk(seg, func(p []int) {
		out = append(out, append([]int(nil), p...))
	})
	return out, err
}

// DrivingAxis returns the index of the largest delta, preferring the lowest
// index when several deltas tie.
func DrivingAxis(deltas ...int) int {
	best := 0
	for i := 1; i < len(deltas); i++ {
		if deltas[i] > deltas[best] {
			best = i
		}
	}
	return best
}

func validate(segments []Segment, grid *Grid) error {
	if grid == nil {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "nil grid")
	}
	rank := grid.Rank()
	if rank != 2 && rank != 3 {
		return cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrDimensionMismatch,
			"grid rank %d, want 2 or 3", rank)
	}
	if n := grid.Len(); len(grid.Data) != n {
		return cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrDimensionMismatch,
			"grid holds %d cells, shape %v needs %d", len(grid.Data), grid.Shape, n)
	}
	for i, seg := range segments {
		if len(seg) != 2*rank {
			return cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrDimensionMismatch,
				"segment %d has %d coordinates, want %d", i, len(seg), 2*rank)
		}
		for j, c := range seg {
			if ax := j % rank; c < 0 || c >= grid.Shape[ax] {
				return cerrors.Wrap(cerrors.ErrCodeInvalidInput, ErrOutOfRange,
					"segment %d coordinate %d on axis %d outside [0, %d)", i, c, ax, grid.Shape[ax])
			}
		}
	}
	return nil
}

// walk dispatches on dimensionality after putting the endpoints in
// canonical order. seg must hold 4 or 6 coordinates.
func walk(seg Segment, visit func(p []int)) {
	d := len(seg) / 2
	a, b := seg[:d], seg[d:]
	if less(b, a) {
		a, b = b, a
	}
	if d == 2 {
		walk2(a[0], a[1], b[0], b[1], visit)
		return
	}
	walk3([3]int{a[0], a[1], a[2]}, [3]int{b[0], b[1], b[2]}, visit)
}

func walk2(x0, y0, x1, y1 int, visit func(p []int)) {
	dx, dy := abs(x1-x0), abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	err := dx - dy

	var p [2]int
	for {
		p[0], p[1] = x0, y0
		visit(p[:])
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func walk3(a, b [3]int, visit func(p []int)) {
	var d, s [3]int
	for i := range 3 {
		d[i] = abs(b[i] - a[i])
		s[i] = sign(b[i] - a[i])
	}

	drive := DrivingAxis(d[0], d[1], d[2])
	m1, m2 := (drive+1)%3, (drive+2)%3
	if m1 > m2 {
		m1, m2 = m2, m1
	}
	e1 := 2*d[m1] - d[drive]
	e2 := 2*d[m2] - d[drive]

	p := a
	visit(p[:])
	for p[drive] != b[drive] {
		p[drive] += s[drive]
		if e1 >= 0 {
			p[m1] += s[m1]
			e1 -= 2 * d[drive]
		}
		if e2 >= 0 {
			p[m2] += s[m2]
			e2 -= 2 * d[drive]
		}
		e1 += 2 * d[m1]
		e2 += 2 * d[m2]
		visit(p[:])
	}
}

// less orders points lexicographically.
func less(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
