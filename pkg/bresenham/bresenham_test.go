package bresenham

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	cerrors "github.com/microsim/cosem/pkg/errors"
)

func TestDrawLines_Diagonal2D(t *testing.T) {
	const n = 100
	a := NewGrid(n, n)
	if err := DrawLines([]Segment{{0, 0, n - 1, n - 1}}, a); err != nil {
		t.Fatalf("DrawLines() error: %v", err)
	}

	expect := NewGrid(n, n)
	for i := range n {
		expect.Set(1, i, i)
	}
	if !a.Equal(expect) {
		t.Errorf("diagonal mismatch: got %d marked cells, want %d", a.Count(), n)
	}
}

func TestDrawLines_Diagonal3D(t *testing.T) {
	const n = 100
	a := NewGrid(n, n, n)
	if err := DrawLines([]Segment{{0, 0, 0, n - 1, n - 1, n - 1}}, a); err != nil {
		t.Fatalf("DrawLines() error: %v", err)
	}

	expect := NewGrid(n, n, n)
	for i := range n {
		expect.Set(1, i, i, i)
	}
	if !a.Equal(expect) {
		t.Errorf("diagonal mismatch: got %d marked cells, want %d", a.Count(), n)
	}
}

func TestPath_Known(t *testing.T) {
	tests := []struct {
		name string
		seg  Segment
		want [][]int
	}{
		{
			name: "shallow 2D",
			seg:  Segment{0, 0, 4, 2},
			want: [][]int{{0, 0}, {1, 0}, {2, 1}, {3, 1}, {4, 2}},
		},
		{
			name: "steep 2D",
			seg:  Segment{0, 0, 1, 3},
			want: [][]int{{0, 0}, {0, 1}, {1, 2}, {1, 3}},
		},
		{
			name: "axis aligned 2D",
			seg:  Segment{2, 1, 2, 4},
			want: [][]int{{2, 1}, {2, 2}, {2, 3}, {2, 4}},
		},
		{
			name: "x driven 3D",
			seg:  Segment{0, 0, 0, 4, 2, 1},
			want: [][]int{{0, 0, 0}, {1, 1, 0}, {2, 1, 1}, {3, 2, 1}, {4, 2, 1}},
		},
		{
			name: "z driven 3D",
			seg:  Segment{0, 0, 0, 0, 1, 3},
			want: [][]int{{0, 0, 0}, {0, 0, 1}, {0, 1, 2}, {0, 1, 3}},
		},
		{
			name: "degenerate 3D",
			seg:  Segment{3, 3, 3, 3, 3, 3},
			want: [][]int{{3, 3, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Path(tt.seg)
			if err != nil {
				t.Fatalf("Path() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Path(%v) = %v, want %v", tt.seg, got, tt.want)
			}
		})
	}
}

func TestWalk_Connectivity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, dim := range []int{2, 3} {
		for range 500 {
			seg := randomSegment(rng, dim, 40)
			path, err := Path(seg)
			if err != nil {
				t.Fatalf("Path(%v) error: %v", seg, err)
			}

			start, end := seg.Start(), seg.End()
			first, last := path[0], path[len(path)-1]
			if !(reflect.DeepEqual(first, start) && reflect.DeepEqual(last, end)) &&
				!(reflect.DeepEqual(first, end) && reflect.DeepEqual(last, start)) {
				t.Fatalf("Path(%v) runs %v -> %v, want the segment endpoints", seg, first, last)
			}

			maxDelta := 0
			for ax := range dim {
				maxDelta = max(maxDelta, abs(end[ax]-start[ax]))
			}
			if len(path) != maxDelta+1 {
				t.Errorf("Path(%v) has %d cells, want %d", seg, len(path), maxDelta+1)
			}

			for i := 1; i < len(path); i++ {
				for ax := range dim {
					if d := abs(path[i][ax] - path[i-1][ax]); d > 1 {
						t.Fatalf("Path(%v) jumps %d on axis %d between %v and %v", seg, d, ax, path[i-1], path[i])
					}
				}
			}
		}
	}
}

func TestDrawLines_Degenerate(t *testing.T) {
	for _, tt := range []struct {
		name  string
		shape []int
		seg   Segment
	}{
		{"2D", []int{5, 5}, Segment{2, 3, 2, 3}},
		{"3D", []int{5, 5, 5}, Segment{1, 2, 3, 1, 2, 3}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid(tt.shape...)
			if err := DrawLines([]Segment{tt.seg}, g); err != nil {
				t.Fatalf("DrawLines() error: %v", err)
			}
			if g.Count() != 1 {
				t.Errorf("Count() = %d, want 1", g.Count())
			}
			if g.At(tt.seg.Start()...) != 1 {
				t.Errorf("cell %v not marked", tt.seg.Start())
			}
		})
	}
}

func TestDrawLines_Symmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, dim := range []int{2, 3} {
		shape := make([]int, dim)
		for i := range shape {
			shape[i] = 30
		}
		for range 200 {
			seg := randomSegment(rng, dim, 30)
			fwd, rev := NewGrid(shape...), NewGrid(shape...)
			if err := DrawLines([]Segment{seg}, fwd); err != nil {
				t.Fatal(err)
			}
			if err := DrawLines([]Segment{seg.Reverse()}, rev); err != nil {
				t.Fatal(err)
			}
			if !fwd.Equal(rev) {
				t.Fatalf("segment %v and its reverse mark different cells", seg)
			}
		}
	}
}

func TestDrawLines_BatchIndependence(t *testing.T) {
	s1 := Segment{0, 0, 9, 4}
	s2 := Segment{9, 0, 0, 9}

	both := NewGrid(10, 10)
	if err := DrawLines([]Segment{s1, s2}, both); err != nil {
		t.Fatal(err)
	}

	g1, g2 := NewGrid(10, 10), NewGrid(10, 10)
	if err := DrawLines([]Segment{s1}, g1); err != nil {
		t.Fatal(err)
	}
	if err := DrawLines([]Segment{s2}, g2); err != nil {
		t.Fatal(err)
	}
	if err := g1.Union(g2); err != nil {
		t.Fatal(err)
	}
	if !both.Equal(g1) {
		t.Errorf("batch result differs from union of single segments:\n%s\nvs\n%s", both, g1)
	}

	reordered := NewGrid(10, 10)
	if err := DrawLines([]Segment{s2, s1}, reordered); err != nil {
		t.Fatal(err)
	}
	if !both.Equal(reordered) {
		t.Error("segment order changed the result")
	}
}

func TestDrawLines_SetsOne(t *testing.T) {
	g := NewGrid(4, 4)
	seg := Segment{0, 0, 3, 0}
	if err := DrawLines([]Segment{seg, seg, seg}, g); err != nil {
		t.Fatal(err)
	}
	for x := range 4 {
		if v := g.At(x, 0); v != 1 {
			t.Errorf("At(%d, 0) = %d, want 1", x, v)
		}
	}
}

func TestDrawLines_Validation(t *testing.T) {
	tests := []struct {
		name     string
		shape    []int
		segments []Segment
		want     error
	}{
		{"rank 1 grid", []int{10}, []Segment{{0, 1}}, ErrDimensionMismatch},
		{"rank 4 grid", []int{2, 2, 2, 2}, []Segment{{0, 0, 0, 0, 1, 1, 1, 1}}, ErrDimensionMismatch},
		{"3D segment on 2D grid", []int{5, 5}, []Segment{{0, 0, 0, 1, 1, 1}}, ErrDimensionMismatch},
		{"odd length", []int{5, 5}, []Segment{{0, 0, 1}}, ErrDimensionMismatch},
		{"end past extent", []int{5, 5}, []Segment{{0, 0, 5, 0}}, ErrOutOfRange},
		{"negative coordinate", []int{5, 5, 5}, []Segment{{0, 0, 0, 1, -1, 1}}, ErrOutOfRange},
		{"bad segment after good one", []int{5, 5}, []Segment{{0, 0, 4, 4}, {0, 0, 0, 9}}, ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid(tt.shape...)
			err := DrawLines(tt.segments, g)
			if !errors.Is(err, tt.want) {
				t.Fatalf("DrawLines() error = %v, want %v", err, tt.want)
			}
			if !cerrors.Is(err, cerrors.ErrCodeInvalidInput) {
				t.Errorf("error code = %q, want %q", cerrors.GetCode(err), cerrors.ErrCodeInvalidInput)
			}
			if g.Count() != 0 {
				t.Errorf("grid has %d marked cells after failed call, want 0", g.Count())
			}
		})
	}
}

func TestDrawLines_NilGrid(t *testing.T) {
	if err := DrawLines(nil, nil); err == nil {
		t.Error("expected error for nil grid")
	}
}

func TestDrawLines_ShortData(t *testing.T) {
	g := &Grid{Shape: []int{3, 3}, Data: make([]int32, 4)}
	if err := DrawLines([]Segment{{0, 0, 2, 2}}, g); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("DrawLines() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestDrivingAxisTieBreak(t *testing.T) {
	tests := []struct {
		deltas []int
		want   int
	}{
		{[]int{3, 1, 2}, 0},
		{[]int{1, 3, 2}, 1},
		{[]int{1, 2, 3}, 2},
		{[]int{3, 3, 1}, 0},
		{[]int{1, 3, 3}, 1},
		{[]int{3, 1, 3}, 0},
		{[]int{2, 2, 2}, 0},
		{[]int{0, 0, 0}, 0},
	}

	for _, tt := range tests {
		if got := DrivingAxis(tt.deltas...); got != tt.want {
			t.Errorf("DrivingAxis(%v) = %d, want %d", tt.deltas, got, tt.want)
		}
	}
}

func TestWalk_TiedAxesStepTogether(t *testing.T) {
	// x and y tie; whichever drives, both step on every iteration.
	path, err := Path(Segment{0, 0, 0, 4, 4, 2})
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range path {
		if p[0] != i || p[1] != i {
			t.Errorf("path[%d] = %v, want x = y = %d", i, p, i)
		}
	}
	if last := path[len(path)-1]; last[2] != 2 {
		t.Errorf("path ends at z = %d, want 2", last[2])
	}
}

func TestWalk_BadLength(t *testing.T) {
	err := Walk(Segment{1, 2, 3}, func([]int) { t.Error("visit called for invalid segment") })
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Walk() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestDrawLinesParallel_MatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	segments := make([]Segment, 300)
	for i := range segments {
		segments[i] = randomSegment(rng, 3, 25)
	}

	serial := NewGrid(25, 25, 25)
	if err := DrawLines(segments, serial); err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{0, 1, 4, 16} {
		parallel := NewGrid(25, 25, 25)
		if err := DrawLinesParallel(context.Background(), segments, parallel, workers); err != nil {
			t.Fatalf("DrawLinesParallel(workers=%d) error: %v", workers, err)
		}
		if !parallel.Equal(serial) {
			t.Errorf("DrawLinesParallel(workers=%d) differs from DrawLines", workers)
		}
	}
}

func TestDrawLinesParallel_Validation(t *testing.T) {
	g := NewGrid(5, 5)
	err := DrawLinesParallel(context.Background(), []Segment{{0, 0, 1, 1}, {0, 0, 0, 7}}, g, 2)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("error = %v, want ErrOutOfRange", err)
	}
	if g.Count() != 0 {
		t.Errorf("grid modified by rejected batch")
	}
}

func TestDrawLinesParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGrid(5, 5)
	err := DrawLinesParallel(ctx, []Segment{{0, 0, 4, 4}}, g, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestGrid_Marked(t *testing.T) {
	g := NewGrid(3, 4)
	g.Set(1, 0, 3)
	g.Set(1, 2, 1)
	want := [][]int{{0, 3}, {2, 1}}
	if got := g.Marked(); !reflect.DeepEqual(got, want) {
		t.Errorf("Marked() = %v, want %v", got, want)
	}
}

func TestGrid_UnionShapeMismatch(t *testing.T) {
	if err := NewGrid(2, 2).Union(NewGrid(2, 3)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Union() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestNewGrid_NegativeExtentPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewGrid(-1) did not panic")
		}
	}()
	NewGrid(3, -1)
}

func randomSegment(rng *rand.Rand, dim, extent int) Segment {
	seg := make(Segment, 2*dim)
	for i := range seg {
		seg[i] = rng.Intn(extent)
	}
	return seg
}
