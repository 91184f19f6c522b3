package geom

import (
	"reflect"
	"testing"
)

func TestVec3From(t *testing.T) {
	tests := []struct {
		name    string
		in      []float64
		want    Vec3
		wantErr bool
	}{
		{"scalar", []float64{1000}, Vec3{1000, 1000, 1000}, false},
		{"xyz", []float64{1, 2, 3}, Vec3{1, 2, 3}, false},
		{"empty", nil, Vec3{}, true},
		{"pair", []float64{1, 2}, Vec3{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Vec3From(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Vec3From(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Vec3From(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBox(t *testing.T) {
	b := NewBox([]int{0, 2, 4}, []int{10, 5, 4})
	if !b.Empty() {
		t.Error("box with zero extent should be empty")
	}
	if got := b.Size(); !reflect.DeepEqual(got, []int{10, 3, 0}) {
		t.Errorf("Size() = %v", got)
	}

	a := NewBox([]int{0, 0, 0}, []int{10, 10, 10})
	c := NewBox([]int{5, -3, 8}, []int{20, 4, 9})
	got := a.Intersect(c)
	want := NewBox([]int{5, 0, 8}, []int{10, 4, 9})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Intersect() = %v, want %v", got, want)
	}
	if got.NumVoxels() != 20 {
		t.Errorf("NumVoxels() = %d, want 20", got.NumVoxels())
	}
	if !got.Contains([]int{5, 3, 8}) || got.Contains([]int{10, 3, 8}) {
		t.Error("Contains() disagrees with half-open bounds")
	}
	if got.String() != "[5:10, 0:4, 8:9]" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestBoxBlocks(t *testing.T) {
	b := NewBox([]int{0, 63, 64}, []int{64, 65, 200})
	first, last := b.Blocks([]int{64, 64, 64})
	if !reflect.DeepEqual(first, []int{0, 0, 1}) || !reflect.DeepEqual(last, []int{0, 1, 3}) {
		t.Errorf("Blocks() = %v, %v", first, last)
	}
}

func TestTransform(t *testing.T) {
	tr := Transform{
		Axes:      []string{"z", "y", "x"},
		Units:     []string{"nm", "nm", "nm"},
		Scale:     []float64{3.24, 4, 4},
		Translate: []float64{0, 10, 0},
	}
	if err := tr.Validate(3); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if err := tr.Validate(2); err == nil {
		t.Error("Validate(2) should fail for a 3-axis transform")
	}
	if tr.AxisIndex("x") != 2 || tr.AxisIndex("c") != -1 {
		t.Error("AxisIndex() returned wrong positions")
	}
	if got := tr.ToPhysical(1, 5); got != 30 {
		t.Errorf("ToPhysical(1, 5) = %g, want 30", got)
	}
	if got := tr.ToVoxel(1, 30); got != 5 {
		t.Errorf("ToVoxel(1, 30) = %g, want 5", got)
	}
	if got := tr.Coords(2, 2, 3); !reflect.DeepEqual(got, []float64{8, 12, 16}) {
		t.Errorf("Coords() = %v", got)
	}

	sub := tr.Sub([]int{0, 2, 3})
	if sub.Translate[1] != 18 || sub.Translate[2] != 12 {
		t.Errorf("Sub() translate = %v", sub.Translate)
	}
}

func TestTransformValidateScale(t *testing.T) {
	tr := Identity("y", "x")
	tr.Scale[1] = 0
	if err := tr.Validate(2); err == nil {
		t.Error("zero scale should not validate")
	}
}

func TestVoxelBox(t *testing.T) {
	tr := Transform{
		Axes:      []string{"z", "y", "x"},
		Scale:     []float64{2, 2, 2},
		Translate: []float64{0, 0, 0},
	}
	shape := []int{100, 100, 100}

	got := tr.VoxelBox(shape, map[string]Range{
		"x": Around(50, 20), // [40, 60] -> voxels 20..30
		"y": {Lo: 1, Hi: 5}, // voxels 1..2
		"z": {Lo: -100, Hi: 3},
	})
	want := NewBox([]int{0, 1, 20}, []int{2, 3, 31})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("VoxelBox() = %v, want %v", got, want)
	}

	outside := tr.VoxelBox(shape, map[string]Range{"x": {Lo: 1000, Hi: 2000}})
	if !outside.Empty() {
		t.Errorf("VoxelBox() outside volume = %v, want empty", outside)
	}
}
