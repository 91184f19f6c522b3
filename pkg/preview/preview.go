// Package preview renders rasterized grids and loaded volumes as 8-bit
// grayscale images.
//
// Volumes are reduced to two dimensions by maximum intensity projection and
// contrast stretched to the full 0-255 range. Images can be rescaled with
// Catmull-Rom interpolation and written as PNG.
package preview

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/microsim/cosem/pkg/bresenham"
	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/ndarray"
)

// Grid renders a rasterization grid. Marked cells are white.
//
// Coordinate k of a point indexes axis k, so axis 0 (x) runs left to right
// and axis 1 (y) top to bottom. A 3D grid is projected along z.
func Grid(g *bresenham.Grid) (*image.Gray, error) {
	switch g.Rank() {
	case 2:
	case 3:
		g = ProjectGrid(g)
	default:
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, bresenham.ErrDimensionMismatch,
			"preview of rank-%d grid", g.Rank())
	}
	w, h := g.Shape[0], g.Shape[1]
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			if g.At(x, y) != 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img, nil
}

// ProjectGrid collapses the last axis of a 3D grid: a cell is marked when
// any cell along z is.
func ProjectGrid(g *bresenham.Grid) *bresenham.Grid {
	nx, ny, nz := g.Shape[0], g.Shape[1], g.Shape[2]
	out := bresenham.NewGrid(nx, ny)
	for x := range nx {
		for y := range ny {
			for z := range nz {
				if g.At(x, y, z) != 0 {
					out.Set(1, x, y)
					break
				}
			}
		}
	}
	return out
}

// Array renders a labeled array. Every dimension but the last two is
// max-projected away; the second to last becomes rows and the last columns.
// Values are stretched linearly from the array's minimum to its maximum.
func Array(a *ndarray.Array) (*image.Gray, error) {
	if a.Rank() < 2 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "preview needs at least 2 dimensions, got %v", a.Dims)
	}
	for a.Rank() > 2 {
		var err error
		if a, err = a.MaxProject(a.Dims[0]); err != nil {
			return nil, err
		}
	}

	h, w := a.Shape[0], a.Shape[1]
	img := image.NewGray(image.Rect(0, 0, w, h))
	lo, hi := a.MinMax()
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}
	for y := range h {
		for x := range w {
			v := a.At(y, x)
			if math.IsNaN(v) {
				continue
			}
			img.Pix[y*img.Stride+x] = uint8(math.Round((v - lo) * scale))
		}
	}
	return img, nil
}

// Scale resizes img to the given width, keeping its aspect ratio, with
// Catmull-Rom interpolation. A width of zero or the current width returns
// img unchanged.
func Scale(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || width == b.Dx() || b.Dx() == 0 {
		return img
	}
	height := max(1, int(math.Round(float64(b.Dy())*float64(width)/float64(b.Dx()))))
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}
