package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/microsim/cosem/pkg/bresenham"
	"github.com/microsim/cosem/pkg/observability"
	"github.com/microsim/cosem/pkg/preview"
)

func (c *CLI) linesCommand() *cobra.Command {
	var (
		shapeFlag string
		segFlags  []string
		file      string
		output    string
		width     int
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "lines",
		Short: "Rasterize line segments into a 2D or 3D grid and save it as PNG",
		Long: `Draw straight segments into a boolean grid with Bresenham's algorithm.

Each segment lists its start point followed by its end point, so a 2D grid
takes 4 integers per segment and a 3D grid 6. Segments come from --segment
(repeatable) or from a JSON file holding an array of integer arrays; "-"
reads the file from stdin. 3D grids are projected along their last axis.`,
		Example: `  cosem lines --shape 64,64 --segment 0,0,63,40 --segment 10,60,60,5
  cosem lines --shape 32,32,16 --file segments.json -o tube.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shape, err := parseInts(shapeFlag)
			if err != nil {
				return fmt.Errorf("--shape: %w", err)
			}
			for _, e := range shape {
				if e < 1 {
					return fmt.Errorf("--shape: extents must be positive, got %v", shape)
				}
			}
			segments, err := readSegments(segFlags, file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			grid := bresenham.NewGrid(shape...)
			start := time.Now()
			err = bresenham.DrawLinesParallel(cmd.Context(), segments, grid, workers)
			observability.Load().OnRasterize(cmd.Context(), len(segments), grid.Count(), time.Since(start), err)
			if err != nil {
				return err
			}

			img, err := preview.Grid(grid)
			if err != nil {
				return err
			}
			if err := writeImage(output, preview.Scale(img, width)); err != nil {
				return err
			}
			printSuccess("Rasterized %s segments", humanize.Comma(int64(len(segments))))
			printDetail("%s of %s cells marked", humanize.Comma(int64(grid.Count())), humanize.Comma(int64(grid.Len())))
			printFile(output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&shapeFlag, "shape", "64,64", "grid extents, 2 or 3 comma-separated integers")
	f.StringArrayVar(&segFlags, "segment", nil, "segment as comma-separated start and end coordinates")
	f.StringVarP(&file, "file", "f", "", "JSON file of segments (- for stdin)")
	f.StringVarP(&output, "output", "o", "lines.png", "output PNG file")
	f.IntVar(&width, "width", 0, "scale the image to this width in pixels")
	f.IntVar(&workers, "workers", 0, "parallel workers (0 uses GOMAXPROCS)")
	return cmd
}

// readSegments collects segments from flags and, when set, a JSON file.
func readSegments(flags []string, file string, stdin io.Reader) ([]bresenham.Segment, error) {
	var out []bresenham.Segment
	for _, s := range flags {
		seg, err := parseInts(s)
		if err != nil {
			return nil, fmt.Errorf("--segment %q: %w", s, err)
		}
		out = append(out, seg)
	}
	if file == "" {
		return out, nil
	}

	var r io.Reader = stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var fromFile [][]int
	if err := json.NewDecoder(r).Decode(&fromFile); err != nil {
		return nil, fmt.Errorf("read segments from %s: %w", file, err)
	}
	for _, seg := range fromFile {
		out = append(out, seg)
	}
	return out, nil
}
