package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/microsim/cosem/pkg/cosem"
	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/ndarray"
	"github.com/microsim/cosem/pkg/preview"
)

func (c *CLI) loadCommand() *cobra.Command {
	var (
		opts   cosem.LoadOptions
		whole  bool
		outDir string
		width  int
	)

	cmd := &cobra.Command{
		Use:   "load <dataset>",
		Short: "Load a view or a set of sources and save PNG projections",
		Long: `Load voxel data from a dataset and save one maximum-intensity projection
per source.

Sources come from --source, or from the view chosen with --view. The crop is
centred on --position (X,Y,Z in nm), the view position, or the centre of the
first source, and is --extent nm wide (one value or X,Y,Z).`,
		Example: `  cosem load jrc_hela-2 --view mito --extent 2000
  cosem load jrc_hela-2 --source er_seg,mito_seg --position 24000,3200,16000 --level 2
  cosem load jrc_hela-2 --view mito --exclude segmentation`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Name == "" && len(opts.Sources) == 0 {
				return fmt.Errorf("one of --view or --source is required")
			}
			for _, name := range opts.Sources {
				if err := cerrors.ValidateSourceName(name); err != nil {
					return err
				}
			}
			if whole {
				opts.Extent = nil
			}
			ctx := cmd.Context()
			prog := newProgress(c.Logger)
			ds, err := c.openDataset(ctx, args[0])
			if err != nil {
				return err
			}
			arr, err := withSpinner(ctx, "Loading "+ds.ID()+"...", func(ctx context.Context) (*ndarray.Array, error) {
				return ds.LoadView(ctx, opts)
			})
			if err != nil {
				return err
			}
			prog.done("Loaded " + ds.ID())
			return c.saveProjections(arr, outDir, ds.ID(), width)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Name, "view", "", "view name or prefix")
	f.StringSliceVarP(&opts.Sources, "source", "s", nil, "sources to load, in stacking order")
	f.Float64SliceVar(&opts.Position, "position", nil, "crop centre X,Y,Z in nm")
	f.Float64SliceVar(&opts.Extent, "extent", []float64{cosem.DefaultExtent}, "crop size in nm: one value or X,Y,Z")
	f.StringSliceVar(&opts.Exclude, "exclude", nil, "skip sources with these content types")
	f.IntVar(&opts.Level, "level", 0, "resolution level (0 is full resolution)")
	f.BoolVar(&whole, "whole", false, "read whole volumes instead of a crop")
	f.StringVarP(&outDir, "output", "o", ".", "directory for the PNG files")
	f.IntVar(&width, "width", 0, "scale projections to this width in pixels")
	return cmd
}

func (c *CLI) sampleCommand() *cobra.Command {
	var (
		list   bool
		outDir string
		width  int
	)

	cmd := &cobra.Command{
		Use:   "sample <name>",
		Short: "Load a preset sample region and save PNG projections",
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			var names []string
			for _, s := range cosem.Samples() {
				names = append(names, s.Name+"\t"+s.Description)
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				printSamples()
				return nil
			}
			s, err := cosem.LookupSample(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			prog := newProgress(c.Logger)
			ds, err := c.openDataset(ctx, s.Dataset)
			if err != nil {
				return err
			}
			arr, err := withSpinner(ctx, "Loading sample "+s.Name+"...", func(ctx context.Context) (*ndarray.Array, error) {
				return ds.LoadSample(ctx, s)
			})
			if err != nil {
				return err
			}
			prog.done("Loaded sample " + s.Name)
			return c.saveProjections(arr, outDir, s.Name, width)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list the available samples")
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "directory for the PNG files")
	cmd.Flags().IntVar(&width, "width", 0, "scale projections to this width in pixels")
	return cmd
}

func printSamples() {
	var rows [][]string
	for _, s := range cosem.Samples() {
		region := fmt.Sprintf("%g nm around %g", s.Extent, s.Position)
		if s.Box != nil {
			region = fmt.Sprintf("box %s at level %d", formatBox(s.Box.Min, s.Box.Max), s.Level)
		}
		rows = append(rows, []string{s.Name, s.Dataset, strings.Join(s.Sources, ", "), region, s.Description})
	}
	fmt.Fprintln(stdout, renderTable([]string{"Sample", "Dataset", "Sources", "Region", "Description"}, rows))
}

func formatBox(min, max []int) string {
	parts := make([]string, len(min))
	for i := range min {
		parts[i] = fmt.Sprintf("%d:%d", min[i], max[i])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// saveProjections writes one PNG per source of arr into dir.
func (c *CLI) saveProjections(arr *ndarray.Array, dir, stem string, width int) error {
	printSuccess("Loaded %s", stem)
	printArrayStats(arr)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	paths, err := writeProjections(arr, dir, stem, width)
	for _, p := range paths {
		printFile(p)
	}
	return err
}

// writeProjections splits arr along the source axis, projects each source
// to 2D and writes it as <stem>_<source>.png. It returns the written paths.
func writeProjections(arr *ndarray.Array, dir, stem string, width int) ([]string, error) {
	type part struct {
		name string
		arr  *ndarray.Array
	}
	var parts []part
	if axis := arr.Axis(cosem.SourceDim); axis >= 0 {
		for i := range arr.Shape[axis] {
			sub, err := arr.Index(cosem.SourceDim, i)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part{sub.Name, sub})
		}
	} else {
		parts = append(parts, part{arr.Name, arr})
	}

	var paths []string
	for _, p := range parts {
		img, err := preview.Array(p.arr)
		if err != nil {
			return paths, fmt.Errorf("project %s: %w", p.name, err)
		}
		name := stem
		if p.name != "" {
			name = outputName(stem, p.name)
		}
		path := filepath.Join(dir, name+".png")
		if err := writeImage(path, preview.Scale(img, width)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
