package cli

import (
	"context"
	"fmt"
	"image"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/microsim/cosem/pkg/catalog"
	"github.com/microsim/cosem/pkg/cosem"
	"github.com/microsim/cosem/pkg/geom"
	"github.com/microsim/cosem/pkg/n5"
	"github.com/microsim/cosem/pkg/preview"
)

func (c *CLI) datasetsCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, err := c.newCatalog(ctx)
			if err != nil {
				return err
			}
			idx, err := withSpinner(ctx, "Fetching dataset index...", func(ctx context.Context) (map[string]string, error) {
				return cat.Datasets(ctx, refresh)
			})
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(idx))
			for id := range idx {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			rows := make([][]string, len(ids))
			for i, id := range ids {
				rows[i] = []string{id, idx[id]}
			}
			fmt.Fprintln(stdout, renderTable([]string{"Dataset", "Location"}, rows))
			printDetail("%s datasets", humanize.Comma(int64(len(ids))))
			if len(ids) > 0 {
				printNextStep("Inspect one", "cosem info "+ids[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and fetch a fresh index")
	return cmd
}

func (c *CLI) infoCommand() *cobra.Command {
	var sizes bool
	var level int

	cmd := &cobra.Command{
		Use:               "info <dataset>",
		Short:             "Show the metadata and sources of a dataset",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ds, err := withSpinner(ctx, "Fetching manifest...", func(ctx context.Context) (*cosem.Dataset, error) {
				return c.openDataset(ctx, args[0])
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(stdout, StyleTitle.Render(ds.Summary()))
			printKeyValue("Title", ds.Title())
			if inst := ds.Metadata().Institution; len(inst) > 0 {
				printKeyValue("Institution", strings.Join(inst, ", "))
			}
			printKeyValue("Sources", StyleNumber.Render(strconv.Itoa(len(ds.Sources()))))
			printKeyValue("Views", StyleNumber.Render(strconv.Itoa(len(ds.Views()))))
			printNewline()

			headers := []string{"Source", "Format", "Content", "URL"}
			if sizes {
				headers = append(headers, "Shape", "Size")
			}
			var rows [][]string
			for _, name := range ds.SourceNames() {
				src := ds.Sources()[name]
				row := []string{name, src.Format, src.ContentType, StyleLink.Render(src.URL)}
				if sizes {
					row = append(row, c.sourceSize(ctx, ds, name, level)...)
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(stdout, renderTable(headers, rows))
			printNextStep("List views", "cosem views "+ds.ID())
			return nil
		},
	}

	cmd.Flags().BoolVar(&sizes, "sizes", false, "open every readable source to report its shape and size")
	cmd.Flags().IntVar(&level, "level", 0, "resolution level used with --sizes")
	return cmd
}

// sourceSize opens one level of a source and describes its shape and
// stored size. Unreadable sources get placeholders.
func (c *CLI) sourceSize(ctx context.Context, ds *cosem.Dataset, name string, level int) []string {
	vol, err := ds.ReadSource(ctx, name, level)
	if err != nil {
		c.Logger.Debug("size unavailable", "source", name, "err", err)
		return []string{"-", "-"}
	}
	defer vol.Close()

	shape := vol.Shape()
	n := uint64(1)
	parts := make([]string, len(shape))
	for i, e := range shape {
		n *= uint64(e)
		parts[i] = strconv.Itoa(e)
	}
	return []string{
		strings.Join(parts, "×"),
		humanize.Bytes(n * uint64(n5.DataType(vol.DType()).Size())),
	}
}

func (c *CLI) viewsCommand() *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:               "views <dataset>",
		Short:             "List the curated views of a dataset",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := withSpinner(cmd.Context(), "Fetching manifest...", func(ctx context.Context) (*cosem.Dataset, error) {
				return c.openDataset(ctx, args[0])
			})
			if err != nil {
				return err
			}
			views := ds.Views()
			if len(views) == 0 {
				printInfo("%s has no views", ds.ID())
				return nil
			}

			if pick {
				v, err := pickView(views)
				if err != nil {
					return err
				}
				if v == nil {
					return nil
				}
				printView(*v)
				printNextStep("Load it", fmt.Sprintf("cosem load %s --view %q", ds.ID(), v.Name))
				return nil
			}

			rows := make([][]string, len(views))
			for i, v := range views {
				rows[i] = []string{v.Name, strings.Join(v.Sources, ", "), formatPosition(v.Position)}
			}
			fmt.Fprintln(stdout, renderTable([]string{"View", "Sources", "Position"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&pick, "pick", false, "choose a view interactively")
	return cmd
}

func printView(v catalog.View) {
	fmt.Fprintln(stdout, StyleTitle.Render(v.Name))
	if v.Description != "" {
		printDetail("%s", v.Description)
	}
	printKeyValue("Sources", strings.Join(v.Sources, ", "))
	printKeyValue("Position", formatPosition(v.Position))
	if v.Scale != nil {
		printKeyValue("Scale", strconv.FormatFloat(*v.Scale, 'g', -1, 64))
	}
}

// formatPosition renders a view position in nm, or "-" when absent.
func formatPosition(p *geom.Vec3) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%g, %g, %g", p[0], p[1], p[2])
}

func (c *CLI) thumbnailCommand() *cobra.Command {
	var output string
	var width int

	cmd := &cobra.Command{
		Use:               "thumbnail <dataset>",
		Short:             "Save the catalog thumbnail of a dataset as PNG",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, err := c.newCatalog(ctx)
			if err != nil {
				return err
			}
			img, err := withSpinner(ctx, "Fetching thumbnail...", func(ctx context.Context) (image.Image, error) {
				return cat.Thumbnail(ctx, args[0], false)
			})
			if err != nil {
				return err
			}
			if output == "" {
				output = outputName(args[0], "thumbnail") + ".png"
			}
			if err := writeImage(output, preview.Scale(img, width)); err != nil {
				return err
			}
			printSuccess("Saved thumbnail of %s", args[0])
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <dataset>_thumbnail.png)")
	cmd.Flags().IntVar(&width, "width", 0, "scale to this width in pixels")
	return cmd
}

// writeImage encodes img as PNG at path.
func writeImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := preview.WritePNG(f, img); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
