package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/microsim/cosem/pkg/cache"
	cerrors "github.com/microsim/cosem/pkg/errors"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the catalog and block cache",
		Long: `The cache holds the dataset index, manifests, thumbnails and N5 blocks.
Its backend is chosen by [cache] backend in config.toml.`,
	}
	cmd.AddCommand(c.cacheClearCommand(), c.cachePathCommand())
	return cmd
}

// cacheClearCommand clears the configured backend, or with --dataset only
// the catalog entries of one dataset.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached entries",
		Example: `  cosem cache clear
  cosem cache clear --dataset jrc_hela-2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backendName := c.cfg().Cache.Backend
			if c.noCache || backendName == cache.BackendNone {
				printInfo("Caching is disabled, nothing to clear")
				return nil
			}

			if dataset != "" {
				if err := cerrors.ValidateDatasetID(dataset); err != nil {
					return err
				}
				cat, err := c.newCatalog(ctx)
				if err != nil {
					return err
				}
				if err := cat.Invalidate(ctx, dataset); err != nil {
					return err
				}
				printSuccess("Dropped the cached manifest and thumbnail of %s", dataset)
				return nil
			}

			backend, err := c.openCache(ctx)
			if err != nil {
				return fmt.Errorf("open %s cache: %w", backendName, err)
			}
			clearer, ok := backend.(cache.Clearer)
			if !ok {
				printWarning("The %s cache cannot be cleared", backendName)
				return nil
			}
			if err := clearer.Clear(ctx); err != nil {
				return err
			}
			printSuccess("Cleared the %s cache", backendName)
			if fc, ok := backend.(*cache.FileCache); ok {
				printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "only drop the catalog entries of this dataset")
	return cmd
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("cache directory: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
