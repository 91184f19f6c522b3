package cli

import (
	"github.com/spf13/cobra"

	"github.com/microsim/cosem/pkg/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		origins  []string
		maxCells int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog and the rasterizer over HTTP",
		Long: `Run an HTTP API over the dataset catalog (index, manifests, views and
thumbnails) and the line rasterizer. Responses from the catalog go through the
configured cache. The server stops gracefully on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.newCatalog(cmd.Context())
			if err != nil {
				return err
			}
			cfg := c.cfg().Server
			if cmd.Flags().Changed("addr") || cfg.Addr == "" {
				cfg.Addr = addr
			}
			if len(origins) > 0 {
				cfg.AllowedOrigins = origins
			}

			srv := server.New(cat, server.Config{
				Addr:           cfg.Addr,
				AllowedOrigins: cfg.AllowedOrigins,
				MaxCells:       maxCells,
				Logger:         c.Logger,
			})
			printInfo("Serving %s on http://%s", cat.BaseURL(), srv.Addr())
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address (overrides server.addr)")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "allowed CORS origins (default any)")
	cmd.Flags().IntVar(&maxCells, "max-cells", server.DefaultMaxCells, "largest grid a rasterize request may allocate")
	return cmd
}
