package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/microsim/cosem/pkg/buildinfo"
	"github.com/microsim/cosem/pkg/observability"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//   - With log_file in config.toml: also to a rotating file
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool
	tmpl := buildinfo.Template()

	root := &cobra.Command{
		Use:          appName,
		Short:        "Browse and load COSEM electron microscopy datasets",
		Long:         `cosem reads the OpenOrganelle dataset catalog, loads views and regions of FIB-SEM volumes and their segmentations, and renders them as PNG projections.`,
		Version:      buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}

	root.SetVersionTemplate(tmpl)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/cosem/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "bypass the response cache")

	root.AddCommand(c.datasetsCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.viewsCommand())
	root.AddCommand(c.thumbnailCommand())
	root.AddCommand(c.loadCommand())
	root.AddCommand(c.sampleCommand())
	root.AddCommand(c.linesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration, attaches the log file and installs the
// logging hooks before any command runs.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.config = cfg

	if cfg.LogFile != "" {
		f, err := openLogFile(cfg)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, f)
		c.Logger.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	hooks := logHooks{logger: c.Logger}
	observability.SetLoadHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)

	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}
