package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/microsim/cosem/pkg/cache"
	"github.com/microsim/cosem/pkg/catalog"
	"github.com/microsim/cosem/pkg/cosem"
	"github.com/microsim/cosem/pkg/n5"
	"github.com/microsim/cosem/pkg/source"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "cosem"

	// redisPrefix namespaces keys when several tools share a redis server.
	redisPrefix = "cosem:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
	config     *Config
	backend    cache.Cache
	closers    []io.Closer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// cfg returns the loaded configuration, or the defaults before setup ran.
func (c *CLI) cfg() *Config {
	if c.config == nil {
		return defaultConfig()
	}
	return c.config
}

// close releases everything opened on behalf of the running command.
func (c *CLI) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			c.Logger.Debug("close", "err", err)
		}
	}
	c.closers = nil
	c.backend = nil
}

// =============================================================================
// Client Factory
// =============================================================================

// openCache builds the configured response cache, once per command.
func (c *CLI) openCache(ctx context.Context) (cache.Cache, error) {
	if c.backend != nil {
		return c.backend, nil
	}
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	cc := c.cfg().Cache
	cfg := cache.Config{
		Backend:     cc.Backend,
		MemoryBytes: cc.MemoryMB << 20,
		Redis:       cache.RedisConfig{Addr: cc.RedisAddr, Prefix: redisPrefix},
		Mongo:       cache.MongoConfig{URI: cc.MongoURI},
	}
	if cfg.Backend == "" || cfg.Backend == cache.BackendFile {
		dir, err := cacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "err", err)
			c.backend = cache.NewNullCache()
			return c.backend, nil
		}
		cfg.Dir = dir
	}
	backend, err := cache.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, backend)
	c.backend = backend
	return backend, nil
}

// newCatalog creates a catalog client over the configured cache.
func (c *CLI) newCatalog(ctx context.Context) (*catalog.Client, error) {
	backend, err := c.openCache(ctx)
	if err != nil {
		return nil, err
	}
	cfg := c.cfg()
	opts := []catalog.Option{catalog.WithLogger(c.Logger)}
	if cfg.CatalogURL != "" {
		opts = append(opts, catalog.WithBaseURL(cfg.CatalogURL))
	}
	return catalog.NewClient(backend, cfg.Cache.TTL.Duration, opts...), nil
}

// openDataset fetches the manifest of id. N5 blocks read through the
// dataset share the catalog's cache backend.
func (c *CLI) openDataset(ctx context.Context, id string) (*cosem.Dataset, error) {
	cat, err := c.newCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return cosem.New(ctx, cat, id, c.datasetOptions()...)
}

func (c *CLI) datasetOptions() []cosem.Option {
	opts := []cosem.Option{cosem.WithLogger(c.Logger)}
	if c.backend == nil {
		return opts
	}
	reg := source.NewDefaultRegistry(source.WithArrayOptions(
		n5.WithCache(c.backend, nil, c.cfg().Cache.TTL.Duration),
		n5.WithLogger(c.Logger),
	))
	return append(opts, cosem.WithRegistry(reg))
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/cosem/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Flag Helpers
// =============================================================================

// parseInts parses a comma-separated list such as "64,64,32".
func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// outputName turns a dataset or source name into a file name stem.
func outputName(parts ...string) string {
	r := strings.NewReplacer("/", "_", " ", "_", ":", "_")
	for i, p := range parts {
		parts[i] = r.Replace(p)
	}
	return strings.Join(parts, "_")
}
