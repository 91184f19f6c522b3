package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/microsim/cosem/pkg/cache"
	"github.com/microsim/cosem/pkg/catalog"
	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/server"
)

// Config is the contents of config.toml.
//
//	catalog_url = "https://example.org/api"
//	log_file    = "~/.local/state/cosem/cosem.log"
//
//	[cache]
//	backend   = "memory"
//	ttl       = "6h"
//	memory_mb = 256
//
//	[server]
//	addr = ":8080"
type Config struct {
	CatalogURL string       `toml:"catalog_url"`
	LogFile    string       `toml:"log_file"`
	MaxLogSize int          `toml:"max_log_size"` // megabytes
	MaxLogAge  int          `toml:"max_log_age"`  // days
	Cache      CacheConfig  `toml:"cache"`
	Server     ServerConfig `toml:"server"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend   string   `toml:"backend"`
	TTL       Duration `toml:"ttl"`
	MemoryMB  int      `toml:"memory_mb"`
	RedisAddr string   `toml:"redis_addr"`
	MongoURI  string   `toml:"mongo_uri"`
}

// ServerConfig configures "cosem serve".
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Duration is a time.Duration written as "90s", "6h" and so on.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func defaultConfig() *Config {
	return &Config{
		CatalogURL: catalog.DefaultBaseURL,
		MaxLogSize: 10,
		MaxLogAge:  28,
		Cache: CacheConfig{
			Backend:  cache.BackendFile,
			TTL:      Duration{catalog.DefaultTTL},
			MemoryMB: 64,
		},
		Server: ServerConfig{Addr: server.DefaultAddr},
	}
}

// loadConfig reads path over the defaults. A missing file at the default
// location is not an error; a missing file named explicitly is.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undec[0].String())
	}
	if cfg.LogFile != "" {
		cfg.LogFile = expandHome(cfg.LogFile)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if err := cerrors.ValidateURL(c.CatalogURL); err != nil {
		return fmt.Errorf("config: catalog_url: %w", err)
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendMemory, cache.BackendRedis, cache.BackendMongo, cache.BackendNone:
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == cache.BackendRedis && c.Cache.RedisAddr == "" {
		return errors.New("config: cache.redis_addr is required for the redis backend")
	}
	if c.Cache.Backend == cache.BackendMongo && c.Cache.MongoURI == "" {
		return errors.New("config: cache.mongo_uri is required for the mongo backend")
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New("config: cache.ttl must not be negative")
	}
	return nil
}

// configDir returns the config directory using XDG standard (~/.config/cosem/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
