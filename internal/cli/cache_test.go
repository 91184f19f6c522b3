package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/microsim/cosem/pkg/cache"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(home, ".cache", "cosem"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(xdg, "cosem"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestOpenCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	ctx := context.Background()

	tests := []struct {
		name    string
		backend string
		noCache bool
		check   func(cache.Cache) bool
	}{
		{"file", cache.BackendFile, false, func(c cache.Cache) bool { _, ok := c.(*cache.FileCache); return ok }},
		{"memory", cache.BackendMemory, false, func(c cache.Cache) bool { _, ok := c.(*cache.MemoryCache); return ok }},
		{"none", cache.BackendNone, false, func(c cache.Cache) bool { _, ok := c.(*cache.NullCache); return ok }},
		{"no-cache flag", cache.BackendFile, true, func(c cache.Cache) bool { _, ok := c.(*cache.NullCache); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(io.Discard, LogInfo)
			c.config = defaultConfig()
			c.config.Cache.Backend = tt.backend
			c.noCache = tt.noCache
			defer c.close()

			got, err := c.openCache(ctx)
			if err != nil {
				t.Fatalf("openCache() error: %v", err)
			}
			if !tt.check(got) {
				t.Errorf("openCache() = %T", got)
			}
		})
	}
}

func TestCacheCommands(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	tests := []struct {
		name    string
		backend string
		args    []string
		wantErr bool
	}{
		{"clear file", cache.BackendFile, []string{"cache", "clear"}, false},
		{"clear memory", cache.BackendMemory, []string{"cache", "clear"}, false},
		{"clear one dataset", cache.BackendMemory, []string{"cache", "clear", "--dataset", "jrc_hela-2"}, false},
		{"clear disabled", cache.BackendNone, []string{"cache", "clear"}, false},
		{"invalid dataset", cache.BackendMemory, []string{"cache", "clear", "--dataset", "../etc"}, true},
		{"path", cache.BackendFile, []string{"cache", "path"}, false},
		{"extra argument", cache.BackendFile, []string{"cache", "path", "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeConfig(t, fmt.Sprintf("[cache]\nbackend = %q\n", tt.backend))
			root := New(io.Discard, LogInfo).RootCommand()
			root.SetArgs(append([]string{"--config", cfg}, tt.args...))
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			err := root.ExecuteContext(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("%v: error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}
