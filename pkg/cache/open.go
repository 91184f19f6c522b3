package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

// Config selects and configures a cache backend.
type Config struct {
	Backend string
	// Dir is the FileCache directory.
	Dir string
	// MemoryBytes bounds the MemoryCache.
	MemoryBytes int
	Redis       RedisConfig
	Mongo       MongoConfig
}

// Open builds the cache described by cfg. An empty backend means "file".
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file cache: no directory configured")
		}
		return NewFileCache(cfg.Dir)
	case BackendMemory:
		return NewMemoryCache(cfg.MemoryBytes), nil
	case BackendRedis:
		return NewRedisCache(ctx, cfg.Redis)
	case BackendMongo:
		return NewMongoCache(ctx, cfg.Mongo)
	case BackendNone:
		return NewNullCache(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}
