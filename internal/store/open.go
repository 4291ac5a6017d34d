package store

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures the backend of both scopes.
type Config struct {
	Backend string // memory, file, sqlite or redis (default: file)
	Dir     string // state directory for file and sqlite

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string // default: "l10n:"
}

// Open builds a Bridge whose two scopes live in the configured backend,
// kept apart by file name, namespace or key prefix.
func Open(ctx context.Context, cfg Config) (*Bridge, error) {
	open := func(scope Scope) (Store, error) {
		switch cfg.Backend {
		case BackendMemory:
			return NewMemory(), nil
		case BackendFile, "":
			return NewFile(filepath.Join(cfg.Dir, string(scope)+".json"))
		case BackendSQLite:
			return NewSQLite(ctx, filepath.Join(cfg.Dir, "state.db"), string(scope))
		case BackendRedis:
			prefix := cfg.RedisPrefix
			if prefix == "" {
				prefix = "l10n:"
			}
			return NewRedis(RedisOptions{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
				Prefix:   prefix + string(scope) + ":",
			})
		default:
			return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
		}
	}

	shared, err := open(Shared)
	if err != nil {
		return nil, fmt.Errorf("open shared store: %w", err)
	}
	private, err := open(Private)
	if err != nil {
		shared.Close()
		return nil, fmt.Errorf("open private store: %w", err)
	}
	return NewBridge(shared, private), nil
}
