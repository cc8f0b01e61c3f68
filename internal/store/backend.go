// Package store provides the durable key-value media the knowledge base is
// persisted in. Every backend stores opaque JSON documents under fixed keys.
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Backend is a last-writer-wins key-value store.
type Backend interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// OpenBackend picks a backend from the URL scheme: postgres://, postgresql://,
// sqlite://<path>, redis://, rediss:// or memory://.
func OpenBackend(ctx context.Context, rawURL, migrationsDir string) (Backend, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		db, err := Open(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewPostgresStore(db), nil
	case "sqlite":
		path := strings.TrimPrefix(rawURL, parsed.Scheme+"://")
		return OpenSQLite(ctx, path)
	case "redis", "rediss":
		return NewRedisStore(ctx, rawURL)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", parsed.Scheme)
	}
}
