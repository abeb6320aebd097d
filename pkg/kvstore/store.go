// Package kvstore provides the string key-value backends the response cache
// persists into. Every driver is safe for concurrent use.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned by every operation of the "none" driver.
var ErrUnavailable = errors.New("kvstore: storage unavailable")

// Store is the minimal persisted-map contract: values are opaque strings.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		dir := cfg.Dir
		if dir == "" {
			d, ok := DefaultDir()
			if !ok {
				return nil, errors.New("file store: no cache directory could be resolved")
			}
			dir = d
		}
		return NewFile(dir)
	case "redis":
		return OpenRedis(ctx, cfg)
	case "sqlite":
		return OpenSQLite(ctx, cfg.DSN)
	case "none", "disabled":
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Unavailable fails every call. It stands in for storage that is switched
// off or broken, so callers exercise their miss path.
type Unavailable struct{}

func (Unavailable) Get(context.Context, string) (string, bool, error) {
	return "", false, ErrUnavailable
}
func (Unavailable) Set(context.Context, string, string) error { return ErrUnavailable }
func (Unavailable) Delete(context.Context, string) error      { return ErrUnavailable }
func (Unavailable) Keys(context.Context, string) ([]string, error) {
	return nil, ErrUnavailable
}
func (Unavailable) Close() error { return nil }
