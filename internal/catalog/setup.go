package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"catalogd/internal/config"
	"catalogd/internal/respcache"
	"catalogd/pkg/kvstore"
)

// Open wires store, cache and client from configuration, sweeping stale
// entries unless the config opts out. The returned cleanup closes the store.
//
// A store that cannot be opened is not fatal: the client falls back to the
// "none" driver and every request goes upstream.
func Open(ctx context.Context, cfg *config.Config) (*Client, func(), error) {
	store, err := kvstore.Open(ctx, cfg.Cache.Store())
	if err != nil {
		log.Warn().Err(err).Str("driver", cfg.Cache.Driver).Msg("cache store unavailable, caching disabled")
		store = kvstore.Unavailable{}
	}

	cache := respcache.New(store,
		respcache.WithTTL(cfg.Cache.TTLDuration()),
		respcache.WithPrefix(cfg.Cache.Prefix),
	)
	if !cfg.Cache.SkipStartupSweep {
		cache.SweepExpired(ctx)
	}

	client, err := New(Config{
		BaseURL:  cfg.Upstream.BaseURL,
		Timeout:  cfg.Upstream.TimeoutDuration(),
		Coalesce: !cfg.Upstream.NoCoalesce,
	}, cache)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("init catalog client: %w", err)
	}

	log.Info().
		Str("driver", cfg.Cache.Driver).
		Dur("ttl", cache.TTL()).
		Str("upstream", cfg.Upstream.BaseURL).
		Msg("catalog ready")

	return client, func() { _ = store.Close() }, nil
}
