// Package respcache is a best-effort, time-expiring cache of decoded API
// responses kept in a kvstore.Store under a namespace prefix.
//
// Nothing in this package returns an error to the caller. Storage faults,
// corrupt entries and encoding problems are logged and behave like a miss,
// so a broken or disabled store never turns into a failed request.
package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"catalogd/internal/metrics"
	"catalogd/pkg/kvstore"
)

const (
	DefaultTTL    = 5 * time.Minute
	DefaultPrefix = "course_explorer_cache_"
)

var errMalformed = errors.New("malformed cache entry")

// Stats is a diagnostic snapshot of the namespace.
type Stats struct {
	Entries   int   `json:"totalEntries"`
	TotalSize int64 `json:"totalSize"`
	Expired   int   `json:"expiredEntries"`
}

type Cache struct {
	store  kvstore.Store
	prefix string
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

type Option func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

func New(store kvstore.Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
		now:    time.Now,
		log:    log.With().Str("component", "respcache").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }
func (c *Cache) Prefix() string     { return c.prefix }

// Get returns the payload stored under key if it is still fresh. A stale or
// unreadable entry is deleted and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	raw, ok, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		c.fault("get", key, err)
		metrics.CacheMisses.Inc()
		return nil, false
	}
	if !ok {
		metrics.CacheMisses.Inc()
		return nil, false
	}

	e, err := decodeEntry(raw)
	if err != nil {
		c.fault("decode", key, err)
		c.evict(ctx, key)
		metrics.CacheMisses.Inc()
		return nil, false
	}
	if !e.FreshAt(c.now()) {
		c.log.Debug().Str("key", key).Time("expired_at", e.ExpiresAt()).Msg("stale entry")
		c.evict(ctx, key)
		metrics.CacheMisses.Inc()
		return nil, false
	}

	metrics.CacheHits.Inc()
	return e.Data, true
}

// Set stores payload under key for the configured TTL, replacing any prior
// entry. json.RawMessage and []byte payloads are stored verbatim; anything
// else is marshalled first.
func (c *Cache) Set(ctx context.Context, key string, payload any) {
	data, err := encodePayload(payload)
	if err != nil {
		c.fault("encode", key, err)
		return
	}
	b, err := json.Marshal(newEntry(data, c.now(), c.ttl))
	if err != nil {
		c.fault("encode", key, err)
		return
	}
	if err := c.store.Set(ctx, c.prefix+key, string(b)); err != nil {
		c.fault("set", key, err)
	}
}

// Remember is cache-aside: serve key from cache, otherwise call fetch and
// store what it returns. Errors from fetch are returned and never cached.
// When ctx is already done by the time fetch returns the result is handed
// back but not written, so an abandoned request cannot overwrite the cache.
func (c *Cache) Remember(ctx context.Context, key string, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if data, ok := c.Get(ctx, key); ok {
		c.log.Debug().Str("key", key).Msg("cache hit")
		return data, nil
	}

	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		c.log.Debug().Str("key", key).Msg("request abandoned, result not cached")
		return data, nil
	}
	c.Set(ctx, key, data)
	return data, nil
}

// Clear drops a single key.
func (c *Cache) Clear(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, c.prefix+key); err != nil {
		c.fault("delete", key, err)
	}
}

// ClearAll drops every key in the namespace and returns how many went.
func (c *Cache) ClearAll(ctx context.Context) int {
	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		c.fault("keys", "", err)
		return 0
	}
	removed := 0
	for _, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			c.fault("delete", k, err)
			continue
		}
		removed++
	}
	return removed
}

// SweepExpired removes every entry whose expiry is at or before now, plus
// entries that cannot be decoded. Fresh entries are left untouched.
func (c *Cache) SweepExpired(ctx context.Context) int {
	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		c.fault("keys", "", err)
		return 0
	}

	now := c.now()
	removed := 0
	for _, k := range keys {
		raw, ok, err := c.store.Get(ctx, k)
		if err != nil {
			c.fault("get", k, err)
			continue
		}
		if !ok {
			continue
		}
		if e, err := decodeEntry(raw); err == nil && e.FreshAt(now) {
			continue
		}
		if err := c.store.Delete(ctx, k); err != nil {
			c.fault("delete", k, err)
			continue
		}
		metrics.CacheEvictions.Inc()
		removed++
	}
	if removed > 0 {
		c.log.Info().Int("removed", removed).Msg("swept expired cache entries")
	}
	return removed
}

// Stats counts entries in the namespace. Undecodable entries count as
// expired since the next sweep removes them.
func (c *Cache) Stats(ctx context.Context) Stats {
	var st Stats
	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		c.fault("keys", "", err)
		return st
	}

	now := c.now()
	for _, k := range keys {
		raw, ok, err := c.store.Get(ctx, k)
		if err != nil {
			c.fault("get", k, err)
			continue
		}
		if !ok {
			continue
		}
		st.Entries++
		st.TotalSize += int64(len(raw))
		if e, err := decodeEntry(raw); err != nil || !e.FreshAt(now) {
			st.Expired++
		}
	}
	return st
}

func (c *Cache) evict(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, c.prefix+key); err != nil {
		c.fault("delete", key, err)
		return
	}
	metrics.CacheEvictions.Inc()
}

func (c *Cache) fault(op, key string, err error) {
	metrics.CacheStoreErrors.WithLabelValues(op).Inc()
	c.log.Warn().Err(err).Str("op", op).Str("key", key).Msg("cache fault ignored")
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, errMalformed
		}
		return p, nil
	case []byte:
		if !json.Valid(p) {
			return nil, errMalformed
		}
		return json.RawMessage(p), nil
	default:
		return json.Marshal(payload)
	}
}
