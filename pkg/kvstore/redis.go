package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores values as plain redis strings. Expiry is owned by the caller,
// so keys are written without a redis TTL.
type Redis struct {
	Cfg    Config
	Client *redis.Client
}

// OpenRedis connects and pings the server before handing the store out.
func OpenRedis(ctx context.Context, cfg Config) (*Redis, error) {
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 2 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dial,
	})

	pctx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()

	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &Redis{Cfg: cfg, Client: rdb}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.Client.Set(ctx, key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := r.Client.Scan(ctx, 0, globEscape(prefix)+"*", 200).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// globEscape quotes the MATCH metacharacters so a prefix is matched literally.
func globEscape(s string) string {
	return globReplacer.Replace(s)
}
