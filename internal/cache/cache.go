// Package cache stores data source responses for a bounded time. The
// in-process MemoryCache suits a single API instance; RedisCache shares
// entries between instances.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"portfolioanalytics/internal/config"
)

// Cache stores JSON-encodable values by key. Get decodes into out and
// reports whether the key was present and unexpired.
type Cache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Stats() Stats
	Close() error
}

// Stats are the counters exposed by health checks
type Stats struct {
	Backend  string  `json:"backend"`
	Entries  int     `json:"entries"`
	MaxSize  int     `json:"max_size,omitempty"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

func hitRatio(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// New builds the configured cache backend
func New(cfg config.CacheConfig, logger *slog.Logger) (Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.CacheBackendMemory, "":
		return NewMemoryCache(cfg.TTL(), cfg.MaxEntries), nil
	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPass,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("redis cache connected", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))
		return NewRedisCache(client, DefaultRedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
