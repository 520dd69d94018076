// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tonymphomilanzi/microbid/internal/config"
)

const (
	redisConnectAttempts = 5
	redisConnectBackoff  = 500 * time.Millisecond
)

// Redis backs rate limiting and, when quota.store is redis, the monthly
// usage counters.
type Redis struct {
	Client *redis.Client
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)
	r := &Redis{Client: client}

	backoff := redisConnectBackoff
	for attempt := 1; ; attempt++ {
		err = r.Ping(ctx)
		if err == nil {
			return r, nil
		}
		if attempt == redisConnectAttempts {
			break
		}

		slog.WarnContext(ctx, "redis not ready, retrying",
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			_ = client.Close() //nolint:errcheck // cleanup on cancelled startup
			return nil, ctx.Err()
		}
		backoff *= 2
	}

	_ = client.Close() //nolint:errcheck // cleanup on connection failure
	return nil, fmt.Errorf("connect redis after %d attempts: %w", redisConnectAttempts, err)
}

// Universal exposes the client through the interface the quota store
// accepts, so a cluster client can be swapped in.
func (r *Redis) Universal() redis.UniversalClient {
	return r.Client
}

func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}
