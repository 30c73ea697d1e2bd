// Package cache holds the Redis client and the rate limiting buckets stored in it.
package cache

import (
	"context"
	"log/slog"
	"time"

	"notekeeper/config"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var (
	ErrFailedToParseRedisURL = errors.New("failed to parse redis connection string")
	ErrRedisNotReady         = errors.New("redis did not become ready within the given time period")
)

// Params holds dependencies for the Redis client, injected by Fx.
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// New returns a connected client, or nil when rate limiting is off and nothing else needs Redis.
func New(params Params) (*redis.Client, error) {
	cfg := params.Config
	if cfg.RateLimit == nil || !cfg.RateLimit.Enabled {
		params.Logger.Info("Rate limiting disabled, skipping redis connection")

		return nil, nil //nolint:nilnil
	}

	client, err := Connect(context.Background(), cfg.Redis)
	if err != nil {
		return nil, err
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			params.Logger.Info("Closing redis client")

			return errors.WithStack(client.Close())
		},
	})

	return client, nil
}

// Connect parses the URL and pings until the server answers or the attempts run out.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("redis url is empty")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(ErrFailedToParseRedisURL, err.Error())
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := max(cfg.RetryAttempts, 1)
	for range attempts {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ErrRedisNotReady, ctx.Err().Error())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}
