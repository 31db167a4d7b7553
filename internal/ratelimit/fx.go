package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/funnelbase/funnelbase/internal/config"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewTokenBucket),
	fx.Provide(NewLocker),
	fx.Provide(func(bucket *TokenBucket, cfg config.Config) *CheckoutLimiter {
		return NewCheckoutLimiter(bucket, cfg.RateLimit)
	}),
)

// NewRedisClient returns nil when rate limiting is disabled; every consumer
// treats a nil client as a pass-through.
func NewRedisClient(cfg config.Config) *redis.Client {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
}
