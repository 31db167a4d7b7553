package ratelimit

import (
	"context"
	"fmt"

	"github.com/funnelbase/funnelbase/internal/config"
)

// CheckoutLimiter throttles order creation per caller. A nil limiter means
// rate limiting is disabled and every request passes.
type CheckoutLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewCheckoutLimiter(bucket *TokenBucket, cfg config.RateLimitConfig) *CheckoutLimiter {
	if bucket == nil || !cfg.Enabled {
		return nil
	}
	return &CheckoutLimiter{
		bucket: bucket,
		rate:   cfg.CheckoutRate,
		burst:  cfg.CheckoutBurst,
	}
}

func (l *CheckoutLimiter) Allow(ctx context.Context, userID, remoteIP string) (*Result, error) {
	if l == nil {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf("funnelbase:ratelimit:checkout:%s:%s", userID, remoteIP)
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
