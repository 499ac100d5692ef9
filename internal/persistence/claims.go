package persistence

import (
	"context"
	"errors"
	"time"
)

// AcquireClaim takes a short-lived exclusive claim on key. It returns
// false when another holder already owns the claim. The TTL bounds how
// long a crashed holder can fence out others.
func (r *Redis) AcquireClaim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r == nil || r.Client == nil {
		return false, errors.New("redis client not configured")
	}
	return r.Client.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseClaim drops a claim early instead of waiting for TTL expiry.
func (r *Redis) ReleaseClaim(ctx context.Context, key string) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Del(ctx, key).Err()
}
