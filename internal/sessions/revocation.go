// Package sessions tracks revoked access tokens in Redis so that a signed-out
// token is rejected before it expires.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "docregistry:revoked:"

// Revoker stores revoked token ids. A Revoker with a nil client disables
// revocation: Revoke is a no-op and IsRevoked reports false.
type Revoker struct {
	client *redis.Client
}

// NewRevoker returns a Revoker backed by client, which may be nil.
func NewRevoker(client *redis.Client) *Revoker {
	return &Revoker{client: client}
}

// Enabled reports whether revocation is backed by Redis.
func (r *Revoker) Enabled() bool { return r != nil && r.client != nil }

// Revoke marks token id jti as revoked for ttl, normally the token's
// remaining lifetime. Non-positive ttls are ignored since the token is no
// longer accepted anyway.
func (r *Revoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if !r.Enabled() || ttl <= 0 {
		return nil
	}
	if jti == "" {
		return errors.New("sessions: empty token id")
	}
	return r.client.Set(ctx, keyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked and has not yet aged out.
func (r *Revoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if !r.Enabled() || jti == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
