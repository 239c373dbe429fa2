package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistKeyPrefix = "auth:revoked:"

// Denylist records revoked token ids until their natural expiry.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisDenylist stores revoked token ids as expiring Redis keys.
type RedisDenylist struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisDenylist builds a denylist on the given client.
func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

// Revoke marks tokenID revoked. Tokens already past expiresAt are ignored.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistKeyPrefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether tokenID has been revoked.
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, denylistKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
