package accounts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist blocks revoked access tokens until their natural expiry.
// Entries only need to live as long as the token itself would have.
type TokenDenylist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RedisDenylist keys entries by token digest so raw tokens never land in
// redis or its logs.
type RedisDenylist struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisDenylist creates a denylist over an existing redis client
func NewRedisDenylist(client redis.UniversalClient, prefix string) *RedisDenylist {
	if prefix == "" {
		prefix = "denylist"
	}
	return &RedisDenylist{client: client, prefix: prefix}
}

func (d *RedisDenylist) redisKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%s:%s", d.prefix, hex.EncodeToString(sum[:]))
}

// Revoke marks the token revoked for ttl. A non-positive ttl means the
// token is already past expiry and there is nothing to block.
func (d *RedisDenylist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.redisKey(token), "1", ttl).Err()
}

// IsRevoked reports whether the token was revoked before expiry
func (d *RedisDenylist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := d.client.Exists(ctx, d.redisKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
