package jwttoken

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRevocationPrefix = "mintgate:revoked:"

// RevocationList is a Redis-backed deny list of token IDs. Entries expire
// with the token they revoke.
type RevocationList struct {
	client *redis.Client
	prefix string
}

func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{client: client, prefix: defaultRevocationPrefix}
}

// Revoke denies jti for ttl. A non-positive ttl is rejected because the
// entry would never expire.
func (l *RevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return fmt.Errorf("jti is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	return l.client.Set(ctx, l.prefix+jti, 1, ttl).Err()
}

// IsTokenRevoked implements the auth middleware's TokenRevocationChecker.
func (l *RevocationList) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
