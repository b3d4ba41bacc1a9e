package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRevocationKeyPrefix namespaces revocation keys in Redis
const DefaultRevocationKeyPrefix = "auth:revoked"

// RedisRevocationRegistry stores one key per revoked token with a TTL equal
// to the token's remaining lifetime, so entries expire on their own and
// every instance sharing the Redis sees the same set.
type RedisRevocationRegistry struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ RevocationRegistry = (*RedisRevocationRegistry)(nil)

// NewRedisRevocationRegistry wraps client. An empty prefix uses
// DefaultRevocationKeyPrefix.
func NewRedisRevocationRegistry(client redis.UniversalClient, prefix string) *RedisRevocationRegistry {
	if prefix == "" {
		prefix = DefaultRevocationKeyPrefix
	}
	return &RedisRevocationRegistry{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *RedisRevocationRegistry) key(tokenID string) string {
	return r.prefix + ":" + tokenID
}

func (r *RedisRevocationRegistry) Revoke(ctx context.Context, entry RevocationEntry) error {
	if entry.TokenID == "" {
		return NewValidationError("token id is required to revoke a token", nil)
	}

	ttl, live := r.ttl(entry)
	if !live {
		return nil
	}

	if err := r.client.Set(ctx, r.key(entry.TokenID), r.value(entry), ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to store token revocation").
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{"jti": entry.TokenID})
	}
	return nil
}

// Claim uses SETNX so only one caller across all instances wins
func (r *RedisRevocationRegistry) Claim(ctx context.Context, entry RevocationEntry) (bool, error) {
	if entry.TokenID == "" {
		return false, NewValidationError("token id is required to revoke a token", nil)
	}

	ttl, live := r.ttl(entry)
	if !live {
		return false, nil
	}

	ok, err := r.client.SetNX(ctx, r.key(entry.TokenID), r.value(entry), ttl).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to claim token revocation").
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{"jti": entry.TokenID})
	}
	return ok, nil
}

// ttl returns the key lifetime for entry and false when the token has
// already expired. Zero means the key never expires.
func (r *RedisRevocationRegistry) ttl(entry RevocationEntry) (time.Duration, bool) {
	if entry.ExpiresAt.IsZero() {
		return 0, true
	}
	ttl := entry.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return 0, false
	}
	// Redis expiries are whole seconds at best; never drop an entry early.
	return ttl.Truncate(time.Second) + time.Second, true
}

func (r *RedisRevocationRegistry) value(entry RevocationEntry) string {
	return entry.PrincipalID + "|" + string(entry.Purpose)
}

func (r *RedisRevocationRegistry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to look up token revocation").
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)
	}
	return n > 0, nil
}
