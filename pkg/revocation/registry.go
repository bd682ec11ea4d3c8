package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// HashLength is the number of characters kept from the encoded digest.
	HashLength = 32

	// DefaultTTL matches the nominal access token lifetime.
	DefaultTTL = 2 * time.Hour

	denylistPrefix   = "token:denylist:"
	userTokensPrefix = "user:tokens:"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("revocation registry unavailable")

// HashToken returns the truncated, base64 encoded SHA-256 digest of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(sum[:])[:HashLength]
}

// Registry is the Redis denylist.
type Registry struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// Option configures a Registry.
type Option func(*Registry)

// WithKeyPrefix namespaces every key, e.g. "bastion:".
func WithKeyPrefix(prefix string) Option {
	return func(r *Registry) {
		r.prefix = prefix
	}
}

// NewRegistry creates a registry whose entries live for ttl, the nominal
// access token lifetime.
func NewRegistry(client *redis.Client, ttl time.Duration, opts ...Option) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Registry{client: client, ttl: ttl}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) denyKey(hash string) string {
	return r.prefix + denylistPrefix + hash
}

func (r *Registry) userKey(userID int64) string {
	return r.prefix + userTokensPrefix + strconv.FormatInt(userID, 10)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Track adds an issued token to the user's set.
func (r *Registry) Track(ctx context.Context, token string, userID int64) error {
	key := r.userKey(userID)

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, key, HashToken(token))
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// Denylist revokes a token for ttl, or for the nominal lifetime when ttl is
// not positive.
func (r *Registry) Denylist(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	hash := HashToken(token)
	key := r.userKey(userID)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.denyKey(hash), strconv.FormatInt(userID, 10), ttl)
	pipe.SAdd(ctx, key, hash)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// DenylistAll revokes every token tracked for the user, each with a fresh
// nominal TTL.
func (r *Registry) DenylistAll(ctx context.Context, userID int64) error {
	key := r.userKey(userID)

	hashes, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return unavailable(err)
	}
	if len(hashes) == 0 {
		return nil
	}

	value := strconv.FormatInt(userID, 10)
	pipe := r.client.TxPipeline()
	for _, hash := range hashes {
		pipe.Set(ctx, r.denyKey(hash), value, r.ttl)
	}
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// IsDenylisted reports whether a token was revoked.
func (r *Registry) IsDenylisted(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.denyKey(HashToken(token))).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// Tracked returns the number of token hashes held for a user.
func (r *Registry) Tracked(ctx context.Context, userID int64) (int64, error) {
	n, err := r.client.SCard(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// Ping checks connectivity to the backing store.
func (r *Registry) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
