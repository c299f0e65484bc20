package identity

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

const cacheKeyPrefix = "identity:v1:"

// Store is the process-wide identity cache. Last write wins; expiry, if any,
// belongs to the implementation.
type Store interface {
	Get(ctx context.Context, key string) (Identity, bool, error)
	Set(ctx context.Context, key string, identity Identity) error
	Delete(ctx context.Context, key string) error
}

// Fingerprint returns a stable digest of a bearer credential, safe to store.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// CacheKey derives the cache key for a bearer credential.
func CacheKey(token string) string {
	return cacheKeyPrefix + Fingerprint(token)
}

// RedisStore keeps identities as JSON documents in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed identity cache. A zero ttl stores
// entries without expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get returns the cached identity, reporting false on a miss.
func (s *RedisStore) Get(ctx context.Context, key string) (Identity, bool, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, fmt.Errorf("get identity: %w", err)
	}
	var identity Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		return Identity{}, false, fmt.Errorf("decode identity: %w", err)
	}
	return identity, true, nil
}

// Set overwrites the cached identity.
func (s *RedisStore) Set(ctx context.Context, key string, identity Identity) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("set identity: %w", err)
	}
	return nil
}

// Delete drops the cached identity. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}
