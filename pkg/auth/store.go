package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoCredential indicates the store holds no usable credential.
var ErrNoCredential = errors.New("no stored credential")

// RedisKeyCredential is the key under which the shared credential lives.
const RedisKeyCredential = "lms:auth:credential"

// CredentialStore is a shared second-layer credential cache. The in-process
// cache in TokenSource remains authoritative; the store is best-effort.
type CredentialStore interface {
	// Load retrieves the stored credential.
	// Returns ErrNoCredential if none exists or it has expired.
	Load(ctx context.Context) (*Credential, error)

	// Save stores a credential until its client-side expiry.
	Save(ctx context.Context, cred *Credential) error

	// Delete removes the stored credential.
	Delete(ctx context.Context) error
}

// RedisStore shares one issued credential across cooperating processes via
// Redis, so each worker does not perform its own exchange.
type RedisStore struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRedisStore creates a Redis-backed credential store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
		now:   time.Now,
	}
}

// Load retrieves the shared credential from Redis.
func (s *RedisStore) Load(ctx context.Context) (*Credential, error) {
	data, err := s.redis.Get(ctx, RedisKeyCredential).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoCredential
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("unmarshal credential: %w", err)
	}

	// The Redis TTL usually evicts expired entries first, but the clocks
	// may disagree. Treat an expired payload as a miss.
	if cred.Expired(s.now()) {
		_ = s.Delete(ctx)
		return nil, ErrNoCredential
	}

	return &cred, nil
}

// Save stores a credential in Redis with a TTL matching its client-side
// validity. Expired credentials are not stored.
func (s *RedisStore) Save(ctx context.Context, cred *Credential) error {
	if cred == nil {
		return fmt.Errorf("credential cannot be nil")
	}

	ttl := cred.TTL(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	if err := s.redis.Set(ctx, RedisKeyCredential, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes the shared credential from Redis.
func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.redis.Del(ctx, RedisKeyCredential).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
