package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	redisClient := setupTestRedis(t)
	store := NewRedisStore(redisClient)
	ctx := context.Background()

	cred := &Credential{
		AccessToken: "abc123",
		TokenType:   "Bearer",
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Minute),
	}

	if err := store.Save(ctx, cred); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.AccessToken != cred.AccessToken {
		t.Errorf("AccessToken = %q, want %q", loaded.AccessToken, cred.AccessToken)
	}
	if loaded.HeaderValue() != "Bearer abc123" {
		t.Errorf("HeaderValue = %q, want %q", loaded.HeaderValue(), "Bearer abc123")
	}
}

func TestRedisStore_LoadMiss(t *testing.T) {
	redisClient := setupTestRedis(t)
	store := NewRedisStore(redisClient)

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential, got %v", err)
	}
}

func TestRedisStore_ExpiredCredentialNotStored(t *testing.T) {
	redisClient := setupTestRedis(t)
	store := NewRedisStore(redisClient)
	ctx := context.Background()

	expired := &Credential{
		AccessToken: "stale",
		TokenType:   "Bearer",
		IssuedAt:    time.Now().Add(-2 * time.Minute),
		ExpiresAt:   time.Now().Add(-1 * time.Minute),
	}

	if err := store.Save(ctx, expired); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, err := store.Load(ctx)
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential for expired credential, got %v", err)
	}
}

func TestRedisStore_ExpiredPayloadTreatedAsMiss(t *testing.T) {
	redisClient := setupTestRedis(t)
	store := NewRedisStore(redisClient)
	ctx := context.Background()

	cred := &Credential{
		AccessToken: "short-lived",
		TokenType:   "Bearer",
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(50 * time.Millisecond),
	}
	if err := store.Save(ctx, cred); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	_, err := store.Load(ctx)
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential after expiry, got %v", err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	redisClient := setupTestRedis(t)
	store := NewRedisStore(redisClient)
	ctx := context.Background()

	cred := &Credential{
		AccessToken: "abc",
		TokenType:   "Bearer",
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Minute),
	}
	if err := store.Save(ctx, cred); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete(ctx); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := store.Load(ctx)
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential after delete, got %v", err)
	}
}

func TestRedisStore_SaveNil(t *testing.T) {
	redisClient := setupTestRedis(t)
	store := NewRedisStore(redisClient)

	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Expected error for nil credential")
	}
}
