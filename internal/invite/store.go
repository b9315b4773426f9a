// Package invite issues and verifies time-boxed invitation tokens for
// pending account registrations.
package invite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskoo/api/internal/apperr"
)

// AccountDraft is the pending-registration payload stored under an
// invitation token. Immutable once issued.
type AccountDraft struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

// RedisStore keeps account drafts in Redis under their token id. Expiry
// is enforced entirely by Redis; there is no background sweep here.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed draft store
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "invite:",
	}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "invite:",
	}
}

func (s *RedisStore) key(tokenID string) string {
	return s.prefix + tokenID
}

// SaveDraft stores a draft under the token id with an absolute expiry.
func (s *RedisStore) SaveDraft(ctx context.Context, tokenID string, draft AccountDraft, expiresAt time.Time) error {
	jsonData, err := json.Marshal(draft)
	if err != nil {
		return apperr.Store("marshal draft", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return apperr.Store("save draft", fmt.Errorf("expiry %s is in the past", expiresAt))
	}

	if err := s.client.Set(ctx, s.key(tokenID), jsonData, ttl).Err(); err != nil {
		return apperr.Store("save draft", err)
	}
	return nil
}

// GetDraft retrieves the draft stored under the token id. Reading never
// mutates or invalidates the token; repeated reads within the TTL
// window return the same draft.
func (s *RedisStore) GetDraft(ctx context.Context, tokenID string) (AccountDraft, error) {
	jsonData, err := s.client.Get(ctx, s.key(tokenID)).Result()
	if err == redis.Nil {
		return AccountDraft{}, apperr.NotFound("invitation not found or expired")
	}
	if err != nil {
		return AccountDraft{}, apperr.Store("lookup draft", err)
	}

	var draft AccountDraft
	if err := json.Unmarshal([]byte(jsonData), &draft); err != nil {
		return AccountDraft{}, apperr.Store("unmarshal draft", err)
	}
	return draft, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
