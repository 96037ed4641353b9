package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store persists session data
type Store interface {
	// Get returns the data of a session, or nil without error when it does not exist
	Get(ctx context.Context, id string) (*Data, error)
	// Save writes the data of a session with a time to live
	Save(ctx context.Context, id string, data *Data, ttl time.Duration) error
	// Delete removes a session; deleting a missing session is not an error
	Delete(ctx context.Context, id string) error
}

const keyPrefix = "session:"

type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a session store on top of a Redis client
func NewRedisStore(client *redis.Client) *redisStore {
	return &redisStore{client: client}
}

// Get returns the data of a session
func (s *redisStore) Get(ctx context.Context, id string) (*Data, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &data, nil
}

// Save writes the data of a session
func (s *redisStore) Save(ctx context.Context, id string, data *Data, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session
func (s *redisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
