package freshness

import (
	"context"
	"encoding/json"
	"fmt"
)

// KeyPrefix namespaces freshness lists in Redis.
const KeyPrefix = "drill:freshness:"

// ListClient is the capped-list subset of client.RedisClient.
type ListClient interface {
	PushCapped(ctx context.Context, key string, value interface{}, capacity int) error
	List(ctx context.Context, key string) ([]string, error)
}

// RedisStore shares one history between every replica of the service.
// Each batch is one JSON encoded list element.
type RedisStore struct {
	client ListClient
	key    string
}

// NewRedisStore creates a store for the named service.
func NewRedisStore(client ListClient, service string) *RedisStore {
	return &RedisStore{client: client, key: KeyPrefix + service}
}

// Key returns the Redis key backing this store.
func (s *RedisStore) Key() string {
	return s.key
}

// Append pushes batch and trims the list to capacity in one transaction.
func (s *RedisStore) Append(ctx context.Context, batch []string, capacity int) error {
	if batch == nil {
		batch = []string{}
	}
	if err := s.client.PushCapped(ctx, s.key, batch, capacity); err != nil {
		return fmt.Errorf("append freshness batch: %w", err)
	}
	return nil
}

// Batches reads the list, oldest first. Undecodable elements are skipped.
func (s *RedisStore) Batches(ctx context.Context) ([][]string, error) {
	raw, err := s.client.List(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read freshness batches: %w", err)
	}
	batches := make([][]string, 0, len(raw))
	for _, r := range raw {
		var batch []string
		if err := json.Unmarshal([]byte(r), &batch); err != nil {
			continue
		}
		batches = append(batches, batch)
	}
	return batches, nil
}
