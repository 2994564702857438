package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements SlotStorer with one Redis string per slot.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // zero keeps slots forever
}

// NewRedisStore creates a store whose keys are prefix+slot.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, slot string) ([]byte, error) {
	if slot == "" {
		return nil, ErrEmptySlotName
	}
	data, err := s.client.Get(ctx, s.prefix+slot).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("store: redis get failed: %w", err)
	}
	return data, nil
}

// Save overwrites the slot and refreshes its expiry.
func (s *RedisStore) Save(ctx context.Context, slot string, payload []byte) error {
	if slot == "" {
		return ErrEmptySlotName
	}
	if err := s.client.Set(ctx, s.prefix+slot, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, slot string) error {
	if slot == "" {
		return ErrEmptySlotName
	}
	if err := s.client.Del(ctx, s.prefix+slot).Err(); err != nil {
		return fmt.Errorf("store: redis del failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
