package store

import (
	"context"
	"sync"
)

// MemoryStore keeps slots in process memory. It backs tests and single-node development.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, slot string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if slot == "" {
		return nil, ErrEmptySlotName
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.slots[slot]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *MemoryStore) Save(ctx context.Context, slot string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if slot == "" {
		return ErrEmptySlotName
	}
	s.mu.Lock()
	s.slots[slot] = append([]byte(nil), payload...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.slots, slot)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// Len returns the number of stored slots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
