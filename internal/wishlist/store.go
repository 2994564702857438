// Package wishlist keeps the products a shopper saved for later.
package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// Store holds full product snapshots, deduplicated by product id, in insertion order.
type Store struct {
	mu    sync.Mutex
	items []domain.Product
	slots store.SlotStorer
	slot  string
	log   logrus.FieldLogger
}

// New builds a Store and loads the persisted snapshot list from slot. A nil slots disables
// persistence. It fails when the slot cannot be read.
func New(ctx context.Context, slots store.SlotStorer, slot string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Store{
		items: []domain.Product{},
		slots: slots,
		slot:  slot,
		log:   log.WithField("slot", slot),
	}
	if err := s.load(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	return s, nil
}

// Add saves p. It reports false when a product with the same id is already present.
func (s *Store) Add(ctx context.Context, p domain.Product) bool {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(p.ID) >= 0 {
		return false
	}
	s.items = append(s.items, p)
	s.persistLocked(ctx)
	return true
}

// Remove deletes the product with id. It reports whether anything was removed.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(strings.TrimSpace(id))
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persistLocked(ctx)
	return true
}

// Toggle adds p when absent and removes it otherwise. It returns true when p is now saved.
func (s *Store) Toggle(ctx context.Context, p domain.Product) bool {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(p.ID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.persistLocked(ctx)
		return false
	}
	s.items = append(s.items, p)
	s.persistLocked(ctx)
	return true
}

func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(strings.TrimSpace(id)) >= 0
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []domain.Product{}
	s.persistLocked(ctx)
}

// Items returns a copy of the saved products.
func (s *Store) Items() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Product{}, s.items...)
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.slots == nil || s.slot == "" {
		return
	}
	payload, err := json.Marshal(s.items)
	if err != nil {
		s.log.WithError(err).Warn("failed to encode wishlist")
		return
	}
	if err := s.slots.Save(context.WithoutCancel(ctx), s.slot, payload); err != nil {
		s.log.WithError(err).Warn("failed to persist wishlist")
	}
}

func (s *Store) load(ctx context.Context) error {
	if s.slots == nil || s.slot == "" {
		return nil
	}
	payload, err := s.slots.Load(ctx, s.slot)
	if errors.Is(err, store.ErrSlotNotFound) {
		return nil
	}
	if err != nil {
		s.log.WithError(err).Warn("failed to load wishlist")
		return fmt.Errorf("load wishlist %s: %w", s.slot, err)
	}
	var stored []domain.Product
	if err := json.Unmarshal(payload, &stored); err != nil {
		s.log.WithError(err).Warn("discarding unreadable wishlist payload")
		return nil
	}
	seen := make(map[string]struct{}, len(stored))
	for _, p := range stored {
		if p.ID == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		s.items = append(s.items, p)
	}
	return nil
}
