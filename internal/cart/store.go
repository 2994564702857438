// Package cart holds a shopper's line items and checks every mutation against stock.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// StockChecker resolves the available quantity of a variant.
type StockChecker interface {
	StockForKey(key domain.VariantKey) int
}

// Options wires a Store.
type Options struct {
	Stock    StockChecker
	Slots    store.SlotStorer
	Slot     string
	Notifier Notifier
	Logger   logrus.FieldLogger
}

// Store owns one cart. Every operation runs under the store lock, including the
// write-through to durable storage, so persisted state never lags or reorders.
type Store struct {
	mu       sync.Mutex
	items    []domain.LineItem
	stock    StockChecker
	slots    store.SlotStorer
	slot     string
	notifier Notifier
	log      logrus.FieldLogger
}

// New builds a Store and loads its persisted line items, reconciling them against stock.
// It fails when the slot cannot be read, so an unread cart never overwrites a saved one.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	s := &Store{
		items:    []domain.LineItem{},
		stock:    opts.Stock,
		slots:    opts.Slots,
		slot:     opts.Slot,
		notifier: opts.Notifier,
		log:      opts.Logger.WithField("slot", opts.Slot),
	}
	if err := s.load(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	return s, nil
}

// QuantityInCart returns the quantity of the matching line item, 0 if absent.
func (s *Store) QuantityInCart(productID, size, color string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantityLocked(domain.NewVariantKey(productID, color, size))
}

// CanAdd reports whether qty more units of the variant fit within its stock.
func (s *Store) CanAdd(productID, size, color string, qty int) bool {
	key := domain.NewVariantKey(productID, color, size)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantityLocked(key)+qty <= s.stockFor(key)
}

// AddItem adds item.Quantity units (at least one) of the item's variant.
func (s *Store) AddItem(ctx context.Context, item domain.LineItem) Outcome {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	key := item.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	inCart := s.quantityLocked(key)
	remaining := s.stockFor(key) - inCart
	if remaining <= 0 {
		return s.reject(outOfStock(item.Name), key)
	}
	if item.Quantity > remaining {
		return s.reject(insufficientStock(item.Name, remaining), key)
	}

	if i := s.indexLocked(key); i >= 0 {
		s.items[i].Quantity += item.Quantity
	} else {
		item.ProductID, item.Color, item.Size.UK = key.ProductID, key.Color, key.Size
		s.items = append(s.items, item)
	}
	s.persistLocked(ctx)
	s.notifier.Notify(Notification{Level: LevelSuccess, Message: displayName(item.Name) + " added to cart"})
	return accepted()
}

// UpdateQuantity sets the quantity of a line. A quantity below one removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID, size, color string, qty int) Outcome {
	key := domain.NewVariantKey(productID, color, size)

	s.mu.Lock()
	defer s.mu.Unlock()

	if qty < 1 {
		s.removeLocked(ctx, key)
		return accepted()
	}
	i := s.indexLocked(key)
	if i < 0 {
		return notInCart()
	}
	if ceiling := s.stockFor(key); qty > ceiling {
		return s.reject(exceedsStock(s.items[i].Name, ceiling), key)
	}
	s.items[i].Quantity = qty
	s.persistLocked(ctx)
	return accepted()
}

// RemoveItem deletes the matching line; removing an absent line is a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID, size, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(ctx, domain.NewVariantKey(productID, color, size))
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []domain.LineItem{}
	s.persistLocked(ctx)
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LineItem{}, s.items...)
}

// Summary derives count, subtotal and savings from the current lines.
func (s *Store) Summary() domain.CartSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Summarize(s.items)
}

func (s *Store) ItemCount() int { return s.Summary().ItemCount }

func (s *Store) Subtotal() float64 { return s.Summary().Subtotal }

func (s *Store) Savings() float64 { return s.Summary().Savings }

// StockFor exposes the stock ceiling of a variant as this cart sees it.
func (s *Store) StockFor(productID, size, color string) int {
	return s.stockFor(domain.NewVariantKey(productID, color, size))
}

func (s *Store) stockFor(key domain.VariantKey) int {
	if s.stock == nil {
		return 0
	}
	return s.stock.StockForKey(key)
}

func (s *Store) quantityLocked(key domain.VariantKey) int {
	if i := s.indexLocked(key); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

func (s *Store) indexLocked(key domain.VariantKey) int {
	for i := range s.items {
		if s.items[i].Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(ctx context.Context, key domain.VariantKey) {
	i := s.indexLocked(key)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persistLocked(ctx)
}

func (s *Store) reject(o Outcome, key domain.VariantKey) Outcome {
	s.log.WithFields(logrus.Fields{
		"product_id": key.ProductID,
		"color":      key.Color,
		"size":       key.Size,
		"reason":     o.Reason,
		"remaining":  o.Remaining,
	}).Info("cart mutation rejected")
	s.notifier.Notify(Notification{Level: LevelError, Message: o.Message})
	return o
}

// persistLocked writes the full line list. Failures are logged; memory stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	if s.slots == nil || s.slot == "" {
		return
	}
	payload, err := json.Marshal(s.items)
	if err != nil {
		s.log.WithError(err).Warn("failed to encode cart")
		return
	}
	if err := s.slots.Save(context.WithoutCancel(ctx), s.slot, payload); err != nil {
		s.log.WithError(err).Warn("failed to persist cart")
	}
}

// load reads the slot. A missing slot is an empty cart and an undecodable payload is
// discarded; any other storage error is returned.
func (s *Store) load(ctx context.Context) error {
	if s.slots == nil || s.slot == "" {
		return nil
	}
	payload, err := s.slots.Load(ctx, s.slot)
	if errors.Is(err, store.ErrSlotNotFound) {
		return nil
	}
	if err != nil {
		s.log.WithError(err).Warn("failed to load cart")
		return fmt.Errorf("load cart %s: %w", s.slot, err)
	}
	var stored []domain.LineItem
	if err := json.Unmarshal(payload, &stored); err != nil {
		s.log.WithError(err).Warn("discarding unreadable cart payload")
		return nil
	}
	items, changed := s.reconcile(stored)
	s.items = items
	if changed {
		s.log.WithField("lines", len(items)).Info("cart reconciled against stock on load")
		s.persistLocked(ctx)
	}
	return nil
}

// reconcile merges duplicate variants, caps each line at its stock and drops empty lines.
func (s *Store) reconcile(stored []domain.LineItem) ([]domain.LineItem, bool) {
	out := make([]domain.LineItem, 0, len(stored))
	index := make(map[domain.VariantKey]int, len(stored))
	changed := false
	for _, it := range stored {
		key := it.Key()
		if i, ok := index[key]; ok {
			out[i].Quantity += it.Quantity
			changed = true
			continue
		}
		index[key] = len(out)
		out = append(out, it)
	}
	kept := out[:0]
	for _, it := range out {
		ceiling := s.stockFor(it.Key())
		if it.Quantity > ceiling {
			it.Quantity = ceiling
			changed = true
		}
		if it.Quantity < 1 {
			changed = true
			continue
		}
		kept = append(kept, it)
	}
	return kept, changed
}
