package store

import (
	"context"
	"errors"
)

// Predefined errors for slot operations
var (
	ErrSlotNotFound  = errors.New("store: slot not found")
	ErrEmptySlotName = errors.New("store: slot name is empty")
	ErrSchemaMissing = errors.New("store: client_slots table does not exist")
)

// SlotStorer is durable client storage: string-keyed slots, each holding the full
// serialized state of one store. A Save always overwrites the whole slot.
type SlotStorer interface {
	Load(ctx context.Context, slot string) ([]byte, error) // ErrSlotNotFound when never written
	Save(ctx context.Context, slot string, payload []byte) error
	Delete(ctx context.Context, slot string) error
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Slot names used by the storefront. Each shopper session gets its own pair.
const (
	CartSlotPrefix     = "cart:"
	WishlistSlotPrefix = "wishlist:"
)

// CartSlot returns the cart slot name for a session.
func CartSlot(sessionID string) string { return CartSlotPrefix + sessionID }

// WishlistSlot returns the wishlist slot name for a session.
func WishlistSlot(sessionID string) string { return WishlistSlotPrefix + sessionID }
