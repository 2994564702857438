package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Load(ctx, CartSlot("s1"))
	assert.ErrorIs(t, err, ErrSlotNotFound)

	payload := []byte(`[1,2,3]`)
	require.NoError(t, s.Save(ctx, CartSlot("s1"), payload))
	payload[0] = 'x' // the store keeps its own copy

	got, err := s.Load(ctx, CartSlot("s1"))
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(got))

	require.NoError(t, s.Save(ctx, CartSlot("s1"), []byte(`[]`)))
	got, err = s.Load(ctx, CartSlot("s1"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got), "a save overwrites the whole slot")

	require.NoError(t, s.Delete(ctx, CartSlot("s1")))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	assert.Error(t, s.Save(ctx, "cart:x", nil))
	assert.Error(t, s.Ping(ctx))
}

func TestSlotNames(t *testing.T) {
	assert.Equal(t, "cart:abc", CartSlot("abc"))
	assert.Equal(t, "wishlist:abc", WishlistSlot("abc"))
}
