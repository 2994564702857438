// Package session owns the cart and wishlist of every shopper session.
package session

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"storefront-service/internal/cart"
	"storefront-service/internal/store"
	"storefront-service/internal/wishlist"
)

// DefaultIdleTTL is how long an untouched session stays in memory.
const DefaultIdleTTL = 30 * time.Minute

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// Session is the pair of stores belonging to one shopper.
type Session struct {
	ID       string
	Cart     *cart.Store
	Wishlist *wishlist.Store
}

// Options wires a Registry.
type Options struct {
	Stock    cart.StockChecker
	Slots    store.SlotStorer
	Notifier cart.Notifier
	Logger   logrus.FieldLogger
	// IdleTTL bounds how long a session stays cached after its last use. It must
	// outlast the longest request. Zero uses DefaultIdleTTL.
	IdleTTL time.Duration
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Registry lazily builds sessions and drops them once idle. State survives eviction
// and restarts through the slot storage, not through the registry.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	loads    singleflight.Group
	stock    cart.StockChecker
	slots    store.SlotStorer
	notifier cart.Notifier
	idleTTL  time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	return &Registry{
		sessions: make(map[string]*entry),
		stock:    opts.Stock,
		slots:    opts.Slots,
		notifier: opts.Notifier,
		idleTTL:  opts.IdleTTL,
		now:      time.Now,
		log:      opts.Logger,
	}
}

// NewID issues a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is acceptable as a session id.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// Get returns the session for id, loading its stores from slot storage on first use.
// Concurrent first requests share one load, which runs outside the registry lock.
// A failed load is not cached; the next Get tries again.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if s, ok := r.touch(id); ok {
		return s, nil
	}
	ch := r.loads.DoChan(id, func() (any, error) {
		// a load for id may have finished between touch and DoChan
		if s, ok := r.touch(id); ok {
			return s, nil
		}
		s, err := r.open(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.sessions[id] = &entry{session: s, lastSeen: r.now()}
		r.mu.Unlock()
		return s, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) touch(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.session, true
}

func (r *Registry) open(ctx context.Context, id string) (*Session, error) {
	log := r.log.WithField("session_id", id)
	c, err := cart.New(ctx, cart.Options{
		Stock:    r.stock,
		Slots:    r.slots,
		Slot:     store.CartSlot(id),
		Notifier: r.notifier,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	w, err := wishlist.New(ctx, r.slots, store.WishlistSlot(id), log)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	log.Debug("session opened")
	return &Session{ID: id, Cart: c, Wishlist: w}, nil
}

// EvictIdle drops sessions unused for longer than the idle TTL and returns how many went.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.idleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Run evicts idle sessions every half TTL until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				r.log.WithFields(logrus.Fields{"evicted": n, "remaining": r.Len()}).Debug("idle sessions evicted")
			}
		}
	}
}

// Len returns the number of sessions held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
