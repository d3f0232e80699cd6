package storage

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is the default in-process order store: a mutex-guarded keyed
// map. Reads return copies so callers can never mutate lifecycle state
// behind the store's back.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]*Order)}
}

// Create implements OrderStore.
func (s *MemoryStore) Create(o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return ErrOrderExists
	}
	s.orders[o.ID] = o.Clone()
	return nil
}

// Get implements OrderStore.
func (s *MemoryStore) Get(id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.Clone(), nil
}

// Update implements OrderStore.
func (s *MemoryStore) Update(id string, fn func(*Order) error) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}

	// Work on a copy so a failing fn leaves the stored order untouched.
	next := o.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.orders[id] = next
	return next.Clone(), nil
}

// ListByUser implements OrderStore.
func (s *MemoryStore) ListByUser(userAddress string) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Order
	for _, o := range s.orders {
		if o.UserAddress == userAddress {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// PurgeCompletedBefore implements OrderStore.
func (s *MemoryStore) PurgeCompletedBefore(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, o := range s.orders {
		if o.Status.Terminal() && !o.CompletedAt.IsZero() && o.CompletedAt.Before(cutoff) {
			delete(s.orders, id)
			removed++
		}
	}
	return removed, nil
}

// Close implements OrderStore.
func (s *MemoryStore) Close() error {
	return nil
}

var _ OrderStore = (*MemoryStore)(nil)
