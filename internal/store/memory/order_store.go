// Package memory provides an in-memory OrderStore for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/forgemedia/portal/internal/portal"
)

// OrderStore keeps orders in a map guarded by one RWMutex. The write lock is
// the store's single point of mutation, so two racing transitions for the same
// order serialize and the loser sees the already-transitioned copy.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]portal.Order
}

// NewOrderStore constructs an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]portal.Order)}
}

// Create stores a new order. The id must not already exist.
func (s *OrderStore) Create(_ context.Context, order portal.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	s.orders[order.ID] = order
	return nil
}

// Get fetches an order by id.
func (s *OrderStore) Get(_ context.Context, id string) (portal.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return portal.Order{}, portal.ErrNotFound
	}
	return order, nil
}

// Update applies the mutation to a copy of the order under the write lock and
// stores the result only when the mutation succeeds. Readers never observe a
// partially applied order.
func (s *OrderStore) Update(_ context.Context, id string, apply portal.Mutation) (portal.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return portal.Order{}, portal.ErrNotFound
	}
	updated := order
	if err := apply(&updated); err != nil {
		return portal.Order{}, err
	}
	s.orders[id] = updated
	return updated, nil
}

// List returns matching orders sorted newest first.
func (s *OrderStore) List(_ context.Context, filter portal.ListFilter) ([]portal.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]portal.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.ClientID != "" && order.ClientID != filter.ClientID {
			continue
		}
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
