// Package collection holds the canonical in-memory view of all products: a
// slice kept sorted by manufacture cost (absent cost first) under a single
// RWMutex. The store mirrors the persistence gateway — callers must commit to
// the gateway first and touch the store only after the commit succeeds.
package collection

import (
	"slices"
	"sync"
	"time"

	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

// Store is the shared, sorted, thread-guarded product collection. Every
// public method is individually atomic; mutations restore sorted order before
// returning. Lookup results and snapshots are deep copies, so no caller can
// alias internal state.
type Store struct {
	mu            sync.RWMutex
	products      []*models.Product
	initializedAt time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// ReplaceAll swaps in the given products, used once at server start to load
// the collection from the gateway. Sets the initialization time.
func (s *Store) ReplaceAll(products []*models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = make([]*models.Product, len(products))
	copy(s.products, products)
	s.sortLocked()
	s.initializedAt = time.Now()
}

// Insert adds p keeping the collection sorted.
func (s *Store) Insert(p *models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) == 0 && s.initializedAt.IsZero() {
		s.initializedAt = time.Now()
	}
	s.products = append(s.products, p)
	s.sortLocked()
}

// Replace swaps the product with p.ID for p and re-sorts. Returns false when
// no product carries that ID.
func (s *Store) Replace(p *models.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.products {
		if existing.ID == p.ID {
			s.products[i] = p
			s.sortLocked()
			return true
		}
	}
	return false
}

// RemoveByID deletes the product with the given ID. Order is preserved by
// removal, so no re-sort is needed.
func (s *Store) RemoveByID(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.products {
		if p.ID == id {
			s.products = slices.Delete(s.products, i, i+1)
			return true
		}
	}
	return false
}

// RemoveIf deletes every product matching pred and reports how many went.
func (s *Store) RemoveIf(pred func(*models.Product) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.products)
	s.products = slices.DeleteFunc(s.products, pred)
	return before - len(s.products)
}

// ByID returns a copy of the product with the given ID, or nil.
func (s *Store) ByID(id int64) *models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p.Clone()
		}
	}
	return nil
}

// Min returns a copy of the minimum product by ordering key, or nil when the
// store is empty. Because the slice is kept sorted this is the head element.
func (s *Store) Min() *models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.products) == 0 {
		return nil
	}
	return s.products[0].Clone()
}

// Snapshot returns a deep copy of the whole collection in sorted order.
// Read-only commands format this copy outside the lock.
func (s *Store) Snapshot() []*models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Product, len(s.products))
	for i, p := range s.products {
		out[i] = p.Clone()
	}
	return out
}

// Len reports the number of products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// InitializedAt reports when the collection was first populated.
func (s *Store) InitializedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initializedAt
}

// AverageManufactureCost averages the cost over products that have one.
// Returns 0 when none do.
func (s *Store) AverageManufactureCost() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum float64
	var n int
	for _, p := range s.products {
		if p.ManufactureCost != nil {
			sum += float64(*p.ManufactureCost)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// FilterByPrice returns copies of products whose price equals price exactly.
// Products without a price never match.
func (s *Store) FilterByPrice(price int64) []*models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Product
	for _, p := range s.products {
		if p.Price != nil && *p.Price == price {
			out = append(out, p.Clone())
		}
	}
	return out
}

// AscendingPrices returns all present prices sorted ascending.
func (s *Store) AscendingPrices() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int64
	for _, p := range s.products {
		if p.Price != nil {
			out = append(out, *p.Price)
		}
	}
	slices.Sort(out)
	return out
}

// Resort forces a re-sort. The sort command exposes this; mutations keep the
// store sorted on their own.
func (s *Store) Resort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortLocked()
}

// sortLocked restores ordering by manufacture cost, absent cost first. The
// sort is stable so equal-cost products keep their insertion order.
func (s *Store) sortLocked() {
	slices.SortStableFunc(s.products, func(a, b *models.Product) int {
		return a.Compare(b)
	})
}
