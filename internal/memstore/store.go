// Package memstore keeps products, users, orders and stock in process memory.
// A single mutex serializes every operation, which makes each ledger call
// trivially linearizable.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ariefcatur/marketplace-orders/internal/access"
	"github.com/ariefcatur/marketplace-orders/internal/apperr"
	"github.com/ariefcatur/marketplace-orders/internal/inventory"
	"github.com/ariefcatur/marketplace-orders/internal/orders"
)

type Store struct {
	mu       sync.Mutex
	products map[string]orders.Product
	users    map[string]access.Actor
	orders   map[string]orders.Order
}

var _ inventory.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{
		products: map[string]orders.Product{},
		users:    map[string]access.Actor{},
		orders:   map[string]orders.Order{},
	}
}

func (s *Store) PutProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = cloneProduct(p)
}

func (s *Store) PutUser(a access.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[a.ID] = a
}

func (s *Store) FindProduct(_ context.Context, id string) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, apperr.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (s *Store) FindUser(_ context.Context, id string) (access.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[id]
	if !ok {
		return access.Actor{}, apperr.ErrUserNotFound
	}
	return a, nil
}

// StockLevel returns the current level of one warehouse, or -1 if it does not exist.
func (s *Store) StockLevel(productID, warehouse string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.warehouseIndex(productID, warehouse); i >= 0 {
		return s.products[productID].Warehouses[i].StockLevel
	}
	return -1
}

func (s *Store) CreateOrder(_ context.Context, o orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.ID]; exists {
		return apperr.Internal(nil, "order %s already exists", o.ID)
	}
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *Store) FindOrder(_ context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, apperr.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context, f orders.Filter) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		if f.Match(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveOrder stores status and warehouse assignments if the current status is prev.
func (s *Store) SaveOrder(_ context.Context, o orders.Order, prev orders.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[o.ID]
	if !ok {
		return apperr.ErrOrderNotFound
	}
	if cur.Status != prev {
		return apperr.New(apperr.ErrStaleOrder, "order %s is no longer %s", o.ID, prev)
	}
	cur.Status = o.Status
	cur.UpdatedAt = o.UpdatedAt
	cur.Items = append([]orders.OrderItem(nil), cur.Items...)
	for i := range cur.Items {
		if it, ok := o.Item(cur.Items[i].ID); ok && it.AssignedWarehouse != "" {
			cur.Items[i].AssignedWarehouse = it.AssignedWarehouse
		}
	}
	s.orders[o.ID] = cur
	return nil
}

func cloneProduct(p orders.Product) orders.Product {
	p.Warehouses = append([]orders.Warehouse(nil), p.Warehouses...)
	return p
}

func cloneOrder(o orders.Order) orders.Order {
	o.Items = append([]orders.OrderItem(nil), o.Items...)
	return o
}
