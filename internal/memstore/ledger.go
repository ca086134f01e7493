package memstore

import (
	"context"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
	"github.com/ariefcatur/marketplace-orders/internal/inventory"
)

func (s *Store) Reserve(_ context.Context, productID, warehouse string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserveLocked(inventory.Line{ProductID: productID, Warehouse: warehouse, Qty: qty})
}

func (s *Store) Release(_ context.Context, productID, warehouse string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked(inventory.Line{ProductID: productID, Warehouse: warehouse, Qty: qty})
}

// ReserveAll applies lines in order and undoes the applied prefix on the first
// failure. Lines on the same warehouse are summed first.
func (s *Store) ReserveAll(_ context.Context, lines []inventory.Line) error {
	for _, ln := range lines {
		if ln.Qty < 1 {
			return apperr.New(apperr.ErrValidation, "quantity must be at least 1, got %d", ln.Qty)
		}
	}
	lines = inventory.MergeLines(lines)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ln := range lines {
		if err := s.reserveLocked(ln); err != nil {
			for _, done := range lines[:i] {
				_ = s.releaseLocked(done)
			}
			return err
		}
	}
	return nil
}

func (s *Store) ReleaseAll(_ context.Context, lines []inventory.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ln := range lines {
		if s.warehouseIndex(ln.ProductID, ln.Warehouse) < 0 {
			return apperr.WarehouseNotFound(ln.ProductID, ln.Warehouse)
		}
		if ln.Qty < 1 {
			return apperr.New(apperr.ErrValidation, "quantity must be at least 1, got %d", ln.Qty)
		}
	}
	for _, ln := range lines {
		_ = s.releaseLocked(ln)
	}
	return nil
}

func (s *Store) reserveLocked(ln inventory.Line) error {
	if ln.Qty < 1 {
		return apperr.New(apperr.ErrValidation, "quantity must be at least 1, got %d", ln.Qty)
	}
	i := s.warehouseIndex(ln.ProductID, ln.Warehouse)
	if i < 0 {
		return apperr.WarehouseNotFound(ln.ProductID, ln.Warehouse)
	}
	p := s.products[ln.ProductID]
	if have := p.Warehouses[i].StockLevel; have < ln.Qty {
		return apperr.InsufficientStock(apperr.Shortage{
			ItemID:    ln.ItemID,
			ItemName:  ln.ItemName,
			ProductID: ln.ProductID,
			Warehouse: ln.Warehouse,
			Available: have,
			Needed:    ln.Qty,
		})
	}
	p.Warehouses = append(p.Warehouses[:0:0], p.Warehouses...)
	p.Warehouses[i].StockLevel -= ln.Qty
	s.products[ln.ProductID] = p
	return nil
}

func (s *Store) releaseLocked(ln inventory.Line) error {
	if ln.Qty < 1 {
		return apperr.New(apperr.ErrValidation, "quantity must be at least 1, got %d", ln.Qty)
	}
	i := s.warehouseIndex(ln.ProductID, ln.Warehouse)
	if i < 0 {
		return apperr.WarehouseNotFound(ln.ProductID, ln.Warehouse)
	}
	p := s.products[ln.ProductID]
	p.Warehouses = append(p.Warehouses[:0:0], p.Warehouses...)
	p.Warehouses[i].StockLevel += ln.Qty
	s.products[ln.ProductID] = p
	return nil
}

func (s *Store) warehouseIndex(productID, warehouse string) int {
	p, ok := s.products[productID]
	if !ok {
		return -1
	}
	for i, w := range p.Warehouses {
		if w.Name == warehouse {
			return i
		}
	}
	return -1
}
