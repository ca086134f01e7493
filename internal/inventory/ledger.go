package inventory

import (
	"context"
	"sort"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
)

// Line is one stock movement against a product warehouse, optionally tied to
// the order item that caused it.
type Line struct {
	ItemID    string
	ItemName  string
	ProductID string
	Warehouse string
	Qty       int
}

// Ledger owns per-product, per-warehouse stock counters. Every method is
// linearizable per (product, warehouse) pair.
type Ledger interface {
	// Reserve decrements stock if at least qty is available, otherwise it
	// fails with ErrInsufficientStock or ErrWarehouseNotFound and changes nothing.
	Reserve(ctx context.Context, productID, warehouse string, qty int) error
	// Release increments stock.
	Release(ctx context.Context, productID, warehouse string, qty int) error
	// ReserveAll reserves every line or none of them.
	ReserveAll(ctx context.Context, lines []Line) error
	// ReleaseAll gives back every line or none of them.
	ReleaseAll(ctx context.Context, lines []Line) error
}

func validateLine(l Line) error {
	if l.ProductID == "" || l.Warehouse == "" {
		return apperr.New(apperr.ErrValidation, "product and warehouse are required")
	}
	if l.Qty < 1 {
		return apperr.New(apperr.ErrValidation, "quantity must be at least 1, got %d", l.Qty)
	}
	return nil
}

// lockOrder sorts a copy of lines so concurrent multi-line reservations take
// row locks in the same order.
func lockOrder(lines []Line) []Line {
	out := append([]Line(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].Warehouse < out[j].Warehouse
	})
	return out
}

// MergeLines folds lines on the same product warehouse into one, keeping the
// first line's item. A shortage then reports the level before the call against
// the combined quantity.
func MergeLines(lines []Line) []Line {
	type key struct{ product, warehouse string }
	at := make(map[key]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, ln := range lines {
		k := key{ln.ProductID, ln.Warehouse}
		if i, ok := at[k]; ok {
			out[i].Qty += ln.Qty
			continue
		}
		at[k] = len(out)
		out = append(out, ln)
	}
	return out
}

func shortage(l Line, available int) error {
	return apperr.InsufficientStock(apperr.Shortage{
		ItemID:    l.ItemID,
		ItemName:  l.ItemName,
		ProductID: l.ProductID,
		Warehouse: l.Warehouse,
		Available: available,
		Needed:    l.Qty,
	})
}
