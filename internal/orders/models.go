package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
)

type Warehouse struct {
	Name       string `json:"warehouse_name"`
	StockLevel int    `json:"stock_level"`
}

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	EnterpriseID string          `json:"enterprise_id"` // empty when the link is broken
	IsAvailable  bool            `json:"is_available"`
	Warehouses   []Warehouse     `json:"warehouses"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Warehouse returns the named warehouse entry, if the product has one.
func (p Product) Warehouse(name string) (Warehouse, bool) {
	for _, w := range p.Warehouses {
		if w.Name == name {
			return w, true
		}
	}
	return Warehouse{}, false
}

// Validate checks what the product_warehouses table enforces with its key
// and CHECK constraint: unique warehouse names and non-negative levels.
func (p Product) Validate() error {
	if p.ID == "" {
		return apperr.New(apperr.ErrValidation, "product id is required")
	}
	seen := make(map[string]bool, len(p.Warehouses))
	for _, w := range p.Warehouses {
		if w.Name == "" {
			return apperr.New(apperr.ErrValidation, "product %s has a warehouse without a name", p.ID)
		}
		if seen[w.Name] {
			return apperr.New(apperr.ErrValidation, "product %s lists warehouse %s twice", p.ID, w.Name)
		}
		seen[w.Name] = true
		if w.StockLevel < 0 {
			return apperr.New(apperr.ErrValidation, "product %s warehouse %s has negative stock %d", p.ID, w.Name, w.StockLevel)
		}
	}
	return nil
}

func (p Product) TotalStock() int {
	total := 0
	for _, w := range p.Warehouses {
		total += w.StockLevel
	}
	return total
}

type Order struct {
	ID           string          `json:"id"`
	BuyerID      string          `json:"buyer_id"`
	EnterpriseID string          `json:"enterprise_id"`
	Items        []OrderItem     `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Item looks an item up by its id.
func (o Order) Item(id string) (OrderItem, bool) {
	for _, it := range o.Items {
		if it.ID == id {
			return it, true
		}
	}
	return OrderItem{}, false
}

// ItemsTotal is Σ(priceAtOrder × quantity) over the snapshot items.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

type OrderItem struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	EnterpriseID      string          `json:"enterprise_id"`
	Name              string          `json:"name"`
	Quantity          int             `json:"quantity"`
	PriceAtOrder      decimal.Decimal `json:"price_at_order"`
	AssignedWarehouse string          `json:"assigned_warehouse,omitempty"` // empty until approval
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.PriceAtOrder.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Filter selects orders for listing. Empty fields match everything.
type Filter struct {
	BuyerID      string
	EnterpriseID string
}

func (f Filter) Match(o Order) bool {
	if f.BuyerID != "" && o.BuyerID != f.BuyerID {
		return false
	}
	if f.EnterpriseID != "" && o.EnterpriseID != f.EnterpriseID {
		return false
	}
	return true
}
