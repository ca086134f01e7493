package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
)

// TotalTolerance is the largest accepted gap between the client's total and ours.
var TotalTolerance = decimal.RequireFromString("0.01")

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ProductFinder interface {
	FindProduct(ctx context.Context, id string) (Product, error)
}

// Builder turns a buyer's cart into a priced pending order. It never touches stock.
type Builder struct {
	Products ProductFinder
	Now      func() time.Time
	NewID    func() string
}

func NewBuilder(products ProductFinder) *Builder {
	return &Builder{
		Products: products,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    uuid.NewString,
	}
}

// Build validates the cart and returns an order in StatusPending. Prices are
// taken from the products, never from the client; claimedTotal is only checked.
func (b *Builder) Build(ctx context.Context, buyerID string, cart []CartItem, claimedTotal decimal.Decimal) (Order, error) {
	if strings.TrimSpace(buyerID) == "" {
		return Order{}, apperr.New(apperr.ErrValidation, "buyer id is required")
	}
	if len(cart) == 0 {
		return Order{}, apperr.New(apperr.ErrValidation, "No order items")
	}
	if claimedTotal.IsNegative() {
		return Order{}, apperr.New(apperr.ErrValidation, "total amount must be >= 0")
	}
	for i, it := range cart {
		if strings.TrimSpace(it.ProductID) == "" {
			return Order{}, apperr.New(apperr.ErrValidation, "item %d: product id is required", i+1)
		}
		if it.Quantity < 1 {
			return Order{}, apperr.New(apperr.ErrValidation, "item %d: quantity must be at least 1", i+1)
		}
	}

	var (
		enterpriseID string
		total        = decimal.Zero
		items        = make([]OrderItem, 0, len(cart))
	)
	for _, it := range cart {
		p, err := b.Products.FindProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, apperr.ErrProductNotFound) {
				return Order{}, apperr.New(apperr.ErrProductNotFound, "Product not found: %s", it.ProductID)
			}
			return Order{}, apperr.Internal(err, "load product %s", it.ProductID)
		}
		if p.EnterpriseID == "" {
			return Order{}, apperr.New(apperr.ErrMissingEnterpriseLink, "product %s (%s) has no associated enterprise", p.ID, p.Name)
		}
		if enterpriseID == "" {
			enterpriseID = p.EnterpriseID
		} else if enterpriseID != p.EnterpriseID {
			return Order{}, apperr.ErrMixedEnterpriseOrder
		}
		if !p.IsAvailable {
			return Order{}, apperr.New(apperr.ErrProductUnavailable, "product %s is not available", p.Name)
		}

		item := OrderItem{
			ID:           b.NewID(),
			ProductID:    p.ID,
			EnterpriseID: p.EnterpriseID,
			Name:         p.Name,
			Quantity:     it.Quantity,
			PriceAtOrder: p.Price,
		}
		total = total.Add(item.Subtotal())
		items = append(items, item)
	}

	if total.Sub(claimedTotal).Abs().GreaterThan(TotalTolerance) {
		return Order{}, apperr.New(apperr.ErrTotalMismatch,
			"calculated total amount %s does not match provided total amount %s", total.StringFixed(2), claimedTotal.String())
	}

	now := b.Now()
	return Order{
		ID:           b.NewID(),
		BuyerID:      buyerID,
		EnterpriseID: enterpriseID,
		Items:        items,
		TotalAmount:  total,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
