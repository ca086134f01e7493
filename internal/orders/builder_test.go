package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
)

type productMap map[string]Product

func (m productMap) FindProduct(_ context.Context, id string) (Product, error) {
	p, ok := m[id]
	if !ok {
		return Product{}, apperr.ErrProductNotFound
	}
	return p, nil
}

type brokenFinder struct{}

func (brokenFinder) FindProduct(context.Context, string) (Product, error) {
	return Product{}, errors.New("pool closed")
}

func testBuilder(products productMap) *Builder {
	b := NewBuilder(products)
	n := 0
	b.NewID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	b.Now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return b
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var catalog = productMap{
	"A": {ID: "A", Name: "Apple", Price: d("10"), EnterpriseID: "e1", IsAvailable: true},
	"B": {ID: "B", Name: "Banana", Price: d("0.35"), EnterpriseID: "e1", IsAvailable: true},
	"C": {ID: "C", Name: "Cherry", Price: d("4"), EnterpriseID: "e2", IsAvailable: true},
	"X": {ID: "X", Name: "Orphan", Price: d("1"), IsAvailable: true},
	"U": {ID: "U", Name: "Gone", Price: d("1"), EnterpriseID: "e1"},
}

func TestBuildSnapshotsItems(t *testing.T) {
	o, err := testBuilder(catalog).Build(context.Background(), "b1",
		[]CartItem{{ProductID: "A", Quantity: 3}, {ProductID: "B", Quantity: 7}}, d("32.45"))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "b1", o.BuyerID)
	assert.Equal(t, "e1", o.EnterpriseID)
	assert.Equal(t, "id-3", o.ID)
	assert.True(t, o.TotalAmount.Equal(d("32.45")))
	assert.True(t, o.ItemsTotal().Equal(o.TotalAmount))
	require.Len(t, o.Items, 2)
	assert.Equal(t, OrderItem{ID: "id-1", ProductID: "A", EnterpriseID: "e1", Name: "Apple", Quantity: 3, PriceAtOrder: d("10")}, o.Items[0])
	assert.Equal(t, "id-2", o.Items[1].ID)
	assert.Empty(t, o.Items[1].AssignedWarehouse)
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
}

func TestBuildTolerance(t *testing.T) {
	cart := []CartItem{{ProductID: "B", Quantity: 3}} // 1.05
	cases := []struct {
		claimed string
		ok      bool
	}{
		{"1.05", true},
		{"1.06", true},
		{"1.04", true},
		{"1.07", false},
		{"1.03", false},
		{"0", false},
	}
	for _, tc := range cases {
		t.Run(tc.claimed, func(t *testing.T) {
			o, err := testBuilder(catalog).Build(context.Background(), "b1", cart, d(tc.claimed))
			if tc.ok {
				require.NoError(t, err)
				assert.True(t, o.TotalAmount.Equal(d("1.05")))
				return
			}
			require.ErrorIs(t, err, apperr.ErrTotalMismatch)
		})
	}
}

func TestBuildRejects(t *testing.T) {
	cases := []struct {
		name  string
		buyer string
		cart  []CartItem
		total string
		want  *apperr.Error
	}{
		{"no buyer", "", []CartItem{{ProductID: "A", Quantity: 1}}, "10", apperr.ErrValidation},
		{"empty cart", "b1", nil, "0", apperr.ErrValidation},
		{"blank product", "b1", []CartItem{{ProductID: " ", Quantity: 1}}, "10", apperr.ErrValidation},
		{"negative quantity", "b1", []CartItem{{ProductID: "A", Quantity: -1}}, "10", apperr.ErrValidation},
		{"negative total", "b1", []CartItem{{ProductID: "A", Quantity: 1}}, "-10", apperr.ErrValidation},
		{"unknown product", "b1", []CartItem{{ProductID: "A", Quantity: 1}, {ProductID: "Q", Quantity: 1}}, "10", apperr.ErrProductNotFound},
		{"mixed enterprise", "b1", []CartItem{{ProductID: "A", Quantity: 1}, {ProductID: "C", Quantity: 1}}, "14", apperr.ErrMixedEnterpriseOrder},
		{"mixed enterprise later", "b1", []CartItem{{ProductID: "A", Quantity: 1}, {ProductID: "B", Quantity: 1}, {ProductID: "C", Quantity: 1}}, "14.35", apperr.ErrMixedEnterpriseOrder},
		{"orphan product", "b1", []CartItem{{ProductID: "X", Quantity: 1}}, "1", apperr.ErrMissingEnterpriseLink},
		{"unavailable", "b1", []CartItem{{ProductID: "U", Quantity: 1}}, "1", apperr.ErrProductUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testBuilder(catalog).Build(context.Background(), tc.buyer, tc.cart, d(tc.total))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBuildLookupFailureIsInternal(t *testing.T) {
	_, err := NewBuilder(brokenFinder{}).Build(context.Background(), "b1", []CartItem{{ProductID: "A", Quantity: 1}}, d("1"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestProductHelpers(t *testing.T) {
	p := Product{Warehouses: []Warehouse{{Name: "W1", StockLevel: 4}, {Name: "W2", StockLevel: 6}}}
	assert.Equal(t, 10, p.TotalStock())
	w, ok := p.Warehouse("W2")
	assert.True(t, ok)
	assert.Equal(t, 6, w.StockLevel)
	_, ok = p.Warehouse("W3")
	assert.False(t, ok)
}

func TestFilterMatch(t *testing.T) {
	o := Order{BuyerID: "b1", EnterpriseID: "e1"}
	assert.True(t, Filter{}.Match(o))
	assert.True(t, Filter{BuyerID: "b1"}.Match(o))
	assert.True(t, Filter{BuyerID: "b1", EnterpriseID: "e1"}.Match(o))
	assert.False(t, Filter{BuyerID: "b2"}.Match(o))
	assert.False(t, Filter{BuyerID: "b1", EnterpriseID: "e2"}.Match(o))
}
