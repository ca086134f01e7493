package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
	"github.com/ariefcatur/marketplace-orders/internal/orders"
)

func TestCanActOnOrder(t *testing.T) {
	o := orders.Order{ID: "o1", BuyerID: "b1", EnterpriseID: "e1", Status: orders.StatusPending}
	owner := Actor{ID: "e1", Role: RoleEnterprise, EnterpriseStatus: EnterpriseApproved}
	other := Actor{ID: "e2", Role: RoleEnterprise, EnterpriseStatus: EnterpriseApproved}
	admin := Actor{ID: "a1", Role: RoleAdmin}
	buyer := Actor{ID: "b1", Role: RoleBuyer}
	blockedAdmin := Actor{ID: "a2", Role: RoleAdmin, IsBlocked: true}

	cases := []struct {
		name   string
		actor  Actor
		target orders.Status
		want   bool
	}{
		{"owner approves", owner, orders.StatusApproved, true},
		{"owner rejects", owner, orders.StatusRejected, true},
		{"owner ships", owner, orders.StatusShipped, false},
		{"other approves", other, orders.StatusApproved, false},
		{"admin ships", admin, orders.StatusShipped, true},
		{"admin delivers", admin, orders.StatusDelivered, true},
		{"admin cancels", admin, orders.StatusCancelled, true},
		{"admin approves", admin, orders.StatusApproved, false},
		{"buyer cancels own", buyer, orders.StatusCancelled, false},
		{"blocked admin", blockedAdmin, orders.StatusShipped, false},
		{"no role", Actor{ID: "x"}, orders.StatusShipped, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanActOnOrder(tc.actor, o, tc.target))
		})
	}
}

func TestIsApprovedEnterprise(t *testing.T) {
	assert.True(t, IsApprovedEnterprise(Actor{Role: RoleEnterprise, EnterpriseStatus: EnterpriseApproved}))
	assert.False(t, IsApprovedEnterprise(Actor{Role: RoleEnterprise, EnterpriseStatus: EnterprisePending}))
	assert.False(t, IsApprovedEnterprise(Actor{Role: RoleEnterprise, EnterpriseStatus: EnterpriseRejected}))
	assert.False(t, IsApprovedEnterprise(Actor{Role: RoleEnterprise, EnterpriseStatus: EnterpriseApproved, IsBlocked: true}))
	assert.False(t, IsApprovedEnterprise(Actor{Role: RoleAdmin, EnterpriseStatus: EnterpriseApproved}))
}

func TestCanViewOrder(t *testing.T) {
	o := orders.Order{BuyerID: "b1", EnterpriseID: "e1"}
	assert.True(t, CanViewOrder(Actor{ID: "b1", Role: RoleBuyer}, o))
	assert.False(t, CanViewOrder(Actor{ID: "b2", Role: RoleBuyer}, o))
	assert.True(t, CanViewOrder(Actor{ID: "e1", Role: RoleEnterprise}, o))
	assert.False(t, CanViewOrder(Actor{ID: "b1", Role: RoleEnterprise}, o))
	assert.True(t, CanViewOrder(Actor{ID: "a", Role: RoleAdmin}, o))
}

func TestAuthorize(t *testing.T) {
	require.NoError(t, Authorize(Actor{Role: RoleBuyer}, RoleBuyer))
	require.ErrorIs(t, Authorize(Actor{Role: RoleEnterprise}, RoleBuyer), apperr.ErrForbidden)
	require.ErrorIs(t, Authorize(Actor{Role: RoleBuyer, IsBlocked: true}, RoleBuyer), apperr.ErrAccountBlocked)
	require.ErrorIs(t, Authorize(Actor{Role: RoleAdmin}), apperr.ErrForbidden)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("enterprise")
	assert.True(t, ok)
	assert.Equal(t, RoleEnterprise, r)
	_, ok = ParseRole("Admin")
	assert.False(t, ok)
}
