package access

import (
	"github.com/ariefcatur/marketplace-orders/internal/apperr"
	"github.com/ariefcatur/marketplace-orders/internal/orders"
)

// Role is the closed set of actor roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEnterprise Role = "enterprise"
	RoleBuyer      Role = "buyer"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleEnterprise, RoleBuyer:
		return Role(s), true
	}
	return "", false
}

type EnterpriseStatus string

const (
	EnterprisePending  EnterpriseStatus = "pending"
	EnterpriseApproved EnterpriseStatus = "approved"
	EnterpriseRejected EnterpriseStatus = "rejected"
)

// Actor is an authenticated user as resolved by the auth layer.
type Actor struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Role             Role             `json:"role"`
	EnterpriseStatus EnterpriseStatus `json:"enterprise_status,omitempty"`
	IsBlocked        bool             `json:"is_blocked"`
}

func IsBlocked(a Actor) bool { return a.IsBlocked }

// IsApprovedEnterprise gates product creation and order placement against an enterprise.
func IsApprovedEnterprise(a Actor) bool {
	return a.Role == RoleEnterprise && a.EnterpriseStatus == EnterpriseApproved && !a.IsBlocked
}

// CanActOnOrder reports whether a may move o to target. It does not look at
// o's current status; that is the state machine's concern.
func CanActOnOrder(a Actor, o orders.Order, target orders.Status) bool {
	if a.IsBlocked {
		return false
	}
	switch a.Role {
	case RoleAdmin:
		return orders.IsAdminTarget(target)
	case RoleEnterprise:
		return o.EnterpriseID == a.ID && orders.IsEnterpriseTarget(target)
	case RoleBuyer:
		return false
	}
	return false
}

// CanViewOrder reports whether o is visible to a.
func CanViewOrder(a Actor, o orders.Order) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleEnterprise:
		return o.EnterpriseID == a.ID
	case RoleBuyer:
		return o.BuyerID == a.ID
	}
	return false
}

// Authorize is the typed decision used by operations: nil when allowed,
// ErrAccountBlocked for blocked actors, ErrForbidden for a role outside roles.
func Authorize(a Actor, roles ...Role) error {
	if IsBlocked(a) {
		return apperr.ErrAccountBlocked
	}
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return apperr.New(apperr.ErrForbidden, "role %q is not allowed to perform this action", a.Role)
}
