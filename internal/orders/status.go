package orders

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending, StatusApproved, StatusRejected,
	StatusShipped, StatusDelivered, StatusCancelled,
}

func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// enterpriseNext holds the moves an owning enterprise may make. Admin moves
// are not constrained by the current status.
var enterpriseNext = map[Status]map[Status]bool{
	StatusPending:   {StatusApproved: true, StatusRejected: true},
	StatusApproved:  {},
	StatusRejected:  {},
	StatusShipped:   {},
	StatusDelivered: {},
	StatusCancelled: {},
}

var adminTargets = map[Status]bool{
	StatusShipped:   true,
	StatusDelivered: true,
	StatusCancelled: true,
}

// IsEnterpriseTarget reports whether an enterprise may ever request to.
func IsEnterpriseTarget(to Status) bool {
	return to == StatusApproved || to == StatusRejected
}

func IsAdminTarget(to Status) bool { return adminTargets[to] }

// CanEnterpriseTransition reports whether an enterprise may move from -> to.
func CanEnterpriseTransition(from, to Status) bool {
	return enterpriseNext[from][to]
}
