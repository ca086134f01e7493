package apperr

import (
	"errors"
	"fmt"
)

// Kind groups error codes by who can fix them.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

type Code string

const (
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeTotalMismatch         Code = "TOTAL_MISMATCH"
	CodeProductNotFound       Code = "PRODUCT_NOT_FOUND"
	CodeOrderNotFound         Code = "ORDER_NOT_FOUND"
	CodeUserNotFound          Code = "USER_NOT_FOUND"
	CodeForbidden             Code = "FORBIDDEN"
	CodeAccountBlocked        Code = "ACCOUNT_BLOCKED"
	CodeEnterpriseNotApproved Code = "ENTERPRISE_NOT_APPROVED"
	CodeMixedEnterpriseOrder  Code = "MIXED_ENTERPRISE_ORDER"
	CodeInsufficientStock     Code = "INSUFFICIENT_STOCK"
	CodeWarehouseNotFound     Code = "WAREHOUSE_NOT_FOUND"
	CodeProductUnavailable    Code = "PRODUCT_UNAVAILABLE"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeStaleOrder            Code = "STALE_ORDER"
	CodeMissingEnterpriseLink Code = "MISSING_ENTERPRISE_LINK"
	CodeInternal              Code = "INTERNAL"
)

// Shortage describes why a reservation could not be satisfied.
type Shortage struct {
	ItemID    string `json:"item_id,omitempty"`
	ItemName  string `json:"item_name,omitempty"`
	ProductID string `json:"product_id"`
	Warehouse string `json:"warehouse"`
	Available int    `json:"available"`
	Needed    int    `json:"needed"`
}

// Error is the single error type returned by the core. Two errors are
// equal under errors.Is when their codes match.
type Error struct {
	Kind     Kind
	Code     Code
	Message  string
	Shortage *Shortage
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrValidation            = &Error{Kind: KindValidation, Code: CodeValidation, Message: "invalid request"}
	ErrTotalMismatch         = &Error{Kind: KindValidation, Code: CodeTotalMismatch, Message: "calculated total amount does not match provided total amount"}
	ErrProductNotFound       = &Error{Kind: KindNotFound, Code: CodeProductNotFound, Message: "product not found"}
	ErrOrderNotFound         = &Error{Kind: KindNotFound, Code: CodeOrderNotFound, Message: "order not found"}
	ErrUserNotFound          = &Error{Kind: KindNotFound, Code: CodeUserNotFound, Message: "user not found"}
	ErrForbidden             = &Error{Kind: KindForbidden, Code: CodeForbidden, Message: "not authorized"}
	ErrAccountBlocked        = &Error{Kind: KindForbidden, Code: CodeAccountBlocked, Message: "account is blocked"}
	ErrEnterpriseNotApproved = &Error{Kind: KindForbidden, Code: CodeEnterpriseNotApproved, Message: "enterprise is not approved"}
	ErrMixedEnterpriseOrder  = &Error{Kind: KindConflict, Code: CodeMixedEnterpriseOrder, Message: "all items in one order must belong to the same enterprise"}
	ErrInsufficientStock     = &Error{Kind: KindConflict, Code: CodeInsufficientStock, Message: "insufficient stock"}
	ErrWarehouseNotFound     = &Error{Kind: KindConflict, Code: CodeWarehouseNotFound, Message: "warehouse not found"}
	ErrProductUnavailable    = &Error{Kind: KindConflict, Code: CodeProductUnavailable, Message: "product is not available"}
	ErrInvalidTransition     = &Error{Kind: KindConflict, Code: CodeInvalidTransition, Message: "invalid status transition"}
	ErrStaleOrder            = &Error{Kind: KindConflict, Code: CodeStaleOrder, Message: "order was modified concurrently"}
	ErrMissingEnterpriseLink = &Error{Kind: KindInternal, Code: CodeMissingEnterpriseLink, Message: "product is missing enterprise information"}
	ErrInternal              = &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error"}
)

// New builds an error of the sentinel's kind and code with a specific message.
func New(sentinel *Error, format string, args ...any) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to an error of the sentinel's kind and code.
func Wrap(sentinel *Error, err error, format string, args ...any) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: fmt.Sprintf(format, args...), Err: err}
}

func Internal(err error, format string, args ...any) *Error {
	return Wrap(ErrInternal, err, format, args...)
}

func InsufficientStock(s Shortage) *Error {
	name := s.ItemName
	if name == "" {
		name = s.ProductID
	}
	return &Error{
		Kind:     KindConflict,
		Code:     CodeInsufficientStock,
		Message:  fmt.Sprintf("insufficient stock for %s in warehouse '%s'. Available: %d, Needed: %d", name, s.Warehouse, s.Available, s.Needed),
		Shortage: &s,
	}
}

func WarehouseNotFound(productID, warehouse string) *Error {
	return &Error{
		Kind:     KindConflict,
		Code:     CodeWarehouseNotFound,
		Message:  fmt.Sprintf("warehouse '%s' not found for product %s", warehouse, productID),
		Shortage: &Shortage{ProductID: productID, Warehouse: warehouse},
	}
}

// KindOf reports the kind of err. Errors outside the taxonomy are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
