package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/marketplace-orders/internal/access"
	"github.com/ariefcatur/marketplace-orders/internal/apperr"
	"github.com/ariefcatur/marketplace-orders/internal/fulfillment"
	"github.com/ariefcatur/marketplace-orders/internal/orders"
	"github.com/ariefcatur/marketplace-orders/internal/redisx"
)

const (
	HeaderUserID         = "X-User-Id"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplay         = "Idempotent-Replay"
)

type Fulfillment interface {
	PlaceOrder(ctx context.Context, actor access.Actor, cart []orders.CartItem, claimedTotal decimal.Decimal) (orders.Order, error)
	ListOrders(ctx context.Context, actor access.Actor, f orders.Filter) ([]orders.Order, error)
	GetOrder(ctx context.Context, actor access.Actor, orderID string) (orders.Order, error)
	UpdateOrderStatus(ctx context.Context, actor access.Actor, orderID string, target orders.Status, assignments []fulfillment.WarehouseAssignment) (orders.Order, error)
}

type UserDirectory interface {
	FindUser(ctx context.Context, id string) (access.Actor, error)
}

// IdempotencyStore is satisfied by *redisx.Idempotency.
type IdempotencyStore interface {
	Claim(ctx context.Context, buyerID, key string) (orderID string, claimed bool, err error)
	Complete(ctx context.Context, buyerID, key, orderID string) error
	Abandon(ctx context.Context, buyerID, key string) error
}

type OrdersHandler struct {
	Service Fulfillment
	Users   UserDirectory
	Idem    IdempotencyStore // optional
	Log     *zap.Logger
	Timeout time.Duration
}

type PlaceOrderReq struct {
	Items       []orders.CartItem `json:"items"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

type UpdateStatusReq struct {
	Status string                            `json:"status"`
	Items  []fulfillment.WarehouseAssignment `json:"items"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	if h.Timeout <= 0 {
		h.Timeout = 5 * time.Second
	}
	r.Group(func(r chi.Router) {
		r.Use(h.resolveActor)
		r.Post("/orders", h.placeOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Put("/orders/{id}/status", h.updateStatus)
	})
}

type actorKey struct{}

func actorFrom(ctx context.Context) access.Actor {
	a, _ := ctx.Value(actorKey{}).(access.Actor)
	return a
}

// resolveActor turns the user id forwarded by the auth layer into an Actor.
func (h *OrdersHandler) resolveActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]errorBody{"error": {Code: "UNAUTHENTICATED", Message: "missing " + HeaderUserID}})
			return
		}
		a, err := h.Users.FindUser(r.Context(), id)
		if errors.Is(err, apperr.ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]errorBody{"error": {Code: "UNAUTHENTICATED", Message: "unknown user"}})
			return
		}
		if err != nil {
			writeError(w, h.Log, apperr.Internal(err, "resolve user %s", id))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, a)))
	})
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor := actorFrom(ctx)
	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	claimed := false
	if key != "" && h.Idem != nil {
		existing, ok, err := h.Idem.Claim(ctx, actor.ID, key)
		switch {
		case errors.Is(err, redisx.ErrInFlight):
			writeJSON(w, http.StatusConflict, map[string]errorBody{"error": {Code: "IDEMPOTENCY_IN_FLIGHT", Message: err.Error()}})
			return
		case err != nil:
			// idempotency is a fast path; the order itself does not depend on it
			h.Log.Warn("idempotency claim failed", zap.String("buyer_id", actor.ID), zap.Error(err))
		case !ok:
			o, err := h.Service.GetOrder(ctx, actor, existing)
			if err != nil {
				writeError(w, h.Log, err)
				return
			}
			w.Header().Set(HeaderReplay, "true")
			writeJSON(w, http.StatusOK, o)
			return
		default:
			claimed = true
		}
	}

	o, err := h.Service.PlaceOrder(ctx, actor, req.Items, req.TotalAmount)
	if err != nil {
		if claimed {
			if aerr := h.Idem.Abandon(ctx, actor.ID, key); aerr != nil {
				h.Log.Warn("idempotency abandon failed", zap.Error(aerr))
			}
		}
		writeError(w, h.Log, err)
		return
	}
	if claimed {
		if cerr := h.Idem.Complete(ctx, actor.ID, key, o.ID); cerr != nil {
			h.Log.Warn("idempotency complete failed", zap.String("order_id", o.ID), zap.Error(cerr))
		}
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	q := r.URL.Query()
	f := orders.Filter{BuyerID: q.Get("buyer_id"), EnterpriseID: q.Get("enterprise_id")}
	out, err := h.Service.ListOrders(ctx, actorFrom(ctx), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		badRequest(w, "missing id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	o, err := h.Service.GetOrder(ctx, actorFrom(ctx), orderID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		badRequest(w, "status is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	o, err := h.Service.UpdateOrderStatus(ctx, actorFrom(ctx), orderID, orders.Status(req.Status), req.Items)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
