package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/marketplace-orders/internal/access"
	"github.com/ariefcatur/marketplace-orders/internal/apperr"
	"github.com/ariefcatur/marketplace-orders/internal/inventory"
	"github.com/ariefcatur/marketplace-orders/internal/orders"
)

type Deps struct {
	Products ProductStore
	Orders   OrderStore
	Users    UserDirectory
	Ledger   inventory.Ledger
	Events   EventPublisher // optional
	Metrics  Recorder       // optional
	Log      *zap.Logger    // optional
}

// Service runs the order lifecycle: placement, listing and role-gated status
// changes with stock reservation on approval.
type Service struct {
	products ProductStore
	orders   OrderStore
	users    UserDirectory
	ledger   inventory.Ledger
	builder  *orders.Builder
	events   EventPublisher
	metrics  Recorder
	log      *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		products: d.Products,
		orders:   d.Orders,
		users:    d.Users,
		ledger:   d.Ledger,
		builder:  orders.NewBuilder(d.Products),
		events:   d.Events,
		metrics:  d.Metrics,
		log:      d.Log,
		tracer:   otel.Tracer("fulfillment"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// WarehouseAssignment picks the warehouse that fulfils one order item.
type WarehouseAssignment struct {
	ItemID    string `json:"item_id"`
	Warehouse string `json:"assigned_warehouse"`
}

// PlaceOrder builds and stores a pending order for a buyer. No stock moves.
func (s *Service) PlaceOrder(ctx context.Context, actor access.Actor, cart []orders.CartItem, claimedTotal decimal.Decimal) (o orders.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder", trace.WithAttributes(
		attribute.String("actor.id", actor.ID),
		attribute.Int("cart.items", len(cart)),
	))
	defer func() { s.finish(span, "place order", err, zap.String("buyer_id", actor.ID)) }()

	if err := access.Authorize(actor, access.RoleBuyer); err != nil {
		return orders.Order{}, err
	}

	o, err = s.builder.Build(ctx, actor.ID, cart, claimedTotal)
	if err != nil {
		return orders.Order{}, err
	}
	span.SetAttributes(attribute.String("order.id", o.ID), attribute.String("enterprise.id", o.EnterpriseID))

	ent, err := s.users.FindUser(ctx, o.EnterpriseID)
	if errors.Is(err, apperr.ErrUserNotFound) {
		return orders.Order{}, apperr.New(apperr.ErrMissingEnterpriseLink, "enterprise %s referenced by products does not exist", o.EnterpriseID)
	}
	if err != nil {
		return orders.Order{}, apperr.Internal(err, "load enterprise %s", o.EnterpriseID)
	}
	if !access.IsApprovedEnterprise(ent) {
		return orders.Order{}, apperr.New(apperr.ErrEnterpriseNotApproved, "enterprise %s is not accepting orders", ent.Name)
	}

	if err := s.orders.CreateOrder(ctx, o); err != nil {
		return orders.Order{}, apperr.Internal(err, "create order")
	}

	s.metrics.OrderPlaced()
	s.events.OrderPlaced(ctx, o)
	s.log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("buyer_id", o.BuyerID),
		zap.String("enterprise_id", o.EnterpriseID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	return o, nil
}

// ListOrders scopes the filter by role: buyers see their orders, enterprises
// the orders placed with them, admins anything matching f.
func (s *Service) ListOrders(ctx context.Context, actor access.Actor, f orders.Filter) (out []orders.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "ListOrders", trace.WithAttributes(
		attribute.String("actor.id", actor.ID),
		attribute.String("actor.role", string(actor.Role)),
	))
	defer func() { s.finish(span, "list orders", err, zap.String("actor_id", actor.ID)) }()

	if err := access.Authorize(actor, access.RoleAdmin, access.RoleEnterprise, access.RoleBuyer); err != nil {
		return nil, err
	}
	switch actor.Role {
	case access.RoleBuyer:
		f = orders.Filter{BuyerID: actor.ID}
	case access.RoleEnterprise:
		f = orders.Filter{EnterpriseID: actor.ID}
	case access.RoleAdmin:
	}

	out, err = s.orders.ListOrders(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err, "list orders")
	}
	if out == nil {
		out = []orders.Order{}
	}
	return out, nil
}

// GetOrder returns one order if the actor may see it. Invisible orders are
// reported as missing.
func (s *Service) GetOrder(ctx context.Context, actor access.Actor, orderID string) (o orders.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "GetOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { s.finish(span, "get order", err, zap.String("order_id", orderID)) }()

	if err := access.Authorize(actor, access.RoleAdmin, access.RoleEnterprise, access.RoleBuyer); err != nil {
		return orders.Order{}, err
	}
	o, err = s.loadOrder(ctx, orderID)
	if err != nil {
		return orders.Order{}, err
	}
	if !access.CanViewOrder(actor, o) {
		return orders.Order{}, apperr.ErrOrderNotFound
	}
	return o, nil
}

// UpdateOrderStatus moves an order to target on behalf of actor. Approval
// reserves stock for every item in its assigned warehouse, all or nothing.
func (s *Service) UpdateOrderStatus(ctx context.Context, actor access.Actor, orderID string, target orders.Status, assignments []WarehouseAssignment) (o orders.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "UpdateOrderStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("actor.id", actor.ID),
		attribute.String("actor.role", string(actor.Role)),
		attribute.String("order.target_status", string(target)),
	))
	defer func() {
		s.finish(span, "update order status", err,
			zap.String("order_id", orderID),
			zap.String("actor_id", actor.ID),
			zap.String("target", string(target)))
	}()

	if access.IsBlocked(actor) {
		return orders.Order{}, apperr.ErrAccountBlocked
	}
	if _, err := orders.ParseStatus(string(target)); err != nil {
		return orders.Order{}, apperr.New(apperr.ErrValidation, "invalid status %q", target)
	}

	o, err = s.loadOrder(ctx, orderID)
	if err != nil {
		return orders.Order{}, err
	}
	if !access.CanActOnOrder(actor, o, target) {
		return orders.Order{}, apperr.New(apperr.ErrForbidden, "not authorized to set order %s to %s", o.ID, target)
	}

	prev := o.Status
	var reserved []inventory.Line
	switch actor.Role {
	case access.RoleEnterprise:
		if !orders.CanEnterpriseTransition(prev, target) {
			return orders.Order{}, apperr.New(apperr.ErrInvalidTransition, "order %s is %s; only pending orders can be %s", o.ID, prev, target)
		}
		if target == orders.StatusApproved {
			if reserved, err = s.approve(ctx, &o, assignments); err != nil {
				return orders.Order{}, err
			}
		}
	case access.RoleAdmin:
		// admin moves are not constrained by the current status
	default:
		return orders.Order{}, apperr.ErrForbidden
	}

	o.Status = target
	o.UpdatedAt = s.now()
	if err := s.orders.SaveOrder(ctx, o, prev); err != nil {
		if len(reserved) > 0 {
			s.releaseReserved(ctx, o.ID, reserved)
		}
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return orders.Order{}, err
		}
		return orders.Order{}, apperr.Internal(err, "save order %s", o.ID)
	}

	s.metrics.Transition(prev, target)
	s.events.OrderStatusChanged(ctx, o, prev, actor.ID)
	s.log.Info("order status updated",
		zap.String("order_id", o.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(target)),
		zap.String("actor_id", actor.ID),
	)
	return o, nil
}

// releaseTimeout bounds the compensating release after a failed approval save.
const releaseTimeout = 5 * time.Second

// releaseReserved gives back stock taken by an approval whose save failed. It
// outlives ctx, since a cancelled request is often why the save failed.
func (s *Service) releaseReserved(ctx context.Context, orderID string, lines []inventory.Line) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.ledger.ReleaseAll(rctx, lines); err != nil {
		s.log.Error("release after failed approval save",
			zap.String("order_id", orderID), zap.Error(err))
	}
}

// approve checks the assignment payload, then reserves stock for every item.
// On success the assignments are written onto o.Items.
func (s *Service) approve(ctx context.Context, o *orders.Order, assignments []WarehouseAssignment) ([]inventory.Line, error) {
	byItem, err := assignmentsByItem(*o, assignments)
	if err != nil {
		return nil, err
	}

	products := make(map[string]orders.Product, len(o.Items))
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, it := range o.Items {
		p, ok := products[it.ProductID]
		if !ok {
			p, err = s.products.FindProduct(ctx, it.ProductID)
			if errors.Is(err, apperr.ErrProductNotFound) {
				return nil, apperr.New(apperr.ErrProductNotFound, "product not found for item %s", it.Name)
			}
			if err != nil {
				return nil, apperr.Internal(err, "load product %s", it.ProductID)
			}
			products[it.ProductID] = p
		}
		wh := byItem[it.ID]
		if _, ok := p.Warehouse(wh); !ok {
			s.metrics.ReservationFailed(string(apperr.CodeWarehouseNotFound))
			return nil, apperr.WarehouseNotFound(p.ID, wh)
		}
		lines = append(lines, inventory.Line{
			ItemID:    it.ID,
			ItemName:  it.Name,
			ProductID: it.ProductID,
			Warehouse: wh,
			Qty:       it.Quantity,
		})
	}

	if err := s.ledger.ReserveAll(ctx, lines); err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return nil, apperr.Internal(err, "reserve stock for order %s", o.ID)
		}
		s.metrics.ReservationFailed(string(apperr.CodeOf(err)))
		return nil, err
	}

	for i := range o.Items {
		o.Items[i].AssignedWarehouse = byItem[o.Items[i].ID]
	}
	return lines, nil
}

func assignmentsByItem(o orders.Order, assignments []WarehouseAssignment) (map[string]string, error) {
	missing := apperr.New(apperr.ErrValidation, "Assigned warehouses are required for all items before approval.")
	if len(assignments) == 0 {
		return nil, missing
	}
	byItem := make(map[string]string, len(assignments))
	for _, a := range assignments {
		if a.ItemID == "" || a.Warehouse == "" {
			return nil, missing
		}
		if _, ok := o.Item(a.ItemID); !ok {
			return nil, apperr.New(apperr.ErrValidation, "item %s is not part of order %s", a.ItemID, o.ID)
		}
		if _, dup := byItem[a.ItemID]; dup {
			return nil, apperr.New(apperr.ErrValidation, "item %s is assigned more than once", a.ItemID)
		}
		byItem[a.ItemID] = a.Warehouse
	}
	for _, it := range o.Items {
		if _, ok := byItem[it.ID]; !ok {
			return nil, missing
		}
	}
	return byItem, nil
}

func (s *Service) loadOrder(ctx context.Context, id string) (orders.Order, error) {
	o, err := s.orders.FindOrder(ctx, id)
	if errors.Is(err, apperr.ErrOrderNotFound) {
		return orders.Order{}, apperr.New(apperr.ErrOrderNotFound, "order %s not found", id)
	}
	if err != nil {
		return orders.Order{}, apperr.Internal(err, "load order %s", id)
	}
	return o, nil
}

// finish closes span and logs err at a level that matches its kind.
func (s *Service) finish(span trace.Span, op string, err error, fields ...zap.Field) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	fields = append(fields, zap.String("code", string(apperr.CodeOf(err))), zap.Error(err))
	if apperr.KindOf(err) == apperr.KindInternal {
		s.log.Error(op+" failed", fields...)
		return
	}
	s.log.Info(op+" rejected", fields...)
}
