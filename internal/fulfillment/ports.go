package fulfillment

import (
	"context"

	"github.com/ariefcatur/marketplace-orders/internal/access"
	"github.com/ariefcatur/marketplace-orders/internal/orders"
)

type ProductStore interface {
	FindProduct(ctx context.Context, id string) (orders.Product, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o orders.Order) error
	FindOrder(ctx context.Context, id string) (orders.Order, error)
	ListOrders(ctx context.Context, f orders.Filter) ([]orders.Order, error)
	// SaveOrder writes status and warehouse assignments if the stored status is still prev.
	SaveOrder(ctx context.Context, o orders.Order, prev orders.Status) error
}

type UserDirectory interface {
	FindUser(ctx context.Context, id string) (access.Actor, error)
}

// EventPublisher is told about committed changes. Publishing is best effort.
type EventPublisher interface {
	OrderPlaced(ctx context.Context, o orders.Order)
	OrderStatusChanged(ctx context.Context, o orders.Order, from orders.Status, actorID string)
}

type Recorder interface {
	OrderPlaced()
	Transition(from, to orders.Status)
	ReservationFailed(reason string)
}

type nopPublisher struct{}

func (nopPublisher) OrderPlaced(context.Context, orders.Order) {}
func (nopPublisher) OrderStatusChanged(context.Context, orders.Order, orders.Status, string) {}

type nopRecorder struct{}

func (nopRecorder) OrderPlaced() {}
func (nopRecorder) Transition(_, _ orders.Status) {}
func (nopRecorder) ReservationFailed(_ string) {}
