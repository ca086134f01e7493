package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	kafkax "github.com/ariefcatur/marketplace-orders/internal/kafka"
	"github.com/ariefcatur/marketplace-orders/internal/orders"
)

// Sink is the part of a kafka producer the publisher needs.
type Sink interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header)
}

// KafkaPublisher wraps committed order changes in v1 envelopes.
type KafkaPublisher struct {
	Placed        Sink
	StatusChanged Sink
	Service       string
	Now           func() time.Time
}

func (p *KafkaPublisher) OrderPlaced(ctx context.Context, o orders.Order) {
	p.publish(ctx, p.Placed, orders.EventOrderPlaced, o.ID, orders.PlacedPayload(o))
}

func (p *KafkaPublisher) OrderStatusChanged(ctx context.Context, o orders.Order, from orders.Status, actorID string) {
	p.publish(ctx, p.StatusChanged, orders.EventOrderStatusChanged, o.ID, orders.StatusChangedPayload(o, from, actorID))
}

func (p *KafkaPublisher) publish(ctx context.Context, sink Sink, eventType, orderID string, payload any) {
	if sink == nil {
		return
	}
	now := time.Now().UTC()
	if p.Now != nil {
		now = p.Now()
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    now,
		Producer:      p.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	sink.Publish(ctx, orders.PartitionKey(orderID), kafkax.MustMarshal(ev), kafkax.EventHeaders(eventType, 1)...)
}
