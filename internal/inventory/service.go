package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
	kafkax "github.com/ariefcatur/marketplace-orders/internal/kafka"
	"github.com/ariefcatur/marketplace-orders/internal/orders"
)

type ProductFinder interface {
	FindProduct(ctx context.Context, id string) (orders.Product, error)
}

type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type SnapshotWriter interface {
	Write(ctx context.Context, p orders.Product) error
}

type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header)
}

// Service projects stock levels after approvals. It never mutates stock; the
// ledger has already done that inside the approving transaction.
type Service struct {
	Products    ProductFinder
	Dedup       Deduper // optional
	Snapshots   SnapshotWriter
	Alerts      Publisher // optional
	Threshold   int
	ServiceName string
	Log         *zap.Logger
}

// HandleStatusChanged is installed as the consumer handler for order.status.changed.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	log := s.logger()

	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		// poison message; committing it is the only way forward
		log.Error("drop undecodable envelope", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		log.Error("drop undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	if p.To != orders.StatusApproved || len(p.Items) == 0 {
		return nil
	}

	if s.Dedup != nil {
		seen, err := s.Dedup.Seen(ctx, env.EventID)
		if err != nil {
			log.Warn("dedup check failed", zap.String("event_id", env.EventID), zap.Error(err))
		} else if seen {
			return nil
		}
	}

	if err := s.project(ctx, p, env.TraceID); err != nil {
		if s.Dedup != nil {
			_ = s.Dedup.Forget(ctx, env.EventID)
		}
		return fmt.Errorf("project order %s: %w", p.OrderID, err)
	}
	return nil
}

func (s *Service) project(ctx context.Context, p orders.OrderStatusChangedPayload, traceID string) error {
	done := make(map[string]bool, len(p.Items))
	for _, it := range p.Items {
		if done[it.ProductID] {
			continue
		}
		done[it.ProductID] = true

		prod, err := s.Products.FindProduct(ctx, it.ProductID)
		if errors.Is(err, apperr.ErrProductNotFound) {
			s.logger().Warn("skip deleted product", zap.String("product_id", it.ProductID))
			continue
		}
		if err != nil {
			return err
		}
		if err := s.Snapshots.Write(ctx, prod); err != nil {
			return err
		}
		for _, w := range LowStock(prod, s.Threshold) {
			s.alert(ctx, prod.ID, w, traceID)
		}
	}
	s.logger().Info("stock projected", zap.String("order_id", p.OrderID), zap.Int("products", len(done)))
	return nil
}

// LowStock lists the warehouses of p whose level is below threshold.
func LowStock(p orders.Product, threshold int) []orders.Warehouse {
	var out []orders.Warehouse
	for _, w := range p.Warehouses {
		if w.StockLevel < threshold {
			out = append(out, w)
		}
	}
	return out
}

func (s *Service) alert(ctx context.Context, productID string, w orders.Warehouse, traceID string) {
	s.logger().Warn("low stock",
		zap.String("product_id", productID),
		zap.String("warehouse", w.Name),
		zap.Int("stock_level", w.StockLevel))
	if s.Alerts == nil {
		return
	}
	payload := orders.StockLowPayload{ProductID: productID, Warehouse: w.Name, StockLevel: w.StockLevel, Threshold: s.Threshold}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockLow,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       traceID,
		CorrelationID: productID,
		Payload:       json.RawMessage(kafkax.MustMarshal(payload)),
	}
	s.Alerts.Publish(ctx, []byte(productID), kafkax.MustMarshal(ev), kafkax.EventHeaders(orders.EventStockLow, 1)...)
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
