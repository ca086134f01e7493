package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventStockLow           = "StockLow"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	Warehouse string `json:"warehouse,omitempty"`
	Qty       int    `json:"qty"`
}

type OrderPlacedPayload struct {
	OrderID      string    `json:"order_id"`
	BuyerID      string    `json:"buyer_id"`
	EnterpriseID string    `json:"enterprise_id"`
	Items        []ItemQty `json:"items"`
	TotalAmount  string    `json:"total_amount"`
}

type OrderStatusChangedPayload struct {
	OrderID      string    `json:"order_id"`
	EnterpriseID string    `json:"enterprise_id"`
	From         Status    `json:"from"`
	To           Status    `json:"to"`
	ChangedBy    string    `json:"changed_by"`
	Items        []ItemQty `json:"items,omitempty"` // set when stock moved
}

type StockLowPayload struct {
	ProductID  string `json:"product_id"`
	Warehouse  string `json:"warehouse"`
	StockLevel int    `json:"stock_level"`
	Threshold  int    `json:"threshold"`
}

func PlacedPayload(o Order) OrderPlacedPayload {
	return OrderPlacedPayload{
		OrderID:      o.ID,
		BuyerID:      o.BuyerID,
		EnterpriseID: o.EnterpriseID,
		Items:        itemQtys(o),
		TotalAmount:  o.TotalAmount.StringFixed(2),
	}
}

func StatusChangedPayload(o Order, from Status, actorID string) OrderStatusChangedPayload {
	p := OrderStatusChangedPayload{
		OrderID:      o.ID,
		EnterpriseID: o.EnterpriseID,
		From:         from,
		To:           o.Status,
		ChangedBy:    actorID,
	}
	if o.Status == StatusApproved {
		p.Items = itemQtys(o)
	}
	return p
}

func itemQtys(o Order) []ItemQty {
	out := make([]ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, ItemQty{ItemID: it.ID, ProductID: it.ProductID, Warehouse: it.AssignedWarehouse, Qty: it.Quantity})
	}
	return out
}
