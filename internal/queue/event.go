// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types carried in OrderEvent.Type.
const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
	EventOrderCompleted = "order.completed"
)

// OrderEventItem is one snapshot line inside an order event.
type OrderEventItem struct {
	TicketName string `json:"ticket_name"`
	SpotName   string `json:"spot_name"`
	UnitPrice  string `json:"unit_price"`
	Quantity   uint32 `json:"quantity"`
}

// OrderEvent is published on every order lifecycle change. It carries
// enough for downstream consumers to log, notify, or feed analytics
// without querying the primary database.
type OrderEvent struct {
	Type        string           `json:"type"`
	OrderID     string           `json:"order_id"`
	OrderNo     string           `json:"order_no"`
	UserID      uint64           `json:"user_id"`
	Status      string           `json:"status"`
	TotalAmount string           `json:"total_amount"`
	Items       []OrderEventItem `json:"items,omitempty"`
	OccurredAt  string           `json:"occurred_at"`
}
