package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order. Transitions are
// restricted to the graph encoded in CanTransition; CANCELLED and
// COMPLETED are terminal.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderCompleted OrderStatus = "COMPLETED"
)

// orderTransitions maps each status to the set of statuses it may move
// to. Absent entries are terminal states.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled},
	OrderPaid:    {OrderCompleted},
}

// CanTransition reports whether moving from s to target is a legal
// lifecycle step. It returns false for unknown statuses, for terminal
// states and for self-transitions.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// Valid reports whether s is one of the four known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderCancelled, OrderCompleted:
		return true
	}
	return false
}

// Order is a durable record of a checkout, stored in the `orders`
// table. The ID is a UUID generated at creation; OrderNo is the
// human-readable number shown to customers and is unique across all
// orders. TotalAmount equals the sum of UnitPrice*Quantity over the
// order's items at creation time and is never rewritten afterwards.
// Status and PaidAt are the only mutable fields and change only
// through the lifecycle operations.
//
// Fields:
//  ID          – UUID primary key.
//  UserID      – buyer.
//  OrderNo     – unique human-readable order number.
//  TotalAmount – immutable total, DECIMAL(10,2).
//  Status      – PENDING, PAID, CANCELLED or COMPLETED.
//  Note        – optional free-text note from the buyer.
//  PaidAt      – set when the order transitions to PAID.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Order struct {
	ID          string          // orders.id CHAR(36)
	UserID      uint64          // orders.user_id
	OrderNo     string          // orders.order_no (unique)
	TotalAmount decimal.Decimal // orders.total_amount DECIMAL(10,2)
	Status      OrderStatus     // orders.status
	Note        string          // orders.note
	PaidAt      *time.Time      // orders.paid_at (nullable)
	CreatedAt   time.Time       // orders.created_at
	UpdatedAt   time.Time       // orders.updated_at
}

// OrderItem is one purchased line of an order, stored in the
// `order_items` table. It is an immutable snapshot: ticket and spot
// names and the unit price are copied at checkout so later catalog
// edits never change historical orders. TicketID is nullable because a
// ticket may be deleted from the catalog after it was sold.
//
// Fields:
//  ID         – primary key identifier.
//  OrderID    – owning order (UUID).
//  TicketID   – referenced ticket; nil once the ticket is deleted.
//  TicketName – ticket name at purchase time.
//  SpotName   – spot name at purchase time.
//  UnitPrice  – price per unit at purchase time, DECIMAL(10,2).
//  Quantity   – purchased quantity, >= 1.
//  CreatedAt  – creation timestamp.
type OrderItem struct {
	ID         uint64          // order_items.id
	OrderID    string          // order_items.order_id
	TicketID   *uint64         // order_items.ticket_id (nullable)
	TicketName string          // order_items.ticket_name
	SpotName   string          // order_items.spot_name
	UnitPrice  decimal.Decimal // order_items.unit_price DECIMAL(10,2)
	Quantity   uint32          // order_items.quantity
	CreatedAt  time.Time       // order_items.created_at
}

// Subtotal returns UnitPrice multiplied by Quantity.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
