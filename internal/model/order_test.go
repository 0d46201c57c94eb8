package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to paid", OrderPending, OrderPaid, true},
		{"pending to cancelled", OrderPending, OrderCancelled, true},
		{"paid to completed", OrderPaid, OrderCompleted, true},
		{"pending to completed skips paid", OrderPending, OrderCompleted, false},
		{"paid back to pending", OrderPaid, OrderPending, false},
		{"paid to cancelled", OrderPaid, OrderCancelled, false},
		{"cancelled to paid", OrderCancelled, OrderPaid, false},
		{"cancelled to pending", OrderCancelled, OrderPending, false},
		{"completed to pending", OrderCompleted, OrderPending, false},
		{"completed to cancelled", OrderCompleted, OrderCancelled, false},
		{"self transition", OrderPending, OrderPending, false},
		{"unknown status", OrderStatus("REFUNDED"), OrderPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.False(t, OrderPending.Terminal())
	assert.False(t, OrderPaid.Terminal())
	assert.True(t, OrderCancelled.Terminal())
	assert.True(t, OrderCompleted.Terminal())
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{OrderPending, OrderPaid, OrderCancelled, OrderCompleted} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, OrderStatus("").Valid())
	assert.False(t, OrderStatus("REFUNDED").Valid())
}

func TestOrderItemSubtotal(t *testing.T) {
	it := OrderItem{UnitPrice: decimal.RequireFromString("19.90"), Quantity: 3}
	assert.True(t, it.Subtotal().Equal(decimal.RequireFromString("59.70")),
		"got %s", it.Subtotal())
}
