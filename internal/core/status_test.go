package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		received int
		current  OrderStatus
		want     OrderStatus
	}{
		{"no items", 0, 0, OrderStatusPending, OrderStatusPending},
		{"none received", 4, 0, OrderStatusPartial, OrderStatusPending},
		{"some received", 4, 1, OrderStatusPending, OrderStatusPartial},
		{"all received", 4, 4, OrderStatusPartial, OrderStatusConfirmed},
		{"receipt undone", 4, 3, OrderStatusConfirmed, OrderStatusPartial},
		{"shipped is frozen", 4, 0, OrderStatusShipped, OrderStatusShipped},
		{"delivered is frozen", 4, 4, OrderStatusDelivered, OrderStatusDelivered},
		{"cancelled is frozen", 4, 2, OrderStatusCancelled, OrderStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.total, tt.received, tt.current))
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusShipped))
	assert.True(t, CanTransition(OrderStatusPartial, OrderStatusCancelled))
	assert.True(t, CanTransition(OrderStatusConfirmed, OrderStatusDelivered))
	assert.True(t, CanTransition(OrderStatusShipped, OrderStatusDelivered))
	assert.True(t, CanTransition(OrderStatusShipped, OrderStatusCancelled))

	assert.False(t, CanTransition(OrderStatusPending, OrderStatusConfirmed))
	assert.False(t, CanTransition(OrderStatusDelivered, OrderStatusCancelled))
	assert.False(t, CanTransition(OrderStatusCancelled, OrderStatusShipped))
	assert.False(t, CanTransition(OrderStatusShipped, OrderStatusShipped))
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, OrderStatusPartial.Valid())
	assert.False(t, OrderStatus("lost").Valid())
	assert.True(t, OrderStatusShipped.IsTerminal())
	assert.False(t, OrderStatusConfirmed.IsTerminal())
}
