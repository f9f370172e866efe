package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/mikey/vendor-order-intake/internal/adapters/store"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleOrder(number string) *core.ExtractedOrder {
	return &core.ExtractedOrder{
		Vendor: "Safilo",
		Order:  core.OrderHeader{OrderNumber: number},
		Items: []core.LineItem{
			{Brand: "Carrera", Model: "1055/S", Color: "Black", Size: "56", Quantity: 2},
			{Brand: "Boss", Model: "1407", Color: "Havana", Size: "54", Quantity: 1},
		},
	}
}

func newOrderService(t *testing.T) (*core.OrderService, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore(zap.NewNop())
	return core.NewOrderService(s, zap.NewNop()), s
}

func TestInventoryRows(t *testing.T) {
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	rows := core.InventoryRows(9, []core.LineItem{
		{Model: "A", Quantity: 3},
		{Model: "B", Quantity: 0},
	}, now)

	require.Len(t, rows, 4)
	assert.Equal(t, 1, rows[0].LineNo)
	assert.Equal(t, 1, rows[2].LineNo)
	assert.Equal(t, 2, rows[3].LineNo)
	for _, row := range rows {
		assert.Equal(t, int64(9), row.OrderID)
		assert.False(t, row.Received)
	}
}

func TestOrderService_RecordExtractedOrder(t *testing.T) {
	ctx := context.Background()
	svc, s := newOrderService(t)

	order, created, err := svc.RecordExtractedOrder(ctx, 2, "safilo", "email-1", sampleOrder("SO-100"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, core.OrderStatusPending, order.Status)
	assert.Equal(t, 3, order.TotalPieces)

	items, err := s.ListInventoryItems(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	again, created, err := svc.RecordExtractedOrder(ctx, 2, "safilo", "email-2", sampleOrder("SO-100"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, order.ID, again.ID)

	items, err = s.ListInventoryItems(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestOrderService_StatusFollowsReceipts(t *testing.T) {
	ctx := context.Background()
	svc, s := newOrderService(t)

	order, _, err := svc.RecordExtractedOrder(ctx, 2, "safilo", "email-1", sampleOrder("SO-200"))
	require.NoError(t, err)
	items, err := s.ListInventoryItems(ctx, order.ID)
	require.NoError(t, err)

	status := func() core.OrderStatus {
		o, err := s.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		return o.Status
	}

	require.NoError(t, svc.ReceiveItem(ctx, items[0].ID, true))
	assert.Equal(t, core.OrderStatusPartial, status())

	require.NoError(t, svc.ReceiveItem(ctx, items[1].ID, true))
	require.NoError(t, svc.ReceiveItem(ctx, items[2].ID, true))
	assert.Equal(t, core.OrderStatusConfirmed, status())

	require.NoError(t, svc.ReceiveItem(ctx, items[2].ID, false))
	assert.Equal(t, core.OrderStatusPartial, status())

	require.NoError(t, svc.RemoveItem(ctx, items[2].ID))
	assert.Equal(t, core.OrderStatusConfirmed, status())

	assert.ErrorIs(t, svc.ReceiveItem(ctx, 9999, true), core.ErrNotFound)
}

func TestOrderService_TerminalTransitions(t *testing.T) {
	ctx := context.Background()
	svc, s := newOrderService(t)

	order, _, err := svc.RecordExtractedOrder(ctx, 2, "safilo", "email-1", sampleOrder("SO-300"))
	require.NoError(t, err)
	items, err := s.ListInventoryItems(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, svc.MarkShipped(ctx, order.ID))
	require.NoError(t, svc.ReceiveItem(ctx, items[0].ID, true))

	stored, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusShipped, stored.Status)

	require.NoError(t, svc.MarkDelivered(ctx, order.ID))
	assert.ErrorIs(t, svc.Cancel(ctx, order.ID), core.ErrInvalidTransition)
}

func TestOrderService_Backfill(t *testing.T) {
	ctx := context.Background()
	svc, s := newOrderService(t)

	stale, _, err := svc.RecordExtractedOrder(ctx, 2, "safilo", "email-1", sampleOrder("SO-400"))
	require.NoError(t, err)
	items, err := s.ListInventoryItems(ctx, stale.ID)
	require.NoError(t, err)
	for _, item := range items {
		require.NoError(t, svc.ReceiveItem(ctx, item.ID, true))
	}
	s.SetOrderStatus(stale.ID, core.OrderStatusPending)

	fresh, _, err := svc.RecordExtractedOrder(ctx, 2, "safilo", "email-2", sampleOrder("SO-401"))
	require.NoError(t, err)

	shipped, _, err := svc.RecordExtractedOrder(ctx, 2, "safilo", "email-3", sampleOrder("SO-402"))
	require.NoError(t, err)
	require.NoError(t, svc.MarkShipped(ctx, shipped.ID))

	repaired, err := svc.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	o, err := s.GetOrder(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusConfirmed, o.Status)

	o, err = s.GetOrder(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusPending, o.Status)

	repaired, err = svc.Backfill(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestReconciler_RepairsInBackground(t *testing.T) {
	ctx := context.Background()
	svc, s := newOrderService(t)

	order, _, err := svc.RecordExtractedOrder(ctx, 2, "safilo", "email-1", sampleOrder("SO-500"))
	require.NoError(t, err)
	items, err := s.ListInventoryItems(ctx, order.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ReceiveItem(ctx, items[0].ID, true))
	s.SetOrderStatus(order.ID, core.OrderStatusPending)

	r := core.NewReconciler(svc, 10*time.Millisecond, zap.NewNop())
	r.Start()
	defer r.Stop()

	assert.Eventually(t, func() bool {
		o, err := s.GetOrder(ctx, order.ID)
		return err == nil && o.Status == core.OrderStatusPartial
	}, 2*time.Second, 10*time.Millisecond)
}
