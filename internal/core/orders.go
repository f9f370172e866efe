package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OrderService owns the fulfilment side of extracted orders
type OrderService struct {
	repo   OrderRepository
	logger *zap.Logger
	clock  func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(repo OrderRepository, logger *zap.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		logger: logger,
		clock:  time.Now,
	}
}

// RecordExtractedOrder persists an extracted order with one inventory row per
// physical piece in a single write. An order already recorded for the vendor is
// returned as-is.
func (s *OrderService) RecordExtractedOrder(
	ctx context.Context,
	vendorID int64,
	vendorCode string,
	emailID string,
	extracted *ExtractedOrder,
) (*Order, bool, error) {
	now := s.clock()
	totalPieces := extracted.Order.TotalPieces
	if totalPieces == 0 {
		totalPieces = extracted.Pieces()
	}

	order := &Order{
		OrderNumber:   extracted.Order.OrderNumber,
		VendorID:      vendorID,
		VendorCode:    vendorCode,
		Status:        OrderStatusPending,
		TotalPieces:   totalPieces,
		SourceEmailID: emailID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items := InventoryRows(0, extracted.Items, now)
	created, err := s.repo.CreateOrderWithItems(ctx, order, items)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record order %s: %w", order.OrderNumber, err)
	}
	if !created {
		s.logger.Info("Order already recorded, skipping inventory rows",
			zap.String("vendor", vendorCode),
			zap.String("order_number", order.OrderNumber),
			zap.Int64("order_id", order.ID))
		return order, false, nil
	}

	stored, err := s.repo.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("Recorded order",
		zap.String("vendor", vendorCode),
		zap.String("order_number", stored.OrderNumber),
		zap.Int("pieces", len(items)),
		zap.String("status", string(stored.Status)))

	return stored, true, nil
}

// InventoryRows expands line items into one row per physical piece
func InventoryRows(orderID int64, lines []LineItem, now time.Time) []InventoryItem {
	var rows []InventoryItem
	for i, line := range lines {
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}
		for n := 0; n < qty; n++ {
			rows = append(rows, InventoryItem{
				OrderID:   orderID,
				LineNo:    i + 1,
				Brand:     line.Brand,
				Model:     line.Model,
				Color:     line.Color,
				Size:      line.Size,
				UPC:       line.UPC,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	return rows
}

// ReceiveItem marks one inventory row as received (or not)
func (s *OrderService) ReceiveItem(ctx context.Context, itemID int64, received bool) error {
	if err := s.repo.SetItemReceived(ctx, itemID, received); err != nil {
		return fmt.Errorf("failed to update item %d: %w", itemID, err)
	}
	return nil
}

// RemoveItem deletes an inventory row
func (s *OrderService) RemoveItem(ctx context.Context, itemID int64) error {
	if err := s.repo.DeleteInventoryItem(ctx, itemID); err != nil {
		return fmt.Errorf("failed to delete item %d: %w", itemID, err)
	}
	return nil
}

// MarkShipped moves an order to shipped
func (s *OrderService) MarkShipped(ctx context.Context, orderID int64) error {
	return s.setTerminal(ctx, orderID, OrderStatusShipped)
}

// MarkDelivered moves an order to delivered
func (s *OrderService) MarkDelivered(ctx context.Context, orderID int64) error {
	return s.setTerminal(ctx, orderID, OrderStatusDelivered)
}

// Cancel moves an order to cancelled
func (s *OrderService) Cancel(ctx context.Context, orderID int64) error {
	return s.setTerminal(ctx, orderID, OrderStatusCancelled)
}

func (s *OrderService) setTerminal(ctx context.Context, orderID int64, status OrderStatus) error {
	if err := s.repo.SetTerminalStatus(ctx, orderID, status); err != nil {
		return fmt.Errorf("failed to set order %d to %s: %w", orderID, status, err)
	}
	s.logger.Info("Order status set externally",
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)))
	return nil
}

// Backfill recomputes the status of every non-terminal order and returns how many changed
func (s *OrderService) Backfill(ctx context.Context) (int, error) {
	ids, err := s.repo.ListNonTerminalOrderIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list orders for backfill: %w", err)
	}

	repaired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}

		status, changed, err := s.repo.RecomputeStatus(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return repaired, fmt.Errorf("failed to recompute order %d: %w", id, err)
		}
		if changed {
			repaired++
			s.logger.Info("Repaired order status",
				zap.Int64("order_id", id),
				zap.String("status", string(status)))
		}
	}

	s.logger.Info("Status backfill complete",
		zap.Int("orders", len(ids)),
		zap.Int("repaired", repaired))

	return repaired, nil
}
