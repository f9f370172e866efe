package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mikey/vendor-order-intake/internal/core"
	"go.uber.org/zap"
)

const orderSelect = `
	SELECT id, order_number, vendor_id, vendor_code, status, total_pieces, source_email_id,
		created_at, updated_at
	FROM orders`

const orderByKey = `
	WHERE vendor_code = ? AND order_number = ?`

// EnsureOrder inserts the order unless the vendor already has one with the same
// number. order is filled with the stored row either way.
func (s *SQLStore) EnsureOrder(ctx context.Context, order *core.Order) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.ensureOrder,
		order.OrderNumber, order.VendorID, order.VendorCode, string(order.Status),
		order.TotalPieces, nullString(order.SourceEmailID),
		formatTime(order.CreatedAt), formatTime(order.UpdatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	stored, err := s.FindOrder(ctx, order.VendorCode, order.OrderNumber)
	if err != nil {
		return false, err
	}
	*order = *stored

	return n > 0, nil
}

// CreateOrderWithItems inserts the order together with its inventory rows and
// derived status. An existing order is loaded into order and left untouched.
func (s *SQLStore) CreateOrderWithItems(ctx context.Context, order *core.Order, items []core.InventoryItem) (bool, error) {
	var (
		stored  *core.Order
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.dialect.ensureOrder,
			order.OrderNumber, order.VendorID, order.VendorCode, string(order.Status),
			order.TotalPieces, nullString(order.SourceEmailID),
			formatTime(order.CreatedAt), formatTime(order.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		stored, err = scanOrder(tx.QueryRowContext(ctx, orderSelect+orderByKey, order.VendorCode, order.OrderNumber))
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		if err := s.insertItems(ctx, tx, stored.ID, items); err != nil {
			return err
		}
		if stored.Status, _, err = s.recompute(ctx, tx, stored.ID, stored.Status); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}

	*order = *stored
	return created, nil
}

// GetOrder returns an order by id
func (s *SQLStore) GetOrder(ctx context.Context, id int64) (*core.Order, error) {
	return scanOrder(s.db.QueryRowContext(ctx, orderSelect+` WHERE id = ?`, id))
}

// FindOrder returns an order by vendor and order number
func (s *SQLStore) FindOrder(ctx context.Context, vendorCode, orderNumber string) (*core.Order, error) {
	return scanOrder(s.db.QueryRowContext(ctx, orderSelect+orderByKey, vendorCode, orderNumber))
}

// AddInventoryItems inserts inventory rows and recomputes the order status
func (s *SQLStore) AddInventoryItems(ctx context.Context, orderID int64, items []core.InventoryItem) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if err := s.insertItems(ctx, tx, orderID, items); err != nil {
			return err
		}

		_, _, err = s.recompute(ctx, tx, orderID, current)
		return err
	})
}

// SetItemReceived flips one inventory row and recomputes the order status
func (s *SQLStore) SetItemReceived(ctx context.Context, itemID int64, received bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		orderID, err := s.itemOrder(ctx, tx, itemID)
		if err != nil {
			return err
		}
		current, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE inventory_items SET received = ?, updated_at = ? WHERE id = ?`,
			received, formatTime(s.clock()), itemID)
		if err != nil {
			return fmt.Errorf("failed to update inventory item: %w", err)
		}

		_, _, err = s.recompute(ctx, tx, orderID, current)
		return err
	})
}

// DeleteInventoryItem removes one inventory row and recomputes the order status
func (s *SQLStore) DeleteInventoryItem(ctx context.Context, itemID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		orderID, err := s.itemOrder(ctx, tx, itemID)
		if err != nil {
			return err
		}
		current, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, itemID); err != nil {
			return fmt.Errorf("failed to delete inventory item: %w", err)
		}

		_, _, err = s.recompute(ctx, tx, orderID, current)
		return err
	})
}

// ListInventoryItems returns an order's inventory rows in line order
func (s *SQLStore) ListInventoryItems(ctx context.Context, orderID int64) ([]core.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, line_no, brand, model, color, size, upc, received, created_at, updated_at
		FROM inventory_items
		WHERE order_id = ?
		ORDER BY line_no, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	defer rows.Close()

	var items []core.InventoryItem
	for rows.Next() {
		var (
			item                      core.InventoryItem
			brand, model, color, size sql.NullString
			upc                       sql.NullString
			createdAt, updatedAt      string
		)
		err := rows.Scan(&item.ID, &item.OrderID, &item.LineNo, &brand, &model, &color, &size,
			&upc, &item.Received, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		item.Brand = brand.String
		item.Model = model.String
		item.Color = color.String
		item.Size = size.String
		item.UPC = upc.String
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetTerminalStatus applies an externally driven terminal status
func (s *SQLStore) SetTerminalStatus(ctx context.Context, orderID int64, status core.OrderStatus) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !core.CanTransition(current, status) {
			return fmt.Errorf("%w: %s to %s", core.ErrInvalidTransition, current, status)
		}
		return s.writeStatus(ctx, tx, orderID, status)
	})
}

// RecomputeStatus re-derives the order status from its inventory rows
func (s *SQLStore) RecomputeStatus(ctx context.Context, orderID int64) (core.OrderStatus, bool, error) {
	var (
		status  core.OrderStatus
		changed bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		status, changed, err = s.recompute(ctx, tx, orderID, current)
		return err
	})
	return status, changed, err
}

// ListNonTerminalOrderIDs returns the ids of orders whose status is still derived
func (s *SQLStore) ListNonTerminalOrderIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM orders WHERE status IN (?, ?, ?) ORDER BY id`,
		string(core.OrderStatusPending), string(core.OrderStatusPartial), string(core.OrderStatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) insertItems(ctx context.Context, tx *sql.Tx, orderID int64, items []core.InventoryItem) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO inventory_items (order_id, line_no, brand, model, color, size, upc, received, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare inventory insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		_, err := stmt.ExecContext(ctx, orderID, item.LineNo, nullString(item.Brand),
			nullString(item.Model), nullString(item.Color), nullString(item.Size),
			nullString(item.UPC), item.Received,
			formatTime(item.CreatedAt), formatTime(item.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert inventory item: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) lockOrder(ctx context.Context, tx *sql.Tx, orderID int64) (core.OrderStatus, error) {
	var status string
	if err := tx.QueryRowContext(ctx, s.dialect.lockOrder, orderID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("failed to read order status: %w", err)
	}
	return core.OrderStatus(status), nil
}

func (s *SQLStore) itemOrder(ctx context.Context, tx *sql.Tx, itemID int64) (int64, error) {
	var orderID int64
	if err := tx.QueryRowContext(ctx, s.dialect.itemOrder, itemID).Scan(&orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, core.ErrNotFound
		}
		return 0, fmt.Errorf("failed to read inventory item: %w", err)
	}
	return orderID, nil
}

// recompute derives the status from the current item counts and writes it when it moved
func (s *SQLStore) recompute(ctx context.Context, tx *sql.Tx, orderID int64, current core.OrderStatus) (core.OrderStatus, bool, error) {
	var total, received int
	if err := tx.QueryRowContext(ctx, s.dialect.countItems, orderID).Scan(&total, &received); err != nil {
		return "", false, fmt.Errorf("failed to count inventory items: %w", err)
	}

	next := core.DeriveStatus(total, received, current)
	if next == current {
		return current, false, nil
	}
	if err := s.writeStatus(ctx, tx, orderID, next); err != nil {
		return "", false, err
	}

	s.logger.Debug("Order status derived",
		zap.Int64("order_id", orderID),
		zap.String("from", string(current)),
		zap.String("to", string(next)),
		zap.Int("received", received),
		zap.Int("total", total))

	return next, true, nil
}

func (s *SQLStore) writeStatus(ctx context.Context, tx *sql.Tx, orderID int64, status core.OrderStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(s.clock()), orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

func scanOrder(row rowScanner) (*core.Order, error) {
	var (
		order                core.Order
		status               string
		emailID              sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&order.ID, &order.OrderNumber, &order.VendorID, &order.VendorCode, &status,
		&order.TotalPieces, &emailID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	order.Status = core.OrderStatus(status)
	order.SourceEmailID = emailID.String
	if order.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if order.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &order, nil
}
