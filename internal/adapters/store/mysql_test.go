package store

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newSQLStore(db, mysqlDialect(), zap.NewNop()), mock
}

func TestMySQLDialect_ConfidenceAssignedLast(t *testing.T) {
	stmt := mysqlDialect().upsertCatalog

	source := strings.Index(stmt, "source = IF(")
	upc := strings.Index(stmt, "upc = IF(")
	verified := strings.Index(stmt, "verified = (verified OR")
	confidence := strings.Index(stmt, "confidence = GREATEST(")

	require.True(t, source > 0 && upc > 0 && verified > 0 && confidence > 0)
	assert.Less(t, upc, verified)
	assert.Less(t, source, verified)
	assert.Less(t, verified, confidence)
}

func TestMySQLStore_UpsertCatalogEntry(t *testing.T) {
	s, mock := newMockStore(t)
	entry := extractedEntry()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO catalog_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog_entries")).
		WithArgs(entry.Key.VendorID, entry.Key.ModelKey, entry.Key.ColorKey, entry.Key.EyeSize).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "vendor_id", "model_key", "color_key", "eye_size", "brand", "model", "color",
			"color_normalized", "material", "upc", "wholesale_price", "retail_price", "in_stock",
			"confidence", "verified", "source", "sightings", "first_seen_at", "last_seen_at",
		}).AddRow(
			int64(11), int64(1), entry.Key.ModelKey, entry.Key.ColorKey, entry.Key.EyeSize,
			"MODERN OPTICAL", "CHARM", "Burgundy", "Burgundy", nil, "675254301204",
			42.5, nil, nil, int64(70), false, "extracted", int64(3),
			formatTime(seenAt), formatTime(seenAt),
		))
	mock.ExpectCommit()

	stored, created, err := s.UpsertCatalogEntry(context.Background(), entry)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(11), stored.ID)
	assert.Equal(t, 3, stored.Sightings)
	assert.Equal(t, "675254301204", stored.UPC)
	assert.Nil(t, stored.RetailPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_SetItemReceivedRecomputesInSameTx(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT order_id FROM inventory_items WHERE id = ? FOR UPDATE")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inventory_items SET received = ?")).
		WithArgs(true, sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("LOCK IN SHARE MODE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "received"}).AddRow(2, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?")).
		WithArgs("partial", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SetItemReceived(context.Background(), 5, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_UnchangedStatusIsNotWritten(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("partial"))
	mock.ExpectQuery(regexp.QuoteMeta("LOCK IN SHARE MODE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "received"}).AddRow(3, 1))
	mock.ExpectCommit()

	status, changed, err := s.RecomputeStatus(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, core.OrderStatusPartial, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_RejectsTransitionOutOfDelivered(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("delivered"))
	mock.ExpectRollback()

	err := s.SetTerminalStatus(context.Background(), 7, core.OrderStatusCancelled)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_UpdateEmailOutcomeWithNoChanges(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE inbound_emails")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM inbound_emails WHERE id = ?")).
		WithArgs("email-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	err := s.UpdateEmailOutcome(context.Background(), &core.InboundEmail{
		ID:          "email-1",
		ParseStatus: core.ParseStatusParsed,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_EnsureOrderIgnoredDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	order := newOrder("6817")

	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO orders")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE vendor_code = ? AND order_number = ?")).
		WithArgs("modern_optical", "6817").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_number", "vendor_id", "vendor_code", "status", "total_pieces",
			"source_email_id", "created_at", "updated_at",
		}).AddRow(int64(7), "6817", int64(1), "modern_optical", "partial", 20,
			"email-0", formatTime(seenAt), formatTime(seenAt)))

	created, err := s.EnsureOrder(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(7), order.ID)
	assert.Equal(t, core.OrderStatusPartial, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_LockTimeoutWritesNothing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT order_id FROM inventory_items WHERE id = ? FOR UPDATE")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnError(errors.New("Error 1205: Lock wait timeout exceeded"))
	mock.ExpectRollback()

	err := s.SetItemReceived(context.Background(), 5, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Lock wait timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_CreateOrderWithItems(t *testing.T) {
	s, mock := newMockStore(t)
	order := newOrder("6817")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO orders")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE vendor_code = ? AND order_number = ?")).
		WithArgs("modern_optical", "6817").
		WillReturnRows(orderRow("pending"))
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO inventory_items"))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery(regexp.QuoteMeta("LOCK IN SHARE MODE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "received"}).AddRow(2, 0))
	mock.ExpectCommit()

	created, err := s.CreateOrderWithItems(context.Background(), order, pieces(2))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(7), order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_CreateOrderWithItemsRollsBackOnItemFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO orders")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE vendor_code = ? AND order_number = ?")).
		WithArgs("modern_optical", "6817").
		WillReturnRows(orderRow("pending"))
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO inventory_items"))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("Error 1406: Data too long for column 'upc'"))
	mock.ExpectRollback()

	created, err := s.CreateOrderWithItems(context.Background(), newOrder("6817"), pieces(2))
	require.Error(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func orderRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "order_number", "vendor_id", "vendor_code", "status", "total_pieces",
		"source_email_id", "created_at", "updated_at",
	}).AddRow(int64(7), "6817", int64(1), "modern_optical", status, 3,
		"email-1", formatTime(seenAt), formatTime(seenAt))
}

func TestMySQLDialect_ScrapedColumnsAreWide(t *testing.T) {
	width := regexp.MustCompile(`\b(upc|size|eye_size) VARCHAR\((\d+)\)`)

	var found int
	for _, stmt := range mysqlDialect().schema {
		for _, m := range width.FindAllStringSubmatch(stmt, -1) {
			found++
			n, err := strconv.Atoi(m[2])
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, 64, "%s is too narrow for scraped values", m[1])
		}
	}
	assert.Equal(t, 4, found)
}

func TestMySQLStore_LongUPCKeepsItem(t *testing.T) {
	s, mock := newMockStore(t)
	rows := pieces(1)
	rows[0].UPC = "0675254301204-INVALID-CHECK-DIGIT"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO inventory_items")).
		ExpectExec().
		WithArgs(int64(7), 1, "MODERN OPTICAL", "CHARM", "Burgundy", "52-17-140",
			"0675254301204-INVALID-CHECK-DIGIT", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("LOCK IN SHARE MODE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "received"}).AddRow(1, 0))
	mock.ExpectCommit()

	require.NoError(t, s.AddInventoryItems(context.Background(), 7, rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
