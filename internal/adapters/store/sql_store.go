// Package store persists emails, review entries, catalog rows and orders.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/vendor-order-intake/internal/core"
	"go.uber.org/zap"
)

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore implements core.Store and core.ProfileSource on database/sql
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
	clock   func() time.Time
}

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		logger:  logger,
		clock:   time.Now,
	}
}

// migrate creates every table and index that does not exist yet
func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	s.logger.Info("Closing store", zap.String("dialect", s.dialect.name))
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing only when fn succeeds
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveEmail records a new inbound email
func (s *SQLStore) SaveEmail(ctx context.Context, email *core.InboundEmail) error {
	classification, err := marshalNullable(email.Classification)
	if err != nil {
		return err
	}
	order, err := marshalNullable(email.Order)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inbound_emails (id, sender, resolved_sender, subject, plain_text, html,
			received_at, classification, parse_status, extracted_order, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		email.ID, email.Sender, nullString(email.ResolvedSender), email.Subject,
		email.PlainText, email.HTML, formatTime(email.ReceivedAt),
		classification, string(email.ParseStatus), order, nullString(email.Error))
	if err != nil {
		return fmt.Errorf("failed to save email: %w", err)
	}
	return nil
}

// UpdateEmailOutcome stores the classification and parse outcome of an email
func (s *SQLStore) UpdateEmailOutcome(ctx context.Context, email *core.InboundEmail) error {
	classification, err := marshalNullable(email.Classification)
	if err != nil {
		return err
	}
	order, err := marshalNullable(email.Order)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE inbound_emails
		SET resolved_sender = ?, classification = ?, parse_status = ?, extracted_order = ?, error = ?
		WHERE id = ?`,
		nullString(email.ResolvedSender), classification, string(email.ParseStatus),
		order, nullString(email.Error), email.ID)
	if err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}

	// MySQL reports changed rows, not matched ones, so zero needs a second look
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM inbound_emails WHERE id = ?`, email.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
	}
	return nil
}

// GetEmail returns a stored email
func (s *SQLStore) GetEmail(ctx context.Context, id string) (*core.InboundEmail, error) {
	var (
		email          core.InboundEmail
		resolved       sql.NullString
		subject        sql.NullString
		plainText      sql.NullString
		html           sql.NullString
		receivedAt     string
		classification sql.NullString
		status         string
		order          sql.NullString
		errText        sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, sender, resolved_sender, subject, plain_text, html, received_at,
			classification, parse_status, extracted_order, error
		FROM inbound_emails
		WHERE id = ?`, id).
		Scan(&email.ID, &email.Sender, &resolved, &subject, &plainText, &html, &receivedAt,
			&classification, &status, &order, &errText)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get email: %w", err)
	}

	email.ResolvedSender = resolved.String
	email.Subject = subject.String
	email.PlainText = plainText.String
	email.HTML = html.String
	email.ParseStatus = core.ParseStatus(status)
	email.Error = errText.String
	if email.ReceivedAt, err = parseTime(receivedAt); err != nil {
		return nil, err
	}
	if classification.Valid {
		email.Classification = &core.Classification{}
		if err := json.Unmarshal([]byte(classification.String), email.Classification); err != nil {
			return nil, fmt.Errorf("failed to decode classification: %w", err)
		}
	}
	if order.Valid {
		email.Order = &core.ExtractedOrder{}
		if err := json.Unmarshal([]byte(order.String), email.Order); err != nil {
			return nil, fmt.Errorf("failed to decode extracted order: %w", err)
		}
	}

	return &email, nil
}

// Enqueue adds an entry to the manual-review queue
func (s *SQLStore) Enqueue(ctx context.Context, entry *core.ReviewEntry) error {
	classification, err := marshalNullable(entry.Classification)
	if err != nil {
		return err
	}
	suggestion, err := marshalNullable(entry.Suggestion)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO review_queue (id, email_id, reason, detail, classification, suggestion, created_at, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.EmailID, string(entry.Reason), nullString(entry.Detail),
		classification, suggestion, formatTime(entry.CreatedAt), false)
	if err != nil {
		return fmt.Errorf("failed to enqueue review entry: %w", err)
	}
	return nil
}

// ListPending returns unresolved review entries, oldest first
func (s *SQLStore) ListPending(ctx context.Context, limit int) ([]core.ReviewEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email_id, reason, detail, classification, suggestion, created_at
		FROM review_queue
		WHERE resolved = ?
		ORDER BY created_at, id
		LIMIT ?`, false, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list review queue: %w", err)
	}
	defer rows.Close()

	var entries []core.ReviewEntry
	for rows.Next() {
		var (
			entry          core.ReviewEntry
			reason         string
			detail         sql.NullString
			classification sql.NullString
			suggestion     sql.NullString
			createdAt      string
		)
		if err := rows.Scan(&entry.ID, &entry.EmailID, &reason, &detail, &classification, &suggestion, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan review entry: %w", err)
		}
		entry.Reason = core.ReviewReason(reason)
		entry.Detail = detail.String
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if classification.Valid {
			entry.Classification = &core.Classification{}
			if err := json.Unmarshal([]byte(classification.String), entry.Classification); err != nil {
				return nil, fmt.Errorf("failed to decode classification: %w", err)
			}
		}
		if suggestion.Valid {
			entry.Suggestion = &core.VendorSuggestion{}
			if err := json.Unmarshal([]byte(suggestion.String), entry.Suggestion); err != nil {
				return nil, fmt.Errorf("failed to decode suggestion: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func marshalNullable(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *core.Classification:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *core.ExtractedOrder:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *core.VendorSuggestion:
		if t == nil {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
