package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mikey/vendor-order-intake/internal/core"
)

const catalogSelect = `
	SELECT id, vendor_id, model_key, color_key, eye_size, brand, model, color, color_normalized,
		material, upc, wholesale_price, retail_price, in_stock, confidence, verified, source,
		sightings, first_seen_at, last_seen_at
	FROM catalog_entries`

type rowScanner interface {
	Scan(dest ...any) error
}

// UpsertCatalogEntry inserts or merges an entry in one statement and reads it back
// inside the same transaction, so concurrent sightings of a key never duplicate
func (s *SQLStore) UpsertCatalogEntry(ctx context.Context, entry *core.CatalogEntry) (*core.CatalogEntry, bool, error) {
	var stored *core.CatalogEntry

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.dialect.upsertCatalog,
			entry.Key.VendorID, entry.Key.ModelKey, entry.Key.ColorKey, entry.Key.EyeSize,
			nullString(entry.Brand), nullString(entry.Model), nullString(entry.Color),
			nullString(entry.ColorNormalized), nullString(entry.Material), nullString(entry.UPC),
			nullFloat(entry.WholesalePrice), nullFloat(entry.RetailPrice), nullBool(entry.InStock),
			entry.Confidence, entry.Verified, string(entry.Source),
			formatTime(entry.FirstSeenAt), formatTime(entry.LastSeenAt))
		if err != nil {
			return fmt.Errorf("failed to upsert catalog entry: %w", err)
		}

		stored, err = scanCatalogEntry(tx.QueryRowContext(ctx, catalogSelect+`
			WHERE vendor_id = ? AND model_key = ? AND color_key = ? AND eye_size = ?`,
			entry.Key.VendorID, entry.Key.ModelKey, entry.Key.ColorKey, entry.Key.EyeSize))
		return err
	})
	if err != nil {
		return nil, false, err
	}

	return stored, stored.Sightings == 1, nil
}

// GetCatalogEntry returns the entry stored under key
func (s *SQLStore) GetCatalogEntry(ctx context.Context, key core.CatalogKey) (*core.CatalogEntry, error) {
	return scanCatalogEntry(s.db.QueryRowContext(ctx, catalogSelect+`
		WHERE vendor_id = ? AND model_key = ? AND color_key = ? AND eye_size = ?`,
		key.VendorID, key.ModelKey, key.ColorKey, key.EyeSize))
}

// ListCatalogEntries returns a vendor's entries, verified and higher-confidence rows first
func (s *SQLStore) ListCatalogEntries(ctx context.Context, vendorID int64, minConfidence int) ([]core.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, catalogSelect+`
		WHERE vendor_id = ? AND confidence >= ?
		ORDER BY verified DESC, confidence DESC, last_seen_at DESC, id`,
		vendorID, minConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []core.CatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanCatalogEntry(row rowScanner) (*core.CatalogEntry, error) {
	var (
		entry           core.CatalogEntry
		brand           sql.NullString
		model           sql.NullString
		color           sql.NullString
		colorNormalized sql.NullString
		material        sql.NullString
		upc             sql.NullString
		wholesale       sql.NullFloat64
		retail          sql.NullFloat64
		inStock         sql.NullBool
		source          string
		firstSeen       string
		lastSeen        string
	)

	err := row.Scan(&entry.ID, &entry.Key.VendorID, &entry.Key.ModelKey, &entry.Key.ColorKey,
		&entry.Key.EyeSize, &brand, &model, &color, &colorNormalized, &material, &upc,
		&wholesale, &retail, &inStock, &entry.Confidence, &entry.Verified, &source,
		&entry.Sightings, &firstSeen, &lastSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
	}

	entry.Brand = brand.String
	entry.Model = model.String
	entry.Color = color.String
	entry.ColorNormalized = colorNormalized.String
	entry.Material = material.String
	entry.UPC = upc.String
	entry.Source = core.CatalogSource(source)
	if wholesale.Valid {
		v := wholesale.Float64
		entry.WholesalePrice = &v
	}
	if retail.Valid {
		v := retail.Float64
		entry.RetailPrice = &v
	}
	if inStock.Valid {
		v := inStock.Bool
		entry.InStock = &v
	}
	if entry.FirstSeenAt, err = parseTime(firstSeen); err != nil {
		return nil, err
	}
	if entry.LastSeenAt, err = parseTime(lastSeen); err != nil {
		return nil, err
	}

	return &entry, nil
}
