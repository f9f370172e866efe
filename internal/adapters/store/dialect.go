package store

import (
	"fmt"
	"strings"
)

// dialect holds the statements that differ between SQLite and MySQL
type dialect struct {
	name   string
	schema []string

	upsertCatalog string
	ensureOrder   string
	upsertProfile string

	// lockOrder reads an order's status, locking the row where the engine supports it
	lockOrder string
	// itemOrder returns the owning order of an inventory row
	itemOrder string
	// countItems returns the total and received piece counts of an order
	countItems string
}

// catalogMergeColumns are the attribute columns merged on a repeat sighting
var catalogMergeColumns = []string{
	"brand",
	"model",
	"color",
	"color_normalized",
	"material",
	"upc",
	"wholesale_price",
	"retail_price",
	"in_stock",
}

const catalogInsert = `
	INSERT INTO catalog_entries (
		vendor_id, model_key, color_key, eye_size,
		brand, model, color, color_normalized, material, upc,
		wholesale_price, retail_price, in_stock,
		confidence, verified, source, sightings, first_seen_at, last_seen_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`

const orderColumns = `(order_number, vendor_id, vendor_code, status, total_pieces, source_email_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const countItemsQuery = `
	SELECT COUNT(*), COALESCE(SUM(CASE WHEN received THEN 1 ELSE 0 END), 0)
	FROM inventory_items
	WHERE order_id = ?`

func sqliteDialect() dialect {
	// Every column reference in DO UPDATE sees the stored row, so order is free
	protected := "(catalog_entries.verified AND catalog_entries.confidence > excluded.confidence)"
	sets := make([]string, 0, len(catalogMergeColumns)+5)
	for _, col := range catalogMergeColumns {
		sets = append(sets, fmt.Sprintf(
			"%[1]s = CASE WHEN excluded.%[1]s IS NOT NULL AND (catalog_entries.%[1]s IS NULL OR NOT %[2]s) THEN excluded.%[1]s ELSE catalog_entries.%[1]s END",
			col, protected))
	}
	sets = append(sets,
		"source = CASE WHEN NOT "+protected+" THEN excluded.source ELSE catalog_entries.source END",
		"confidence = MAX(catalog_entries.confidence, excluded.confidence)",
		"verified = (catalog_entries.verified OR excluded.verified)",
		"sightings = catalog_entries.sightings + 1",
		"last_seen_at = excluded.last_seen_at",
	)

	return dialect{
		name: "sqlite",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS vendor_profiles (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				code TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				domains TEXT NOT NULL,
				signatures TEXT NOT NULL,
				subject_keywords TEXT NOT NULL,
				body_keywords TEXT NOT NULL,
				required_matches INTEGER NOT NULL DEFAULT 0,
				domain_weight INTEGER NOT NULL DEFAULT 0,
				signature_weight INTEGER NOT NULL DEFAULT 0,
				weak_weight INTEGER NOT NULL DEFAULT 0,
				active BOOLEAN NOT NULL DEFAULT 1
			)`,
			`CREATE TABLE IF NOT EXISTS inbound_emails (
				id TEXT PRIMARY KEY,
				sender TEXT NOT NULL,
				resolved_sender TEXT,
				subject TEXT,
				plain_text TEXT,
				html TEXT,
				received_at TEXT NOT NULL,
				classification TEXT,
				parse_status TEXT NOT NULL,
				extracted_order TEXT,
				error TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_inbound_emails_status ON inbound_emails(parse_status)`,
			`CREATE TABLE IF NOT EXISTS review_queue (
				id TEXT PRIMARY KEY,
				email_id TEXT NOT NULL,
				reason TEXT NOT NULL,
				detail TEXT,
				classification TEXT,
				suggestion TEXT,
				created_at TEXT NOT NULL,
				resolved BOOLEAN NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS catalog_entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				vendor_id INTEGER NOT NULL,
				model_key TEXT NOT NULL,
				color_key TEXT NOT NULL,
				eye_size TEXT NOT NULL,
				brand TEXT,
				model TEXT,
				color TEXT,
				color_normalized TEXT,
				material TEXT,
				upc TEXT,
				wholesale_price REAL,
				retail_price REAL,
				in_stock BOOLEAN,
				confidence INTEGER NOT NULL,
				verified BOOLEAN NOT NULL DEFAULT 0,
				source TEXT NOT NULL,
				sightings INTEGER NOT NULL DEFAULT 1,
				first_seen_at TEXT NOT NULL,
				last_seen_at TEXT NOT NULL,
				UNIQUE (vendor_id, model_key, color_key, eye_size)
			)`,
			`CREATE TABLE IF NOT EXISTS orders (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				order_number TEXT NOT NULL,
				vendor_id INTEGER NOT NULL,
				vendor_code TEXT NOT NULL,
				status TEXT NOT NULL,
				total_pieces INTEGER NOT NULL DEFAULT 0,
				source_email_id TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE (vendor_code, order_number)
			)`,
			`CREATE TABLE IF NOT EXISTS inventory_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				line_no INTEGER NOT NULL,
				brand TEXT,
				model TEXT,
				color TEXT,
				size TEXT,
				upc TEXT,
				received BOOLEAN NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_inventory_items_order ON inventory_items(order_id)`,
		},
		upsertCatalog: catalogInsert + `
	ON CONFLICT (vendor_id, model_key, color_key, eye_size) DO UPDATE SET
		` + strings.Join(sets, ",\n\t\t"),
		ensureOrder: `INSERT INTO orders ` + orderColumns + `
	ON CONFLICT (vendor_code, order_number) DO NOTHING`,
		upsertProfile: `
	INSERT INTO vendor_profiles (code, name, domains, signatures, subject_keywords, body_keywords,
		required_matches, domain_weight, signature_weight, weak_weight, active)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (code) DO UPDATE SET
		name = excluded.name,
		domains = excluded.domains,
		signatures = excluded.signatures,
		subject_keywords = excluded.subject_keywords,
		body_keywords = excluded.body_keywords,
		required_matches = excluded.required_matches,
		domain_weight = excluded.domain_weight,
		signature_weight = excluded.signature_weight,
		weak_weight = excluded.weak_weight,
		active = excluded.active`,
		lockOrder:  `SELECT status FROM orders WHERE id = ?`,
		itemOrder:  `SELECT order_id FROM inventory_items WHERE id = ?`,
		countItems: countItemsQuery,
	}
}

func mysqlDialect() dialect {
	// Assignments run left to right and later ones see earlier results, so
	// the protection test must run before confidence and verified change.
	protected := "(verified AND confidence > VALUES(confidence))"
	sets := make([]string, 0, len(catalogMergeColumns)+5)
	for _, col := range catalogMergeColumns {
		sets = append(sets, fmt.Sprintf(
			"%[1]s = IF(VALUES(%[1]s) IS NOT NULL AND (%[1]s IS NULL OR NOT %[2]s), VALUES(%[1]s), %[1]s)",
			col, protected))
	}
	sets = append(sets,
		"source = IF(NOT "+protected+", VALUES(source), source)",
		"sightings = sightings + 1",
		"last_seen_at = VALUES(last_seen_at)",
		"verified = (verified OR VALUES(verified))",
		"confidence = GREATEST(confidence, VALUES(confidence))",
	)

	return dialect{
		name: "mysql",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS vendor_profiles (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				code VARCHAR(64) NOT NULL,
				name VARCHAR(255) NOT NULL,
				domains TEXT NOT NULL,
				signatures TEXT NOT NULL,
				subject_keywords TEXT NOT NULL,
				body_keywords TEXT NOT NULL,
				required_matches INT NOT NULL DEFAULT 0,
				domain_weight INT NOT NULL DEFAULT 0,
				signature_weight INT NOT NULL DEFAULT 0,
				weak_weight INT NOT NULL DEFAULT 0,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				UNIQUE KEY uq_vendor_profiles_code (code)
			)`,
			`CREATE TABLE IF NOT EXISTS inbound_emails (
				id VARCHAR(36) PRIMARY KEY,
				sender VARCHAR(320) NOT NULL,
				resolved_sender VARCHAR(320),
				subject TEXT,
				plain_text LONGTEXT,
				html LONGTEXT,
				received_at VARCHAR(40) NOT NULL,
				classification TEXT,
				parse_status VARCHAR(16) NOT NULL,
				extracted_order LONGTEXT,
				error TEXT,
				INDEX idx_inbound_emails_status (parse_status)
			)`,
			`CREATE TABLE IF NOT EXISTS review_queue (
				id VARCHAR(36) PRIMARY KEY,
				email_id VARCHAR(36) NOT NULL,
				reason VARCHAR(32) NOT NULL,
				detail TEXT,
				classification TEXT,
				suggestion TEXT,
				created_at VARCHAR(40) NOT NULL,
				resolved BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE TABLE IF NOT EXISTS catalog_entries (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				vendor_id BIGINT NOT NULL,
				model_key VARCHAR(191) NOT NULL,
				color_key VARCHAR(128) NOT NULL,
				eye_size VARCHAR(64) NOT NULL,
				brand VARCHAR(255),
				model VARCHAR(255),
				color VARCHAR(255),
				color_normalized VARCHAR(255),
				material VARCHAR(128),
				upc VARCHAR(64),
				wholesale_price DOUBLE,
				retail_price DOUBLE,
				in_stock BOOLEAN,
				confidence INT NOT NULL,
				verified BOOLEAN NOT NULL DEFAULT FALSE,
				source VARCHAR(16) NOT NULL,
				sightings INT NOT NULL DEFAULT 1,
				first_seen_at VARCHAR(40) NOT NULL,
				last_seen_at VARCHAR(40) NOT NULL,
				UNIQUE KEY uq_catalog_natural_key (vendor_id, model_key, color_key, eye_size)
			)`,
			`CREATE TABLE IF NOT EXISTS orders (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				order_number VARCHAR(64) NOT NULL,
				vendor_id BIGINT NOT NULL,
				vendor_code VARCHAR(64) NOT NULL,
				status VARCHAR(16) NOT NULL,
				total_pieces INT NOT NULL DEFAULT 0,
				source_email_id VARCHAR(36),
				created_at VARCHAR(40) NOT NULL,
				updated_at VARCHAR(40) NOT NULL,
				UNIQUE KEY uq_orders_vendor_number (vendor_code, order_number)
			)`,
			`CREATE TABLE IF NOT EXISTS inventory_items (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				order_id BIGINT NOT NULL,
				line_no INT NOT NULL,
				brand VARCHAR(255),
				model VARCHAR(255),
				color VARCHAR(255),
				size VARCHAR(255),
				upc VARCHAR(64),
				received BOOLEAN NOT NULL DEFAULT FALSE,
				created_at VARCHAR(40) NOT NULL,
				updated_at VARCHAR(40) NOT NULL,
				INDEX idx_inventory_items_order (order_id),
				FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
			)`,
		},
		upsertCatalog: catalogInsert + `
	ON DUPLICATE KEY UPDATE
		` + strings.Join(sets, ",\n\t\t"),
		ensureOrder: `INSERT IGNORE INTO orders ` + orderColumns,
		upsertProfile: `
	INSERT INTO vendor_profiles (code, name, domains, signatures, subject_keywords, body_keywords,
		required_matches, domain_weight, signature_weight, weak_weight, active)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		name = VALUES(name),
		domains = VALUES(domains),
		signatures = VALUES(signatures),
		subject_keywords = VALUES(subject_keywords),
		body_keywords = VALUES(body_keywords),
		required_matches = VALUES(required_matches),
		domain_weight = VALUES(domain_weight),
		signature_weight = VALUES(signature_weight),
		weak_weight = VALUES(weak_weight),
		active = VALUES(active)`,
		lockOrder:  `SELECT status FROM orders WHERE id = ? FOR UPDATE`,
		itemOrder:  `SELECT order_id FROM inventory_items WHERE id = ? FOR UPDATE`,
		countItems: countItemsQuery + ` LOCK IN SHARE MODE`,
	}
}
