package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// NewSQLiteStore opens (or creates) a SQLite database at path. ":memory:" gives a
// private in-memory database on a single connection.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLStore, error) {
	memory := path == ":memory:"
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on", strings.TrimPrefix(path, "file:"))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if memory {
		// Each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	s := newSQLStore(db, sqliteDialect(), logger)
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Initialized SQLite store", zap.String("path", path))
	return s, nil
}
