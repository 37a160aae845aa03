// Package storage provides the durable category record store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/Veraticus/transcat/internal/common"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "transactions"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store persists category records in a single table of a SQLite or
// PostgreSQL database.
type Store struct {
	db      *sql.DB
	dialect dialect
	table   string
	// appendMu serializes the read-max-id-then-insert sequence in process.
	appendMu sync.Mutex
}

// Open connects to the database named by driver ("sqlite3" or "postgres").
func Open(ctx context.Context, driver, dsn, table string) (*Store, error) {
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}
	if table == "" {
		table = DefaultTable
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: table name %q", common.ErrInvalidConfig, table)
	}

	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	connStr := dsn
	if d == dialectSQLite {
		connStr, err = sqliteConnString(dsn)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(string(d), connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch d {
	case dialectSQLite:
		// SQLite doesn't benefit from multiple connections
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	case dialectPostgres:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", common.ErrStoreUnavailable, err)
	}

	return &Store{
		db:      db,
		dialect: d,
		table:   table,
	}, nil
}

// NewSQLiteStore opens a SQLite database file (or ":memory:").
func NewSQLiteStore(ctx context.Context, dbPath, table string) (*Store, error) {
	return Open(ctx, string(dialectSQLite), dbPath, table)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Table returns the name of the backing table.
func (s *Store) Table() string {
	return s.table
}

func sqliteConnString(dbPath string) (string, error) {
	if dbPath == ":memory:" {
		return dbPath, nil
	}
	if strings.HasPrefix(dbPath, "file:") {
		return dbPath, nil
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return dbPath + "?_journal_mode=WAL&_busy_timeout=5000", nil
}
