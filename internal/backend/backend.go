// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/staranto/qcache/internal/table"
)

// Backend executes query strings and returns their results.
type Backend interface {
	Execute(ctx context.Context, query string) (*table.Table, error)
	Close() error
	String() string
}

// ErrUnknownDriver is returned by NewBackend for unsupported drivers.
var ErrUnknownDriver = errors.New("unknown driver")

// drivers maps accepted driver names onto registered database/sql drivers.
var drivers = map[string]string{
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"postgres":   "pgx",
	"postgresql": "pgx",
	"pgx":        "pgx",
	"mysql":      "mysql",
}

// Drivers returns the accepted driver names.
func Drivers() []string {
	return []string{"sqlite", "postgres", "mysql"}
}

// SQLBackend is a Backend over a database/sql connection pool.
type SQLBackend struct {
	Driver string
	DSN    string

	db *sql.DB
}

var _ Backend = (*SQLBackend)(nil)

// NewBackend opens and pings a connection for driver.
func NewBackend(ctx context.Context, driver, dsn string) (*SQLBackend, error) {
	name, ok := drivers[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownDriver, driver, strings.Join(Drivers(), ", "))
	}

	db, err := sql.Open(name, strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	// Every connection to an in-memory SQLite database is a new database.
	if name == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", name, err)
	}

	be := &SQLBackend{Driver: name, DSN: dsn, db: db}
	log.Debugf("NewBackend: %s", be)
	return be, nil
}

// Exec runs a statement that returns no rows, such as DDL or seed data.
func (be *SQLBackend) Exec(ctx context.Context, stmt string, args ...any) error {
	if _, err := be.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}
	return nil
}

// Execute runs query and converts every row into a table.
func (be *SQLBackend) Execute(ctx context.Context, query string) (*table.Table, error) {
	rows, err := be.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	var raw [][]any
	for rows.Next() {
		cells := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		raw = append(raw, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	t, err := toTable(types, raw)
	if err != nil {
		return nil, err
	}
	log.Debugf("Execute: %d columns, %d rows", len(t.Columns), t.NumRows())
	return t, nil
}

// Close releases the connection pool.
func (be *SQLBackend) Close() error {
	return be.db.Close()
}

// String identifies the backend without leaking credentials.
func (be *SQLBackend) String() string {
	if be.Driver == "sqlite" {
		return be.Driver + ":" + be.DSN
	}
	return be.Driver
}
