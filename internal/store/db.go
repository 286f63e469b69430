package store

import (
	"context"
	"database/sql"
)

// DBTX is the minimal query surface shared by *sql.DB and *sql.Tx.
// Store implementations take a DBTX so the same queries run standalone
// or inside a transaction started by a TxRunner.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
