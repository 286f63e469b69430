// Package postgres implements the internal/store interfaces on PostgreSQL
// through database/sql and the pgx driver. It also maps driver errors to
// the store error taxonomy and provides the advisory locks that serialize
// cache rebuilds against review writes.
package postgres
