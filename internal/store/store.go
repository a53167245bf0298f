// Package store is the Postgres-backed candidate store. It executes plans
// built by package query and owns the rating, watchlist and catalog reads
// and writes.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/schema"
)

var (
	// ErrUnavailable marks infrastructural failures: the database cannot be
	// reached or a query failed. The engine does not retry them.
	ErrUnavailable = errors.New("candidate store unavailable")
	ErrNotFound    = errors.New("not found")
	// ErrNotSupported is returned when the table backing an operation was
	// not found at startup.
	ErrNotSupported = errors.New("operation not supported by schema")
)

// DatabaseQuerier is the subset of pgxpool.Pool the store needs.
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type Store struct {
	db     DatabaseQuerier
	schema *schema.Schema
	logger *logrus.Logger
}

func New(db DatabaseQuerier, s *schema.Schema, logger *logrus.Logger) *Store {
	return &Store{
		db:     db,
		schema: s,
		logger: logger,
	}
}

func (s *Store) Schema() *schema.Schema {
	return s.schema
}

// unavailable wraps a driver error. Context errors pass through unchanged so
// callers can tell cancellation from an outage.
func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
