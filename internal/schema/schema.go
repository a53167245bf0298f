// Package schema resolves the logical tables the engine reads to the physical
// tables present in the database. Resolution happens once at startup.
package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

var ErrRequiredTableMissing = errors.New("required table missing")

type Logical string

const (
	Movies      Logical = "movies"
	Affinity    Logical = "affinity"
	Ratings     Logical = "ratings"
	Watchlist   Logical = "watchlist"
	Embeddings  Logical = "embeddings"
	Cast        Logical = "cast"
	Crew        Logical = "crew"
	Genres      Logical = "genres"
	Preferences Logical = "preferences"
	Summaries   Logical = "summaries"
)

// Required tables fail startup when absent; every other table is optional and
// only disables the features that read it.
var Required = []Logical{Movies, Affinity}

var allLogical = []Logical{Movies, Affinity, Ratings, Watchlist, Embeddings, Cast, Crew, Genres, Preferences, Summaries}

type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Schema is the resolved mapping. It is immutable after construction and safe
// for concurrent use.
type Schema struct {
	userColumn string
	tables     map[Logical]string
}

// Static builds a schema without touching the database.
func Static(userColumn string, tables map[Logical]string) *Schema {
	copied := make(map[Logical]string, len(tables))
	for k, v := range tables {
		copied[k] = v
	}
	return &Schema{userColumn: userColumn, tables: copied}
}

// Resolve picks, for every logical table, the first configured candidate
// that exists in the current schema.
func Resolve(ctx context.Context, db Querier, userColumn string, candidates map[string][]string, logger *logrus.Logger) (*Schema, error) {
	rows, err := db.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	s := &Schema{userColumn: userColumn, tables: make(map[Logical]string)}
	for _, logical := range allLogical {
		for _, name := range candidates[string(logical)] {
			if present[name] {
				s.tables[logical] = name
				break
			}
		}
	}

	for _, logical := range Required {
		if !s.Has(logical) {
			return nil, fmt.Errorf("%w: %s (tried %v)", ErrRequiredTableMissing, logical, candidates[string(logical)])
		}
	}

	for _, logical := range s.Missing() {
		logger.WithFields(logrus.Fields{
			"table":      logical,
			"candidates": candidates[string(logical)],
		}).Warn("Optional table not found, dependent filters are disabled")
	}

	logger.WithField("tables", s.Mapping()).Info("Schema mapping resolved")
	return s, nil
}

func (s *Schema) Has(l Logical) bool {
	_, ok := s.tables[l]
	return ok
}

// Table returns the quoted physical name for use in SQL.
func (s *Schema) Table(l Logical) string {
	name, ok := s.tables[l]
	if !ok {
		return ""
	}
	return pgx.Identifier{name}.Sanitize()
}

// UserColumn returns the quoted user id column name.
func (s *Schema) UserColumn() string {
	return pgx.Identifier{s.userColumn}.Sanitize()
}

// Mapping returns the unquoted resolution for display.
func (s *Schema) Mapping() map[string]string {
	out := make(map[string]string, len(s.tables))
	for k, v := range s.tables {
		out[string(k)] = v
	}
	return out
}

// Missing lists the logical tables that did not resolve, in a stable order.
func (s *Schema) Missing() []string {
	var missing []string
	for _, l := range allLogical {
		if !s.Has(l) {
			missing = append(missing, string(l))
		}
	}
	sort.Strings(missing)
	return missing
}
