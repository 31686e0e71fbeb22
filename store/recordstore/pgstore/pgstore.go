/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pgstore is a recordstore.Reader over a Postgres database, for
// running against a self-hosted copy of the tables.
package pgstore

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/siliconcrowds/siliconcrowds/store/recordstore"
)

// Querier is the subset of *pgxpool.Pool the store uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads rows through a pgx pool.
type Store struct {
	db     Querier
	schema string
	close  func()
}

var _ recordstore.Reader = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithSchema qualifies table names with a Postgres schema, e.g. "public".
func WithSchema(name string) Option {
	return func(s *Store) {
		s.schema = name
	}
}

// Open connects a pool to databaseURL.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	s := New(pool, opts...)
	s.close = pool.Close
	return s, nil
}

// New wraps an existing pool or connection.
func New(db Querier, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the pool opened by Open.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Select implements recordstore.Reader. Filter values are bound as text and
// compared against the column cast to text, matching PostgREST's eq.
func (s *Store) Select(ctx context.Context, table string, filters ...recordstore.Filter) ([]recordstore.Row, error) {
	query, args := s.query(table, filters)
	clog.FromContext(ctx).With("table", table).With("filters", len(filters)).Debug("Selecting rows")

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}

	out := make([]recordstore.Row, 0, len(maps))
	for _, m := range maps {
		for k, v := range m {
			m[k] = normalize(v)
		}
		out = append(out, recordstore.Row(m))
	}
	return out, nil
}

func (s *Store) query(table string, filters []recordstore.Filter) (string, []any) {
	ident := pgx.Identifier{table}
	if s.schema != "" {
		ident = pgx.Identifier{s.schema, table}
	}

	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(ident.Sanitize())

	args := make([]any, 0, len(filters))
	for i, f := range filters {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		fmt.Fprintf(&sb, "%s::text = $%d", pgx.Identifier{f.Column}.Sanitize(), i+1)
		args = append(args, f.Value)
	}
	return sb.String(), args
}

// normalize converts driver values without a useful JSON form.
func normalize(v any) any {
	switch v := v.(type) {
	case [16]byte:
		return formatUUID(v)
	default:
		return v
	}
}

func formatUUID(b [16]byte) string {
	h := hex.EncodeToString(b[:])
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:]
}
