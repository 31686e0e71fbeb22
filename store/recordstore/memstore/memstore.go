/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package memstore is an in-memory recordstore.Reader for tests and fixtures.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/siliconcrowds/siliconcrowds/store/recordstore"
)

// Store holds tables of rows in memory.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]recordstore.Row
}

var _ recordstore.Reader = (*Store)(nil)

// New returns a Store seeded with tables.
func New(tables map[string][]recordstore.Row) *Store {
	s := &Store{tables: make(map[string][]recordstore.Row, len(tables))}
	for name, rows := range tables {
		s.Put(name, rows...)
	}
	return s
}

// Put appends rows to table, creating it if needed.
func (s *Store) Put(table string, rows ...recordstore.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], maps.Clone(r))
	}
	if _, ok := s.tables[table]; !ok {
		s.tables[table] = nil
	}
}

// Select implements recordstore.Reader. Filter values are compared with the
// column's value formatted by fmt.
func (s *Store) Select(ctx context.Context, table string, filters ...recordstore.Filter) ([]recordstore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %q does not exist", table)
	}

	out := make([]recordstore.Row, 0, len(rows))
	for _, r := range rows {
		if matches(r, filters) {
			out = append(out, maps.Clone(r))
		}
	}
	return out, nil
}

func matches(r recordstore.Row, filters []recordstore.Filter) bool {
	for _, f := range filters {
		v, ok := r[f.Column]
		if !ok || v == nil || fmt.Sprint(v) != f.Value {
			return false
		}
	}
	return true
}
