/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package recordstore defines the read contract the pipeline needs from a
// tabular record store, and decodes rows into validated Go values.
package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/siliconcrowds/siliconcrowds/agents/schema"
)

// Row is one record keyed by column name. Values are JSON-like: strings,
// numbers (json.Number or Go numeric types), booleans, nil, nested maps
// and slices.
type Row map[string]any

// Filter restricts a selection to rows whose column equals Value.
type Filter struct {
	Column string
	Value  string
}

// Eq is the equality filter column = value.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Reader selects rows from a table.
type Reader interface {
	// Select returns every row of table matching all filters.
	Select(ctx context.Context, table string, filters ...Filter) ([]Row, error)
}

// RowError reports a row that failed to decode.
type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Decode validates every row against the JSON Schema reflected from T and
// decodes it. Null columns are treated as absent. The first invalid row fails
// the whole batch with a *RowError wrapping a *schema.ValidationError.
func Decode[T any](rows []Row) ([]T, error) {
	name := reflect.TypeFor[T]().Name()
	v, err := schema.Compile(name, schema.ReflectType[T]())
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows))
	for i, row := range rows {
		clean := withoutNulls(row)
		if err := v.ValidateValue(clean); err != nil {
			return nil, &RowError{Index: i, Err: err}
		}
		raw, err := json.Marshal(clean)
		if err != nil {
			return nil, &RowError{Index: i, Err: err}
		}
		var t T
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, &RowError{Index: i, Err: &schema.ValidationError{Schema: name, Cause: err}}
		}
		out = append(out, t)
	}
	return out, nil
}

// Fetch selects rows from table and decodes them into T.
func Fetch[T any](ctx context.Context, r Reader, table string, filters ...Filter) ([]T, error) {
	rows, err := r.Select(ctx, table, filters...)
	if err != nil {
		return nil, fmt.Errorf("selecting from %s: %w", table, err)
	}
	out, err := Decode[T](rows)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", table, err)
	}
	return out, nil
}

func withoutNulls(row Row) map[string]any {
	m := make(map[string]any, len(row))
	for k, v := range row {
		if v != nil {
			m[k] = v
		}
	}
	return m
}
