/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package supabase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/chainguard-dev/clog"
	"github.com/siliconcrowds/siliconcrowds/store/recordstore"
)

var _ recordstore.Reader = (*Client)(nil)

// Select implements recordstore.Reader over PostgREST. Numbers arrive as
// json.Number.
func (c *Client) Select(ctx context.Context, table string, filters ...recordstore.Filter) ([]recordstore.Row, error) {
	q := url.Values{"select": {"*"}}
	for _, f := range filters {
		q.Add(f.Column, "eq."+f.Value)
	}
	endpoint := "/rest/v1/" + url.PathEscape(table) + "?" + q.Encode()

	var rows []recordstore.Row
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &rows); err != nil {
		return nil, err
	}
	clog.FromContext(ctx).With("table", table).With("rows", len(rows)).Debug("Selected rows")
	return rows, nil
}
