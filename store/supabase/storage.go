/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/siliconcrowds/siliconcrowds/store/blobstore"
)

// listPageSize matches the Storage API's default page.
const listPageSize = 100

// Bucket is one Supabase Storage bucket.
type Bucket struct {
	client *Client
	name   string
}

var _ blobstore.Bucket = (*Bucket)(nil)

// Bucket returns a handle on the named storage bucket.
func (c *Client) Bucket(name string) *Bucket {
	return &Bucket{client: c, name: name}
}

type listRequest struct {
	Prefix string   `json:"prefix"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
	SortBy sortSpec `json:"sortBy"`
}

type sortSpec struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

type listedObject struct {
	Name      string  `json:"name"`
	ID        *string `json:"id"`
	UpdatedAt string  `json:"updated_at"`
	Metadata  struct {
		Size json.Number `json:"size"`
	} `json:"metadata"`
}

// List implements blobstore.Bucket. Folders (entries without an id) are
// skipped and pages are followed until a short page.
func (b *Bucket) List(ctx context.Context, folder string, sort blobstore.SortBy) ([]blobstore.Entry, error) {
	if err := sort.Validate(); err != nil {
		return nil, err
	}
	serverSort := sortSpec{Column: string(sort.Column), Order: string(sort.Order)}
	if sort.Column == blobstore.BySize {
		serverSort.Column = string(blobstore.ByName)
	}

	endpoint := "/storage/v1/object/list/" + url.PathEscape(b.name)
	var out []blobstore.Entry
	for offset := 0; ; offset += listPageSize {
		var page []listedObject
		if err := b.client.do(ctx, http.MethodPost, endpoint, listRequest{
			Prefix: strings.Trim(folder, "/"),
			Limit:  listPageSize,
			Offset: offset,
			SortBy: serverSort,
		}, &page); err != nil {
			return nil, fmt.Errorf("listing %s/%s: %w", b.name, folder, err)
		}

		for _, o := range page {
			if o.ID == nil {
				continue
			}
			e := blobstore.Entry{Name: o.Name}
			if n, err := o.Metadata.Size.Int64(); err == nil {
				e.Size = n
			}
			if t, err := time.Parse(time.RFC3339, o.UpdatedAt); err == nil {
				e.UpdatedAt = t
			}
			out = append(out, e)
		}
		if len(page) < listPageSize {
			break
		}
	}
	blobstore.Sort(out, sort)
	return out, nil
}

type signRequest struct {
	ExpiresIn int      `json:"expiresIn"`
	Paths     []string `json:"paths"`
}

type signedObject struct {
	Error     *string `json:"error"`
	Path      string  `json:"path"`
	SignedURL *string `json:"signedURL"`
}

// SignURLs implements blobstore.Bucket with a single batch request. The
// relative signed paths returned by Storage are made absolute.
func (b *Bucket) SignURLs(ctx context.Context, paths []string, expiry time.Duration) ([]blobstore.SignedURL, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	endpoint := "/storage/v1/object/sign/" + url.PathEscape(b.name)

	var signed []signedObject
	if err := b.client.do(ctx, http.MethodPost, endpoint, signRequest{
		ExpiresIn: int(expiry.Seconds()),
		Paths:     paths,
	}, &signed); err != nil {
		return nil, fmt.Errorf("signing %d path(s) in %s: %w", len(paths), b.name, err)
	}

	out := make([]blobstore.SignedURL, 0, len(signed))
	for _, s := range signed {
		if s.Error != nil || s.SignedURL == nil {
			msg := "no signed url returned"
			if s.Error != nil {
				msg = *s.Error
			}
			return nil, fmt.Errorf("signing %s: %s", s.Path, msg)
		}
		out = append(out, blobstore.SignedURL{
			Path: s.Path,
			URL:  b.client.baseURL + "/storage/v1" + *s.SignedURL,
		})
	}
	return out, nil
}
