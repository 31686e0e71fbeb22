/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package memblob is an in-memory blobstore.Bucket for tests and fixtures.
package memblob

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/siliconcrowds/siliconcrowds/store/blobstore"
)

// Bucket holds blob metadata in memory. Signed URLs point at BaseURL.
type Bucket struct {
	BaseURL string

	mu    sync.RWMutex
	blobs map[string]blobstore.Entry
}

var _ blobstore.Bucket = (*Bucket)(nil)

// New returns an empty bucket whose signed URLs start with baseURL.
func New(baseURL string) *Bucket {
	return &Bucket{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		blobs:   make(map[string]blobstore.Entry),
	}
}

// Put stores a blob at path.
func (b *Bucket) Put(path string, size int64, updated time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[strings.TrimPrefix(path, "/")] = blobstore.Entry{Size: size, UpdatedAt: updated}
}

// List implements blobstore.Bucket.
func (b *Bucket) List(ctx context.Context, folder string, sort blobstore.SortBy) ([]blobstore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sort.Validate(); err != nil {
		return nil, err
	}
	prefix := blobstore.Prefix(folder)

	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []blobstore.Entry
	for p, e := range b.blobs {
		name, ok := strings.CutPrefix(p, prefix)
		if !ok || name == "" || strings.Contains(name, "/") {
			continue
		}
		e.Name = name
		out = append(out, e)
	}
	blobstore.Sort(out, sort)
	return out, nil
}

// SignURLs implements blobstore.Bucket. Unknown paths are an error.
func (b *Bucket) SignURLs(ctx context.Context, paths []string, expiry time.Duration) ([]blobstore.SignedURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]blobstore.SignedURL, 0, len(paths))
	for _, p := range paths {
		if _, ok := b.blobs[strings.TrimPrefix(p, "/")]; !ok {
			return nil, fmt.Errorf("object %q not found", p)
		}
		q := url.Values{"expires": {fmt.Sprint(int(expiry.Seconds()))}}
		out = append(out, blobstore.SignedURL{
			Path: p,
			URL:  b.BaseURL + "/" + p + "?" + q.Encode(),
		})
	}
	return out, nil
}
