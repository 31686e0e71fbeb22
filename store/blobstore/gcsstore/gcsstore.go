/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gcsstore is a blobstore.Bucket over Google Cloud Storage.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/siliconcrowds/siliconcrowds/store/blobstore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Bucket lists and signs objects in one GCS bucket.
type Bucket struct {
	client *storage.Client
	handle *storage.BucketHandle
	name   string
}

var _ blobstore.Bucket = (*Bucket)(nil)

// New opens bucket with application default credentials, or opts.
func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*Bucket, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &Bucket{client: client, handle: client.Bucket(bucket), name: bucket}, nil
}

// Close releases the storage client.
func (b *Bucket) Close() error {
	return b.client.Close()
}

// List implements blobstore.Bucket.
func (b *Bucket) List(ctx context.Context, folder string, sort blobstore.SortBy) ([]blobstore.Entry, error) {
	if err := sort.Validate(); err != nil {
		return nil, err
	}
	prefix := blobstore.Prefix(folder)

	it := b.handle.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	var out []blobstore.Entry
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing gs://%s/%s: %w", b.name, prefix, err)
		}
		if attrs.Prefix != "" {
			continue
		}
		name := strings.TrimPrefix(attrs.Name, prefix)
		if name == "" {
			continue
		}
		out = append(out, blobstore.Entry{
			Name:      name,
			Size:      attrs.Size,
			UpdatedAt: attrs.Updated,
		})
	}
	blobstore.Sort(out, sort)
	return out, nil
}

// SignURLs implements blobstore.Bucket with V4 signed GET URLs. Signing uses
// the client's credentials, or the IAM signBlob API on GCE.
func (b *Bucket) SignURLs(_ context.Context, paths []string, expiry time.Duration) ([]blobstore.SignedURL, error) {
	out := make([]blobstore.SignedURL, 0, len(paths))
	for _, p := range paths {
		u, err := b.handle.SignedURL(strings.TrimPrefix(p, "/"), &storage.SignedURLOptions{
			Method:  "GET",
			Expires: time.Now().Add(expiry),
			Scheme:  storage.SigningSchemeV4,
		})
		if err != nil {
			return nil, fmt.Errorf("signing gs://%s/%s: %w", b.name, p, err)
		}
		out = append(out, blobstore.SignedURL{Path: p, URL: u})
	}
	return out, nil
}
