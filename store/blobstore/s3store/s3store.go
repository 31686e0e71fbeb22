/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package s3store is a blobstore.Bucket over S3 compatible object storage
// (AWS S3, MinIO, R2, or Supabase's own S3 endpoint).
package s3store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/siliconcrowds/siliconcrowds/store/blobstore"
)

// Config locates and authenticates against an S3 endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
}

// Bucket lists and presigns objects in one S3 bucket.
type Bucket struct {
	api    *minio.Client
	bucket string
}

var _ blobstore.Bucket = (*Bucket)(nil)

// New creates a Bucket from cfg.
func New(cfg Config) (*Bucket, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 endpoint and bucket are required")
	}
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	return &Bucket{api: api, bucket: cfg.Bucket}, nil
}

// List implements blobstore.Bucket.
func (b *Bucket) List(ctx context.Context, folder string, sort blobstore.SortBy) ([]blobstore.Entry, error) {
	if err := sort.Validate(); err != nil {
		return nil, err
	}
	prefix := blobstore.Prefix(folder)

	var out []blobstore.Entry
	for obj := range b.api.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s/%s: %w", b.bucket, prefix, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		out = append(out, blobstore.Entry{
			Name:      name,
			Size:      obj.Size,
			UpdatedAt: obj.LastModified,
		})
	}
	blobstore.Sort(out, sort)
	return out, nil
}

// SignURLs implements blobstore.Bucket with presigned GET URLs. Presigning is
// local; no request is made per object.
func (b *Bucket) SignURLs(ctx context.Context, paths []string, expiry time.Duration) ([]blobstore.SignedURL, error) {
	out := make([]blobstore.SignedURL, 0, len(paths))
	for _, p := range paths {
		u, err := b.api.PresignedGetObject(ctx, b.bucket, strings.TrimPrefix(p, "/"), expiry, url.Values{})
		if err != nil {
			return nil, fmt.Errorf("presigning %s: %w", p, err)
		}
		out = append(out, blobstore.SignedURL{Path: p, URL: u.String()})
	}
	return out, nil
}
