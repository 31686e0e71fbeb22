/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package bucket lists question images and signs links to them.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/siliconcrowds/siliconcrowds/crowds"
	"github.com/siliconcrowds/siliconcrowds/store/blobstore"
)

// DefaultName is the bucket and folder holding question images.
const DefaultName = "pilot_images"

// Bucket wraps a blob namespace.
type Bucket struct {
	store blobstore.Bucket
}

// New wraps store.
func New(store blobstore.Bucket) (*Bucket, error) {
	if store == nil {
		return nil, errors.New("blob store cannot be nil")
	}
	return &Bucket{store: store}, nil
}

// ListFiles returns the files directly inside folder.
func (b *Bucket) ListFiles(ctx context.Context, folder string, sort blobstore.SortBy) ([]blobstore.Entry, error) {
	entries, err := b.store.List(ctx, folder, sort)
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", folder, err)
	}
	return entries, nil
}

// ListPublicURLs signs every file in folder and returns the links keyed by
// file stem, so "q1.png" is found under "q1". An empty folder is
// crowds.ErrNotFound. When two files share a stem the later one in name
// descending order wins.
func (b *Bucket) ListPublicURLs(ctx context.Context, folder string, expiry time.Duration) (map[string]string, error) {
	if expiry <= 0 {
		expiry = blobstore.DefaultExpiry
	}
	entries, err := b.ListFiles(ctx, folder, blobstore.DefaultSort())
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no files in %q: %w", folder, crowds.ErrNotFound)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, blobstore.Join(folder, e.Name))
	}
	signed, err := b.store.SignURLs(ctx, paths, expiry)
	if err != nil {
		return nil, fmt.Errorf("signing %d file(s) in %q: %w", len(paths), folder, err)
	}

	byPath := make(map[string]string, len(signed))
	for _, s := range signed {
		byPath[s.Path] = s.URL
	}

	log := clog.FromContext(ctx).With("folder", folder)
	out := make(map[string]string, len(entries))
	for i, e := range entries {
		u, ok := byPath[paths[i]]
		if !ok {
			return nil, fmt.Errorf("no signed url returned for %q", paths[i])
		}
		key := Stem(e.Name)
		if _, dup := out[key]; dup {
			log.With("stem", key).With("file", e.Name).Warn("Multiple files share a stem, keeping the later one")
		}
		out[key] = u
	}
	log.With("files", len(out)).Info("Signed image urls")
	return out, nil
}

// Stem is the file name without its final extension.
func Stem(name string) string {
	name = path.Base(name)
	if strings.HasPrefix(name, ".") && strings.Count(name, ".") == 1 {
		return name
	}
	return strings.TrimSuffix(name, path.Ext(name))
}
