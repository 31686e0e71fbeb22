/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package blobstore defines the read contract the pipeline needs from a
// blob namespace: list a folder and sign download URLs in batch.
package blobstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultExpiry is the lifetime of signed URLs when none is configured.
const DefaultExpiry = 30 * time.Minute

// Order is a sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// Column is a sortable entry attribute.
type Column string

const (
	ByName      Column = "name"
	ByUpdatedAt Column = "updated_at"
	BySize      Column = "size"
)

// SortBy orders a listing.
type SortBy struct {
	Column Column
	Order  Order
}

// DefaultSort is name descending.
func DefaultSort() SortBy {
	return SortBy{Column: ByName, Order: Descending}
}

// Validate checks the column and order are known.
func (s SortBy) Validate() error {
	switch s.Column {
	case ByName, ByUpdatedAt, BySize:
	default:
		return fmt.Errorf("unknown sort column %q", s.Column)
	}
	switch s.Order {
	case Ascending, Descending:
	default:
		return fmt.Errorf("unknown sort order %q", s.Order)
	}
	return nil
}

// Entry is one file in a folder.
type Entry struct {
	// Name is relative to the listed folder, e.g. "q1.png".
	Name      string
	Size      int64
	UpdatedAt time.Time
}

// SignedURL is a time-limited download URL for the blob at Path.
type SignedURL struct {
	Path string
	URL  string
}

// Bucket is one blob namespace.
type Bucket interface {
	// List returns the files directly inside folder, ordered by sort.
	// Sub-folders are not included.
	List(ctx context.Context, folder string, sort SortBy) ([]Entry, error)
	// SignURLs returns a signed URL for every path, valid for expiry.
	SignURLs(ctx context.Context, paths []string, expiry time.Duration) ([]SignedURL, error)
}

// Sort orders entries in place. Ties on the sort column fall back to name.
func Sort(entries []Entry, by SortBy) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		var c int
		switch by.Column {
		case ByUpdatedAt:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		case BySize:
			c = cmp.Compare(a.Size, b.Size)
		}
		if c == 0 {
			c = strings.Compare(a.Name, b.Name)
		}
		if by.Order == Descending {
			return -c
		}
		return c
	})
}

// Join returns the blob path of name inside folder.
func Join(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// Prefix returns the listing prefix for folder: empty for the root, with a
// trailing slash otherwise.
func Prefix(folder string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}
