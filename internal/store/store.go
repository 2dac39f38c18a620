// Package store persists claims.
package store

import (
	"context"
	"math"

	"github.com/ppiankov/truescope/internal/model"
)

// Page size bounds applied to every query
const (
	MinPageSize     = 1
	MaxPageSize     = 50
	DefaultPageSize = 10
)

// Store is the persistent claim collection
type Store interface {
	// Insert assigns id and timestamps and writes the claim atomically
	Insert(ctx context.Context, c model.Claim) (*model.Claim, error)

	// FindByID returns model.ErrNotFound when no claim has the id
	FindByID(ctx context.Context, id string) (*model.Claim, error)

	// Query returns one page of matching claims, newest first
	Query(ctx context.Context, f Filter, page, size int) ([]model.Claim, error)

	// UpdateStatus writes next only if the stored status is still expected.
	// A mismatch yields model.ErrConflict and leaves the row untouched.
	UpdateStatus(ctx context.Context, id string, expected, next model.Status) (*model.Claim, error)

	Close() error
}

// Filter is a conjunction of optional predicates. Zero fields match everything.
type Filter struct {
	Status model.Status
	Tag    string
	Query  string // Free-text match over title and text
}

// ClampPage normalizes 1-based pagination: page >= 1, size in [MinPageSize, MaxPageSize]
func ClampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > math.MaxInt32 {
		page = math.MaxInt32
	}
	if size < MinPageSize {
		size = MinPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}
