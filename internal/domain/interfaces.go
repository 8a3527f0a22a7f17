package domain

import (
	"context"
	"time"
)

// Order is the sort direction of a draw listing.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// DrawQuery filters a draw listing.
type DrawQuery struct {
	// Before restricts the listing to draws strictly before this instant.
	Before *time.Time
	Order  Order
	// Limit of 0 means unlimited.
	Limit int
}

// DrawStore is the read side of the append-only draw sequence.
// Appending is owned by ingestion.
type DrawStore interface {
	// List returns draws matching the query.
	List(ctx context.Context, q DrawQuery) (History, error)

	// Get returns a draw by ID, or nil if it does not exist.
	Get(ctx context.Context, id int64) (*Draw, error)
}

// PerformanceSink is where a replay persists its records.
// Production and staging repositories both implement it.
type PerformanceSink interface {
	Namespace() Namespace

	// Exists reports whether a record for (drawID, strategy) is already stored.
	Exists(ctx context.Context, drawID int64, strategy string) (bool, error)

	// Insert stores a record unless one already exists for the same key.
	// It returns false when the record was skipped as a duplicate.
	Insert(ctx context.Context, rec PerformanceRecord) (bool, error)

	// Recent returns up to limit records of a strategy ordered by draw descending,
	// restricted to draws before beforeDrawID when it is positive.
	Recent(ctx context.Context, strategy string, beforeDrawID int64, limit int) ([]PerformanceRecord, error)
}
