package ranking

import (
	"context"

	"github.com/aristath/augur/internal/domain"
)

// RecordReader is the slice of a performance ledger the ranking reads.
type RecordReader interface {
	Recent(ctx context.Context, strategy string, beforeDrawID int64, limit int) ([]domain.PerformanceRecord, error)
}

// Provider returns the current ranking.
type Provider interface {
	Current(ctx context.Context) (Snapshot, error)
}

// Source returns the ranking an ensemble should use when predicting a draw.
type Source interface {
	SnapshotBefore(ctx context.Context, drawID int64) (Snapshot, error)
}

// Fixed returns the same snapshot for every draw.
//
// Replaying history with the current ranking lets ensembles see how members
// performed on draws after the one being predicted. Results are optimistic
// and must be reported as a look-ahead approximation.
type Fixed struct {
	snap Snapshot
}

// NewFixed wraps a snapshot.
func NewFixed(snap Snapshot) *Fixed {
	return &Fixed{snap: snap}
}

// SnapshotBefore ignores drawID.
func (f *Fixed) SnapshotBefore(context.Context, int64) (Snapshot, error) {
	return f.snap, nil
}

// Current returns the wrapped snapshot.
func (f *Fixed) Current(context.Context) (Snapshot, error) {
	return f.snap, nil
}
