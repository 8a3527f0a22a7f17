package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStrategyInactive is returned when a production replay targets a
	// strategy that has not been committed yet.
	ErrStrategyInactive = errors.New("strategy is not active")

	// ErrNoStagedRecords is returned by commit when nothing was staged.
	// It matches ErrNotFound with errors.Is.
	ErrNoStagedRecords = fmt.Errorf("no staged records: %w", ErrNotFound)
)
