package storage

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// DeleteBatchSize bounds a single delete statement so backends with
// per-operation ceilings are never asked to drop an unbounded chunk set at
// once.
const DeleteBatchSize = 100
