package repository

import "errors"

// Common repository errors
var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicateKey           = errors.New("duplicate key violation")
	ErrConcurrentModification = errors.New("record was modified concurrently")
)
