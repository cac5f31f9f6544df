// Package common provides shared utilities and types used across the application.
package common

import "errors"

// Common application errors.
var (
	// Store errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Period errors.
	ErrInvalidPeriod = errors.New("invalid period")
)
