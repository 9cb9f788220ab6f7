package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrMissingColumn    = errors.New("missing column")
	ErrInvalidSample    = errors.New("invalid sample")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrSingularDesign   = errors.New("singular local design matrix")
	ErrUnknownSubset    = errors.New("unknown subset")
)

// NewMissingColumnError names the column a dataset lacks
func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %s", ErrMissingColumn, column)
}

// NewInsufficientDataError reports how many observations were available against how many were needed
func NewInsufficientDataError(what string, have, need int) error {
	return fmt.Errorf("%w: %s has %d observations, need at least %d", ErrInsufficientData, what, have, need)
}

// IsDataError reports whether err stems from the shape or content of the input data
func IsDataError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrInvalidSample) ||
		errors.Is(err, ErrInsufficientData)
}
