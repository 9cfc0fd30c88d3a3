package job

import "errors"

var (
	ErrDimensionMismatch  = errors.New("index does not match the dimension count") // Index tuple has the wrong order
	ErrZeroSizedDimension = errors.New("dimension has zero span")                  // Spans must be positive
	ErrOutOfBounds        = errors.New("index outside the dimension span")         // Index >= span
	ErrUnexpectedString   = errors.New("unexpected string in job encoding")        // Non-numeric token in a URI or body
	ErrJobNotFound        = errors.New("job not found")                            // Completion target is not outstanding
)
