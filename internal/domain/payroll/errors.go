package payroll

import "errors"

var (
	ErrAggregateNotFound = errors.New("pay aggregate not found")
	ErrDetailNotFound    = errors.New("pay detail not found")
	ErrInvalidMonth      = errors.New("invalid payroll month, expected YYYY-MM")
	ErrNegativeGross     = errors.New("gross salary must be non-negative")
)
