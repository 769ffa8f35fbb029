package deduction

import "errors"

var (
	ErrEntryNotFound       = errors.New("deduction entry not found")
	ErrCodeNotFound        = errors.New("deduction code not found")
	ErrNoOpenEntry         = errors.New("deduction code has no open entry")
	ErrOpenEntryExists     = errors.New("deduction code already has an open entry")
	ErrEffectiveOverlap    = errors.New("effective period overlaps an existing entry of this code")
	ErrEntryAlreadyClosed  = errors.New("deduction entry already closed")
	ErrSupersedeNotLater   = errors.New("new entry must take effect after the open entry")
	ErrWageRangeOverlap    = errors.New("wage range overlaps an existing range")
	ErrWageRangeNotAllowed = errors.New("wage ranges are only allowed on wage_range entries")
	ErrUnknownKind         = errors.New("unknown calculation kind")
)

// IsConflict reports whether err is one of the registry conflict errors.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOpenEntryExists) ||
		errors.Is(err, ErrEffectiveOverlap) ||
		errors.Is(err, ErrEntryAlreadyClosed) ||
		errors.Is(err, ErrSupersedeNotLater) ||
		errors.Is(err, ErrWageRangeOverlap)
}
