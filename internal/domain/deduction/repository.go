package deduction

import (
	"context"
	"time"
)

// RegistryRepository persists registry entries and their wage ranges.
// Entries are returned with WageRanges loaded and ordered by MinWage.
type RegistryRepository interface {
	Create(ctx context.Context, entry Entry) (Entry, error)
	GetByID(ctx context.Context, id string) (Entry, error)
	GetOpenByCode(ctx context.Context, code string) (Entry, error)
	ListByCode(ctx context.Context, code string) ([]Entry, error)
	ListActiveOn(ctx context.Context, date time.Time) ([]Entry, error)
	ListOpen(ctx context.Context) ([]Entry, error)
	Close(ctx context.Context, id string, until time.Time) error
	CreateWageRange(ctx context.Context, wageRange WageRange) (WageRange, error)
	DeleteByCode(ctx context.Context, code string) (int64, error)
}
