package deduction

import (
	"context"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
)

type RegistryService interface {
	// Lookup
	ActiveOn(ctx context.Context, date time.Time, nationality *worker.Nationality) ([]Entry, error)
	GetByID(ctx context.Context, id string) (Entry, error)
	History(ctx context.Context, code string) ([]Entry, error)

	// Versioning
	Create(ctx context.Context, req CreateEntryRequest, actor string) (Entry, error)
	Close(ctx context.Context, req CloseEntryRequest, actor string) (Entry, error)
	Supersede(ctx context.Context, code string, req SupersedeRequest, actor string) (Entry, error)
	AddWageRange(ctx context.Context, req AddWageRangeRequest, actor string) (WageRange, error)
	DeleteCode(ctx context.Context, code string, actor string) (int64, error)

	// Bulk
	Import(ctx context.Context, req ImportRequest, actor string) (ImportResult, error)
}
