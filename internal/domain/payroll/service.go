package payroll

import (
	"context"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/shopspring/decimal"
)

type PayrollService interface {
	// Aggregates
	FindOrCreateForMonth(ctx context.Context, month Month) (Aggregate, error)
	GetAggregate(ctx context.Context, month Month) (Aggregate, error)
	RecomputeTotals(ctx context.Context, aggregateID string) (Aggregate, error)

	// Details
	BuildDetail(ctx context.Context, aggregate Aggregate, w worker.Worker, gross decimal.Decimal, actor string) (Detail, error)
	GetDetail(ctx context.Context, id string) (Detail, error)
	ListDetails(ctx context.Context, month Month) ([]Detail, error)
	LockWorkerMonth(ctx context.Context, workerID string, month Month) error

	// Recalculation
	RecalculateDetail(ctx context.Context, id string, actor string) (Detail, error)
	RecalculateMonth(ctx context.Context, month Month, actor string) (RecalculationSummary, error)
	RecalculateAll(ctx context.Context, actor string) ([]RecalculationSummary, error)

	// Quote computes deductions as of any date without persisting anything.
	Quote(ctx context.Context, req QuoteRequest) (QuoteResponse, error)
}
