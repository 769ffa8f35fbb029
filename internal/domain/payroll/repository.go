package payroll

import "context"

// PayrollRepository persists aggregates and their details.
type PayrollRepository interface {
	// Aggregates
	FindOrCreateAggregate(ctx context.Context, month Month) (Aggregate, error)
	GetAggregateByID(ctx context.Context, id string) (Aggregate, error)
	GetAggregateByMonth(ctx context.Context, month Month) (Aggregate, error)
	ListAggregates(ctx context.Context) ([]Aggregate, error)
	UpdateTotals(ctx context.Context, aggregate Aggregate) error
	// LockAggregate row-locks the aggregate until the transaction ends and
	// returns its current state.
	LockAggregate(ctx context.Context, id string) (Aggregate, error)

	// Details
	UpsertDetail(ctx context.Context, detail Detail) (Detail, error)
	GetDetailByID(ctx context.Context, id string) (Detail, error)
	ListDetails(ctx context.Context, aggregateID string) ([]Detail, error)

	// LockWorkerMonth takes a transaction-scoped lock serializing detail
	// writes for one worker in one month.
	LockWorkerMonth(ctx context.Context, workerID string, month Month) error
}
