package workorder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type WorkOrderRepository interface {
	// GetByID loads the order with its assignments.
	GetByID(ctx context.Context, id string) (WorkOrder, error)
	// GetByIDForUpdate row-locks the order for the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id string) (WorkOrder, error)
	UpdateStatus(ctx context.Context, w WorkOrder) error

	CreateHistory(ctx context.Context, h History) (History, error)
	ListHistory(ctx context.Context, workOrderID string) ([]History, error)

	// SumKeptAmounts totals the kept assignment amounts of workerID over
	// completed paying orders whose completion date lies in [from, until].
	SumKeptAmounts(ctx context.Context, workerID string, from, until time.Time) (decimal.Decimal, error)
}
