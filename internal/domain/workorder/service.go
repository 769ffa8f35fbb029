package workorder

import (
	"context"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/result"
)

type WorkOrderService interface {
	Get(ctx context.Context, id string) (WorkOrder, error)
	History(ctx context.Context, id string) ([]History, error)
	Fire(ctx context.Context, req TransitionRequest, actor string) (TransitionResult, error)
	Available(w WorkOrder) []Event
	// Process re-runs payroll generation for a completed order.
	Process(ctx context.Context, id string, actor string) (string, error)
}

// Processor turns an approved work order into pay details.
type Processor interface {
	Process(ctx context.Context, w WorkOrder, actor string) result.Result[string]
}
