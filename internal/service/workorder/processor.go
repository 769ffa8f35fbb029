package workorder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/workorder"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/result"
)

// Orchestrator generates the pay details of a completed work order for the
// month of its completion date.
type Orchestrator struct {
	tx            database.Transactor
	workOrderRepo workorder.WorkOrderRepository
	workerRepo    worker.WorkerRepository
	payroll       payroll.PayrollService
}

func NewOrchestrator(
	tx database.Transactor,
	workOrderRepo workorder.WorkOrderRepository,
	workerRepo worker.WorkerRepository,
	payrollService payroll.PayrollService,
) *Orchestrator {
	return &Orchestrator{
		tx:            tx,
		workOrderRepo: workOrderRepo,
		workerRepo:    workerRepo,
		payroll:       payrollService,
	}
}

// Process builds a detail per assigned worker from the sum of that worker's
// kept amounts over every completed order of the month, then rolls the
// aggregate up. All writes of one call commit or roll back together.
func (o *Orchestrator) Process(ctx context.Context, w workorder.WorkOrder, actor string) result.Result[string] {
	if !w.RateType.PaysWorkers() {
		return result.Ok(fmt.Sprintf("work order %s is resource-only, nothing to pay", w.Number))
	}
	workerIDs := w.WorkerIDs()
	if len(workerIDs) == 0 {
		return result.Ok(fmt.Sprintf("work order %s has no workers assigned, nothing to pay", w.Number))
	}
	if w.CompletionDate == nil {
		return result.Err[string](fmt.Errorf("work order %s: %w", w.Number, workorder.ErrCompletionDateRequired))
	}

	month := payroll.MonthOf(*w.CompletionDate)
	// Worker-month locks are always taken in worker ID order.
	sort.Strings(workerIDs)

	var aggregate payroll.Aggregate
	err := o.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		aggregate, err = o.payroll.FindOrCreateForMonth(ctx, month)
		if err != nil {
			return err
		}

		workers, err := o.workerRepo.GetByIDs(ctx, workerIDs)
		if err != nil {
			return err
		}
		byID := make(map[string]worker.Worker, len(workers))
		for _, wk := range workers {
			byID[wk.ID] = wk
		}

		for _, id := range workerIDs {
			wk, ok := byID[id]
			if !ok {
				return fmt.Errorf("worker %s: %w", id, worker.ErrWorkerNotFound)
			}
			if err := o.payroll.LockWorkerMonth(ctx, id, month); err != nil {
				return err
			}
			gross, err := o.workOrderRepo.SumKeptAmounts(ctx, id, month.FirstDay(), month.LastDay())
			if err != nil {
				return err
			}
			if _, err := o.payroll.BuildDetail(ctx, aggregate, wk, gross, actor); err != nil {
				return fmt.Errorf("worker %s: %w", id, err)
			}
		}

		aggregate, err = o.payroll.RecomputeTotals(ctx, aggregate.ID)
		return err
	})
	if err != nil {
		slog.Error("Failed to process work order", "work_order_id", w.ID, "month", month.String(), "error", err)
		return result.Err[string](err)
	}

	slog.Info("Processed work order", "work_order_id", w.ID, "month", month.String(), "workers", len(workerIDs), "actor", actor)
	return result.Ok(fmt.Sprintf("work order %s processed: %d worker(s) paid for %s, month total net %s",
		w.Number, len(workerIDs), month, aggregate.TotalNet.StringFixed(2)))
}
