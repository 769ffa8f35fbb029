package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type PayrollServiceImpl struct {
	tx         database.Transactor
	repo       payroll.PayrollRepository
	workerRepo worker.WorkerRepository
	builder    *Builder
}

func NewPayrollService(
	tx database.Transactor,
	repo payroll.PayrollRepository,
	workerRepo worker.WorkerRepository,
	builder *Builder,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		tx:         tx,
		repo:       repo,
		workerRepo: workerRepo,
		builder:    builder,
	}
}

// ========== AGGREGATES ==========

func (s *PayrollServiceImpl) FindOrCreateForMonth(ctx context.Context, month payroll.Month) (payroll.Aggregate, error) {
	return s.repo.FindOrCreateAggregate(ctx, month)
}

func (s *PayrollServiceImpl) GetAggregate(ctx context.Context, month payroll.Month) (payroll.Aggregate, error) {
	return s.repo.GetAggregateByMonth(ctx, month)
}

// RecomputeTotals overwrites the aggregate totals with the sums of its
// current details.
func (s *PayrollServiceImpl) RecomputeTotals(ctx context.Context, aggregateID string) (payroll.Aggregate, error) {
	aggregate, err := s.repo.GetAggregateByID(ctx, aggregateID)
	if err != nil {
		return payroll.Aggregate{}, err
	}
	details, err := s.repo.ListDetails(ctx, aggregateID)
	if err != nil {
		return payroll.Aggregate{}, err
	}

	aggregate.Recompute(details)
	if err := s.repo.UpdateTotals(ctx, aggregate); err != nil {
		return payroll.Aggregate{}, err
	}
	return aggregate, nil
}

// ========== DETAILS ==========

func (s *PayrollServiceImpl) BuildDetail(ctx context.Context, aggregate payroll.Aggregate, w worker.Worker, gross decimal.Decimal, actor string) (payroll.Detail, error) {
	return s.builder.Build(ctx, aggregate, w, gross, actor)
}

func (s *PayrollServiceImpl) GetDetail(ctx context.Context, id string) (payroll.Detail, error) {
	return s.repo.GetDetailByID(ctx, id)
}

func (s *PayrollServiceImpl) ListDetails(ctx context.Context, month payroll.Month) ([]payroll.Detail, error) {
	aggregate, err := s.repo.GetAggregateByMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDetails(ctx, aggregate.ID)
}

func (s *PayrollServiceImpl) LockWorkerMonth(ctx context.Context, workerID string, month payroll.Month) error {
	return s.repo.LockWorkerMonth(ctx, workerID, month)
}

// ========== RECALCULATION ==========

// RecalculateDetail locks in the same order as work-order processing: the
// aggregate row, then the worker-month, then re-reads the detail it rewrites.
func (s *PayrollServiceImpl) RecalculateDetail(ctx context.Context, id string, actor string) (payroll.Detail, error) {
	var result payroll.Detail
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		located, err := s.repo.GetDetailByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.repo.LockAggregate(ctx, located.AggregateID); err != nil {
			return err
		}
		if err := s.repo.LockWorkerMonth(ctx, located.WorkerID, located.Month); err != nil {
			return err
		}
		existing, err := s.repo.GetDetailByID(ctx, id)
		if err != nil {
			return err
		}
		w, err := s.workerRepo.GetByID(ctx, existing.WorkerID)
		if err != nil {
			return err
		}

		var changed bool
		result, changed, err = s.builder.Recalculate(ctx, existing, w, actor)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		_, err = s.RecomputeTotals(ctx, existing.AggregateID)
		return err
	})
	if err != nil {
		return payroll.Detail{}, err
	}
	return result, nil
}

// RecalculateMonth rebuilds every detail of month in one transaction and
// rolls the aggregate up once at the end.
func (s *PayrollServiceImpl) RecalculateMonth(ctx context.Context, month payroll.Month, actor string) (payroll.RecalculationSummary, error) {
	summary := payroll.RecalculationSummary{Month: month.String()}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		found, err := s.repo.GetAggregateByMonth(ctx, month)
		if err != nil {
			return err
		}
		aggregate, err := s.repo.LockAggregate(ctx, found.ID)
		if err != nil {
			return err
		}
		details, err := s.repo.ListDetails(ctx, aggregate.ID)
		if err != nil {
			return err
		}
		sort.Slice(details, func(i, j int) bool { return details[i].WorkerID < details[j].WorkerID })

		workers, err := s.workersOf(ctx, details)
		if err != nil {
			return err
		}

		for _, d := range details {
			w, ok := workers[d.WorkerID]
			if !ok {
				return fmt.Errorf("detail %s: %w", d.ID, worker.ErrWorkerNotFound)
			}
			if err := s.repo.LockWorkerMonth(ctx, d.WorkerID, month); err != nil {
				return err
			}
			// Re-read under the worker-month lock.
			d, err = s.repo.GetDetailByID(ctx, d.ID)
			if err != nil {
				return err
			}
			d.Month = month
			_, changed, err := s.builder.Recalculate(ctx, d, w, actor)
			if err != nil {
				return fmt.Errorf("detail %s: %w", d.ID, err)
			}
			summary.Recalculated++
			if changed {
				summary.Changed++
			}
		}

		aggregate, err = s.RecomputeTotals(ctx, aggregate.ID)
		if err != nil {
			return err
		}
		summary.TotalGross = aggregate.TotalGross
		summary.TotalNet = aggregate.TotalNet
		return nil
	})
	if err != nil {
		return payroll.RecalculationSummary{}, err
	}

	slog.Info("Recalculated payroll month", "month", summary.Month, "details", summary.Recalculated, "changed", summary.Changed, "actor", actor)
	return summary, nil
}

// RecalculateAll runs RecalculateMonth for every month, one transaction per
// month. Months already done stay committed when a later month fails, and a
// re-run redoes them as no-ops.
func (s *PayrollServiceImpl) RecalculateAll(ctx context.Context, actor string) ([]payroll.RecalculationSummary, error) {
	aggregates, err := s.repo.ListAggregates(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]payroll.RecalculationSummary, 0, len(aggregates))
	for _, a := range aggregates {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		summary, err := s.RecalculateMonth(ctx, a.Month, actor)
		if err != nil {
			return summaries, fmt.Errorf("month %s: %w", a.Month, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ========== QUOTE ==========

func (s *PayrollServiceImpl) Quote(ctx context.Context, req payroll.QuoteRequest) (payroll.QuoteResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.QuoteResponse{}, err
	}

	breakdown, err := s.builder.Breakdown(ctx, req.ParsedDate(), worker.Nationality(req.Nationality), req.Gross)
	if err != nil {
		return payroll.QuoteResponse{}, err
	}
	employee, employer := breakdown.Totals()

	return payroll.QuoteResponse{
		Date:               req.Date,
		Nationality:        req.Nationality,
		GrossSalary:        req.Gross,
		EmployeeDeductions: employee,
		EmployerDeductions: employer,
		NetSalary:          req.Gross.Sub(employee),
		Breakdown:          breakdown,
	}, nil
}

func (s *PayrollServiceImpl) workersOf(ctx context.Context, details []payroll.Detail) (map[string]worker.Worker, error) {
	ids := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.WorkerID)
	}
	workers, err := s.workerRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]worker.Worker, len(workers))
	for _, w := range workers {
		byID[w.ID] = w
	}
	return byID, nil
}
