package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/shopspring/decimal"
)

// RateLookup returns the registry entries active on a date for a nationality.
type RateLookup interface {
	ActiveOn(ctx context.Context, date time.Time, nationality *worker.Nationality) ([]deduction.Entry, error)
}

// Builder computes and writes pay details. It never rolls up the aggregate;
// callers recompute totals once their detail writes are done.
type Builder struct {
	rates      RateLookup
	repo       payroll.PayrollRepository
	dispatcher *deduction.Dispatcher
	now        func() time.Time
}

func NewBuilder(rates RateLookup, repo payroll.PayrollRepository, dispatcher *deduction.Dispatcher, now func() time.Time) *Builder {
	if dispatcher == nil {
		dispatcher = deduction.DefaultDispatcher
	}
	if now == nil {
		now = time.Now
	}
	return &Builder{
		rates:      rates,
		repo:       repo,
		dispatcher: dispatcher,
		now:        now,
	}
}

// Breakdown computes the deductions of gross under the registry as it stands
// on date.
func (b *Builder) Breakdown(ctx context.Context, date time.Time, nationality worker.Nationality, gross decimal.Decimal) (payroll.Breakdown, error) {
	if gross.IsNegative() {
		return nil, payroll.ErrNegativeGross
	}

	entries, err := b.rates.ActiveOn(ctx, date, &nationality)
	if err != nil {
		return nil, fmt.Errorf("failed to load deduction rates for %s: %w", date.Format("2006-01-02"), err)
	}

	lines := make([]payroll.BreakdownLine, 0, len(entries))
	for _, entry := range entries {
		line, err := payroll.NewBreakdownLine(b.dispatcher, entry, gross)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return payroll.NewBreakdown(lines...), nil
}

// Build writes the detail of w in aggregate for gross, using the registry as
// of the aggregate's month.
func (b *Builder) Build(ctx context.Context, aggregate payroll.Aggregate, w worker.Worker, gross decimal.Decimal, actor string) (payroll.Detail, error) {
	breakdown, err := b.Breakdown(ctx, aggregate.Month.FirstDay(), w.Nationality, gross)
	if err != nil {
		return payroll.Detail{}, err
	}

	detail := payroll.NewDetail(aggregate.ID, w.ID, gross, breakdown, actor, b.now())
	saved, err := b.repo.UpsertDetail(ctx, detail)
	if err != nil {
		return payroll.Detail{}, err
	}
	saved.Month = aggregate.Month
	return saved, nil
}

// Recalculate rebuilds existing from its stored gross under the registry as of
// the detail's own month. A detail whose figures would not change is returned
// untouched, so repeated calls leave identical rows.
func (b *Builder) Recalculate(ctx context.Context, existing payroll.Detail, w worker.Worker, actor string) (payroll.Detail, bool, error) {
	if existing.Month.IsZero() {
		return payroll.Detail{}, false, fmt.Errorf("detail %s has no month loaded", existing.ID)
	}

	breakdown, err := b.Breakdown(ctx, existing.Month.FirstDay(), w.Nationality, existing.GrossSalary)
	if err != nil {
		return payroll.Detail{}, false, err
	}

	fresh := payroll.NewDetail(existing.AggregateID, existing.WorkerID, existing.GrossSalary, breakdown, actor, b.now())
	if fresh.SameFigures(existing) {
		return existing, false, nil
	}

	saved, err := b.repo.UpsertDetail(ctx, fresh)
	if err != nil {
		return payroll.Detail{}, false, err
	}
	saved.Month = existing.Month
	return saved, true, nil
}
