package workorder

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/workorder"
	servicepayroll "github.com/cmlabs-hris/plantation-payroll-go/internal/service/payroll"
	"github.com/shopspring/decimal"
)

// memTx restores every registered store when fn fails, like a rollback.
type memTx struct {
	stores []interface{ snapshot() func() }
}

func (m memTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type fakeWorkOrderRepo struct {
	orders    map[string]workorder.WorkOrder
	histories []workorder.History
	seq       int
}

func newFakeWorkOrderRepo(orders ...workorder.WorkOrder) *fakeWorkOrderRepo {
	r := &fakeWorkOrderRepo{orders: map[string]workorder.WorkOrder{}}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeWorkOrderRepo) snapshot() func() {
	orders := make(map[string]workorder.WorkOrder, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	histories := append([]workorder.History(nil), r.histories...)
	return func() {
		r.orders = orders
		r.histories = histories
	}
}

func (r *fakeWorkOrderRepo) GetByID(_ context.Context, id string) (workorder.WorkOrder, error) {
	w, ok := r.orders[id]
	if !ok {
		return workorder.WorkOrder{}, workorder.ErrWorkOrderNotFound
	}
	return w, nil
}

func (r *fakeWorkOrderRepo) GetByIDForUpdate(ctx context.Context, id string) (workorder.WorkOrder, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeWorkOrderRepo) UpdateStatus(_ context.Context, w workorder.WorkOrder) error {
	stored, ok := r.orders[w.ID]
	if !ok {
		return workorder.ErrWorkOrderNotFound
	}
	stored.Status = w.Status
	stored.ApprovedBy = w.ApprovedBy
	stored.ApprovedAt = w.ApprovedAt
	r.orders[w.ID] = stored
	return nil
}

func (r *fakeWorkOrderRepo) CreateHistory(_ context.Context, h workorder.History) (workorder.History, error) {
	r.seq++
	h.ID = fmt.Sprintf("history-%d", r.seq)
	r.histories = append(r.histories, h)
	return h, nil
}

func (r *fakeWorkOrderRepo) ListHistory(_ context.Context, id string) ([]workorder.History, error) {
	var out []workorder.History
	for _, h := range r.histories {
		if h.WorkOrderID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeWorkOrderRepo) SumKeptAmounts(_ context.Context, workerID string, from, until time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range r.orders {
		if o.Status != workorder.StatusCompleted || !o.RateType.PaysWorkers() || o.CompletionDate == nil {
			continue
		}
		if o.CompletionDate.Before(from) || o.CompletionDate.After(until) {
			continue
		}
		for _, a := range o.Workers {
			if a.WorkerID == workerID && a.Kept {
				sum = sum.Add(a.Amount)
			}
		}
	}
	return sum, nil
}

type fakePayrollRepo struct {
	aggregates     []payroll.Aggregate
	details        []payroll.Detail
	locks          []string
	aggregateLocks []string
	seq            int
}

func (r *fakePayrollRepo) snapshot() func() {
	aggregates := append([]payroll.Aggregate(nil), r.aggregates...)
	details := append([]payroll.Detail(nil), r.details...)
	return func() {
		r.aggregates = aggregates
		r.details = details
	}
}

func (r *fakePayrollRepo) FindOrCreateAggregate(_ context.Context, month payroll.Month) (payroll.Aggregate, error) {
	for _, a := range r.aggregates {
		if a.Month == month {
			return a, nil
		}
	}
	r.seq++
	a := payroll.Aggregate{ID: fmt.Sprintf("agg-%d", r.seq), Month: month}
	r.aggregates = append(r.aggregates, a)
	return a, nil
}

func (r *fakePayrollRepo) GetAggregateByID(_ context.Context, id string) (payroll.Aggregate, error) {
	for _, a := range r.aggregates {
		if a.ID == id {
			return a, nil
		}
	}
	return payroll.Aggregate{}, payroll.ErrAggregateNotFound
}

func (r *fakePayrollRepo) GetAggregateByMonth(_ context.Context, month payroll.Month) (payroll.Aggregate, error) {
	for _, a := range r.aggregates {
		if a.Month == month {
			return a, nil
		}
	}
	return payroll.Aggregate{}, payroll.ErrAggregateNotFound
}

func (r *fakePayrollRepo) ListAggregates(_ context.Context) ([]payroll.Aggregate, error) {
	return append([]payroll.Aggregate(nil), r.aggregates...), nil
}

func (r *fakePayrollRepo) UpdateTotals(_ context.Context, a payroll.Aggregate) error {
	for i := range r.aggregates {
		if r.aggregates[i].ID == a.ID {
			r.aggregates[i] = a
			return nil
		}
	}
	return payroll.ErrAggregateNotFound
}

func (r *fakePayrollRepo) UpsertDetail(_ context.Context, d payroll.Detail) (payroll.Detail, error) {
	for i := range r.details {
		if r.details[i].AggregateID == d.AggregateID && r.details[i].WorkerID == d.WorkerID {
			d.ID = r.details[i].ID
			r.details[i] = d
			return d, nil
		}
	}
	r.seq++
	d.ID = fmt.Sprintf("detail-%d", r.seq)
	r.details = append(r.details, d)
	return d, nil
}

func (r *fakePayrollRepo) GetDetailByID(_ context.Context, id string) (payroll.Detail, error) {
	for _, d := range r.details {
		if d.ID == id {
			return d, nil
		}
	}
	return payroll.Detail{}, payroll.ErrDetailNotFound
}

func (r *fakePayrollRepo) ListDetails(_ context.Context, aggregateID string) ([]payroll.Detail, error) {
	var out []payroll.Detail
	for _, d := range r.details {
		if d.AggregateID == aggregateID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakePayrollRepo) LockAggregate(ctx context.Context, id string) (payroll.Aggregate, error) {
	r.aggregateLocks = append(r.aggregateLocks, id)
	return r.GetAggregateByID(ctx, id)
}

func (r *fakePayrollRepo) LockWorkerMonth(_ context.Context, workerID string, month payroll.Month) error {
	r.locks = append(r.locks, workerID+"|"+month.String())
	return nil
}

func (r *fakePayrollRepo) detailFor(workerID string) (payroll.Detail, bool) {
	for _, d := range r.details {
		if d.WorkerID == workerID {
			return d, true
		}
	}
	return payroll.Detail{}, false
}

type fakeWorkers map[string]worker.Worker

func (f fakeWorkers) GetByID(_ context.Context, id string) (worker.Worker, error) {
	w, ok := f[id]
	if !ok {
		return worker.Worker{}, worker.ErrWorkerNotFound
	}
	return w, nil
}

func (f fakeWorkers) GetByIDs(_ context.Context, ids []string) ([]worker.Worker, error) {
	var out []worker.Worker
	for _, id := range ids {
		if w, ok := f[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

type staticRates []deduction.Entry

func (s staticRates) ActiveOn(_ context.Context, date time.Time, n *worker.Nationality) ([]deduction.Entry, error) {
	entries := deduction.ActiveOn(s, date)
	if n != nil {
		entries = deduction.ForNationality(entries, *n)
	}
	return entries, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T { return &v }

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

var (
	fixedNow = time.Date(2025, 12, 28, 14, 0, 0, 0, time.UTC)

	epf11 = deduction.Entry{
		Code: "EPF", Name: "Employees Provident Fund", Kind: deduction.KindPercentage,
		EmployeeRate: ptr(dec("11")), EmployerRate: ptr(dec("13")),
		Applicability: deduction.ApplicabilityAll, IsActive: true, EffectiveFrom: *day("2025-01-01"),
	}
)

type harness struct {
	orders     *fakeWorkOrderRepo
	payroll    *fakePayrollRepo
	processor  *Orchestrator
	service    *WorkOrderServiceImpl
	payrollSvc payroll.PayrollService
}

func newHarness(orders ...workorder.WorkOrder) *harness {
	h := &harness{
		orders:  newFakeWorkOrderRepo(orders...),
		payroll: &fakePayrollRepo{},
	}
	workers := fakeWorkers{
		"w-1": {ID: "w-1", Name: "Aminah", Nationality: worker.NationalityLocal},
		"w-2": {ID: "w-2", Name: "Budi", Nationality: worker.NationalityForeigner},
		"w-3": {ID: "w-3", Name: "Chen", Nationality: worker.NationalityForeignerNoPassport},
	}
	tx := memTx{stores: []interface{ snapshot() func() }{h.orders, h.payroll}}

	builder := servicepayroll.NewBuilder(staticRates{epf11}, h.payroll, nil, func() time.Time { return fixedNow })
	h.payrollSvc = servicepayroll.NewPayrollService(tx, h.payroll, workers, builder)
	h.processor = NewOrchestrator(tx, h.orders, workers, h.payrollSvc)
	h.service = NewWorkOrderService(tx, h.orders, nil, h.processor, func() time.Time { return fixedNow }).(*WorkOrderServiceImpl)
	return h
}
