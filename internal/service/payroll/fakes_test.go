package payroll

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/shopspring/decimal"
)

type passTx struct{}

func (passTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRates struct {
	entries []deduction.Entry
}

func (f *fakeRates) ActiveOn(_ context.Context, date time.Time, n *worker.Nationality) ([]deduction.Entry, error) {
	entries := deduction.ActiveOn(f.entries, date)
	if n != nil {
		entries = deduction.ForNationality(entries, *n)
	}
	deduction.SortByCode(entries)
	return entries, nil
}

// supersede closes the open entry of code the day before from and adds next.
func (f *fakeRates) supersede(code string, next deduction.Entry) {
	for i := range f.entries {
		if f.entries[i].Code == code && f.entries[i].IsOpen() {
			until := next.EffectiveFrom.AddDate(0, 0, -1)
			f.entries[i].EffectiveUntil = &until
		}
	}
	f.entries = append(f.entries, next)
}

type fakePayrollRepo struct {
	mu         sync.Mutex
	aggregates []payroll.Aggregate
	details    []payroll.Detail
	upserts    int
	locks      []string
	seq        int

	// onLockAggregate runs after the aggregate lock is taken, standing in for
	// a writer that committed while this transaction waited.
	onLockAggregate func()
}

func (r *fakePayrollRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *fakePayrollRepo) FindOrCreateAggregate(_ context.Context, month payroll.Month) (payroll.Aggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.aggregates {
		if a.Month == month {
			return a, nil
		}
	}
	a := payroll.Aggregate{ID: r.nextID("agg"), Month: month}
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
	out := append([]payroll.Aggregate(nil), r.aggregates...)
	sort.Slice(out, func(i, j int) bool { return out[i].Month.FirstDay().Before(out[j].Month.FirstDay()) })
	return out, nil
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
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	for i := range r.details {
		if r.details[i].AggregateID == d.AggregateID && r.details[i].WorkerID == d.WorkerID {
			d.ID = r.details[i].ID
			r.details[i] = d
			return d, nil
		}
	}
	d.ID = r.nextID("detail")
	r.details = append(r.details, d)
	return d, nil
}

func (r *fakePayrollRepo) GetDetailByID(_ context.Context, id string) (payroll.Detail, error) {
	for _, d := range r.details {
		if d.ID == id {
			for _, a := range r.aggregates {
				if a.ID == d.AggregateID {
					d.Month = a.Month
				}
			}
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
	r.locks = append(r.locks, "aggregate|"+id)
	if r.onLockAggregate != nil {
		r.onLockAggregate()
	}
	return r.GetAggregateByID(ctx, id)
}

func (r *fakePayrollRepo) LockWorkerMonth(_ context.Context, workerID string, month payroll.Month) error {
	r.locks = append(r.locks, workerID+"|"+month.String())
	return nil
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

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var fixedNow = time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC)

func epf(rate, from string) deduction.Entry {
	return deduction.Entry{
		ID: "epf-" + from, Code: "EPF", Name: "Employees Provident Fund", Kind: deduction.KindPercentage,
		EmployeeRate: decPtr(rate), EmployerRate: decPtr("13"),
		Applicability: deduction.ApplicabilityAll, IsActive: true, EffectiveFrom: date(from),
	}
}

func socso() deduction.Entry {
	return deduction.Entry{
		ID: "socso", Code: "SOCSO", Name: "Social Security", Kind: deduction.KindWageRange,
		Applicability: deduction.ApplicabilityAll, IsActive: true, EffectiveFrom: date("2020-01-01"),
		WageRanges: []deduction.WageRange{
			{MinWage: dec("2900.01"), MaxWage: decPtr("3000.00"), Method: deduction.MethodFixed, EmployeeValue: dec("14.75"), EmployerValue: dec("51.65")},
			{MinWage: dec("3400.01"), MaxWage: decPtr("3500.00"), Method: deduction.MethodFixed, EmployeeValue: dec("17.25"), EmployerValue: dec("60.35")},
		},
	}
}

func sip() deduction.Entry {
	return deduction.Entry{
		ID: "sip", Code: "SIP", Name: "Employment Insurance", Kind: deduction.KindPercentage,
		EmployeeRate: decPtr("0.2"), EmployerRate: decPtr("0.2"),
		Applicability: deduction.ApplicabilityLocal, IsActive: true, EffectiveFrom: date("2020-01-01"),
	}
}

type harness struct {
	rates   *fakeRates
	repo    *fakePayrollRepo
	workers fakeWorkers
	builder *Builder
	service *PayrollServiceImpl
}

func newHarness(entries ...deduction.Entry) *harness {
	h := &harness{
		rates: &fakeRates{entries: entries},
		repo:  &fakePayrollRepo{},
		workers: fakeWorkers{
			"w-local":      {ID: "w-local", Name: "Aminah", Nationality: worker.NationalityLocal},
			"w-foreigner":  {ID: "w-foreigner", Name: "Budi", Nationality: worker.NationalityForeigner},
			"w-nopassport": {ID: "w-nopassport", Name: "Chen", Nationality: worker.NationalityForeignerNoPassport},
		},
	}
	h.builder = NewBuilder(h.rates, h.repo, deduction.NewDispatcher(), func() time.Time { return fixedNow })
	h.service = NewPayrollService(passTx{}, h.repo, h.workers, h.builder).(*PayrollServiceImpl)
	return h
}
