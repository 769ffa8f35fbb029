package http

import (
	"context"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/workorder"
	"github.com/shopspring/decimal"
)

type fakeRegistry struct {
	entries []deduction.Entry
	err     error

	gotDate        time.Time
	gotNationality *worker.Nationality
	gotActor       string
	gotCreate      deduction.CreateEntryRequest
	gotClose       deduction.CloseEntryRequest
	gotCode        string
}

func (f *fakeRegistry) ActiveOn(_ context.Context, date time.Time, n *worker.Nationality) ([]deduction.Entry, error) {
	f.gotDate, f.gotNationality = date, n
	return f.entries, f.err
}

func (f *fakeRegistry) GetByID(_ context.Context, id string) (deduction.Entry, error) {
	return deduction.Entry{ID: id}, f.err
}

func (f *fakeRegistry) History(_ context.Context, code string) ([]deduction.Entry, error) {
	f.gotCode = code
	return f.entries, f.err
}

func (f *fakeRegistry) Create(_ context.Context, req deduction.CreateEntryRequest, actor string) (deduction.Entry, error) {
	f.gotCreate, f.gotActor = req, actor
	if f.err != nil {
		return deduction.Entry{}, f.err
	}
	return deduction.Entry{ID: "entry-1", Code: req.Code, Name: req.Name, Kind: deduction.Kind(req.Kind), CreatedBy: actor}, nil
}

func (f *fakeRegistry) Close(_ context.Context, req deduction.CloseEntryRequest, actor string) (deduction.Entry, error) {
	f.gotClose, f.gotActor = req, actor
	return deduction.Entry{ID: req.ID}, f.err
}

func (f *fakeRegistry) Supersede(_ context.Context, code string, req deduction.SupersedeRequest, actor string) (deduction.Entry, error) {
	f.gotCode, f.gotActor = code, actor
	return deduction.Entry{ID: "entry-2", Code: code}, f.err
}

func (f *fakeRegistry) AddWageRange(_ context.Context, req deduction.AddWageRangeRequest, actor string) (deduction.WageRange, error) {
	f.gotActor = actor
	return deduction.WageRange{ID: "range-1", EntryID: req.EntryID}, f.err
}

func (f *fakeRegistry) DeleteCode(_ context.Context, code string, actor string) (int64, error) {
	f.gotCode, f.gotActor = code, actor
	return 2, f.err
}

func (f *fakeRegistry) Import(_ context.Context, req deduction.ImportRequest, actor string) (deduction.ImportResult, error) {
	f.gotActor = actor
	return deduction.ImportResult{Created: []string{"EPF"}}, f.err
}

type fakePayroll struct {
	err      error
	gotMonth payroll.Month
	gotActor string
	quote    payroll.QuoteResponse
}

func (f *fakePayroll) FindOrCreateForMonth(_ context.Context, month payroll.Month) (payroll.Aggregate, error) {
	return payroll.Aggregate{Month: month}, f.err
}

func (f *fakePayroll) GetAggregate(_ context.Context, month payroll.Month) (payroll.Aggregate, error) {
	f.gotMonth = month
	if f.err != nil {
		return payroll.Aggregate{}, f.err
	}
	return payroll.Aggregate{ID: "agg-1", Month: month, TotalNet: decimal.RequireFromString("2670"), DetailCount: 1}, nil
}

func (f *fakePayroll) RecomputeTotals(_ context.Context, id string) (payroll.Aggregate, error) {
	return payroll.Aggregate{ID: id}, f.err
}

func (f *fakePayroll) BuildDetail(_ context.Context, a payroll.Aggregate, w worker.Worker, gross decimal.Decimal, actor string) (payroll.Detail, error) {
	return payroll.Detail{}, f.err
}

func (f *fakePayroll) GetDetail(_ context.Context, id string) (payroll.Detail, error) {
	if f.err != nil {
		return payroll.Detail{}, f.err
	}
	return payroll.Detail{ID: id, Month: payroll.NewMonth(2025, time.December)}, nil
}

func (f *fakePayroll) ListDetails(_ context.Context, month payroll.Month) ([]payroll.Detail, error) {
	f.gotMonth = month
	return nil, f.err
}

func (f *fakePayroll) LockWorkerMonth(context.Context, string, payroll.Month) error {
	return f.err
}

func (f *fakePayroll) RecalculateDetail(_ context.Context, id string, actor string) (payroll.Detail, error) {
	f.gotActor = actor
	return payroll.Detail{ID: id}, f.err
}

func (f *fakePayroll) RecalculateMonth(_ context.Context, month payroll.Month, actor string) (payroll.RecalculationSummary, error) {
	f.gotMonth, f.gotActor = month, actor
	return payroll.RecalculationSummary{Month: month.String(), Recalculated: 3, Changed: 1}, f.err
}

func (f *fakePayroll) RecalculateAll(_ context.Context, actor string) ([]payroll.RecalculationSummary, error) {
	f.gotActor = actor
	return []payroll.RecalculationSummary{{Month: "2025-12"}}, f.err
}

func (f *fakePayroll) Quote(_ context.Context, req payroll.QuoteRequest) (payroll.QuoteResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.QuoteResponse{}, err
	}
	return f.quote, f.err
}

type fakeWorkOrders struct {
	err      error
	gotReq   workorder.TransitionRequest
	gotActor string
	message  *string
}

func (f *fakeWorkOrders) Get(_ context.Context, id string) (workorder.WorkOrder, error) {
	return workorder.WorkOrder{ID: id, Number: "WO-" + id, Status: workorder.StatusPending, RateType: workorder.RateTypeNormal}, f.err
}

func (f *fakeWorkOrders) History(_ context.Context, id string) ([]workorder.History, error) {
	return []workorder.History{{ID: "h-1", WorkOrderID: id, Event: workorder.EventSubmit}}, f.err
}

func (f *fakeWorkOrders) Fire(_ context.Context, req workorder.TransitionRequest, actor string) (workorder.TransitionResult, error) {
	f.gotReq, f.gotActor = req, actor
	if f.err != nil {
		return workorder.TransitionResult{}, f.err
	}
	w := workorder.WorkOrder{ID: req.ID, Status: workorder.StatusCompleted, RateType: workorder.RateTypeNormal}
	return workorder.TransitionResult{
		WorkOrder:      w,
		History:        workorder.History{WorkOrderID: req.ID, Event: req.Event, FromStatus: workorder.StatusPending, ToStatus: workorder.StatusCompleted, Actor: actor},
		ProcessMessage: f.message,
	}, nil
}

func (f *fakeWorkOrders) Available(w workorder.WorkOrder) []workorder.Event {
	return workorder.NewStateMachine(workorder.DefaultTransitions).Available(w)
}

func (f *fakeWorkOrders) Process(_ context.Context, id string, actor string) (string, error) {
	f.gotActor = actor
	return "work order processed", f.err
}
