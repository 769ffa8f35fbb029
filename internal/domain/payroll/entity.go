package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/shopspring/decimal"
)

// Month is a calendar month, the period of one PayAggregate.
type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	return MonthOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

// FirstDay is the date the registry is queried on for this month.
func (m Month) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) LastDay() time.Time {
	return m.FirstDay().AddDate(0, 1, -1)
}

func (m Month) Next() Month {
	return MonthOf(m.FirstDay().AddDate(0, 1, 0))
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) String() string {
	return m.FirstDay().Format(monthLayout)
}

const monthLayout = "2006-01"

// Aggregate is the monthly rollup of every PayDetail of its month. Totals are
// written only by Recompute.
type Aggregate struct {
	ID                      string
	Month                   Month
	TotalGross              decimal.Decimal
	TotalEmployeeDeductions decimal.Decimal
	TotalEmployerDeductions decimal.Decimal
	TotalNet                decimal.Decimal
	DetailCount             int
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Recompute overwrites the totals with the sums over details.
func (a *Aggregate) Recompute(details []Detail) {
	a.TotalGross = decimal.Zero
	a.TotalEmployeeDeductions = decimal.Zero
	a.TotalEmployerDeductions = decimal.Zero
	a.TotalNet = decimal.Zero
	for _, d := range details {
		a.TotalGross = a.TotalGross.Add(d.GrossSalary)
		a.TotalEmployeeDeductions = a.TotalEmployeeDeductions.Add(d.EmployeeDeductions)
		a.TotalEmployerDeductions = a.TotalEmployerDeductions.Add(d.EmployerDeductions)
		a.TotalNet = a.TotalNet.Add(d.NetSalary)
	}
	a.DetailCount = len(details)
}

// Detail is the frozen pay snapshot of one worker for one aggregate month.
type Detail struct {
	ID                 string
	AggregateID        string
	WorkerID           string
	GrossSalary        decimal.Decimal
	EmployeeDeductions decimal.Decimal
	EmployerDeductions decimal.Decimal
	NetSalary          decimal.Decimal
	Breakdown          Breakdown
	CalculatedBy       string
	CalculatedAt       time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Joined fields
	WorkerName *string
	Month      Month
}

// NewDetail derives the totals and net salary of a detail from its breakdown.
func NewDetail(aggregateID, workerID string, gross decimal.Decimal, breakdown Breakdown, actor string, at time.Time) Detail {
	employee, employer := breakdown.Totals()
	return Detail{
		AggregateID:        aggregateID,
		WorkerID:           workerID,
		GrossSalary:        gross,
		EmployeeDeductions: employee,
		EmployerDeductions: employer,
		NetSalary:          gross.Sub(employee),
		Breakdown:          breakdown,
		CalculatedBy:       actor,
		CalculatedAt:       at,
	}
}

// SameFigures reports whether d and o carry identical amounts and breakdown.
// Breakdown lines also compare by name, so a renamed entry is rewritten.
func (d Detail) SameFigures(o Detail) bool {
	return d.GrossSalary.Equal(o.GrossSalary) &&
		d.EmployeeDeductions.Equal(o.EmployeeDeductions) &&
		d.EmployerDeductions.Equal(o.EmployerDeductions) &&
		d.NetSalary.Equal(o.NetSalary) &&
		d.Breakdown.Equal(o.Breakdown)
}

// WageRangeRef records which bracket a wage_range line matched.
type WageRangeRef struct {
	MinWage decimal.Decimal  `json:"min_wage"`
	MaxWage *decimal.Decimal `json:"max_wage"`
	Method  deduction.Method `json:"method"`
}

// BreakdownLine is the frozen result of one registry entry for one worker.
type BreakdownLine struct {
	Code           string           `json:"-"`
	Name           string           `json:"name"`
	Kind           deduction.Kind   `json:"kind"`
	EmployeeRate   *decimal.Decimal `json:"employee_rate"`
	EmployerRate   *decimal.Decimal `json:"employer_rate"`
	WageRange      *WageRangeRef    `json:"wage_range"`
	EmployeeAmount decimal.Decimal  `json:"employee_amount"`
	EmployerAmount decimal.Decimal  `json:"employer_amount"`
}

// NewBreakdownLine computes both sides of entry for gross.
func NewBreakdownLine(d *deduction.Dispatcher, entry deduction.Entry, gross decimal.Decimal) (BreakdownLine, error) {
	employee, err := d.Calculate(entry, gross, deduction.FieldEmployee)
	if err != nil {
		return BreakdownLine{}, fmt.Errorf("calculate %s employee amount: %w", entry.Code, err)
	}
	employer, err := d.Calculate(entry, gross, deduction.FieldEmployer)
	if err != nil {
		return BreakdownLine{}, fmt.Errorf("calculate %s employer amount: %w", entry.Code, err)
	}

	line := BreakdownLine{
		Code:           entry.Code,
		Name:           entry.Name,
		Kind:           entry.Kind,
		EmployeeRate:   entry.EmployeeRate,
		EmployerRate:   entry.EmployerRate,
		EmployeeAmount: employee,
		EmployerAmount: employer,
	}
	if entry.Kind == deduction.KindWageRange {
		if wr, ok := deduction.NewWageRangeStrategy(entry.WageRanges).Match(gross); ok {
			line.WageRange = &WageRangeRef{MinWage: wr.MinWage, MaxWage: wr.MaxWage, Method: wr.Method}
		}
	}
	return line, nil
}

func (l BreakdownLine) equal(o BreakdownLine) bool {
	return l.Code == o.Code &&
		l.Name == o.Name &&
		l.Kind == o.Kind &&
		equalPtr(l.EmployeeRate, o.EmployeeRate) &&
		equalPtr(l.EmployerRate, o.EmployerRate) &&
		l.EmployeeAmount.Equal(o.EmployeeAmount) &&
		l.EmployerAmount.Equal(o.EmployerAmount) &&
		equalRef(l.WageRange, o.WageRange)
}

func equalPtr(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func equalRef(a, b *WageRangeRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.MinWage.Equal(b.MinWage) && equalPtr(a.MaxWage, b.MaxWage) && a.Method == b.Method
}
