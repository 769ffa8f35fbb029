package deduction

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/shopspring/decimal"
)

// Kind selects the calculation strategy of a registry entry.
type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
	KindWageRange  Kind = "wage_range"
)

// Applicability says which nationality classes an entry covers.
type Applicability string

const (
	ApplicabilityAll       Applicability = "all"
	ApplicabilityLocal     Applicability = "local"
	ApplicabilityForeigner Applicability = "foreigner"
)

// Field is the side of the contribution being computed.
type Field string

const (
	FieldEmployee Field = "employee"
	FieldEmployer Field = "employer"
)

// Method is the sub-calculation of a single wage range.
type Method string

const (
	MethodFixed      Method = "fixed"
	MethodPercentage Method = "percentage"
)

// Entry is one effective-dated version of a deduction code. An entry is never
// edited after creation except for closing its interval.
type Entry struct {
	ID             string
	Code           string
	Name           string
	Kind           Kind
	EmployeeRate   *decimal.Decimal // percent for percentage kind, amount for fixed kind
	EmployerRate   *decimal.Decimal
	Applicability  Applicability
	IsActive       bool
	EffectiveFrom  time.Time
	EffectiveUntil *time.Time // nil = open
	WageRanges     []WageRange
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (e Entry) IsOpen() bool {
	return e.EffectiveUntil == nil
}

// Covers reports whether date falls inside [EffectiveFrom, EffectiveUntil].
func (e Entry) Covers(date time.Time) bool {
	d := DateOnly(date)
	if d.Before(DateOnly(e.EffectiveFrom)) {
		return false
	}
	return e.EffectiveUntil == nil || !d.After(DateOnly(*e.EffectiveUntil))
}

// ActiveOn reports whether the entry is switched on and covers date.
func (e Entry) ActiveOn(date time.Time) bool {
	return e.IsActive && e.Covers(date)
}

// AppliesTo reports whether workers of nationality n are subject to the entry.
// Foreigners without a passport are subject to no entry at all.
func (e Entry) AppliesTo(n worker.Nationality) bool {
	if n == worker.NationalityForeignerNoPassport {
		return false
	}
	return e.Applicability == ApplicabilityAll || string(e.Applicability) == string(n)
}

// Overlaps reports whether the effective intervals of e and o intersect.
func (e Entry) Overlaps(o Entry) bool {
	if e.EffectiveUntil != nil && DateOnly(*e.EffectiveUntil).Before(DateOnly(o.EffectiveFrom)) {
		return false
	}
	if o.EffectiveUntil != nil && DateOnly(*o.EffectiveUntil).Before(DateOnly(e.EffectiveFrom)) {
		return false
	}
	return true
}

// CalculateAmount computes the contribution for gross on the given side using
// the strategy registered for the entry's kind.
func (e Entry) CalculateAmount(gross decimal.Decimal, field Field) (decimal.Decimal, error) {
	return DefaultDispatcher.Calculate(e, gross, field)
}

// ActiveOn keeps the entries active on date.
func ActiveOn(entries []Entry, date time.Time) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.ActiveOn(date) {
			out = append(out, e)
		}
	}
	return out
}

// ForNationality keeps the entries that apply to nationality n.
func ForNationality(entries []Entry, n worker.Nationality) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.AppliesTo(n) {
			out = append(out, e)
		}
	}
	return out
}

// SortByCode orders entries by code, then by effective date.
func SortByCode(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Code != entries[j].Code {
			return entries[i].Code < entries[j].Code
		}
		return entries[i].EffectiveFrom.Before(entries[j].EffectiveFrom)
	})
}

// WageRange is a salary bracket owned by one wage_range entry.
type WageRange struct {
	ID            string
	EntryID       string
	MinWage       decimal.Decimal
	MaxWage       *decimal.Decimal // nil = and above
	Method        Method
	EmployeeValue decimal.Decimal
	EmployerValue decimal.Decimal
}

// Contains reports whether gross lies in [MinWage, MaxWage], both inclusive.
func (w WageRange) Contains(gross decimal.Decimal) bool {
	if gross.LessThan(w.MinWage) {
		return false
	}
	return w.MaxWage == nil || gross.LessThanOrEqual(*w.MaxWage)
}

// Overlaps reports whether two brackets share any salary value.
func (w WageRange) Overlaps(o WageRange) bool {
	if w.MaxWage != nil && w.MaxWage.LessThan(o.MinWage) {
		return false
	}
	if o.MaxWage != nil && o.MaxWage.LessThan(w.MinWage) {
		return false
	}
	return true
}

// Calculate applies the bracket's own fixed or percentage method.
func (w WageRange) Calculate(gross decimal.Decimal, field Field) decimal.Decimal {
	value := w.EmployeeValue
	if field == FieldEmployer {
		value = w.EmployerValue
	}
	if w.Method == MethodPercentage {
		return percentOf(gross, value)
	}
	return value.Round(2)
}

// SortRanges orders brackets by MinWage.
func SortRanges(ranges []WageRange) []WageRange {
	out := make([]WageRange, len(ranges))
	copy(out, ranges)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinWage.LessThan(out[j].MinWage)
	})
	return out
}

// FirstOverlap returns the indexes of the first pair of overlapping brackets.
func FirstOverlap(ranges []WageRange) (int, int, bool) {
	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].Overlaps(ranges[j]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// Gap is a salary interval not covered by any bracket of an entry.
type Gap struct {
	From decimal.Decimal
	To   decimal.Decimal
}

// Gaps lists uncovered intervals between consecutive sorted brackets. Brackets
// stored with two decimals are contiguous when the next MinWage is exactly one
// cent above the previous MaxWage.
func Gaps(ranges []WageRange) []Gap {
	sorted := SortRanges(ranges)
	cent := decimal.New(1, -2)
	var gaps []Gap
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		if prev.MaxWage == nil {
			break
		}
		next := prev.MaxWage.Add(cent)
		if sorted[i].MinWage.GreaterThan(next) {
			gaps = append(gaps, Gap{From: next, To: sorted[i].MinWage.Sub(cent)})
		}
	}
	return gaps
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
