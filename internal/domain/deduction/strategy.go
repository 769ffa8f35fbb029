package deduction

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Strategy computes one side of a contribution from gross salary.
type Strategy interface {
	Calculate(gross decimal.Decimal, field Field) decimal.Decimal
}

// PercentageStrategy charges a percentage of gross on each side.
type PercentageStrategy struct {
	EmployeeRate *decimal.Decimal
	EmployerRate *decimal.Decimal
}

func (s PercentageStrategy) Calculate(gross decimal.Decimal, field Field) decimal.Decimal {
	return percentOf(gross, pick(field, s.EmployeeRate, s.EmployerRate))
}

// FixedStrategy charges a flat amount regardless of gross.
type FixedStrategy struct {
	EmployeeAmount *decimal.Decimal
	EmployerAmount *decimal.Decimal
}

func (s FixedStrategy) Calculate(_ decimal.Decimal, field Field) decimal.Decimal {
	return pick(field, s.EmployeeAmount, s.EmployerAmount).Round(2)
}

// WageRangeStrategy looks up the bracket containing gross and delegates to it.
// A salary outside every bracket yields zero.
type WageRangeStrategy struct {
	Ranges []WageRange
}

func NewWageRangeStrategy(ranges []WageRange) WageRangeStrategy {
	return WageRangeStrategy{Ranges: SortRanges(ranges)}
}

func (s WageRangeStrategy) Calculate(gross decimal.Decimal, field Field) decimal.Decimal {
	if r, ok := s.Match(gross); ok {
		return r.Calculate(gross, field)
	}
	return decimal.Zero
}

// Match returns the first bracket, by MinWage, containing gross.
func (s WageRangeStrategy) Match(gross decimal.Decimal) (WageRange, bool) {
	for _, r := range s.Ranges {
		if r.Contains(gross) {
			return r, true
		}
	}
	return WageRange{}, false
}

// StrategyFactory builds the strategy for one entry.
type StrategyFactory func(e Entry) Strategy

// Dispatcher maps an entry's kind to its strategy. A new kind needs only a
// Strategy implementation and a Register call.
type Dispatcher struct {
	mu    sync.RWMutex
	table map[Kind]StrategyFactory
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{table: make(map[Kind]StrategyFactory)}
	d.Register(KindPercentage, func(e Entry) Strategy {
		return PercentageStrategy{EmployeeRate: e.EmployeeRate, EmployerRate: e.EmployerRate}
	})
	d.Register(KindFixed, func(e Entry) Strategy {
		return FixedStrategy{EmployeeAmount: e.EmployeeRate, EmployerAmount: e.EmployerRate}
	})
	d.Register(KindWageRange, func(e Entry) Strategy {
		return NewWageRangeStrategy(e.WageRanges)
	})
	return d
}

func (d *Dispatcher) Register(kind Kind, factory StrategyFactory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table[kind] = factory
}

// Supports reports whether kind has a registered strategy.
func (d *Dispatcher) Supports(kind Kind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.table[kind]
	return ok
}

func (d *Dispatcher) StrategyFor(e Entry) (Strategy, error) {
	d.mu.RLock()
	factory, ok := d.table[e.Kind]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	return factory(e), nil
}

func (d *Dispatcher) Calculate(e Entry, gross decimal.Decimal, field Field) (decimal.Decimal, error) {
	strategy, err := d.StrategyFor(e)
	if err != nil {
		return decimal.Zero, err
	}
	return strategy.Calculate(gross, field), nil
}

// DefaultDispatcher knows the percentage, fixed and wage_range kinds.
var DefaultDispatcher = NewDispatcher()

// percentOf returns round(gross × rate / 100, 2), half away from zero.
func percentOf(gross, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return gross.Mul(rate).Div(hundred).Round(2)
}

func pick(field Field, employee, employer *decimal.Decimal) decimal.Decimal {
	v := employee
	if field == FieldEmployer {
		v = employer
	}
	if v == nil {
		return decimal.Zero
	}
	return *v
}
