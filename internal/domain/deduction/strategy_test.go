package deduction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func socsoRanges() []WageRange {
	return []WageRange{
		{MinWage: dec("3500.01"), MaxWage: decPtr("3600.00"), Method: MethodFixed, EmployeeValue: dec("17.75"), EmployerValue: dec("62.15")},
		{MinWage: dec("3400.01"), MaxWage: decPtr("3500.00"), Method: MethodFixed, EmployeeValue: dec("17.25"), EmployerValue: dec("60.35")},
		{MinWage: dec("5000.01"), Method: MethodPercentage, EmployeeValue: dec("0.5"), EmployerValue: dec("1.75")},
	}
}

func TestPercentageStrategy(t *testing.T) {
	s := PercentageStrategy{EmployeeRate: decPtr("11"), EmployerRate: decPtr("13")}

	assert.Equal(t, "330.00", s.Calculate(dec("3000"), FieldEmployee).StringFixed(2))
	assert.Equal(t, "390.00", s.Calculate(dec("3000"), FieldEmployer).StringFixed(2))
}

func TestPercentageStrategy_Rounding(t *testing.T) {
	s := PercentageStrategy{EmployeeRate: decPtr("0.5"), EmployerRate: decPtr("1.75")}

	// 1234.55 * 0.5% = 6.17275 -> 6.17; 1234.55 * 1.75% = 21.604625 -> 21.60
	assert.Equal(t, "6.17", s.Calculate(dec("1234.55"), FieldEmployee).StringFixed(2))
	assert.Equal(t, "21.60", s.Calculate(dec("1234.55"), FieldEmployer).StringFixed(2))
	// 1001 * 0.5% = 5.005 -> 5.01, half away from zero
	assert.Equal(t, "5.01", s.Calculate(dec("1001"), FieldEmployee).StringFixed(2))
}

func TestPercentageStrategy_ZeroOrMissingRate(t *testing.T) {
	s := PercentageStrategy{EmployeeRate: decPtr("0")}

	assert.True(t, s.Calculate(dec("3000"), FieldEmployee).IsZero())
	assert.True(t, s.Calculate(dec("3000"), FieldEmployer).IsZero())
}

func TestFixedStrategy(t *testing.T) {
	s := FixedStrategy{EmployeeAmount: decPtr("10.005"), EmployerAmount: decPtr("25")}

	assert.Equal(t, "10.01", s.Calculate(dec("100"), FieldEmployee).StringFixed(2))
	assert.Equal(t, "10.01", s.Calculate(dec("99999"), FieldEmployee).StringFixed(2))
	assert.Equal(t, "25.00", s.Calculate(dec("0"), FieldEmployer).StringFixed(2))
}

func TestWageRangeStrategy_Match(t *testing.T) {
	s := NewWageRangeStrategy(socsoRanges())

	t.Run("inside bracket", func(t *testing.T) {
		assert.Equal(t, "17.25", s.Calculate(dec("3450"), FieldEmployee).StringFixed(2))
		assert.Equal(t, "60.35", s.Calculate(dec("3450"), FieldEmployer).StringFixed(2))
	})

	t.Run("max boundary belongs to lower bracket", func(t *testing.T) {
		assert.Equal(t, "17.25", s.Calculate(dec("3500"), FieldEmployee).StringFixed(2))
		assert.Equal(t, "60.35", s.Calculate(dec("3500.00"), FieldEmployer).StringFixed(2))
	})

	t.Run("min boundary belongs to upper bracket", func(t *testing.T) {
		assert.Equal(t, "17.75", s.Calculate(dec("3500.01"), FieldEmployee).StringFixed(2))
		assert.Equal(t, "17.25", s.Calculate(dec("3400.01"), FieldEmployee).StringFixed(2))
	})

	t.Run("open ended percentage bracket", func(t *testing.T) {
		assert.Equal(t, "40.00", s.Calculate(dec("8000"), FieldEmployee).StringFixed(2))
		assert.Equal(t, "140.00", s.Calculate(dec("8000"), FieldEmployer).StringFixed(2))
	})

	t.Run("no bracket yields zero", func(t *testing.T) {
		assert.True(t, s.Calculate(dec("100"), FieldEmployee).IsZero())
		assert.True(t, s.Calculate(dec("4000"), FieldEmployer).IsZero())
	})
}

func TestWageRangeStrategy_SortsWithoutMutatingInput(t *testing.T) {
	ranges := socsoRanges()
	s := NewWageRangeStrategy(ranges)

	require.Len(t, s.Ranges, 3)
	assert.Equal(t, "3400.01", s.Ranges[0].MinWage.StringFixed(2))
	assert.Equal(t, "3500.01", ranges[0].MinWage.StringFixed(2))
}

func TestDispatcher_SelectsByKind(t *testing.T) {
	d := NewDispatcher()

	pct, err := d.StrategyFor(Entry{Kind: KindPercentage})
	require.NoError(t, err)
	assert.IsType(t, PercentageStrategy{}, pct)

	fixed, err := d.StrategyFor(Entry{Kind: KindFixed})
	require.NoError(t, err)
	assert.IsType(t, FixedStrategy{}, fixed)

	wr, err := d.StrategyFor(Entry{Kind: KindWageRange})
	require.NoError(t, err)
	assert.IsType(t, WageRangeStrategy{}, wr)
}

func TestDispatcher_UnknownKind(t *testing.T) {
	d := NewDispatcher()

	_, err := d.Calculate(Entry{Kind: "tiered"}, dec("100"), FieldEmployee)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.False(t, d.Supports("tiered"))
}

type flatTen struct{}

func (flatTen) Calculate(decimal.Decimal, Field) decimal.Decimal { return dec("10") }

func TestDispatcher_RegisterNewKind(t *testing.T) {
	d := NewDispatcher()
	d.Register("levy", func(Entry) Strategy { return flatTen{} })

	got, err := d.Calculate(Entry{Kind: "levy"}, dec("5000"), FieldEmployer)
	require.NoError(t, err)
	assert.Equal(t, "10", got.String())
	assert.True(t, d.Supports("levy"))
}

func TestEntry_CalculateAmount(t *testing.T) {
	epf := Entry{Code: "EPF", Kind: KindPercentage, EmployeeRate: decPtr("11"), EmployerRate: decPtr("13")}
	got, err := epf.CalculateAmount(dec("3000"), FieldEmployee)
	require.NoError(t, err)
	assert.Equal(t, "330.00", got.StringFixed(2))

	socso := Entry{Code: "SOCSO", Kind: KindWageRange, WageRanges: socsoRanges()}
	got, err = socso.CalculateAmount(dec("3500"), FieldEmployer)
	require.NoError(t, err)
	assert.Equal(t, "60.35", got.StringFixed(2))
}
