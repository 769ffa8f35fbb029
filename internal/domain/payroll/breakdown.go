package payroll

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Breakdown is the ordered per-code snapshot of a detail. It serializes as a
// JSON object keyed by code, keys in code order.
type Breakdown []BreakdownLine

// NewBreakdown returns lines ordered by code.
func NewBreakdown(lines ...BreakdownLine) Breakdown {
	b := make(Breakdown, len(lines))
	copy(b, lines)
	sort.SliceStable(b, func(i, j int) bool { return b[i].Code < b[j].Code })
	return b
}

// Totals sums the employee and employer amounts of every line.
func (b Breakdown) Totals() (employee, employer decimal.Decimal) {
	employee, employer = decimal.Zero, decimal.Zero
	for _, l := range b {
		employee = employee.Add(l.EmployeeAmount)
		employer = employer.Add(l.EmployerAmount)
	}
	return employee, employer
}

func (b Breakdown) Line(code string) (BreakdownLine, bool) {
	for _, l := range b {
		if l.Code == code {
			return l, true
		}
	}
	return BreakdownLine{}, false
}

func (b Breakdown) Codes() []string {
	codes := make([]string, 0, len(b))
	for _, l := range b {
		codes = append(codes, l.Code)
	}
	return codes
}

func (b Breakdown) Equal(o Breakdown) bool {
	if len(b) != len(o) {
		return false
	}
	for i := range b {
		if !b[i].equal(o[i]) {
			return false
		}
	}
	return true
}

func (b Breakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range NewBreakdown(b...) {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(l.Code)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("marshal breakdown line %s: %w", l.Code, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *Breakdown) UnmarshalJSON(data []byte) error {
	var raw map[string]BreakdownLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal breakdown: %w", err)
	}
	lines := make([]BreakdownLine, 0, len(raw))
	for code, l := range raw {
		l.Code = code
		lines = append(lines, l)
	}
	*b = NewBreakdown(lines...)
	return nil
}
