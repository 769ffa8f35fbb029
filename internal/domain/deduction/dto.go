package deduction

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ========== ENTRY DTOs ==========

type WageRangeInput struct {
	MinWage       decimal.Decimal  `json:"min_wage"`
	MaxWage       *decimal.Decimal `json:"max_wage,omitempty"`
	Method        string           `json:"method"`
	EmployeeValue decimal.Decimal  `json:"employee_value"`
	EmployerValue decimal.Decimal  `json:"employer_value"`
}

func (r WageRangeInput) validate(prefix string, errs *validator.ValidationErrors) {
	if m := Method(r.Method); m != MethodFixed && m != MethodPercentage {
		errs.Add(prefix+"method", "must be one of: fixed percentage")
	}
	if r.MinWage.IsNegative() {
		errs.Add(prefix+"min_wage", "must be non-negative")
	}
	if r.MaxWage != nil && r.MaxWage.LessThan(r.MinWage) {
		errs.Add(prefix+"max_wage", "must not be less than min_wage")
	}
	if r.EmployeeValue.IsNegative() {
		errs.Add(prefix+"employee_value", "must be non-negative")
	}
	if r.EmployerValue.IsNegative() {
		errs.Add(prefix+"employer_value", "must be non-negative")
	}
	if Method(r.Method) == MethodPercentage {
		if !validator.IsPercentage(r.EmployeeValue) {
			errs.Add(prefix+"employee_value", "must be between 0 and 100")
		}
		if !validator.IsPercentage(r.EmployerValue) {
			errs.Add(prefix+"employer_value", "must be between 0 and 100")
		}
	}
}

func (r WageRangeInput) ToWageRange() WageRange {
	return WageRange{
		MinWage:       r.MinWage,
		MaxWage:       r.MaxWage,
		Method:        Method(r.Method),
		EmployeeValue: r.EmployeeValue,
		EmployerValue: r.EmployerValue,
	}
}

type CreateEntryRequest struct {
	Code           string           `json:"code" validate:"required,max=32"`
	Name           string           `json:"name" validate:"required,max=255"`
	Kind           string           `json:"kind" validate:"oneof=percentage fixed wage_range"`
	EmployeeRate   *decimal.Decimal `json:"employee_rate,omitempty"`
	EmployerRate   *decimal.Decimal `json:"employer_rate,omitempty"`
	Applicability  string           `json:"applicability" validate:"oneof=all local foreigner"`
	IsActive       *bool            `json:"is_active,omitempty"`
	EffectiveFrom  string           `json:"effective_from" validate:"required,datetime=2006-01-02"`
	EffectiveUntil *string          `json:"effective_until,omitempty" validate:"omitempty,datetime=2006-01-02"`
	WageRanges     []WageRangeInput `json:"wage_ranges,omitempty"`
}

func (r *CreateEntryRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}

	var errs validator.ValidationErrors
	kind := Kind(r.Kind)

	switch kind {
	case KindPercentage, KindFixed:
		validateRate("employee_rate", kind, r.EmployeeRate, &errs)
		validateRate("employer_rate", kind, r.EmployerRate, &errs)
		if len(r.WageRanges) > 0 {
			errs.Add("wage_ranges", "only allowed for wage_range kind")
		}
	case KindWageRange:
		if r.EmployeeRate != nil || r.EmployerRate != nil {
			errs.Add("employee_rate", "must be empty for wage_range kind, amounts live in wage_ranges")
		}
		for i, wr := range r.WageRanges {
			wr.validate(fmt.Sprintf("wage_ranges[%d].", i), &errs)
		}
	}

	from, _ := time.Parse(dateLayout, r.EffectiveFrom)
	if r.EffectiveUntil != nil {
		until, err := time.Parse(dateLayout, *r.EffectiveUntil)
		if err == nil && until.Before(from) {
			errs.Add("effective_until", "must not be before effective_from")
		}
	}

	return errs.OrNil()
}

func validateRate(field string, kind Kind, rate *decimal.Decimal, errs *validator.ValidationErrors) {
	if rate == nil {
		errs.Add(field, "is required")
		return
	}
	if rate.IsNegative() {
		errs.Add(field, "must be non-negative")
		return
	}
	if kind == KindPercentage && !validator.IsPercentage(*rate) {
		errs.Add(field, "must be between 0 and 100")
	}
}

// ToEntry converts a validated request into an entry.
func (r *CreateEntryRequest) ToEntry(actor string) Entry {
	from, _ := time.Parse(dateLayout, r.EffectiveFrom)
	entry := Entry{
		Code:          strings.ToUpper(strings.TrimSpace(r.Code)),
		Name:          strings.TrimSpace(r.Name),
		Kind:          Kind(r.Kind),
		EmployeeRate:  r.EmployeeRate,
		EmployerRate:  r.EmployerRate,
		Applicability: Applicability(r.Applicability),
		IsActive:      r.IsActive == nil || *r.IsActive,
		EffectiveFrom: from,
		CreatedBy:     actor,
	}
	if r.EffectiveUntil != nil {
		until, _ := time.Parse(dateLayout, *r.EffectiveUntil)
		entry.EffectiveUntil = &until
	}
	for _, wr := range r.WageRanges {
		entry.WageRanges = append(entry.WageRanges, wr.ToWageRange())
	}
	return entry
}

type CloseEntryRequest struct {
	ID             string `json:"-" validate:"required"`
	EffectiveUntil string `json:"effective_until" validate:"required,datetime=2006-01-02"`
}

func (r *CloseEntryRequest) Validate() error {
	return validator.Struct(r)
}

// SupersedeRequest closes the open entry of Code the day before the new
// entry's EffectiveFrom and opens the new entry.
type SupersedeRequest struct {
	CreateEntryRequest
}

func (r *SupersedeRequest) Validate() error {
	if err := r.CreateEntryRequest.Validate(); err != nil {
		return err
	}
	if r.EffectiveUntil != nil {
		return validator.ValidationErrors{{Field: "effective_until", Message: "must be empty, a superseding entry is open"}}
	}
	return nil
}

// AddWageRangeRequest adds one bracket. EffectiveFrom is the start of the new
// version when the entry is already in force.
type AddWageRangeRequest struct {
	EntryID       string  `json:"-" validate:"required"`
	EffectiveFrom *string `json:"effective_from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	WageRangeInput
}

func (r *AddWageRangeRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	var errs validator.ValidationErrors
	r.WageRangeInput.validate("", &errs)
	return errs.OrNil()
}

// ========== IMPORT DTOs ==========

// ImportMode decides what happens when an imported row differs from the open
// entry of its code.
type ImportMode string

const (
	ImportModeReject  ImportMode = "reject"
	ImportModeVersion ImportMode = "version"
)

type ImportRequest struct {
	Mode string               `json:"mode" validate:"oneof=reject version"`
	Rows []CreateEntryRequest `json:"rows"`
}

func (r *ImportRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	if len(r.Rows) == 0 {
		return validator.ValidationErrors{{Field: "rows", Message: "at least one row is required"}}
	}

	var errs validator.ValidationErrors
	for i := range r.Rows {
		if err := r.Rows[i].Validate(); err != nil {
			if rowErrs, ok := err.(validator.ValidationErrors); ok {
				for _, e := range rowErrs {
					errs.Add(fmt.Sprintf("rows[%d].%s", i, e.Field), e.Message)
				}
				continue
			}
			return err
		}
	}
	return errs.OrNil()
}

type ImportResult struct {
	Created    []string `json:"created"`
	Superseded []string `json:"superseded"`
	Skipped    []string `json:"skipped"`
}

// ========== RESPONSE DTOs ==========

type WageRangeResponse struct {
	ID            string           `json:"id"`
	MinWage       decimal.Decimal  `json:"min_wage"`
	MaxWage       *decimal.Decimal `json:"max_wage,omitempty"`
	Method        string           `json:"method"`
	EmployeeValue decimal.Decimal  `json:"employee_value"`
	EmployerValue decimal.Decimal  `json:"employer_value"`
}

type EntryResponse struct {
	ID             string              `json:"id"`
	Code           string              `json:"code"`
	Name           string              `json:"name"`
	Kind           string              `json:"kind"`
	EmployeeRate   *decimal.Decimal    `json:"employee_rate,omitempty"`
	EmployerRate   *decimal.Decimal    `json:"employer_rate,omitempty"`
	Applicability  string              `json:"applicability"`
	IsActive       bool                `json:"is_active"`
	EffectiveFrom  string              `json:"effective_from"`
	EffectiveUntil *string             `json:"effective_until,omitempty"`
	WageRanges     []WageRangeResponse `json:"wage_ranges,omitempty"`
	CreatedBy      string              `json:"created_by"`
}

func ToEntryResponse(e Entry) EntryResponse {
	resp := EntryResponse{
		ID:            e.ID,
		Code:          e.Code,
		Name:          e.Name,
		Kind:          string(e.Kind),
		EmployeeRate:  e.EmployeeRate,
		EmployerRate:  e.EmployerRate,
		Applicability: string(e.Applicability),
		IsActive:      e.IsActive,
		EffectiveFrom: e.EffectiveFrom.Format(dateLayout),
		CreatedBy:     e.CreatedBy,
	}
	if e.EffectiveUntil != nil {
		str := e.EffectiveUntil.Format(dateLayout)
		resp.EffectiveUntil = &str
	}
	for _, wr := range e.WageRanges {
		resp.WageRanges = append(resp.WageRanges, WageRangeResponse{
			ID:            wr.ID,
			MinWage:       wr.MinWage,
			MaxWage:       wr.MaxWage,
			Method:        string(wr.Method),
			EmployeeValue: wr.EmployeeValue,
			EmployerValue: wr.EmployerValue,
		})
	}
	return resp
}

func ToEntryResponses(entries []Entry) []EntryResponse {
	result := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, ToEntryResponse(e))
	}
	return result
}
