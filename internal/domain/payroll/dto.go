package payroll

import (
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== QUOTE DTOs ==========

// QuoteRequest asks for the deductions of gross as the registry stands on
// Date. Nothing is persisted.
type QuoteRequest struct {
	Gross       decimal.Decimal `json:"gross"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Nationality string          `json:"nationality" validate:"required"`
}

func (r *QuoteRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	var errs validator.ValidationErrors
	if r.Gross.IsNegative() {
		errs.Add("gross", "must be non-negative")
	}
	if !worker.Nationality(r.Nationality).IsValid() {
		errs.Add("nationality", "must be one of: local foreigner foreigner_no_passport")
	}
	return errs.OrNil()
}

func (r *QuoteRequest) ParsedDate() time.Time {
	t, _ := time.Parse("2006-01-02", r.Date)
	return t
}

type QuoteResponse struct {
	Date               string          `json:"date"`
	Nationality        string          `json:"nationality"`
	GrossSalary        decimal.Decimal `json:"gross_salary"`
	EmployeeDeductions decimal.Decimal `json:"employee_deductions"`
	EmployerDeductions decimal.Decimal `json:"employer_deductions"`
	NetSalary          decimal.Decimal `json:"net_salary"`
	Breakdown          Breakdown       `json:"breakdown"`
}

// ========== RECALCULATION DTOs ==========

// RecalculationSummary reports one month of a batch recalculation.
type RecalculationSummary struct {
	Month        string          `json:"month"`
	Recalculated int             `json:"recalculated"`
	Changed      int             `json:"changed"`
	TotalGross   decimal.Decimal `json:"total_gross"`
	TotalNet     decimal.Decimal `json:"total_net"`
}

// ========== RESPONSE DTOs ==========

type AggregateResponse struct {
	ID                      string          `json:"id"`
	Month                   string          `json:"month"`
	TotalGross              decimal.Decimal `json:"total_gross"`
	TotalEmployeeDeductions decimal.Decimal `json:"total_employee_deductions"`
	TotalEmployerDeductions decimal.Decimal `json:"total_employer_deductions"`
	TotalNet                decimal.Decimal `json:"total_net"`
	DetailCount             int             `json:"detail_count"`
}

func ToAggregateResponse(a Aggregate) AggregateResponse {
	return AggregateResponse{
		ID:                      a.ID,
		Month:                   a.Month.String(),
		TotalGross:              a.TotalGross,
		TotalEmployeeDeductions: a.TotalEmployeeDeductions,
		TotalEmployerDeductions: a.TotalEmployerDeductions,
		TotalNet:                a.TotalNet,
		DetailCount:             a.DetailCount,
	}
}

type DetailResponse struct {
	ID                 string          `json:"id"`
	AggregateID        string          `json:"aggregate_id"`
	Month              string          `json:"month,omitempty"`
	WorkerID           string          `json:"worker_id"`
	WorkerName         *string         `json:"worker_name,omitempty"`
	GrossSalary        decimal.Decimal `json:"gross_salary"`
	EmployeeDeductions decimal.Decimal `json:"employee_deductions"`
	EmployerDeductions decimal.Decimal `json:"employer_deductions"`
	NetSalary          decimal.Decimal `json:"net_salary"`
	Breakdown          Breakdown       `json:"breakdown"`
	CalculatedBy       string          `json:"calculated_by"`
	CalculatedAt       time.Time       `json:"calculated_at"`
}

func ToDetailResponse(d Detail) DetailResponse {
	resp := DetailResponse{
		ID:                 d.ID,
		AggregateID:        d.AggregateID,
		WorkerID:           d.WorkerID,
		WorkerName:         d.WorkerName,
		GrossSalary:        d.GrossSalary,
		EmployeeDeductions: d.EmployeeDeductions,
		EmployerDeductions: d.EmployerDeductions,
		NetSalary:          d.NetSalary,
		Breakdown:          d.Breakdown,
		CalculatedBy:       d.CalculatedBy,
		CalculatedAt:       d.CalculatedAt,
	}
	if !d.Month.IsZero() {
		resp.Month = d.Month.String()
	}
	if resp.Breakdown == nil {
		resp.Breakdown = Breakdown{}
	}
	return resp
}

func ToDetailResponses(details []Detail) []DetailResponse {
	result := make([]DetailResponse, 0, len(details))
	for _, d := range details {
		result = append(result, ToDetailResponse(d))
	}
	return result
}
