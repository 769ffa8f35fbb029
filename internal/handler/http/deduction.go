package http

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type DeductionHandler interface {
	// Lookup
	ListActive(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	Quote(w http.ResponseWriter, r *http.Request)

	// Versioning
	Create(w http.ResponseWriter, r *http.Request)
	Close(w http.ResponseWriter, r *http.Request)
	Supersede(w http.ResponseWriter, r *http.Request)
	AddWageRange(w http.ResponseWriter, r *http.Request)
	DeleteCode(w http.ResponseWriter, r *http.Request)

	// Bulk
	Import(w http.ResponseWriter, r *http.Request)
}

type deductionHandlerImpl struct {
	registryService deduction.RegistryService
	payrollService  payroll.PayrollService
	now             func() time.Time
}

func NewDeductionHandler(registryService deduction.RegistryService, payrollService payroll.PayrollService) DeductionHandler {
	return &deductionHandlerImpl{
		registryService: registryService,
		payrollService:  payrollService,
		now:             time.Now,
	}
}

// ========== LOOKUP ==========

// ListActive returns the entries in force on ?date (default today), narrowed
// to ?nationality when given.
func (h *deductionHandlerImpl) ListActive(w http.ResponseWriter, r *http.Request) {
	date := h.now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, ok := validator.IsValidDate(raw)
		if !ok {
			response.BadRequest(w, "Invalid date, expected YYYY-MM-DD", nil)
			return
		}
		date = parsed
	}

	var nationality *worker.Nationality
	if raw := r.URL.Query().Get("nationality"); raw != "" {
		n := worker.Nationality(raw)
		if !n.IsValid() {
			response.BadRequest(w, "Invalid nationality", nil)
			return
		}
		nationality = &n
	}

	entries, err := h.registryService.ActiveOn(r.Context(), date, nationality)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, deduction.ToEntryResponses(entries))
}

func (h *deductionHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	entries, err := h.registryService.History(r.Context(), code)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, deduction.ToEntryResponses(entries))
}

func (h *deductionHandlerImpl) Quote(w http.ResponseWriter, r *http.Request) {
	var req payroll.QuoteRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	quote, err := h.payrollService.Quote(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, quote)
}

// ========== VERSIONING ==========

func (h *deductionHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}

	var req deduction.CreateEntryRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	entry, err := h.registryService.Create(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Deduction entry created", deduction.ToEntryResponse(entry))
}

func (h *deductionHandlerImpl) Close(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}

	var req deduction.CloseEntryRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	entry, err := h.registryService.Close(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Deduction entry closed", deduction.ToEntryResponse(entry))
}

func (h *deductionHandlerImpl) Supersede(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}

	var req deduction.SupersedeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	entry, err := h.registryService.Supersede(r.Context(), chi.URLParam(r, "code"), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Deduction entry superseded", deduction.ToEntryResponse(entry))
}

func (h *deductionHandlerImpl) AddWageRange(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}

	var req deduction.AddWageRangeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	wr, err := h.registryService.AddWageRange(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Wage range added", deduction.WageRangeResponse{
		ID:            wr.ID,
		MinWage:       wr.MinWage,
		MaxWage:       wr.MaxWage,
		Method:        string(wr.Method),
		EmployeeValue: wr.EmployeeValue,
		EmployerValue: wr.EmployerValue,
	})
}

func (h *deductionHandlerImpl) DeleteCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}

	deleted, err := h.registryService.DeleteCode(r.Context(), chi.URLParam(r, "code"), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Deduction code deleted", map[string]int64{"deleted": deleted})
}

// ========== BULK ==========

func (h *deductionHandlerImpl) Import(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}

	var req deduction.ImportRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	result, err := h.registryService.Import(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Deduction rows imported", result)
}
