package http

import (
	"net/http"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Aggregates
	GetAggregate(w http.ResponseWriter, r *http.Request)
	ListDetails(w http.ResponseWriter, r *http.Request)
	RecalculateMonth(w http.ResponseWriter, r *http.Request)
	RecalculateAll(w http.ResponseWriter, r *http.Request)

	// Details
	GetDetail(w http.ResponseWriter, r *http.Request)
	RecalculateDetail(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

func monthParam(r *http.Request) (payroll.Month, error) {
	return payroll.ParseMonth(chi.URLParam(r, "month"))
}

// ========== AGGREGATES ==========

func (h *payrollHandlerImpl) GetAggregate(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	aggregate, err := h.payrollService.GetAggregate(r.Context(), month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.ToAggregateResponse(aggregate))
}

func (h *payrollHandlerImpl) ListDetails(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	details, err := h.payrollService.ListDetails(r.Context(), month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.ToDetailResponses(details))
}

func (h *payrollHandlerImpl) RecalculateMonth(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}
	month, err := monthParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	summary, err := h.payrollService.RecalculateMonth(r.Context(), month, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll month recalculated", summary)
}

func (h *payrollHandlerImpl) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}

	summaries, err := h.payrollService.RecalculateAll(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll recalculated", summaries)
}

// ========== DETAILS ==========

func (h *payrollHandlerImpl) GetDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.payrollService.GetDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.ToDetailResponse(detail))
}

func (h *payrollHandlerImpl) RecalculateDetail(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}

	detail, err := h.payrollService.RecalculateDetail(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Pay detail recalculated", payroll.ToDetailResponse(detail))
}
