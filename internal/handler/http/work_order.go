package http

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/workorder"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type WorkOrderHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	// Fire applies the {event} path segment to the order.
	Fire(w http.ResponseWriter, r *http.Request)
	Process(w http.ResponseWriter, r *http.Request)
}

type workOrderHandlerImpl struct {
	workOrderService workorder.WorkOrderService
}

func NewWorkOrderHandler(workOrderService workorder.WorkOrderService) WorkOrderHandler {
	return &workOrderHandlerImpl{workOrderService: workOrderService}
}

func (h *workOrderHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.workOrderService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, workorder.ToWorkOrderResponse(order, h.workOrderService.Available(order)))
}

func (h *workOrderHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.workOrderService.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, workorder.ToHistoryResponses(history))
}

func (h *workOrderHandlerImpl) Fire(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}

	// The body only carries an optional remark.
	var req workorder.TransitionRequest
	if err := response.DecodeJSON(r, &req); err != nil && !errors.Is(err, response.ErrEmptyBody) {
		response.BadRequest(w, err.Error(), nil)
		return
	}
	req.ID = chi.URLParam(r, "id")
	req.Event = workorder.Event(chi.URLParam(r, "event"))

	result, err := h.workOrderService.Fire(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Work order "+string(result.History.ToStatus), workorder.TransitionResponse{
		WorkOrder:      workorder.ToWorkOrderResponse(result.WorkOrder, h.workOrderService.Available(result.WorkOrder)),
		History:        workorder.ToHistoryResponse(result.History),
		ProcessMessage: result.ProcessMessage,
	})
}

func (h *workOrderHandlerImpl) Process(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return
	}

	message, err := h.workOrderService.Process(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, nil)
}
