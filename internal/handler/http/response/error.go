package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/workorder"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var transitionErr *workorder.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		Conflict(w, transitionErr.Error())
		return
	}

	switch {
	// Registry errors
	case deduction.IsConflict(err):
		Conflict(w, err.Error())
	case errors.Is(err, deduction.ErrEntryNotFound):
		NotFound(w, "Deduction entry not found")
	case errors.Is(err, deduction.ErrCodeNotFound):
		NotFound(w, "Deduction code not found")
	case errors.Is(err, deduction.ErrNoOpenEntry):
		NotFound(w, "Deduction code has no open entry")
	case errors.Is(err, deduction.ErrWageRangeNotAllowed):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, deduction.ErrUnknownKind):
		BadRequest(w, err.Error(), nil)

	// Payroll errors
	case errors.Is(err, payroll.ErrAggregateNotFound):
		NotFound(w, "Pay aggregate not found")
	case errors.Is(err, payroll.ErrDetailNotFound):
		NotFound(w, "Pay detail not found")
	case errors.Is(err, payroll.ErrInvalidMonth):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrNegativeGross):
		ValidationError(w, map[string]string{"gross": "must be non-negative"})

	// Work order errors
	case errors.Is(err, workorder.ErrWorkOrderNotFound):
		NotFound(w, "Work order not found")
	case errors.Is(err, workorder.ErrUnknownEvent):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, workorder.ErrWorkOrderNotCompleted):
		Conflict(w, err.Error())
	case errors.Is(err, workorder.ErrCompletionDateRequired):
		Conflict(w, err.Error())
	case errors.Is(err, worker.ErrWorkerNotFound):
		NotFound(w, err.Error())

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
