package workorder

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type TransitionRequest struct {
	ID     string  `json:"-" validate:"required"`
	Event  Event   `json:"-"`
	Remark *string `json:"remark,omitempty" validate:"omitempty,max=1000"`
}

func (r *TransitionRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	event, ok := ParseEvent(string(r.Event))
	if !ok {
		return validator.ValidationErrors{{Field: "event", Message: "must be one of: submit approve request_amendment reopen"}}
	}
	r.Event = event
	if r.Remark != nil {
		trimmed := strings.TrimSpace(*r.Remark)
		if trimmed == "" {
			r.Remark = nil
		} else {
			r.Remark = &trimmed
		}
	}
	return nil
}

// TransitionResult is the outcome of a fired event. ProcessMessage is set
// when approval ran payroll processing.
type TransitionResult struct {
	WorkOrder      WorkOrder
	History        History
	ProcessMessage *string
}

// ========== RESPONSE DTOs ==========

type AssignmentResponse struct {
	WorkerID string          `json:"worker_id"`
	Amount   decimal.Decimal `json:"amount"`
	Kept     bool            `json:"kept"`
}

type WorkOrderResponse struct {
	ID             string               `json:"id"`
	Number         string               `json:"number"`
	Status         string               `json:"status"`
	RateType       string               `json:"rate_type"`
	StartDate      *string              `json:"start_date,omitempty"`
	Location       *string              `json:"location,omitempty"`
	WorkMonth      *string              `json:"work_month,omitempty"`
	CompletionDate *string              `json:"completion_date,omitempty"`
	ApprovedBy     *string              `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time           `json:"approved_at,omitempty"`
	Workers        []AssignmentResponse `json:"workers"`
	Events         []string             `json:"available_events"`
}

func ToWorkOrderResponse(w WorkOrder, available []Event) WorkOrderResponse {
	resp := WorkOrderResponse{
		ID:             w.ID,
		Number:         w.Number,
		Status:         string(w.Status),
		RateType:       string(w.RateType),
		StartDate:      formatDate(w.StartDate, "2006-01-02"),
		Location:       w.Location,
		WorkMonth:      formatDate(w.WorkMonth, "2006-01"),
		CompletionDate: formatDate(w.CompletionDate, "2006-01-02"),
		ApprovedBy:     w.ApprovedBy,
		ApprovedAt:     w.ApprovedAt,
		Workers:        make([]AssignmentResponse, 0, len(w.Workers)),
		Events:         make([]string, 0, len(available)),
	}
	for _, a := range w.Workers {
		resp.Workers = append(resp.Workers, AssignmentResponse{WorkerID: a.WorkerID, Amount: a.Amount, Kept: a.Kept})
	}
	for _, e := range available {
		resp.Events = append(resp.Events, string(e))
	}
	return resp
}

func formatDate(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.Format(layout)
	return &s
}

type HistoryResponse struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	Remark     *string   `json:"remark,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToHistoryResponse(h History) HistoryResponse {
	return HistoryResponse{
		ID:         h.ID,
		Event:      string(h.Event),
		FromStatus: string(h.FromStatus),
		ToStatus:   string(h.ToStatus),
		Actor:      h.Actor,
		Remark:     h.Remark,
		CreatedAt:  h.CreatedAt,
	}
}

func ToHistoryResponses(histories []History) []HistoryResponse {
	result := make([]HistoryResponse, 0, len(histories))
	for _, h := range histories {
		result = append(result, ToHistoryResponse(h))
	}
	return result
}

type TransitionResponse struct {
	WorkOrder      WorkOrderResponse `json:"work_order"`
	History        HistoryResponse   `json:"history"`
	ProcessMessage *string           `json:"process_message,omitempty"`
}
