package workorder

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enum
type Status string

const (
	StatusOngoing           Status = "ongoing"
	StatusPending           Status = "pending"
	StatusAmendmentRequired Status = "amendment_required"
	StatusCompleted         Status = "completed"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// Event enum
type Event string

const (
	EventSubmit           Event = "submit"
	EventApprove          Event = "approve"
	EventRequestAmendment Event = "request_amendment"
	EventReopen           Event = "reopen"
)

// ParseEvent accepts both the snake_case and the URL kebab-case spelling.
func ParseEvent(s string) (Event, bool) {
	switch Event(s) {
	case EventSubmit, EventApprove, EventRequestAmendment, EventReopen:
		return Event(s), true
	case "request-amendment":
		return EventRequestAmendment, true
	}
	return "", false
}

// RateType decides how a work order is paid.
type RateType string

const (
	RateTypeNormal    RateType = "normal"
	RateTypeWorkDays  RateType = "work_days"
	RateTypeResources RateType = "resources"
)

// PaysWorkers reports whether approval of this rate type produces payroll.
// Resource-only orders pay nobody.
func (r RateType) PaysWorkers() bool {
	return r != RateTypeResources
}

// WorkOrder entity
type WorkOrder struct {
	ID             string
	Number         string
	Status         Status
	RateType       RateType
	StartDate      *time.Time
	Location       *string
	WorkMonth      *time.Time
	CompletionDate *time.Time
	ApprovedBy     *string
	ApprovedAt     *time.Time
	Workers        []Assignment
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WorkerIDs returns the distinct workers assigned to the order, in
// assignment order.
func (w WorkOrder) WorkerIDs() []string {
	seen := make(map[string]bool, len(w.Workers))
	var ids []string
	for _, a := range w.Workers {
		if seen[a.WorkerID] {
			continue
		}
		seen[a.WorkerID] = true
		ids = append(ids, a.WorkerID)
	}
	return ids
}

// Assignment is one worker on a work order with the gross amount already
// computed for them. Voided assignments have Kept false.
type Assignment struct {
	ID          string
	WorkOrderID string
	WorkerID    string
	Amount      decimal.Decimal
	Kept        bool
}

// History is one append-only transition audit row.
type History struct {
	ID          string
	WorkOrderID string
	Event       Event
	FromStatus  Status
	ToStatus    Status
	Actor       string
	Remark      *string
	CreatedAt   time.Time
}
