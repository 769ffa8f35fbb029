package workorder

import (
	"strings"
	"time"
)

// Guard inspects a work order before a transition and returns a reason when
// the transition must not happen.
type Guard func(w WorkOrder) (reason string, ok bool)

// Effect mutates the work order after its status changed.
type Effect func(w *WorkOrder, actor string, at time.Time)

// Transition is one row of the state table.
type Transition struct {
	From   Status
	Event  Event
	Guard  Guard
	To     Status
	Effect Effect
}

// StateMachine fires events against a work order using a transition table.
type StateMachine struct {
	transitions []Transition
}

// DefaultTransitions is the work-order approval lifecycle.
var DefaultTransitions = []Transition{
	{From: StatusOngoing, Event: EventSubmit, Guard: requiredFieldsPresent, To: StatusPending},
	{From: StatusPending, Event: EventApprove, To: StatusCompleted, Effect: recordApproval},
	{From: StatusPending, Event: EventRequestAmendment, To: StatusAmendmentRequired},
	{From: StatusAmendmentRequired, Event: EventReopen, To: StatusPending},
}

func NewStateMachine(transitions []Transition) *StateMachine {
	return &StateMachine{transitions: transitions}
}

// Fire applies event to w. On success w carries its new status and the
// returned History describes the change; on failure w is untouched.
func (m *StateMachine) Fire(w *WorkOrder, event Event, actor string, remark *string, at time.Time) (History, error) {
	t, ok := m.find(w.Status, event)
	if !ok {
		return History{}, &InvalidTransitionError{From: w.Status, Event: event}
	}
	if t.Guard != nil {
		if reason, ok := t.Guard(*w); !ok {
			return History{}, &InvalidTransitionError{From: w.Status, Event: event, Reason: reason}
		}
	}

	from := w.Status
	w.Status = t.To
	if t.Effect != nil {
		t.Effect(w, actor, at)
	}

	return History{
		WorkOrderID: w.ID,
		Event:       event,
		FromStatus:  from,
		ToStatus:    t.To,
		Actor:       actor,
		Remark:      remark,
		CreatedAt:   at,
	}, nil
}

// Can reports whether event would pass from w's current status, guards
// included.
func (m *StateMachine) Can(w WorkOrder, event Event) bool {
	t, ok := m.find(w.Status, event)
	if !ok {
		return false
	}
	if t.Guard == nil {
		return true
	}
	_, ok = t.Guard(w)
	return ok
}

// Available lists the events that can fire from w's current status.
func (m *StateMachine) Available(w WorkOrder) []Event {
	var events []Event
	for _, t := range m.transitions {
		if t.From == w.Status && m.Can(w, t.Event) {
			events = append(events, t.Event)
		}
	}
	return events
}

func (m *StateMachine) find(from Status, event Event) (Transition, bool) {
	for _, t := range m.transitions {
		if t.From == from && t.Event == event {
			return t, true
		}
	}
	return Transition{}, false
}

func requiredFieldsPresent(w WorkOrder) (string, bool) {
	var missing []string
	switch w.RateType {
	case RateTypeNormal:
		if w.StartDate == nil {
			missing = append(missing, "start_date")
		}
		if w.Location == nil || strings.TrimSpace(*w.Location) == "" {
			missing = append(missing, "location")
		}
	case RateTypeWorkDays:
		if w.WorkMonth == nil {
			missing = append(missing, "work_month")
		}
	case RateTypeResources:
		if w.StartDate == nil {
			missing = append(missing, "start_date")
		}
	default:
		return "unknown rate type " + string(w.RateType), false
	}
	if len(missing) > 0 {
		return "missing " + strings.Join(missing, ", "), false
	}
	return "", true
}

func recordApproval(w *WorkOrder, actor string, at time.Time) {
	w.ApprovedBy = &actor
	w.ApprovedAt = &at
}
