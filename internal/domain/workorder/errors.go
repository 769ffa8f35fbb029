package workorder

import (
	"errors"
	"fmt"
)

var (
	ErrWorkOrderNotFound      = errors.New("work order not found")
	ErrInvalidTransition      = errors.New("invalid work order transition")
	ErrUnknownEvent           = errors.New("unknown work order event")
	ErrCompletionDateRequired = errors.New("completion date is required to process a work order")
	ErrWorkOrderNotCompleted  = errors.New("work order is not completed")
)

// InvalidTransitionError is returned when event cannot fire from the current
// status, or when the transition's guard rejects the work order. The work
// order is left unchanged.
type InvalidTransitionError struct {
	From   Status
	Event  Event
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s work order in status %s: %s", e.Event, e.From, e.Reason)
	}
	return fmt.Sprintf("cannot %s work order in status %s", e.Event, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
