package fsm

import "log/slog"

// StateID is a unique identifier for a state
type StateID string

// EventID is a unique identifier for an event
type EventID string

const (
	// None is the state of a machine before its startup event has fired
	None StateID = "none"

	// WildcardState matches any state in the from side of an event
	WildcardState StateID = "*"

	// DefaultStartupEvent is fired to move from None to the initial state
	DefaultStartupEvent EventID = "startup"
)

// Status reports how a fired event ended
type Status int

const (
	// Succeeded means the transition (or no-op) ran to completion
	Succeeded Status = iota + 1
	// Cancelled means a before or leave hook refused the transition
	Cancelled
	// Deferred means a leave hook parked the transition until CompleteTransition
	Deferred
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Cancelled:
		return "cancelled"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Result describes the outcome of Fire, CompleteTransition or CancelTransition.
//
// For Succeeded, To is the state the machine is now in. For Deferred, To and
// Args describe the parked transition, which resumes without re-resolving the
// event.
type Result struct {
	Status Status
	Event  EventID
	From   StateID
	To     StateID
	Args   []any
}

// Logger is the default logger used when none is provided
var Logger = slog.Default()
