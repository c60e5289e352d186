package fsm

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration wraps every error found while compiling a definition
	ErrConfiguration = errors.New("invalid fsm configuration")

	ErrInvalidTransition   = errors.New("invalid transition")
	ErrTransitionPending   = errors.New("transition pending")
	ErrNoPendingTransition = errors.New("no pending transition")
	ErrReentranceLimit     = errors.New("re-entrance limit reached")
)

// ErrorKind classifies a runtime failure that an ErrorHandler may resolve
type ErrorKind int

const (
	KindInvalidTransition ErrorKind = iota + 1
	KindTransitionPending
	KindNoPendingTransition
	KindReentranceLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidTransition:
		return "InvalidTransition"
	case KindTransitionPending:
		return "TransitionPending"
	case KindNoPendingTransition:
		return "NoPendingTransition"
	case KindReentranceLimit:
		return "ReentranceLimit"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidTransition:
		return ErrInvalidTransition
	case KindTransitionPending:
		return ErrTransitionPending
	case KindNoPendingTransition:
		return ErrNoPendingTransition
	case KindReentranceLimit:
		return ErrReentranceLimit
	default:
		return nil
	}
}

// Error is a resolvable runtime failure with the context it happened in
type Error struct {
	Kind    ErrorKind
	Event   EventID
	From    StateID
	To      StateID
	Args    []any
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel for the error's kind, so errors.Is works
func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}

// AsError extracts an *Error from err's chain
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ErrorHandler resolves runtime failures. Its return values become the return
// values of the operation that failed. Returning (Result{}, e) restores the
// default behaviour.
type ErrorHandler func(e *Error) (Result, error)
