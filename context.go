package fsm

import (
	"log/slog"
)

// Context is passed to all hooks and provides access to FSM operations
type Context struct {
	FSM       *Machine
	Event     EventID
	FromState StateID
	ToState   StateID
	Args      []any // Caller arguments, forwarded verbatim
	Data      any   // User-provided application data
	Logger    *slog.Logger

	cancelled bool
	deferred  bool
}

// CurrentState returns the machine's current state
func (c *Context) CurrentState() StateID {
	return c.FSM.Current()
}

// Arg returns the i-th caller argument, or nil if there are fewer arguments
func (c *Context) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Cancel refuses the transition. Honoured in before and leave hooks.
func (c *Context) Cancel() {
	c.cancelled = true
}

// Defer parks the transition until CompleteTransition or CancelTransition is
// called. Honoured in leave hooks only.
func (c *Context) Defer() {
	c.deferred = true
}

// Complete finishes the transition this leave hook is running for
func (c *Context) Complete() (Result, error) {
	return c.FSM.CompleteTransition()
}
