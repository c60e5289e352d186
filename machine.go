package fsm

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// EventFunc fires one declared event with the given caller arguments
type EventFunc func(args ...any) (Result, error)

// Machine is the runtime FSM instance.
//
// A Machine is not safe for concurrent use. Hooks run synchronously on the
// caller's goroutine, and callers that complete deferred transitions from
// timers or other goroutines must serialise access themselves.
type Machine struct {
	id        uuid.UUID
	blueprint *Blueprint

	current    StateID
	reentrance map[StateID]int
	pending    *pendingTransition
	// set while a before hook runs, so the hook cannot start another transition
	firing bool

	events map[EventID]EventFunc

	data                any
	logger              *slog.Logger
	errorHandler        ErrorHandler
	stateChangeCallback func(from, to StateID)
}

type pendingTransition struct {
	event EventID
	from  StateID
	to    StateID
	args  []any
	// how the transition was resolved, once completed or cancelled
	outcome Status
}

func (p *pendingTransition) result(status Status) Result {
	return Result{Status: status, Event: p.event, From: p.from, To: p.to, Args: p.args}
}

// MachineOption is a functional option for configuring a Machine
type MachineOption func(*Machine)

// WithLogger sets the logger for the machine
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithData sets the application data accessible via Context
func WithData(data any) MachineOption {
	return func(m *Machine) {
		m.data = data
	}
}

// WithErrorHandler overrides the definition's error handler for this machine
func WithErrorHandler(fn ErrorHandler) MachineOption {
	return func(m *Machine) {
		m.errorHandler = fn
	}
}

// WithStateChangeCallback sets a callback invoked after each state change.
// It runs after the change hook, for this machine only.
func WithStateChangeCallback(fn func(from, to StateID)) MachineOption {
	return func(m *Machine) {
		m.stateChangeCallback = fn
	}
}

// New creates a Machine with its own runtime state. Unless the startup is
// deferred, the startup event fires before New returns.
func (b *Blueprint) New(opts ...MachineOption) (*Machine, error) {
	m := &Machine{
		id:           uuid.New(),
		blueprint:    b,
		current:      None,
		reentrance:   make(map[StateID]int),
		events:       make(map[EventID]EventFunc, len(b.events)),
		logger:       Logger,
		errorHandler: b.errorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("machine", m.id.String())

	for _, ev := range b.events {
		event := ev
		m.events[event] = func(args ...any) (Result, error) {
			return m.Fire(event, args...)
		}
	}

	if b.startup != "" && !b.deferStartup {
		if _, err := m.Fire(b.startup); err != nil {
			return nil, fmt.Errorf("startup event %q failed: %w", b.startup, err)
		}
	}

	return m, nil
}

// ID returns the machine's instance identifier
func (m *Machine) ID() uuid.UUID {
	return m.id
}

// Blueprint returns the compiled definition the machine runs
func (m *Machine) Blueprint() *Blueprint {
	return m.blueprint
}

// Data returns the application data set with WithData
func (m *Machine) Data() any {
	return m.data
}

// Current returns the current state
func (m *Machine) Current() StateID {
	return m.current
}

// Is reports whether the machine is in the given state
func (m *Machine) Is(state StateID) bool {
	return m.current == state
}

// Event returns the function that fires the named event. Firing an
// undeclared event fails with ErrInvalidTransition.
func (m *Machine) Event(name EventID) EventFunc {
	if fn, ok := m.events[name]; ok {
		return fn
	}
	return func(args ...any) (Result, error) {
		return m.Fire(name, args...)
	}
}

// Can reports whether the event may fire now. It is false for every event
// while a transition is in flight.
func (m *Machine) Can(event EventID) bool {
	if m.busy() {
		return false
	}
	_, ok := m.blueprint.table.lookup(event, m.current)
	return ok
}

// Cannot is the negation of Can
func (m *Machine) Cannot(event EventID) bool {
	return !m.Can(event)
}

// AvailableEvents lists the events that may fire now, in declaration order
func (m *Machine) AvailableEvents() []EventID {
	var out []EventID
	for _, ev := range m.blueprint.events {
		if m.Can(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// Pending describes the deferred transition, if any
func (m *Machine) Pending() (Result, bool) {
	if m.pending == nil {
		return Result{}, false
	}
	return m.pending.result(Deferred), true
}

func (m *Machine) busy() bool {
	return m.pending != nil || m.firing
}

// Fire runs the event through the transition pipeline:
// before, leave, commit, enter, change, after.
func (m *Machine) Fire(event EventID, args ...any) (Result, error) {
	from := m.current

	m.logger.Debug("processing event", "event", event, "state", from)

	if m.busy() {
		return m.fail(&Error{
			Kind:    KindTransitionPending,
			Event:   event,
			From:    from,
			Args:    args,
			Message: fmt.Sprintf("event %s inappropriate because previous transition did not complete", event),
		})
	}

	tgt, ok := m.blueprint.table.lookup(event, from)
	if !ok {
		return m.fail(&Error{
			Kind:    KindInvalidTransition,
			Event:   event,
			From:    from,
			Args:    args,
			Message: fmt.Sprintf("event %s inappropriate in current state %s", event, from),
		})
	}

	to := tgt.to
	if tgt.noop {
		to = from
	}
	c := m.makeContext(event, from, to, args)

	if err := m.before(c); err != nil {
		return Result{}, err
	}
	if c.cancelled {
		m.logger.Debug("transition cancelled by before hook", "event", event, "from", from, "to", to)
		return Result{Status: Cancelled, Event: event, From: from, To: to, Args: args}, nil
	}

	if tgt.noop {
		m.logger.Debug("no-op event", "event", event, "state", from)
		if err := m.run(HookAfter, string(event), c); err != nil {
			return Result{}, err
		}
		return Result{Status: Succeeded, Event: event, From: from, To: from, Args: args}, nil
	}

	p := &pendingTransition{event: event, from: from, to: to, args: args}

	if from == to {
		return m.commit(p)
	}

	// Installed before the leave hook so the hook can complete it synchronously
	m.pending = p
	if err := m.run(HookLeave, string(from), c); err != nil {
		if m.pending == p {
			m.pending = nil
		}
		return Result{}, err
	}

	switch {
	case c.cancelled && m.pending == p:
		m.pending = nil
		m.logger.Debug("transition cancelled by leave hook", "event", event, "from", from, "to", to)
		return p.result(Cancelled), nil
	case c.deferred:
		m.logger.Debug("transition deferred", "event", event, "from", from, "to", to)
		return p.result(Deferred), nil
	case m.pending == p:
		return m.complete()
	default:
		// The leave hook already completed or cancelled the transition
		return p.result(p.outcome), nil
	}
}

// CompleteTransition finishes the deferred transition
func (m *Machine) CompleteTransition() (Result, error) {
	if m.pending == nil {
		return m.fail(m.noPending("complete"))
	}
	return m.complete()
}

// CancelTransition discards the deferred transition. The machine stays in the
// state it was in before the event fired.
func (m *Machine) CancelTransition() (Result, error) {
	if m.pending == nil {
		return m.fail(m.noPending("cancel"))
	}
	p := m.pending
	m.pending = nil
	p.outcome = Cancelled
	m.logger.Debug("deferred transition cancelled", "event", p.event, "from", p.from, "to", p.to)
	return p.result(Cancelled), nil
}

func (m *Machine) noPending(op string) *Error {
	return &Error{
		Kind:    KindNoPendingTransition,
		From:    m.current,
		Message: fmt.Sprintf("%s inappropriate because no transition is pending in state %s", op, m.current),
	}
}

func (m *Machine) complete() (Result, error) {
	p := m.pending
	m.pending = nil
	p.outcome = Succeeded
	return m.commit(p)
}

// commit moves the machine into p.to, then runs enter, change and after hooks
func (m *Machine) commit(p *pendingTransition) (Result, error) {
	m.logger.Debug("executing transition", "event", p.event, "from", p.from, "to", p.to)

	m.current = p.to
	if p.from == p.to {
		m.reentrance[p.to]++
	} else {
		m.reentrance[p.to] = 1
	}

	if count := m.reentrance[p.to]; m.blueprint.stateConfigs[p.to].exceeded(count) {
		limit := m.blueprint.stateConfigs[p.to].MaximumReentrance
		return m.fail(&Error{
			Kind:    KindReentranceLimit,
			Event:   p.event,
			From:    p.from,
			To:      p.to,
			Args:    p.args,
			Message: fmt.Sprintf("maximum re-entrance of %d for state %s has been reached", limit, p.to),
		})
	}

	c := m.makeContext(p.event, p.from, p.to, p.args)

	if p.from != p.to {
		if err := m.run(HookEnter, string(p.to), c); err != nil {
			return Result{}, err
		}
		if err := m.run(HookChange, "", c); err != nil {
			return Result{}, err
		}
		if m.stateChangeCallback != nil {
			m.stateChangeCallback(p.from, p.to)
		}
	}

	if err := m.run(HookAfter, string(p.event), c); err != nil {
		return Result{}, err
	}
	return p.result(Succeeded), nil
}

func (m *Machine) before(c *Context) error {
	m.firing = true
	defer func() { m.firing = false }()
	return m.run(HookBefore, string(c.Event), c)
}

// run invokes the specific hook for name, or the generic hook of that kind
func (m *Machine) run(kind HookKind, name string, c *Context) error {
	fn := m.blueprint.hooks.resolve(kind, name)
	if fn == nil {
		return nil
	}
	return fn(c)
}

// fail routes a resolvable failure through the error handler, if any
func (m *Machine) fail(e *Error) (Result, error) {
	m.logger.Debug("event rejected", "kind", e.Kind, "event", e.Event, "from", e.From, "to", e.To, "error", e.Message)
	if m.errorHandler != nil {
		return m.errorHandler(e)
	}
	return Result{}, e
}

// makeContext creates a context for callbacks
func (m *Machine) makeContext(event EventID, from, to StateID, args []any) *Context {
	return &Context{
		FSM:       m,
		Event:     event,
		FromState: from,
		ToState:   to,
		Args:      args,
		Data:      m.data,
		Logger:    m.logger,
	}
}
