package fsm

import "fmt"

// TransitionOption is a functional option for configuring an event declared
// with Transition or AnyStateTransition
type TransitionOption func(*eventHooks)

type eventHooks struct {
	before Callback
	after  Callback
}

// WithBefore sets the before hook of the event
func WithBefore(fn Callback) TransitionOption {
	return func(h *eventHooks) {
		h.before = fn
	}
}

// WithAfter sets the after hook of the event
func WithAfter(fn Callback) TransitionOption {
	return func(h *eventHooks) {
		h.after = fn
	}
}

// target is the resolved destination of an event from one state
type target struct {
	to   StateID
	noop bool
}

func (t target) String() string {
	if t.noop {
		return "(no-op)"
	}
	return string(t.to)
}

// routes holds every legal variant of a single event
type routes struct {
	exact map[StateID]target
	any   *target
}

// transitionTable maps an event to its routes. It is immutable once compiled.
type transitionTable map[EventID]*routes

// add registers a variant, failing on conflicting duplicates
func (t transitionTable) add(spec EventSpec) error {
	r, ok := t[spec.Name]
	if !ok {
		r = &routes{exact: make(map[StateID]target)}
		t[spec.Name] = r
	}

	tgt := target{to: spec.To, noop: spec.noop()}

	if spec.anyState() {
		if len(spec.From) > 1 {
			return fmt.Errorf("%w: event %q mixes %q with named states", ErrConfiguration, spec.Name, WildcardState)
		}
		if r.any != nil && *r.any != tgt {
			return fmt.Errorf("%w: event %q from any state declared with targets %s and %s", ErrConfiguration, spec.Name, r.any, tgt)
		}
		r.any = &tgt
		return nil
	}

	for _, from := range spec.From {
		if from == "" {
			return fmt.Errorf("%w: event %q has an empty from state", ErrConfiguration, spec.Name)
		}
		if existing, ok := r.exact[from]; ok && existing != tgt {
			return fmt.Errorf("%w: event %q from %q declared with targets %s and %s", ErrConfiguration, spec.Name, from, existing, tgt)
		}
		r.exact[from] = tgt
	}
	return nil
}

// lookup resolves an event from the given state: exact match first, then wildcard
func (t transitionTable) lookup(event EventID, from StateID) (target, bool) {
	r, ok := t[event]
	if !ok {
		return target{}, false
	}
	if tgt, ok := r.exact[from]; ok {
		return tgt, true
	}
	if r.any != nil {
		return *r.any, true
	}
	return target{}, false
}
