package fsm

import (
	"fmt"
	"strings"
)

// Callback is a lifecycle hook. A returned error aborts the transition and is
// handed back unchanged to the caller of the triggering operation.
type Callback func(c *Context) error

// HookKind identifies a point in the transition pipeline
type HookKind int

const (
	HookBefore HookKind = iota
	HookLeave
	HookEnter
	HookAfter
	HookChange
)

func (k HookKind) String() string {
	switch k {
	case HookBefore:
		return "before"
	case HookLeave:
		return "leave"
	case HookEnter:
		return "enter"
	case HookAfter:
		return "after"
	case HookChange:
		return "change"
	default:
		return fmt.Sprintf("HookKind(%d)", int(k))
	}
}

// HookKey names a hook. An empty Name is the generic hook of that kind.
// Before and after hooks are named by event, leave and enter hooks by state.
type HookKey struct {
	Kind HookKind
	Name string
}

func (k HookKey) String() string {
	if k.Name == "" {
		return k.Kind.String() + " (any)"
	}
	return k.Kind.String() + " " + k.Name
}

// hookTable holds resolved hooks: specific ones by key, generic ones by kind
type hookTable struct {
	specific map[HookKey]Callback
	generic  map[HookKind]Callback
}

func newHookTable() hookTable {
	return hookTable{
		specific: make(map[HookKey]Callback),
		generic:  make(map[HookKind]Callback),
	}
}

func (h hookTable) has(key HookKey) bool {
	if key.Name == "" {
		_, ok := h.generic[key.Kind]
		return ok
	}
	_, ok := h.specific[key]
	return ok
}

func (h hookTable) set(key HookKey, fn Callback) error {
	if h.has(key) {
		return fmt.Errorf("%w: duplicate %s hook", ErrConfiguration, key)
	}
	if key.Name == "" {
		h.generic[key.Kind] = fn
	} else {
		h.specific[key] = fn
	}
	return nil
}

// resolve returns the specific hook for name, falling back to the generic one.
// The result is nil when neither is defined.
func (h hookTable) resolve(kind HookKind, name string) Callback {
	if fn, ok := h.specific[HookKey{Kind: kind, Name: name}]; ok {
		return fn
	}
	return h.generic[kind]
}

var genericHookNames = map[string]HookKind{
	"onbeforeevent": HookBefore,
	"onleavestate":  HookLeave,
	"onenterstate":  HookEnter,
	"onafterevent":  HookAfter,
	"onchangestate": HookChange,
}

// parseHookName resolves a name such as "onBeforeWarn" or "onGreen" against
// the declared events and states. Matching is case-insensitive. The shorthand
// "on<name>" is reported separately since it only applies where no explicit
// hook exists; it yields an after hook for an event and an enter hook for a
// state, or both when the name is shared.
func parseHookName(name string, events map[string]EventID, states map[string]StateID) (explicit []HookKey, shorthand []HookKey, err error) {
	lower := strings.ToLower(name)
	if kind, ok := genericHookNames[lower]; ok {
		return []HookKey{{Kind: kind}}, nil, nil
	}
	rest, ok := strings.CutPrefix(lower, "on")
	if !ok || rest == "" {
		return nil, nil, fmt.Errorf("%w: callback name %q does not start with \"on\"", ErrConfiguration, name)
	}

	prefixes := []struct {
		prefix string
		kind   HookKind
		event  bool
	}{
		{"before", HookBefore, true},
		{"after", HookAfter, true},
		{"leave", HookLeave, false},
		{"enter", HookEnter, false},
	}
	for _, p := range prefixes {
		subject, ok := strings.CutPrefix(rest, p.prefix)
		if !ok {
			continue
		}
		if p.event {
			if ev, ok := events[subject]; ok {
				return []HookKey{{Kind: p.kind, Name: string(ev)}}, nil, nil
			}
		} else if st, ok := states[subject]; ok {
			return []HookKey{{Kind: p.kind, Name: string(st)}}, nil, nil
		}
	}

	if ev, ok := events[rest]; ok {
		shorthand = append(shorthand, HookKey{Kind: HookAfter, Name: string(ev)})
	}
	if st, ok := states[rest]; ok {
		shorthand = append(shorthand, HookKey{Kind: HookEnter, Name: string(st)})
	}
	if len(shorthand) == 0 {
		return nil, nil, fmt.Errorf("%w: callback %q matches no declared event or state", ErrConfiguration, name)
	}
	return nil, shorthand, nil
}
