package fsm

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Definition holds the FSM structure before compiling it into a Blueprint
type Definition struct {
	specs        []EventSpec
	states       map[StateID]*StateConfig
	stateOrder   []StateID
	hooks        []hookEntry
	named        map[string]Callback
	initial      StateID
	startup      EventID
	deferStartup bool
	errorHandler ErrorHandler
}

type hookEntry struct {
	key HookKey
	fn  Callback
}

// InitialOption is a functional option for configuring the startup event
type InitialOption func(*Definition)

// WithStartupEvent renames the event that moves the machine out of None
func WithStartupEvent(name EventID) InitialOption {
	return func(d *Definition) {
		d.startup = name
	}
}

// WithDeferredStartup registers the startup event without firing it on
// construction. The caller fires it explicitly.
func WithDeferredStartup() InitialOption {
	return func(d *Definition) {
		d.deferStartup = true
	}
}

// NewDefinition creates a new FSM definition builder
func NewDefinition() *Definition {
	return &Definition{
		states:  make(map[StateID]*StateConfig),
		named:   make(map[string]Callback),
		startup: DefaultStartupEvent,
	}
}

// Events adds event variants
func (d *Definition) Events(specs ...EventSpec) *Definition {
	for _, s := range specs {
		s.From = slices.Clone(s.From)
		d.specs = append(d.specs, s)
	}
	return d
}

// Transition adds a single-source event variant
func (d *Definition) Transition(from StateID, event EventID, to StateID, opts ...TransitionOption) *Definition {
	d.Events(EventSpec{Name: event, From: []StateID{from}, To: to})

	var h eventHooks
	for _, opt := range opts {
		opt(&h)
	}
	if h.before != nil {
		d.hook(HookKey{Kind: HookBefore, Name: string(event)}, h.before)
	}
	if h.after != nil {
		d.hook(HookKey{Kind: HookAfter, Name: string(event)}, h.after)
	}
	return d
}

// AnyStateTransition adds an event variant that can fire from any state
func (d *Definition) AnyStateTransition(event EventID, to StateID, opts ...TransitionOption) *Definition {
	return d.Transition(WildcardState, event, to, opts...)
}

// NoOp adds an event that runs its hooks without changing state. With no
// from states it is legal everywhere.
func (d *Definition) NoOp(event EventID, from ...StateID) *Definition {
	return d.Events(EventSpec{Name: event, From: from})
}

// State configures a state
func (d *Definition) State(id StateID, opts ...StateOption) *Definition {
	s, ok := d.states[id]
	if !ok {
		s = &StateConfig{}
		d.states[id] = s
		d.stateOrder = append(d.stateOrder, id)
	}
	for _, opt := range opts {
		opt(s)
	}
	return d
}

// Initial sets the state the startup event moves to
func (d *Definition) Initial(id StateID, opts ...InitialOption) *Definition {
	d.initial = id
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnError sets the default error handler for machines built from d
func (d *Definition) OnError(fn ErrorHandler) *Definition {
	d.errorHandler = fn
	return d
}

func (d *Definition) hook(key HookKey, fn Callback) *Definition {
	d.hooks = append(d.hooks, hookEntry{key: key, fn: fn})
	return d
}

func (d *Definition) OnBefore(event EventID, fn Callback) *Definition {
	return d.hook(HookKey{Kind: HookBefore, Name: string(event)}, fn)
}

func (d *Definition) OnBeforeAny(fn Callback) *Definition {
	return d.hook(HookKey{Kind: HookBefore}, fn)
}

func (d *Definition) OnLeave(state StateID, fn Callback) *Definition {
	return d.hook(HookKey{Kind: HookLeave, Name: string(state)}, fn)
}

func (d *Definition) OnLeaveAny(fn Callback) *Definition {
	return d.hook(HookKey{Kind: HookLeave}, fn)
}

func (d *Definition) OnEnter(state StateID, fn Callback) *Definition {
	return d.hook(HookKey{Kind: HookEnter, Name: string(state)}, fn)
}

func (d *Definition) OnEnterAny(fn Callback) *Definition {
	return d.hook(HookKey{Kind: HookEnter}, fn)
}

func (d *Definition) OnAfter(event EventID, fn Callback) *Definition {
	return d.hook(HookKey{Kind: HookAfter, Name: string(event)}, fn)
}

func (d *Definition) OnAfterAny(fn Callback) *Definition {
	return d.hook(HookKey{Kind: HookAfter}, fn)
}

// OnChange sets the hook run after every transition that changes state
func (d *Definition) OnChange(fn Callback) *Definition {
	return d.hook(HookKey{Kind: HookChange}, fn)
}

// Callbacks registers hooks by name: "onBeforeWarn", "onLeaveGreen",
// "onEnterState", "onChangeState", or the shorthand "onWarn" / "onGreen".
// Names are resolved once, when the definition is compiled.
func (d *Definition) Callbacks(cbs map[string]Callback) *Definition {
	for name, fn := range cbs {
		d.named[name] = fn
	}
	return d
}

// Validate checks the definition for errors
func (d *Definition) Validate() error {
	_, err := d.Compile()
	return err
}

// Compile resolves the definition into an immutable Blueprint
func (d *Definition) Compile() (*Blueprint, error) {
	bp, err := d.compile()
	if err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	return bp, nil
}

// Build compiles the definition and creates a Machine from it
func (d *Definition) Build(opts ...MachineOption) (*Machine, error) {
	bp, err := d.Compile()
	if err != nil {
		return nil, err
	}
	return bp.New(opts...)
}

func (d *Definition) compile() (*Blueprint, error) {
	bp := &Blueprint{
		table:        make(transitionTable),
		stateConfigs: make(map[StateID]*StateConfig),
		hooks:        newHookTable(),
		initial:      d.initial,
		deferStartup: d.deferStartup,
		errorHandler: d.errorHandler,
	}

	specs := d.specs
	if d.initial != "" {
		if d.initial == None || d.initial == WildcardState {
			return nil, fmt.Errorf("%w: %q cannot be the initial state", ErrConfiguration, d.initial)
		}
		if d.startup == "" {
			return nil, fmt.Errorf("%w: startup event has no name", ErrConfiguration)
		}
		bp.startup = d.startup
		startup := EventSpec{Name: d.startup, From: []StateID{None}, To: d.initial}
		specs = append([]EventSpec{startup}, specs...)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no events defined", ErrConfiguration)
	}

	declared := map[StateID]bool{None: true}
	bp.states = append(bp.states, None)
	declare := func(s StateID) {
		if s == "" || s == WildcardState || declared[s] {
			return
		}
		declared[s] = true
		bp.states = append(bp.states, s)
	}

	events := make(map[EventID]bool)
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: event #%d has no name", ErrConfiguration, i)
		}
		if spec.To == WildcardState {
			return nil, fmt.Errorf("%w: event %q targets %q", ErrConfiguration, spec.Name, WildcardState)
		}
		if err := bp.table.add(spec); err != nil {
			return nil, err
		}
		if !events[spec.Name] {
			events[spec.Name] = true
			bp.events = append(bp.events, spec.Name)
		}
		for _, from := range spec.From {
			declare(from)
		}
		declare(spec.To)
	}

	for _, id := range d.stateOrder {
		cfg := d.states[id]
		if !declared[id] {
			return nil, fmt.Errorf("%w: state %q is configured but no event uses it", ErrConfiguration, id)
		}
		if cfg.MaximumReentrance < 0 {
			return nil, fmt.Errorf("%w: state %q has negative maximum re-entrance %d", ErrConfiguration, id, cfg.MaximumReentrance)
		}
		c := *cfg
		bp.stateConfigs[id] = &c
	}

	if err := d.compileHooks(bp, events, declared); err != nil {
		return nil, err
	}
	return bp, nil
}

func (d *Definition) compileHooks(bp *Blueprint, events map[EventID]bool, states map[StateID]bool) error {
	entries := slices.Clone(d.hooks)
	for _, id := range d.stateOrder {
		cfg := d.states[id]
		if cfg.onEnter != nil {
			entries = append(entries, hookEntry{key: HookKey{Kind: HookEnter, Name: string(id)}, fn: cfg.onEnter})
		}
		if cfg.onLeave != nil {
			entries = append(entries, hookEntry{key: HookKey{Kind: HookLeave, Name: string(id)}, fn: cfg.onLeave})
		}
	}

	for _, e := range entries {
		if e.fn == nil {
			return fmt.Errorf("%w: nil %s hook", ErrConfiguration, e.key)
		}
		if e.key.Name != "" {
			switch e.key.Kind {
			case HookBefore, HookAfter:
				if !events[EventID(e.key.Name)] {
					return fmt.Errorf("%w: %s hook for undeclared event", ErrConfiguration, e.key)
				}
			case HookLeave, HookEnter:
				if !states[StateID(e.key.Name)] {
					return fmt.Errorf("%w: %s hook for undeclared state", ErrConfiguration, e.key)
				}
			default:
				return fmt.Errorf("%w: %s hooks cannot be named", ErrConfiguration, e.key.Kind)
			}
		}
		if err := bp.hooks.set(e.key, e.fn); err != nil {
			return err
		}
	}

	if len(d.named) == 0 {
		return nil
	}

	eventNames := make(map[string]EventID, len(events))
	for ev := range events {
		eventNames[strings.ToLower(string(ev))] = ev
	}
	stateNames := make(map[string]StateID, len(states))
	for st := range states {
		stateNames[strings.ToLower(string(st))] = st
	}

	names := make([]string, 0, len(d.named))
	for name := range d.named {
		names = append(names, name)
	}
	sort.Strings(names)

	type pendingHook struct {
		keys []HookKey
		fn   Callback
	}
	var shorthands []pendingHook
	for _, name := range names {
		fn := d.named[name]
		if fn == nil {
			return fmt.Errorf("%w: nil callback %q", ErrConfiguration, name)
		}
		explicit, shorthand, err := parseHookName(name, eventNames, stateNames)
		if err != nil {
			return err
		}
		for _, key := range explicit {
			if err := bp.hooks.set(key, fn); err != nil {
				return err
			}
		}
		if len(shorthand) > 0 {
			shorthands = append(shorthands, pendingHook{keys: shorthand, fn: fn})
		}
	}
	for _, s := range shorthands {
		for _, key := range s.keys {
			if bp.hooks.has(key) {
				continue
			}
			if err := bp.hooks.set(key, s.fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Blueprint is a compiled definition. It is immutable and may be shared by any
// number of machines, each keeping its own runtime state.
type Blueprint struct {
	table        transitionTable
	events       []EventID
	states       []StateID
	stateConfigs map[StateID]*StateConfig
	hooks        hookTable
	initial      StateID
	startup      EventID
	deferStartup bool
	errorHandler ErrorHandler
}

// Events returns the declared event names in declaration order, the startup
// event first
func (b *Blueprint) Events() []EventID {
	return slices.Clone(b.events)
}

// States returns every state the definition mentions, None first
func (b *Blueprint) States() []StateID {
	return slices.Clone(b.states)
}

// StartupEvent returns the event that leaves None, or "" without an initial state
func (b *Blueprint) StartupEvent() EventID {
	return b.startup
}

// HasEvent reports whether the event is declared
func (b *Blueprint) HasEvent(event EventID) bool {
	_, ok := b.table[event]
	return ok
}
