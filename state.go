package fsm

// StateConfig holds per-state settings
type StateConfig struct {
	// MaximumReentrance caps consecutive transitions into the state without
	// leaving it, counting the transition that entered it. Zero is unbounded.
	MaximumReentrance int `yaml:"maximumReentrance,omitempty"`

	onEnter Callback
	onLeave Callback
}

// StateOption is a functional option for configuring a State
type StateOption func(*StateConfig)

// WithMaximumReentrance limits consecutive same-state transitions
func WithMaximumReentrance(n int) StateOption {
	return func(s *StateConfig) {
		s.MaximumReentrance = n
	}
}

// WithOnEnter sets the enter hook for the state
func WithOnEnter(fn Callback) StateOption {
	return func(s *StateConfig) {
		s.onEnter = fn
	}
}

// WithOnLeave sets the leave hook for the state
func WithOnLeave(fn Callback) StateOption {
	return func(s *StateConfig) {
		s.onLeave = fn
	}
}

// exceeded reports whether count consecutive occupancies break the limit
func (s *StateConfig) exceeded(count int) bool {
	return s != nil && s.MaximumReentrance > 0 && count > s.MaximumReentrance
}
