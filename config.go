package fsm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the declarative form of a Definition, loadable from YAML:
//
//	initial: green
//	events:
//	  - { name: warn,  from: green,           to: yellow }
//	  - { name: panic, from: [green, yellow], to: red }
//	  - { name: noop }
//	stateConfiguration:
//	  red: { maximumReentrance: 5 }
//
// Hooks cannot be expressed in YAML; attach them to the Definition returned
// by Config.Definition.
type Config struct {
	Events  []EventConfig           `yaml:"events"`
	Initial *InitialConfig          `yaml:"initial,omitempty"`
	States  map[StateID]StateConfig `yaml:"stateConfiguration,omitempty"`
}

// EventConfig declares one event variant
type EventConfig struct {
	Name EventID   `yaml:"name"`
	From StateList `yaml:"from,omitempty"`
	To   StateID   `yaml:"to,omitempty"`
}

// StateList is a list of states that also decodes from a single scalar
type StateList []StateID

func (l *StateList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s StateID
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StateList{s}
		return nil
	case yaml.SequenceNode:
		var list []StateID
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	default:
		return fmt.Errorf("line %d: from must be a state or a list of states", node.Line)
	}
}

func (l StateList) MarshalYAML() (any, error) {
	if len(l) == 1 {
		return l[0], nil
	}
	return []StateID(l), nil
}

// InitialConfig configures the startup event. It also decodes from a plain
// state name.
type InitialConfig struct {
	State StateID `yaml:"state"`
	Event EventID `yaml:"event,omitempty"`
	Defer bool    `yaml:"defer,omitempty"`
}

func (c *InitialConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&c.State)
	}
	type plain InitialConfig
	return node.Decode((*plain)(c))
}

func (c InitialConfig) MarshalYAML() (any, error) {
	if c.Event == "" && !c.Defer {
		return c.State, nil
	}
	type plain InitialConfig
	return plain(c), nil
}

// ParseConfig decodes a YAML definition
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if len(cfg.Events) == 0 && cfg.Initial == nil {
		return nil, fmt.Errorf("%w: no events defined", ErrConfiguration)
	}
	return &cfg, nil
}

// LoadConfig reads and decodes a YAML definition file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Marshal encodes the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	return data, nil
}

// Definition builds a Definition from the configuration
func (c *Config) Definition() *Definition {
	d := NewDefinition()
	for _, ev := range c.Events {
		d.Events(EventSpec{Name: ev.Name, From: []StateID(ev.From), To: ev.To})
	}
	if c.Initial != nil && c.Initial.State != "" {
		var opts []InitialOption
		if c.Initial.Event != "" {
			opts = append(opts, WithStartupEvent(c.Initial.Event))
		}
		if c.Initial.Defer {
			opts = append(opts, WithDeferredStartup())
		}
		d.Initial(c.Initial.State, opts...)
	}
	for id, sc := range c.States {
		d.State(id, WithMaximumReentrance(sc.MaximumReentrance))
	}
	return d
}
