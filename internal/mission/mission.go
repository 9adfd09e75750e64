// Package mission sequences target selections into named tours.
package mission

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Trigger event types.
const (
	EventArrived     = "arrived"
	EventTimeElapsed = "time_elapsed"
	EventMarkerLost  = "marker_lost"
)

// Mission is an ordered list of legs, each driving to one target.
type Mission struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Legs        []Leg  `yaml:"legs"`
}

// Leg drives to a single target until one of its triggers fires. A leg
// without triggers moves on to the following leg once the target is reached.
type Leg struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Target      string    `yaml:"target"`
	Triggers    []Trigger `yaml:"triggers,omitempty"`
}

// Trigger moves the mission to another leg based on an event. Value is the
// count (or seconds, for time_elapsed) that must be reached. An empty Next
// ends the mission.
type Trigger struct {
	Event string `yaml:"event"`
	Value int    `yaml:"value"`
	Next  string `yaml:"next"`
}

// Event represents a runtime occurrence that may advance the mission.
type Event struct {
	Type  string
	Value int
}

// Load reads a YAML mission definition from disk.
func Load(path string) (*Mission, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mission: %w", err)
	}
	var m Mission
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse mission: %w", err)
	}
	return &m, nil
}

// Validate checks that every leg names a known target and every trigger
// points at an existing leg.
func (m *Mission) Validate(targets map[string]bool) error {
	if len(m.Legs) == 0 {
		return fmt.Errorf("mission %q has no legs", m.Name)
	}
	names := make(map[string]bool, len(m.Legs))
	for _, l := range m.Legs {
		if l.Name == "" {
			return fmt.Errorf("mission %q: leg without name", m.Name)
		}
		if names[l.Name] {
			return fmt.Errorf("mission %q: duplicate leg %q", m.Name, l.Name)
		}
		names[l.Name] = true
		if !targets[l.Target] {
			return fmt.Errorf("mission %q leg %q: unknown target %q", m.Name, l.Name, l.Target)
		}
	}
	for _, l := range m.Legs {
		for _, tr := range l.Triggers {
			switch tr.Event {
			case EventArrived, EventTimeElapsed, EventMarkerLost:
			default:
				return fmt.Errorf("mission %q leg %q: unknown trigger event %q", m.Name, l.Name, tr.Event)
			}
			if tr.Next != "" && !names[tr.Next] {
				return fmt.Errorf("mission %q leg %q: trigger points at unknown leg %q", m.Name, l.Name, tr.Next)
			}
		}
	}
	return nil
}

// Leg returns the leg called name.
func (m *Mission) Leg(name string) (Leg, int, bool) {
	for i, l := range m.Legs {
		if l.Name == name {
			return l, i, true
		}
	}
	return Leg{}, -1, false
}

// NextLeg returns the name of the next leg given the current leg and event.
// If no trigger matches, ok will be false. An empty next with ok true means
// the mission is complete.
func (m *Mission) NextLeg(current string, ev Event) (next string, ok bool) {
	leg, idx, found := m.Leg(current)
	if !found {
		return "", false
	}
	for _, tr := range leg.Triggers {
		if tr.Event == ev.Type && ev.Value >= tr.Value {
			return tr.Next, true
		}
	}
	if len(leg.Triggers) == 0 && ev.Type == EventArrived {
		if idx+1 < len(m.Legs) {
			return m.Legs[idx+1].Name, true
		}
		return "", true
	}
	return "", false
}
