package mission

import "fmt"

// BuiltIn returns predefined missions over the reference targets 1 to 5.
func BuiltIn() map[string]Mission {
	return map[string]Mission{
		"tour": {
			Name:        "Tour",
			Description: "Visit every target once, finishing in the centre of the arena.",
			Legs: []Leg{
				{Name: "north-east", Description: "Upper right corner.", Target: "1"},
				{Name: "south-east", Description: "Lower right corner.", Target: "2"},
				{Name: "south-west", Description: "Lower left corner.", Target: "3"},
				{Name: "north-west", Description: "Upper left corner.", Target: "5"},
				{Name: "centre", Description: "Park in the middle.", Target: "4"},
			},
		},
		"patrol": {
			Name:        "Patrol",
			Description: "Shuttle between two opposite corners until the operator takes over.",
			Legs: []Leg{
				{
					Name:     "outbound",
					Target:   "1",
					Triggers: []Trigger{{Event: EventArrived, Value: 1, Next: "inbound"}},
				},
				{
					Name:     "inbound",
					Target:   "3",
					Triggers: []Trigger{{Event: EventArrived, Value: 1, Next: "outbound"}},
				},
			},
		},
		"recover": {
			Name:        "Recover",
			Description: "Head for the centre, falling back to a corner if the markers are lost for too long.",
			Legs: []Leg{
				{
					Name:   "centre",
					Target: "4",
					Triggers: []Trigger{
						{Event: EventArrived, Value: 1, Next: ""},
						{Event: EventMarkerLost, Value: 20, Next: "fallback"},
					},
				},
				{
					Name:     "fallback",
					Target:   "2",
					Triggers: []Trigger{{Event: EventArrived, Value: 1, Next: "centre"}},
				},
			},
		},
	}
}

// Resolve returns the built-in mission called name or loads it from path
// when path is set.
func Resolve(name, path string) (*Mission, error) {
	if path != "" {
		return Load(path)
	}
	m, ok := BuiltIn()[name]
	if !ok {
		return nil, fmt.Errorf("unknown mission %q", name)
	}
	return &m, nil
}
