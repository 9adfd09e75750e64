// Package event carries inbound navigator events from the transports to the
// controller.
package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"robotnav/internal/nav"
)

// Kind identifies an inbound channel.
type Kind string

const (
	KindMode       Kind = "mode"
	KindManual     Kind = "manual_command"
	KindTarget     Kind = "target"
	KindPerception Kind = "perception"
	KindSighting   Kind = "sighting"
)

// Tag is the detector's wire format for one marker. ID -1 means nothing is
// in view; a null dist means the distance could not be estimated.
type Tag struct {
	ID   int      `json:"ID"`
	Dist *float64 `json:"dist"`
	Yaw  float64  `json:"yaw"`
	Phi  float64  `json:"phi"`
}

// Observation converts the tag for the pose estimator.
func (t Tag) Observation() nav.MarkerObservation {
	dist := math.NaN()
	if t.Dist != nil {
		dist = *t.Dist
	}
	return nav.MarkerObservation{MarkerID: t.ID, Distance: dist, Yaw: t.Yaw, Skew: t.Phi}
}

// TagFrom is the inverse of Observation.
func TagFrom(o nav.MarkerObservation) Tag {
	t := Tag{ID: o.MarkerID, Yaw: o.Yaw, Phi: o.Skew}
	if !math.IsNaN(o.Distance) {
		d := o.Distance
		t.Dist = &d
	}
	return t
}

// Event is one inbound message. Only the field matching Kind is set.
type Event struct {
	Kind      Kind          `json:"kind"`
	Mode      nav.Mode      `json:"mode,omitempty"`
	Command   nav.Command   `json:"command,omitempty"`
	Target    string        `json:"target,omitempty"`
	FreeSpace nav.FreeSpace `json:"free_space,omitempty"`
	Tags      []Tag         `json:"tags,omitempty"`
	Source    string        `json:"source,omitempty"`
	Timestamp time.Time     `json:"ts"`
}

// Mode builds a mode change event.
func Mode(m nav.Mode) Event { return Event{Kind: KindMode, Mode: m} }

// Manual builds an operator command event.
func Manual(c nav.Command) Event { return Event{Kind: KindManual, Command: c} }

// Target builds a target selection event.
func Target(id string) Event { return Event{Kind: KindTarget, Target: id} }

// Perception builds a free-space update event.
func Perception(fs nav.FreeSpace) Event { return Event{Kind: KindPerception, FreeSpace: fs} }

// Sighting builds a detector frame event.
func Sighting(obs ...nav.MarkerObservation) Event {
	tags := make([]Tag, 0, len(obs))
	for _, o := range obs {
		tags = append(tags, TagFrom(o))
	}
	return Event{Kind: KindSighting, Tags: tags}
}

// Decode parses a raw payload received on the channel for kind.
func Decode(kind Kind, payload []byte) (Event, error) {
	text := strings.TrimSpace(string(payload))
	switch kind {
	case KindMode:
		m, err := nav.ParseMode(text)
		if err != nil {
			return Event{}, err
		}
		return Mode(m), nil
	case KindManual:
		c, err := nav.ParseCommand(text)
		if err != nil {
			return Event{}, err
		}
		return Manual(c), nil
	case KindTarget:
		if text == "" {
			return Event{}, fmt.Errorf("%w: empty id", nav.ErrUnknownTarget)
		}
		return Target(strings.Trim(text, `"`)), nil
	case KindPerception:
		var raw map[string]bool
		if err := json.Unmarshal(payload, &raw); err != nil {
			return Event{}, fmt.Errorf("decode perception: %w", err)
		}
		fs, err := nav.NewFreeSpace(raw)
		if err != nil {
			return Event{}, err
		}
		return Perception(fs), nil
	case KindSighting:
		tags, err := decodeTags(payload)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: KindSighting, Tags: tags}, nil
	}
	return Event{}, fmt.Errorf("unknown event kind %q", kind)
}

func decodeTags(payload []byte) ([]Tag, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && payload[0] == '[' {
		var tags []Tag
		if err := json.Unmarshal(payload, &tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
		return tags, nil
	}
	var t Tag
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("decode tag: %w", err)
	}
	return []Tag{t}, nil
}

// Apply hands the event to the matching controller handler.
func Apply(ctx context.Context, c *nav.Controller, ev Event) error {
	switch ev.Kind {
	case KindMode:
		return c.ChangeMode(ctx, ev.Mode)
	case KindManual:
		return c.HandleManualCommand(ctx, ev.Command)
	case KindTarget:
		return c.HandleTargetSelected(ctx, ev.Target)
	case KindPerception:
		return c.HandlePerception(ctx, ev.FreeSpace)
	case KindSighting:
		obs := make([]nav.MarkerObservation, 0, len(ev.Tags))
		for _, t := range ev.Tags {
			obs = append(obs, t.Observation())
		}
		return c.HandleSightings(ctx, obs)
	}
	return fmt.Errorf("unknown event kind %q", ev.Kind)
}
