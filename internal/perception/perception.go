// Package perception turns ultrasonic range readings into free-space maps.
package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"robotnav/internal/logging"
	"robotnav/internal/nav"
)

// Thresholds are distances in metres below which sectors are blocked.
type Thresholds struct {
	Long   float64
	Medium float64
	Short  float64
}

// DefaultThresholds match the reference robot.
var DefaultThresholds = Thresholds{Long: 0.4, Medium: 0.25, Short: 0.1}

// Readings holds the closest range seen in each sector, in metres.
type Readings map[nav.Direction]float64

// ParseReadings decodes the sensor payload {"LEFT":0.8,"FRONTLEFT":...}.
func ParseReadings(payload []byte) (Readings, error) {
	var raw map[string]float64
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}
	r := make(Readings, len(raw))
	for k, v := range raw {
		d, err := nav.ParseDirection(k)
		if err != nil {
			return nil, err
		}
		r[d] = v
	}
	for _, d := range nav.Directions {
		if _, ok := r[d]; !ok {
			return nil, fmt.Errorf("%w: missing %s", nav.ErrIncompleteFreeSpace, d)
		}
	}
	return r, nil
}

func isFront(d nav.Direction) bool {
	return d == nav.FrontLeft || d == nav.Front || d == nav.FrontRight
}

// FreeSpace applies the three threshold rules. A front sensor under Long
// blocks its own sector; under Medium it also blocks the neighbouring front
// sectors. Any sensor under Short blocks all three front sectors, and a
// sensor on either side also blocks the lateral sector on that side.
func (t Thresholds) FreeSpace(r Readings) nav.FreeSpace {
	fs := make(nav.FreeSpace, len(nav.Directions))
	for _, d := range nav.Directions {
		fs[d] = true
	}

	for _, d := range nav.Directions {
		if isFront(d) && r[d] < t.Long {
			fs[d] = false
		}
	}
	for _, d := range nav.Directions {
		if !isFront(d) || r[d] >= t.Medium {
			continue
		}
		fs[d] = false
		if n := d - 1; isFront(n) {
			fs[n] = false
		}
		if n := d + 1; isFront(n) {
			fs[n] = false
		}
	}
	for _, d := range nav.Directions {
		if r[d] >= t.Short {
			continue
		}
		fs[nav.FrontLeft], fs[nav.Front], fs[nav.FrontRight] = false, false, false
		switch d {
		case nav.Left, nav.FrontLeft:
			fs[nav.Left] = false
		case nav.Right, nav.FrontRight:
			fs[nav.Right] = false
		}
	}
	return fs
}

// Sink receives free-space maps from a Publisher.
type Sink func(ctx context.Context, fs nav.FreeSpace) error

// Publisher forwards free-space maps only when they differ from the last
// one sent. The initial reference is an all-clear map.
type Publisher struct {
	mu         sync.Mutex
	thresholds Thresholds
	sink       Sink
	last       nav.FreeSpace
}

// NewPublisher creates a publisher writing to sink.
func NewPublisher(t Thresholds, sink Sink) *Publisher {
	last := make(nav.FreeSpace, len(nav.Directions))
	for _, d := range nav.Directions {
		last[d] = true
	}
	return &Publisher{thresholds: t, sink: sink, last: last}
}

// Update thresholds r and publishes the result if it changed. It reports
// whether anything was sent.
func (p *Publisher) Update(ctx context.Context, r Readings) (bool, error) {
	fs := p.thresholds.FreeSpace(r)
	p.mu.Lock()
	defer p.mu.Unlock()
	if equal(fs, p.last) {
		return false, nil
	}
	if err := p.sink(ctx, fs); err != nil {
		return false, err
	}
	p.last = fs
	logging.FromContext(ctx).Debug("free space changed",
		"left", fs[nav.Left], "front_left", fs[nav.FrontLeft], "front", fs[nav.Front],
		"front_right", fs[nav.FrontRight], "right", fs[nav.Right])
	return true, nil
}

func equal(a, b nav.FreeSpace) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Encode renders fs in the wire format consumed by the navigator.
func Encode(fs nav.FreeSpace) ([]byte, error) {
	raw := make(map[string]bool, len(fs))
	for d, v := range fs {
		raw[d.String()] = v
	}
	return json.Marshal(raw)
}
