package mission

import (
	"context"
	"sync"
	"time"

	"robotnav/internal/event"
	"robotnav/internal/logging"
	"robotnav/internal/nav"
	"robotnav/internal/telemetry"
)

// Source tags events generated by the runner.
const Source = "mission"

// Runner steers the controller through a mission. It plays the role of the
// operator console: after every detector frame it re-selects the current
// leg's target, and arrivals advance it to the next leg.
type Runner struct {
	mu       sync.Mutex
	mission  *Mission
	leg      string
	done     bool
	started  time.Time
	arrivals int
	lost     int
	now      func() time.Time
}

// NewRunner starts m at its first leg. A nil clock uses time.Now.
func NewRunner(m *Mission, now func() time.Time) *Runner {
	if now == nil {
		now = time.Now
	}
	r := &Runner{mission: m, now: now}
	if len(m.Legs) > 0 {
		r.leg = m.Legs[0].Name
		r.started = now()
	} else {
		r.done = true
	}
	return r
}

// Current returns the active leg. ok is false once the mission is done.
func (r *Runner) Current() (Leg, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return Leg{}, false
	}
	l, _, ok := r.mission.Leg(r.leg)
	return l, ok
}

// Done reports whether the mission has completed.
func (r *Runner) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// After implements event.Pilot.
func (r *Runner) After(ctx context.Context, ev event.Event, st nav.State) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done || st.Mode != nav.Autonomous {
		return nil
	}

	switch ev.Kind {
	case event.KindMode:
	case event.KindSighting:
		if visible(ev.Tags) {
			r.lost = 0
		} else {
			r.lost++
			r.fire(ctx, Event{Type: EventMarkerLost, Value: r.lost})
		}
		elapsed := int(r.now().Sub(r.started) / time.Second)
		r.fire(ctx, Event{Type: EventTimeElapsed, Value: elapsed})
	default:
		return nil
	}
	if r.done {
		return nil
	}
	leg, _, _ := r.mission.Leg(r.leg)
	if st.Reached && st.TargetID == leg.Target {
		return nil
	}
	ev = event.Target(leg.Target)
	ev.Source = Source
	return []event.Event{ev}
}

// WriteArrival advances the mission when the current leg's target is
// reached.
func (r *Runner) WriteArrival(row telemetry.ArrivalRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}
	leg, _, _ := r.mission.Leg(r.leg)
	if row.TargetID != leg.Target {
		return nil
	}
	r.arrivals++
	r.fire(context.Background(), Event{Type: EventArrived, Value: r.arrivals})
	return nil
}

// fire applies ev to the current leg. Callers hold r.mu.
func (r *Runner) fire(ctx context.Context, ev Event) {
	next, ok := r.mission.NextLeg(r.leg, ev)
	if !ok {
		return
	}
	log := logging.FromContext(ctx)
	if next == "" {
		r.done = true
		log.Info("mission complete", "mission", r.mission.Name, "last_leg", r.leg)
		return
	}
	log.Info("mission leg", "mission", r.mission.Name, "from", r.leg, "to", next, "event", ev.Type)
	r.leg = next
	r.started = r.now()
	r.arrivals = 0
	r.lost = 0
}

func visible(tags []event.Tag) bool {
	for _, t := range tags {
		if t.ID != nav.NoMarker {
			return true
		}
	}
	return false
}
