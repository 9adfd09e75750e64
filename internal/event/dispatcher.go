package event

import (
	"context"
	"sync"
	"time"

	"robotnav/internal/logging"
	"robotnav/internal/nav"
)

// Recorder persists every event the dispatcher applied.
type Recorder interface {
	Record(Event) error
}

// Pilot reacts to an applied event with follow-up events. The dispatcher
// queues them behind the current event.
type Pilot interface {
	After(ctx context.Context, ev Event, st nav.State) []Event
}

// Dispatcher applies events to the controller strictly one at a time.
type Dispatcher struct {
	ctrl *nav.Controller
	in   chan Event
	now  func() time.Time

	mu       sync.Mutex
	recorder Recorder
	pilot    Pilot
	applied  int
	rejected int
}

// NewDispatcher creates a dispatcher with an inbound buffer of size buf.
func NewDispatcher(ctrl *nav.Controller, buf int) *Dispatcher {
	return &Dispatcher{ctrl: ctrl, in: make(chan Event, buf), now: time.Now}
}

// SetRecorder installs r; nil disables recording.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.mu.Lock()
	d.recorder = r
	d.mu.Unlock()
}

// SetPilot installs p; nil disables follow-up events.
func (d *Dispatcher) SetPilot(p Pilot) {
	d.mu.Lock()
	d.pilot = p
	d.mu.Unlock()
}

// Controller returns the controller events are applied to.
func (d *Dispatcher) Controller() *nav.Controller { return d.ctrl }

// Submit queues ev for Run. It blocks while the buffer is full.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = d.now().UTC()
	}
	select {
	case d.in <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies submitted events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.in:
			d.Handle(ctx, ev)
		}
	}
}

// Handle applies ev and any follow-ups synchronously. Rejected events are
// logged and dropped.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	log := logging.FromContext(ctx)

	queue := []Event{ev}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if e.Timestamp.IsZero() {
			e.Timestamp = d.now().UTC()
		}
		if err := Apply(ctx, d.ctrl, e); err != nil {
			d.rejected++
			log.Warn("event rejected", "kind", e.Kind, "source", e.Source, "err", err)
			continue
		}
		d.applied++
		if d.recorder != nil {
			if err := d.recorder.Record(e); err != nil {
				log.Error("record event", "err", err)
			}
		}
		if d.pilot != nil {
			queue = append(queue, d.pilot.After(ctx, e, d.ctrl.Snapshot())...)
		}
	}
}

// Stats returns how many events were applied and rejected.
func (d *Dispatcher) Stats() (applied, rejected int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applied, d.rejected
}
