package sim

import (
	"context"
	"math"
	"time"

	"robotnav/internal/event"
	"robotnav/internal/logging"
	"robotnav/internal/nav"
	"robotnav/internal/perception"
	"robotnav/internal/telemetry"
)

const defaultTickInterval = 100 * time.Millisecond

// Start switches the controller to autonomous mode so the mission runner
// begins issuing targets.
func (s *Simulator) Start(ctx context.Context) {
	ev := event.Mode(nav.Autonomous)
	ev.Source = Source
	s.disp.Handle(ctx, ev)
}

// Run ticks until ctx is done or the mission completes.
func (s *Simulator) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "tick_interval", s.tickInterval, "speed_factor", s.speedFactor)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			row := s.Tick(ctx)
			if s.runner != nil && s.runner.Done() {
				log.Info("mission complete, stopping simulator", "ticks", row.Tick, "collisions", s.Collisions())
				return nil
			}
		case <-ctx.Done():
			log.Info("stopping simulator")
			return ctx.Err()
		}
	}
}

// Tick advances the world by one step: move, sense, then let the
// controller react. It returns the state row it wrote.
func (s *Simulator) Tick(ctx context.Context) telemetry.StateRow {
	log := logging.FromContext(ctx)

	s.mu.Lock()
	dt := s.tickInterval.Seconds() * s.speedFactor
	next := s.body.Step(s.command, dt)
	collided := s.arena.Collides(next.X, next.Y, s.robotRadius)
	if collided {
		// blocked: the wheels spin but only the heading changes
		next.X, next.Y = s.body.X, s.body.Y
		s.collided++
	}
	s.body = next
	s.ticks++
	tick := s.ticks
	readings := s.sonarReadings()
	sightings := s.camera.Observe(s.body, s.robotRadius, s.markers, s.rand)
	body := s.body
	s.mu.Unlock()

	if _, err := s.sonar.Update(ctx, readings); err != nil {
		log.Error("sonar update", "err", err)
	}
	ev := event.Sighting(sightings...)
	ev.Source = Source
	s.disp.Handle(ctx, ev)

	row := s.stateRow(tick, body, sightings, collided)
	if s.writer != nil {
		if err := s.writer.WriteState(row); err != nil {
			log.Error("write state row", "err", err)
		}
	}
	return row
}

// sonarReadings measures the free range in front of each sensor. Callers
// hold s.mu.
func (s *Simulator) sonarReadings() perception.Readings {
	r := make(perception.Readings, len(sonarOffsets))
	for d, off := range sonarOffsets {
		dist := s.arena.Cast(s.body.X, s.body.Y, s.body.Heading+off) - s.robotRadius
		r[d] = math.Max(0, math.Min(dist, s.sonarRange))
	}
	return r
}

func (s *Simulator) stateRow(tick int, b Body, sightings []nav.MarkerObservation, collided bool) telemetry.StateRow {
	st := s.disp.Controller().Snapshot()
	markerID := nav.NoMarker
	if o, ok := nav.SelectMarker(sightings); ok {
		markerID = o.MarkerID
	}
	row := telemetry.StateRow{
		RunID:       s.runID,
		Tick:        tick,
		TrueX:       b.X,
		TrueY:       b.Y,
		TrueHeading: b.Heading,
		EstX:        st.Pose.X,
		EstY:        st.Pose.Y,
		EstHeading:  st.Pose.HeadingDeg,
		MarkerID:    markerID,
		Command:     st.LastCommand.String(),
		Mode:        st.Mode.String(),
		Phase:       string(st.Phase()),
		TargetID:    st.TargetID,
		FreeSpace:   telemetry.FreeSpaceString(st.FreeSpace),
		Collided:    collided,
		Timestamp:   s.now().UTC(),
	}
	if s.runner != nil {
		if leg, ok := s.runner.Current(); ok {
			row.Leg = leg.Name
		}
	}
	return row
}
