// Package sim closes the loop around the navigator: it drives a simulated
// robot with the emitted commands and feeds synthetic sonar and tag
// detections back through the dispatcher.
package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"robotnav/internal/config"
	"robotnav/internal/event"
	"robotnav/internal/marker"
	"robotnav/internal/mission"
	"robotnav/internal/nav"
	"robotnav/internal/perception"
	"robotnav/internal/sink"
)

// Source tags events generated by the simulator.
const Source = "sim"

// sonarOffsets are the sensor mounting angles relative to the heading.
var sonarOffsets = map[nav.Direction]float64{
	nav.Left:       90,
	nav.FrontLeft:  45,
	nav.Front:      0,
	nav.FrontRight: -45,
	nav.Right:      -90,
}

// Simulator owns the true robot pose. It also acts as the actuator: it is
// a nav.Emitter whose commands drive the body on the next tick.
type Simulator struct {
	runID        string
	disp         *event.Dispatcher
	writer       sink.StateWriter
	runner       *mission.Runner
	arena        Arena
	camera       Camera
	markers      []marker.Marker
	robotRadius  float64
	sonarRange   float64
	tickInterval time.Duration
	speedFactor  float64
	sonar        *perception.Publisher
	rand         *rand.Rand
	now          func() time.Time

	mu       sync.Mutex
	body     Body
	command  nav.Command
	ticks    int
	collided int
}

// NewSimulator places the robot at the configured start pose. The
// simulator must be installed as (part of) the controller's emitter and
// then bound to the controller's dispatcher.
func NewSimulator(runID string, cfg *config.NavigatorConfig, grid *marker.Grid, w sink.StateWriter) *Simulator {
	sc := cfg.Simulation
	s := &Simulator{
		runID:  runID,
		writer: w,
		arena:  NewArena(grid, sc.WallMargin, sc.Obstacles),
		camera: Camera{
			FOVDeg:        sc.CameraFOVDeg,
			RangeM:        sc.CameraRangeM,
			DistanceNoise: sc.DistanceNoise,
			AngleNoiseDeg: sc.AngleNoiseDeg,
		},
		markers:      grid.Markers(),
		robotRadius:  cfg.Robot.Radius,
		sonarRange:   sc.SonarRangeM,
		tickInterval: sc.TickInterval,
		speedFactor:  sc.SpeedFactor,
		rand:         rand.New(rand.NewSource(sc.Seed)),
		now:          time.Now,
		body:         Body{X: sc.Start.X, Y: sc.Start.Y, Heading: sc.Start.Heading},
		command:      nav.CmdStop,
	}
	thresholds := perception.Thresholds{
		Long:   cfg.Perception.LongDistance,
		Medium: cfg.Perception.MediumDistance,
		Short:  cfg.Perception.ShortDistance,
	}
	s.sonar = perception.NewPublisher(thresholds, s.publishFreeSpace)
	if s.tickInterval <= 0 {
		s.tickInterval = defaultTickInterval
	}
	if s.speedFactor <= 0 {
		s.speedFactor = 1
	}
	return s
}

// Bind sets the dispatcher that sensor events are fed through.
func (s *Simulator) Bind(d *event.Dispatcher) { s.disp = d }

// SetRunner attaches the mission runner so state rows carry the leg and
// Run stops once the mission completes.
func (s *Simulator) SetRunner(r *mission.Runner) { s.runner = r }

// Body returns the true pose.
func (s *Simulator) Body() Body {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body
}

// Collisions counts ticks on which the robot was blocked by a wall or an
// obstacle.
func (s *Simulator) Collisions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collided
}

// EmitCommand implements nav.Emitter: the command drives the next ticks.
func (s *Simulator) EmitCommand(_ context.Context, cmd nav.Command, _ nav.State) {
	s.mu.Lock()
	s.command = cmd
	s.mu.Unlock()
}

// EmitPose implements nav.Emitter.
func (s *Simulator) EmitPose(context.Context, nav.Pose, int) {}

// EmitArrived implements nav.Emitter.
func (s *Simulator) EmitArrived(context.Context, nav.Target, nav.Pose) {}

func (s *Simulator) publishFreeSpace(ctx context.Context, fs nav.FreeSpace) error {
	ev := event.Perception(fs)
	ev.Source = Source
	s.disp.Handle(ctx, ev)
	return nil
}
