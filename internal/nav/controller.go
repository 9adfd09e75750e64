package nav

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"robotnav/internal/logging"
)

// StopTarget is the target id that cancels autonomous seeking.
const StopTarget = "-1"

// Phase is the controller state derived from mode and seek flags.
type Phase string

const (
	PhaseManual    Phase = "MANUAL"
	PhaseSeeking   Phase = "AUTONOMOUS_SEEKING"
	PhaseReached   Phase = "AUTONOMOUS_REACHED"
	PhaseSearching Phase = "AUTONOMOUS_SEARCHING"
)

// MarkerLocator resolves a marker id to its fixed world position.
type MarkerLocator interface {
	Lookup(id int) (Point, bool)
}

// Emitter receives everything the controller sends out. It is called with
// the controller lock held, so implementations must not call back into the
// controller; st is a copy of the state at emission time.
type Emitter interface {
	EmitCommand(ctx context.Context, cmd Command, st State)
	EmitPose(ctx context.Context, pose Pose, markerID int)
	EmitArrived(ctx context.Context, target Target, pose Pose)
}

// Config is fixed for the lifetime of a controller.
type Config struct {
	RobotRadius        float64
	ClosenessThreshold float64
	Targets            map[string]Target
	Markers            MarkerLocator
}

// State is everything the controller knows. It is only mutated by the
// controller's handlers.
type State struct {
	Mode        Mode      `json:"mode"`
	Pose        Pose      `json:"pose"`
	HasPose     bool      `json:"has_pose"`
	FreeSpace   FreeSpace `json:"-"`
	Session     Session   `json:"session"`
	Desired     Command   `json:"desired"`
	LastCommand Command   `json:"last_command"`
	Emitted     bool      `json:"emitted"`
	NoMarker    bool      `json:"no_marker"`
	Reached     bool      `json:"reached"`
	TargetID    string    `json:"target_id,omitempty"`
}

// Phase derives the state machine position from the flags.
func (s State) Phase() Phase {
	switch {
	case s.Mode == Manual:
		return PhaseManual
	case s.Reached:
		return PhaseReached
	case s.NoMarker:
		return PhaseSearching
	default:
		return PhaseSeeking
	}
}

// Controller ties steering, avoidance and command emission together. Each
// handler runs to completion under the controller lock, so events are
// applied strictly one after another.
type Controller struct {
	mu   sync.Mutex
	cfg  Config
	emit Emitter
	st   State
}

// NewController creates a controller in manual mode with STOP as the
// current command.
func NewController(cfg Config, emit Emitter) *Controller {
	if cfg.ClosenessThreshold <= 0 {
		cfg.ClosenessThreshold = cfg.RobotRadius / 2
	}
	return &Controller{
		cfg:  cfg,
		emit: emit,
		st: State{
			Mode:        Manual,
			Desired:     CmdStop,
			LastCommand: CmdStop,
		},
	}
}

// Start sends the initial STOP so the actuator begins from a known state.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitCommand(ctx, CmdStop)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.st
	st.FreeSpace = c.st.FreeSpace.clone()
	return st
}

// Target looks up a configured target.
func (c *Controller) Target(id string) (Target, bool) {
	t, ok := c.cfg.Targets[id]
	return t, ok
}

// TargetIDs lists the configured target ids in order.
func (c *Controller) TargetIDs() []string {
	ids := make([]string, 0, len(c.cfg.Targets))
	for id := range c.cfg.Targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ChangeMode switches between manual relay and autonomous seeking. Any
// real switch forgets that the current target was reached; the free-space
// map is kept.
func (c *Controller) ChangeMode(ctx context.Context, m Mode) error {
	if m != Manual && m != Autonomous {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	log := logging.FromContext(ctx)
	if c.st.Mode == m {
		log.Debug("mode unchanged", "mode", m)
		return nil
	}
	c.st.Mode = m
	c.st.Reached = false
	log.Info("mode changed", "mode", m)
	return nil
}

// HandleManualCommand relays an operator command through obstacle
// avoidance. Any detour in progress is abandoned.
func (c *Controller) HandleManualCommand(ctx context.Context, cmd Command) error {
	if _, err := CommandFromCode(int(cmd)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.Desired = cmd
	out, session := Decide(cmd, c.st.FreeSpace, c.st.Mode, Session{})
	c.st.Session = session
	c.emitCommand(ctx, out)
	return nil
}

// HandleTargetSelected steers towards the named target, or stops when id is
// StopTarget. Selecting the target again is how seeking advances; once it
// has been reached further selections of it are ignored.
func (c *Controller) HandleTargetSelected(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	log := logging.FromContext(ctx)

	if id == StopTarget {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.st.Desired = CmdStop
		c.st.Session = Session{}
		c.st.TargetID = ""
		c.emitCommand(ctx, CmdStop)
		return nil
	}

	target, ok := c.cfg.Targets[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st.Mode != Autonomous {
		log.Info("target ignored in manual mode", "target", id)
		return nil
	}
	if id != c.st.TargetID {
		c.st.TargetID = id
		c.st.Reached = false
		c.st.Session = Session{}
	}
	if c.st.Reached {
		log.Debug("target already reached", "target", id)
		return nil
	}
	if c.st.NoMarker || !c.st.HasPose {
		log.Info("no marker in view, waiting", "target", id)
		return nil
	}

	if Reached(c.st.Pose, target, c.cfg.ClosenessThreshold) {
		c.st.Desired = CmdStop
		c.st.Session = Session{}
		c.emitCommand(ctx, CmdStop)
		c.st.Reached = true
		log.Info("target reached", "target", id, "x", c.st.Pose.X, "y", c.st.Pose.Y)
		if c.emit != nil {
			c.emit.EmitArrived(ctx, target, c.st.Pose)
		}
		return nil
	}

	c.st.Desired = Steer(c.st.Pose, target).Command()
	out, session := Decide(c.st.Desired, c.st.FreeSpace, c.st.Mode, c.st.Session)
	c.st.Session = session
	c.emitCommand(ctx, out)
	return nil
}

// HandlePerception replaces the free-space map and re-checks the current
// command against it. While searching for a marker or parked at a target
// the map is only stored.
func (c *Controller) HandlePerception(ctx context.Context, fs FreeSpace) error {
	for _, d := range Directions {
		if _, ok := fs[d]; !ok {
			return fmt.Errorf("%w: missing %s", ErrIncompleteFreeSpace, d)
		}
	}
	if len(fs) != len(Directions) {
		return fmt.Errorf("%w: %d sectors", ErrIncompleteFreeSpace, len(fs))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.FreeSpace = fs.clone()

	if c.st.Desired == CmdStop {
		return nil
	}
	if c.st.Mode == Autonomous && (c.st.NoMarker || c.st.Reached) {
		return nil
	}
	out, session := Decide(c.st.Desired, c.st.FreeSpace, c.st.Mode, c.st.Session)
	c.st.Session = session
	c.emitCommand(ctx, out)
	return nil
}

// HandleSightings applies a detector frame. The lowest visible marker id
// wins; a frame without visible markers counts as "no marker".
func (c *Controller) HandleSightings(ctx context.Context, obs []MarkerObservation) error {
	o, ok := SelectMarker(obs)
	if !ok {
		o = MarkerObservation{MarkerID: NoMarker}
	}
	return c.HandleMarkerSighting(ctx, o)
}

// HandleMarkerSighting updates the pose from a marker in autonomous mode.
// Losing the marker starts a slow rotation towards the side the robot was
// heading; finding one again stops the rotation before seeking resumes.
func (c *Controller) HandleMarkerSighting(ctx context.Context, obs MarkerObservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st.Mode == Manual {
		c.st.NoMarker = false
		return nil
	}

	if !obs.Visible() {
		switch {
		case c.st.Reached:
			c.emitCommand(ctx, CmdStop)
		default:
			c.emitCommand(ctx, searchRotation(c.st.Desired, c.st.Session))
		}
		c.st.NoMarker = true
		return nil
	}

	point, ok := c.cfg.Markers.Lookup(obs.MarkerID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMarker, obs.MarkerID)
	}
	pose, err := EstimatePose(obs, point, c.cfg.RobotRadius)
	if err != nil {
		return err
	}

	if c.st.NoMarker {
		c.emitCommand(ctx, CmdStop)
		c.st.NoMarker = false
	}
	c.st.Pose = pose
	c.st.HasPose = true
	if c.emit != nil {
		c.emit.EmitPose(ctx, pose, obs.MarkerID)
	}
	return nil
}

// searchRotation turns slowly towards the side of the last drive direction.
func searchRotation(desired Command, session Session) Command {
	last := desired
	if session.InSession() {
		last = session.Active.Command()
	}
	if last == CmdRight || last == CmdFrontRight {
		return CmdSlowRight
	}
	return CmdSlowLeft
}

// emitCommand forwards cmd unless it repeats the previous emission.
func (c *Controller) emitCommand(ctx context.Context, cmd Command) {
	log := logging.FromContext(ctx)
	if c.st.Emitted && c.st.LastCommand == cmd {
		return
	}
	c.st.LastCommand = cmd
	c.st.Emitted = true
	log.Debug("command", "command", cmd, "phase", c.st.Phase())
	if c.emit != nil {
		st := c.st
		st.FreeSpace = c.st.FreeSpace.clone()
		c.emit.EmitCommand(ctx, cmd, st)
	}
}
