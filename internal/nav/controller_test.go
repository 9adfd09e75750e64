package nav

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recordingEmitter struct {
	commands []Command
	phases   []Phase
	poses    []Pose
	arrived  []Target
}

func (r *recordingEmitter) EmitCommand(_ context.Context, cmd Command, st State) {
	r.commands = append(r.commands, cmd)
	r.phases = append(r.phases, st.Phase())
}

func (r *recordingEmitter) EmitPose(_ context.Context, p Pose, _ int) {
	r.poses = append(r.poses, p)
}

func (r *recordingEmitter) EmitArrived(_ context.Context, t Target, _ Pose) {
	r.arrived = append(r.arrived, t)
}

type markerTable map[int]Point

func (m markerTable) Lookup(id int) (Point, bool) {
	p, ok := m[id]
	return p, ok
}

func newTestController() (*Controller, *recordingEmitter) {
	em := &recordingEmitter{}
	c := NewController(Config{
		RobotRadius: 0.2,
		Targets: map[string]Target{
			"4": {ID: "4", X: 0, Y: 0},
			"9": {ID: "9", X: 0, Y: -1.15},
		},
		Markers: markerTable{0: {X: 0, Y: 0}},
	}, em)
	return c, em
}

// sighting from marker 0 puts the robot at (0,-1.2) facing +y.
var sighting = MarkerObservation{MarkerID: 0, Distance: 1, Yaw: 0}

func autonomous(t *testing.T) (*Controller, *recordingEmitter) {
	t.Helper()
	c, em := newTestController()
	ctx := context.Background()
	c.Start(ctx)
	if err := c.ChangeMode(ctx, Autonomous); err != nil {
		t.Fatalf("ChangeMode: %v", err)
	}
	if err := c.HandleMarkerSighting(ctx, sighting); err != nil {
		t.Fatalf("HandleMarkerSighting: %v", err)
	}
	return c, em
}

func TestControllerStartEmitsStopOnce(t *testing.T) {
	c, em := newTestController()
	c.Start(context.Background())
	c.Start(context.Background())
	if diff := cmp.Diff([]Command{CmdStop}, em.commands); diff != "" {
		t.Fatalf("commands (-want +got):\n%s", diff)
	}
	if c.Snapshot().Phase() != PhaseManual {
		t.Fatalf("expected manual phase")
	}
}

func TestControllerManualRelay(t *testing.T) {
	c, em := newTestController()
	ctx := context.Background()
	c.Start(ctx)

	if err := c.HandleManualCommand(ctx, CmdFront); err != nil {
		t.Fatalf("HandleManualCommand: %v", err)
	}
	fs := freeSpace(false, true, false, false, true)
	if err := c.HandlePerception(ctx, fs); err != nil {
		t.Fatalf("HandlePerception: %v", err)
	}
	if err := c.HandlePerception(ctx, fs); err != nil {
		t.Fatalf("HandlePerception: %v", err)
	}
	want := []Command{CmdStop, CmdFront, CmdFrontLeft}
	if diff := cmp.Diff(want, em.commands); diff != "" {
		t.Fatalf("commands (-want +got):\n%s", diff)
	}
	st := c.Snapshot()
	if !st.Session.InSession() || *st.Session.Active != FrontLeft {
		t.Fatalf("session = %+v", st.Session)
	}

	// A new operator command drops the detour.
	if err := c.HandleManualCommand(ctx, CmdSlowRight); err != nil {
		t.Fatalf("HandleManualCommand: %v", err)
	}
	if c.Snapshot().Session.InSession() {
		t.Fatalf("session should be cleared")
	}
	if got := em.commands[len(em.commands)-1]; got != CmdSlowRight {
		t.Fatalf("last command = %s", got)
	}
}

func TestControllerRejectsUnknownCommand(t *testing.T) {
	c, _ := newTestController()
	before := c.Snapshot()
	if err := c.HandleManualCommand(context.Background(), Command(9)); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if diff := cmp.Diff(before, c.Snapshot()); diff != "" {
		t.Fatalf("state changed:\n%s", diff)
	}
}

func TestControllerSeeksAndArrives(t *testing.T) {
	c, em := autonomous(t)
	ctx := context.Background()
	if len(em.poses) != 1 {
		t.Fatalf("poses = %v", em.poses)
	}

	if err := c.HandleTargetSelected(ctx, "4"); err != nil {
		t.Fatalf("HandleTargetSelected: %v", err)
	}
	if got := em.commands[len(em.commands)-1]; got != CmdFront {
		t.Fatalf("command = %s, want FRONT", got)
	}
	if c.Snapshot().Phase() != PhaseSeeking {
		t.Fatalf("phase = %s", c.Snapshot().Phase())
	}

	// Target 9 is 5cm ahead, inside the closeness threshold.
	if err := c.HandleTargetSelected(ctx, "9"); err != nil {
		t.Fatalf("HandleTargetSelected: %v", err)
	}
	st := c.Snapshot()
	if !st.Reached || st.Phase() != PhaseReached {
		t.Fatalf("expected reached, got %+v", st)
	}
	if got := em.commands[len(em.commands)-1]; got != CmdStop {
		t.Fatalf("command = %s, want STOP", got)
	}
	if len(em.arrived) != 1 || em.arrived[0].ID != "9" {
		t.Fatalf("arrived = %v", em.arrived)
	}

	// Re-selecting a reached target does nothing.
	n := len(em.commands)
	if err := c.HandleTargetSelected(ctx, "9"); err != nil {
		t.Fatalf("HandleTargetSelected: %v", err)
	}
	if len(em.commands) != n || len(em.arrived) != 1 {
		t.Fatalf("reached target re-emitted")
	}

	// A mode toggle forgets the arrival.
	_ = c.ChangeMode(ctx, Manual)
	_ = c.ChangeMode(ctx, Autonomous)
	if c.Snapshot().Reached {
		t.Fatalf("mode switch should clear reached")
	}
}

func TestControllerTargetIgnoredInManual(t *testing.T) {
	c, em := newTestController()
	ctx := context.Background()
	c.Start(ctx)
	if err := c.HandleTargetSelected(ctx, "4"); err != nil {
		t.Fatalf("HandleTargetSelected: %v", err)
	}
	if len(em.commands) != 1 || c.Snapshot().TargetID != "" {
		t.Fatalf("manual mode should ignore targets: %v", em.commands)
	}
}

func TestControllerUnknownTarget(t *testing.T) {
	c, em := autonomous(t)
	before := c.Snapshot()
	n := len(em.commands)
	if err := c.HandleTargetSelected(context.Background(), "42"); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
	if len(em.commands) != n {
		t.Fatalf("unexpected emission")
	}
	if diff := cmp.Diff(before, c.Snapshot()); diff != "" {
		t.Fatalf("state changed:\n%s", diff)
	}
}

func TestControllerStopTarget(t *testing.T) {
	c, em := autonomous(t)
	ctx := context.Background()
	_ = c.HandleTargetSelected(ctx, "4")
	if err := c.HandleTargetSelected(ctx, StopTarget); err != nil {
		t.Fatalf("HandleTargetSelected: %v", err)
	}
	st := c.Snapshot()
	if st.Desired != CmdStop || st.TargetID != "" {
		t.Fatalf("state = %+v", st)
	}
	if got := em.commands[len(em.commands)-1]; got != CmdStop {
		t.Fatalf("command = %s, want STOP", got)
	}
}

func TestControllerMarkerLost(t *testing.T) {
	cases := []struct {
		name    string
		desired Command
		want    Command
	}{
		{"after right", CmdFrontRight, CmdSlowRight},
		{"after left", CmdFrontLeft, CmdSlowLeft},
		{"after front", CmdFront, CmdSlowLeft},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, em := autonomous(t)
			ctx := context.Background()
			c.mu.Lock()
			c.st.Desired = tc.desired
			c.mu.Unlock()

			if err := c.HandleMarkerSighting(ctx, MarkerObservation{MarkerID: NoMarker}); err != nil {
				t.Fatalf("HandleMarkerSighting: %v", err)
			}
			if got := em.commands[len(em.commands)-1]; got != tc.want {
				t.Fatalf("command = %s, want %s", got, tc.want)
			}
			if c.Snapshot().Phase() != PhaseSearching {
				t.Fatalf("phase = %s", c.Snapshot().Phase())
			}

			// Found again: stop the rotation once.
			if err := c.HandleMarkerSighting(ctx, sighting); err != nil {
				t.Fatalf("HandleMarkerSighting: %v", err)
			}
			if got := em.commands[len(em.commands)-1]; got != CmdStop {
				t.Fatalf("command = %s, want STOP", got)
			}
			if c.Snapshot().NoMarker {
				t.Fatalf("no-marker flag should clear")
			}
		})
	}
}

func TestControllerSessionDrivesSearchRotation(t *testing.T) {
	c, em := autonomous(t)
	ctx := context.Background()
	_ = c.HandleTargetSelected(ctx, "4") // FRONT
	_ = c.HandlePerception(ctx, freeSpace(false, false, false, true, false))
	if got := em.commands[len(em.commands)-1]; got != CmdFrontRight {
		t.Fatalf("command = %s, want FRONTRIGHT", got)
	}
	_ = c.HandleMarkerSighting(ctx, MarkerObservation{MarkerID: NoMarker})
	if got := em.commands[len(em.commands)-1]; got != CmdSlowRight {
		t.Fatalf("command = %s, want SLOW_RIGHT", got)
	}
}

func TestControllerDefersWhileSearching(t *testing.T) {
	c, em := autonomous(t)
	ctx := context.Background()
	_ = c.HandleMarkerSighting(ctx, MarkerObservation{MarkerID: NoMarker})
	n := len(em.commands)

	if err := c.HandleTargetSelected(ctx, "4"); err != nil {
		t.Fatalf("HandleTargetSelected: %v", err)
	}
	if err := c.HandlePerception(ctx, freeSpace(true, true, true, true, true)); err != nil {
		t.Fatalf("HandlePerception: %v", err)
	}
	if len(em.commands) != n {
		t.Fatalf("searching controller emitted %v", em.commands[n:])
	}
	if c.Snapshot().FreeSpace == nil {
		t.Fatalf("free space should still be stored")
	}
}

func TestControllerReachedMarkerLostStops(t *testing.T) {
	c, em := autonomous(t)
	ctx := context.Background()
	_ = c.HandleTargetSelected(ctx, "4")
	_ = c.HandleTargetSelected(ctx, "9")
	_ = c.HandleMarkerSighting(ctx, MarkerObservation{MarkerID: NoMarker})
	if got := em.commands[len(em.commands)-1]; got != CmdStop {
		t.Fatalf("command = %s, want STOP", got)
	}
}

func TestControllerRejectsBadSighting(t *testing.T) {
	c, _ := autonomous(t)
	ctx := context.Background()
	before := c.Snapshot()
	if err := c.HandleMarkerSighting(ctx, MarkerObservation{MarkerID: 17, Distance: 1}); !errors.Is(err, ErrUnknownMarker) {
		t.Fatalf("expected ErrUnknownMarker, got %v", err)
	}
	if err := c.HandlePerception(ctx, FreeSpace{Front: true}); !errors.Is(err, ErrIncompleteFreeSpace) {
		t.Fatalf("expected ErrIncompleteFreeSpace, got %v", err)
	}
	if diff := cmp.Diff(before, c.Snapshot()); diff != "" {
		t.Fatalf("state changed:\n%s", diff)
	}
}

func TestControllerManualSightingClearsSearch(t *testing.T) {
	c, em := autonomous(t)
	ctx := context.Background()
	_ = c.HandleMarkerSighting(ctx, MarkerObservation{MarkerID: NoMarker})
	_ = c.ChangeMode(ctx, Manual)
	n := len(em.poses)
	_ = c.HandleMarkerSighting(ctx, sighting)
	if c.Snapshot().NoMarker {
		t.Fatalf("manual sighting should clear the flag")
	}
	if len(em.poses) != n {
		t.Fatalf("manual mode should not estimate pose")
	}
}
