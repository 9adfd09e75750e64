package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"robotnav/internal/nav"
	"robotnav/internal/telemetry"
)

func TestRowEmitter(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	w := &memWriter{}
	e := NewRowEmitter(telemetry.NewGenerator("run", func() time.Time { return now }), w)
	ctx := context.Background()

	e.EmitCommand(ctx, nav.CmdFront, nav.State{Mode: nav.Autonomous, TargetID: "3"})
	e.EmitPose(ctx, nav.Pose{X: 0.1, Y: 0.2, HeadingDeg: 30}, 6)
	e.EmitArrived(ctx, nav.Target{ID: "3", X: 0.5}, nav.Pose{X: 0.45})

	if len(w.commands) != 1 || w.commands[0].Command != "FRONT" || w.commands[0].TargetID != "3" || w.commands[0].RunID != "run" {
		t.Fatalf("unexpected command rows %+v", w.commands)
	}
	if !w.commands[0].Timestamp.Equal(now) {
		t.Fatalf("timestamp %v", w.commands[0].Timestamp)
	}
	if len(w.poses) != 1 || w.poses[0].MarkerID != 6 {
		t.Fatalf("unexpected pose rows %+v", w.poses)
	}
	if len(w.arrivals) != 1 || w.arrivals[0].PoseX != 0.45 || w.arrivals[0].TargetX != 0.5 {
		t.Fatalf("unexpected arrival rows %+v", w.arrivals)
	}
}

func TestRowEmitterSwallowsErrors(t *testing.T) {
	w := &memWriter{err: errors.New("disk full")}
	e := NewRowEmitter(telemetry.NewGenerator("run", nil), w)
	e.EmitCommand(context.Background(), nav.CmdStop, nav.State{})
	if len(w.commands) != 1 {
		t.Fatalf("write should still be attempted")
	}
}

func TestTeeOrder(t *testing.T) {
	a, b := &memWriter{}, &memWriter{}
	gen := telemetry.NewGenerator("run", nil)
	tee := Tee{NewRowEmitter(gen, a), NewRowEmitter(gen, b)}
	tee.EmitCommand(context.Background(), nav.CmdLeft, nav.State{})
	tee.EmitPose(context.Background(), nav.Pose{}, 1)
	tee.EmitArrived(context.Background(), nav.Target{ID: "1"}, nav.Pose{})
	for i, w := range []*memWriter{a, b} {
		if len(w.commands) != 1 || len(w.poses) != 1 || len(w.arrivals) != 1 {
			t.Fatalf("emitter %d missed output", i)
		}
	}
}
