package sink

import (
	"context"

	"robotnav/internal/logging"
	"robotnav/internal/nav"
	"robotnav/internal/telemetry"
)

// RowEmitter turns controller output into telemetry rows and hands them to
// a Writer. Write errors are logged, never returned to the controller.
type RowEmitter struct {
	gen *telemetry.Generator
	w   Writer
}

// NewRowEmitter creates a nav.Emitter backed by w.
func NewRowEmitter(gen *telemetry.Generator, w Writer) *RowEmitter {
	return &RowEmitter{gen: gen, w: w}
}

// EmitCommand implements nav.Emitter.
func (e *RowEmitter) EmitCommand(ctx context.Context, cmd nav.Command, st nav.State) {
	if err := e.w.WriteCommand(e.gen.Command(cmd, st)); err != nil {
		logging.FromContext(ctx).Error("write command row", "err", err)
	}
}

// EmitPose implements nav.Emitter.
func (e *RowEmitter) EmitPose(ctx context.Context, pose nav.Pose, markerID int) {
	if err := e.w.WritePose(e.gen.Pose(pose, markerID)); err != nil {
		logging.FromContext(ctx).Error("write pose row", "err", err)
	}
}

// EmitArrived implements nav.Emitter.
func (e *RowEmitter) EmitArrived(ctx context.Context, target nav.Target, pose nav.Pose) {
	if err := e.w.WriteArrival(e.gen.Arrival(target, pose)); err != nil {
		logging.FromContext(ctx).Error("write arrival row", "err", err)
	}
}

// Tee forwards controller output to several emitters in order.
type Tee []nav.Emitter

// EmitCommand implements nav.Emitter.
func (t Tee) EmitCommand(ctx context.Context, cmd nav.Command, st nav.State) {
	for _, e := range t {
		e.EmitCommand(ctx, cmd, st)
	}
}

// EmitPose implements nav.Emitter.
func (t Tee) EmitPose(ctx context.Context, pose nav.Pose, markerID int) {
	for _, e := range t {
		e.EmitPose(ctx, pose, markerID)
	}
}

// EmitArrived implements nav.Emitter.
func (t Tee) EmitArrived(ctx context.Context, target nav.Target, pose nav.Pose) {
	for _, e := range t {
		e.EmitArrived(ctx, target, pose)
	}
}
