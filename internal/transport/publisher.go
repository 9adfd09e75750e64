package transport

import (
	"context"
	"encoding/json"
	"strconv"

	"robotnav/internal/logging"
	"robotnav/internal/nav"
	"robotnav/internal/perception"
)

// ArrivedPayload is sent on the arrived topic when a target is reached.
const ArrivedPayload = "reached"

// positionMessage is the wire format of the position topic.
type positionMessage struct {
	Position    [2]float64 `json:"position"`
	Orientation float64    `json:"orientation"`
}

func (b *Bridge) publish(ctx context.Context, topic string, payload []byte) {
	if err := b.wait(b.client.Publish(topic, b.qos, false, payload)); err != nil {
		logging.FromContext(ctx).Error("mqtt publish", "topic", topic, "err", err)
	}
}

func (b *Bridge) publishPerception(ctx context.Context, fs nav.FreeSpace) error {
	data, err := perception.Encode(fs)
	if err != nil {
		return err
	}
	return b.wait(b.client.Publish(b.topics.Perceptions, b.qos, false, data))
}

// EmitCommand publishes the command code on the actions topic.
func (b *Bridge) EmitCommand(ctx context.Context, cmd nav.Command, _ nav.State) {
	b.publish(ctx, b.topics.Actions, []byte(strconv.Itoa(cmd.Code())))
}

// EmitPose publishes the pose estimate on the position topic.
func (b *Bridge) EmitPose(ctx context.Context, pose nav.Pose, _ int) {
	data, err := json.Marshal(positionMessage{
		Position:    [2]float64{pose.X, pose.Y},
		Orientation: pose.HeadingDeg,
	})
	if err != nil {
		logging.FromContext(ctx).Error("encode position", "err", err)
		return
	}
	b.publish(ctx, b.topics.Position, data)
}

// EmitArrived notifies the operator console that the target was reached.
func (b *Bridge) EmitArrived(ctx context.Context, _ nav.Target, _ nav.Pose) {
	b.publish(ctx, b.topics.Arrived, []byte(ArrivedPayload))
}
