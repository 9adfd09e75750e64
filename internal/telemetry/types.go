// Telemetry rows with greptime tags
package telemetry

import (
	"os"
	"time"
)

// CommandRow records one drive command sent to the actuator.
type CommandRow struct {
	RunID     string    `json:"run_id"`  // TAG
	Command   string    `json:"command"` // TAG
	Code      int       `json:"code"`    // FIELD
	Mode      string    `json:"mode"`    // FIELD
	Phase     string    `json:"phase"`   // FIELD
	TargetID  string    `json:"target_id,omitempty"`
	Timestamp time.Time `json:"ts"` // TIME INDEX
}

// PoseRow records a pose estimated from a marker sighting.
type PoseRow struct {
	RunID      string    `json:"run_id"`    // TAG
	MarkerID   int       `json:"marker_id"` // TAG
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	HeadingDeg float64   `json:"heading_deg"`
	Timestamp  time.Time `json:"ts"`
}

// ArrivalRow records that a target was reached.
type ArrivalRow struct {
	RunID     string    `json:"run_id"`    // TAG
	TargetID  string    `json:"target_id"` // TAG
	TargetX   float64   `json:"target_x"`
	TargetY   float64   `json:"target_y"`
	PoseX     float64   `json:"pose_x"`
	PoseY     float64   `json:"pose_y"`
	Timestamp time.Time `json:"ts"`
}

func tableName(env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// Table names used when writing to GreptimeDB. Each can be overridden by
// its environment variable.
var (
	CommandTableName = tableName("NAV_COMMAND_TABLE", "nav_commands")
	PoseTableName    = tableName("NAV_POSE_TABLE", "nav_poses")
	ArrivalTableName = tableName("NAV_ARRIVAL_TABLE", "nav_arrivals")
	StateTableName   = tableName("NAV_STATE_TABLE", "nav_state")
)

func (CommandRow) TableName() string { return CommandTableName }
func (PoseRow) TableName() string    { return PoseTableName }
func (ArrivalRow) TableName() string { return ArrivalTableName }
func (StateRow) TableName() string   { return StateTableName }
