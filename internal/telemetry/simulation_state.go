package telemetry

import "time"

// StateRow captures per-tick simulator state: where the robot really is,
// where the controller thinks it is and what it is doing.
type StateRow struct {
	RunID       string    `json:"run_id"`
	Tick        int       `json:"tick"`
	TrueX       float64   `json:"true_x"`
	TrueY       float64   `json:"true_y"`
	TrueHeading float64   `json:"true_heading"`
	EstX        float64   `json:"est_x"`
	EstY        float64   `json:"est_y"`
	EstHeading  float64   `json:"est_heading"`
	MarkerID    int       `json:"marker_id"`
	Command     string    `json:"command"`
	Mode        string    `json:"mode"`
	Phase       string    `json:"phase"`
	TargetID    string    `json:"target_id,omitempty"`
	Leg         string    `json:"leg,omitempty"`
	FreeSpace   string    `json:"free_space"`
	Collided    bool      `json:"collided"`
	Timestamp   time.Time `json:"ts"`
}

