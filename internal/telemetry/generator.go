package telemetry

import (
	"time"

	"robotnav/internal/nav"
)

// Generator turns controller output into rows stamped with the run id.
type Generator struct {
	RunID string
	now   func() time.Time
}

// NewGenerator creates a row generator for a run. A nil clock uses
// time.Now.
func NewGenerator(runID string, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{RunID: runID, now: now}
}

// Command builds the row for an emitted drive command.
func (g *Generator) Command(cmd nav.Command, st nav.State) CommandRow {
	return CommandRow{
		RunID:     g.RunID,
		Command:   cmd.String(),
		Code:      cmd.Code(),
		Mode:      st.Mode.String(),
		Phase:     string(st.Phase()),
		TargetID:  st.TargetID,
		Timestamp: g.now().UTC(),
	}
}

// Pose builds the row for a pose estimate.
func (g *Generator) Pose(p nav.Pose, markerID int) PoseRow {
	return PoseRow{
		RunID:      g.RunID,
		MarkerID:   markerID,
		X:          p.X,
		Y:          p.Y,
		HeadingDeg: p.HeadingDeg,
		Timestamp:  g.now().UTC(),
	}
}

// Arrival builds the row for a reached target.
func (g *Generator) Arrival(t nav.Target, p nav.Pose) ArrivalRow {
	return ArrivalRow{
		RunID:     g.RunID,
		TargetID:  t.ID,
		TargetX:   t.X,
		TargetY:   t.Y,
		PoseX:     p.X,
		PoseY:     p.Y,
		Timestamp: g.now().UTC(),
	}
}

// FreeSpaceString renders a free-space map as five characters from left to
// right, 'o' for clear and 'x' for blocked. An empty map renders as dashes.
func FreeSpaceString(fs nav.FreeSpace) string {
	b := make([]byte, 0, len(nav.Directions))
	for _, d := range nav.Directions {
		switch free, ok := fs[d]; {
		case !ok:
			b = append(b, '-')
		case free:
			b = append(b, 'o')
		default:
			b = append(b, 'x')
		}
	}
	return string(b)
}
