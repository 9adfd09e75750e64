// Package sink fans navigator output rows out to stdout, files, GreptimeDB
// and the terminal UI.
package sink

import "robotnav/internal/telemetry"

// CommandWriter handles drive command rows.
type CommandWriter interface {
	WriteCommand(telemetry.CommandRow) error
}

// PoseWriter handles pose estimate rows.
type PoseWriter interface {
	WritePose(telemetry.PoseRow) error
}

// ArrivalWriter handles target arrival rows.
type ArrivalWriter interface {
	WriteArrival(telemetry.ArrivalRow) error
}

// StateWriter handles simulator state rows.
type StateWriter interface {
	WriteState(telemetry.StateRow) error
}

// Writer is implemented by every row sink.
type Writer interface {
	CommandWriter
	PoseWriter
	ArrivalWriter
}

// Optional: writers may support batch mode for state rows.
type batchStateWriter interface {
	WriteStates([]telemetry.StateRow) error
}
