package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"robotnav/internal/telemetry"
)

// JSONStdoutWriter prints rows as JSON lines to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) print(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteCommand outputs a command row in JSON format.
func (w *JSONStdoutWriter) WriteCommand(row telemetry.CommandRow) error { return w.print(row) }

// WritePose outputs a pose row in JSON format.
func (w *JSONStdoutWriter) WritePose(row telemetry.PoseRow) error { return w.print(row) }

// WriteArrival outputs an arrival row in JSON format.
func (w *JSONStdoutWriter) WriteArrival(row telemetry.ArrivalRow) error { return w.print(row) }

// WriteState outputs a state row in JSON format.
func (w *JSONStdoutWriter) WriteState(row telemetry.StateRow) error { return w.print(row) }
