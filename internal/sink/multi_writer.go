package sink

import "robotnav/internal/telemetry"

// MultiWriter fans rows out to multiple writers. Writers that also
// implement StateWriter receive state rows.
type MultiWriter struct {
	writers  []Writer
	arrivals []ArrivalWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// AddArrivalWriter registers a writer that only wants arrivals, such as a
// mission runner.
func (mw *MultiWriter) AddArrivalWriter(w ArrivalWriter) {
	mw.arrivals = append(mw.arrivals, w)
}

// WriteCommand sends a command row to all writers.
func (mw *MultiWriter) WriteCommand(row telemetry.CommandRow) error {
	for _, w := range mw.writers {
		if err := w.WriteCommand(row); err != nil {
			return err
		}
	}
	return nil
}

// WritePose sends a pose row to all writers.
func (mw *MultiWriter) WritePose(row telemetry.PoseRow) error {
	for _, w := range mw.writers {
		if err := w.WritePose(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteArrival sends an arrival row to all writers, then to the arrival-only
// writers.
func (mw *MultiWriter) WriteArrival(row telemetry.ArrivalRow) error {
	for _, w := range mw.writers {
		if err := w.WriteArrival(row); err != nil {
			return err
		}
	}
	for _, w := range mw.arrivals {
		if err := w.WriteArrival(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteState sends a state row to every writer that accepts them.
func (mw *MultiWriter) WriteState(row telemetry.StateRow) error {
	for _, w := range mw.writers {
		sw, ok := w.(StateWriter)
		if !ok {
			continue
		}
		if err := sw.WriteState(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteStates sends multiple state rows, using batch mode if supported.
func (mw *MultiWriter) WriteStates(rows []telemetry.StateRow) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchStateWriter); ok {
			if err := bw.WriteStates(rows); err != nil {
				return err
			}
			continue
		}
		sw, ok := w.(StateWriter)
		if !ok {
			continue
		}
		for _, r := range rows {
			if err := sw.WriteState(r); err != nil {
				return err
			}
		}
	}
	return nil
}
