package sink

import (
	"encoding/json"
	"os"

	"robotnav/internal/telemetry"
)

// FileWriter writes rows to JSONL files: commands, poses and arrivals share
// the main log; state rows go to their own file.
type FileWriter struct {
	mainFile  *os.File
	stateFile *os.File
	mainEnc   *json.Encoder
	stateEnc  *json.Encoder
}

// fileRecord tags each line of the main log with its row type.
type fileRecord struct {
	Type string `json:"type"`
	Row  any    `json:"row"`
}

// NewFileWriter creates a FileWriter. statePath may be empty to skip state
// rows.
func NewFileWriter(path, statePath string) (*FileWriter, error) {
	mf, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{mainFile: mf, mainEnc: json.NewEncoder(mf)}
	if statePath != "" {
		sf, err := os.Create(statePath)
		if err != nil {
			mf.Close()
			return nil, err
		}
		fw.stateFile = sf
		fw.stateEnc = json.NewEncoder(sf)
	}
	return fw, nil
}

// WriteCommand logs a command row.
func (f *FileWriter) WriteCommand(row telemetry.CommandRow) error {
	return f.mainEnc.Encode(fileRecord{Type: "command", Row: row})
}

// WritePose logs a pose row.
func (f *FileWriter) WritePose(row telemetry.PoseRow) error {
	return f.mainEnc.Encode(fileRecord{Type: "pose", Row: row})
}

// WriteArrival logs an arrival row.
func (f *FileWriter) WriteArrival(row telemetry.ArrivalRow) error {
	return f.mainEnc.Encode(fileRecord{Type: "arrival", Row: row})
}

// WriteState logs a state row, if enabled.
func (f *FileWriter) WriteState(row telemetry.StateRow) error {
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// WriteStates logs multiple state rows.
func (f *FileWriter) WriteStates(rows []telemetry.StateRow) error {
	for _, r := range rows {
		if err := f.WriteState(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.mainFile != nil {
		if e := f.mainFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.stateFile != nil {
		if e := f.stateFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
