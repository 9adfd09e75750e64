package sink

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"robotnav/internal/telemetry"
)

func readLines(t *testing.T, path string) [][]byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var out [][]byte
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, append([]byte(nil), sc.Bytes()...))
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	ts := time.Unix(0, 0).UTC()
	mainPath := filepath.Join(dir, "nav.jsonl")
	state := filepath.Join(dir, "nav.jsonl.state")
	fw, err := NewFileWriter(mainPath, state)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteCommand(telemetry.CommandRow{RunID: "r", Command: "FRONT", Code: 2, Timestamp: ts}); err != nil {
		t.Fatalf("WriteCommand: %v", err)
	}
	if err := fw.WritePose(telemetry.PoseRow{RunID: "r", MarkerID: 5, X: 0.1, Timestamp: ts}); err != nil {
		t.Fatalf("WritePose: %v", err)
	}
	if err := fw.WriteArrival(telemetry.ArrivalRow{RunID: "r", TargetID: "4", Timestamp: ts}); err != nil {
		t.Fatalf("WriteArrival: %v", err)
	}
	if err := fw.WriteStates([]telemetry.StateRow{{Tick: 1}, {Tick: 2, Collided: true}}); err != nil {
		t.Fatalf("WriteStates: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, mainPath)
	if len(lines) != 3 {
		t.Fatalf("expected 3 main lines, got %d", len(lines))
	}
	wantTypes := []string{"command", "pose", "arrival"}
	for i, l := range lines {
		var rec struct {
			Type string          `json:"type"`
			Row  json.RawMessage `json:"row"`
		}
		if err := json.Unmarshal(l, &rec); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if rec.Type != wantTypes[i] {
			t.Fatalf("line %d type %s, want %s", i, rec.Type, wantTypes[i])
		}
	}
	var pose telemetry.PoseRow
	var rec struct {
		Row *telemetry.PoseRow `json:"row"`
	}
	rec.Row = &pose
	if err := json.Unmarshal(lines[1], &rec); err != nil {
		t.Fatalf("decode pose: %v", err)
	}
	if pose.MarkerID != 5 || pose.X != 0.1 {
		t.Fatalf("unexpected pose %+v", pose)
	}

	states := readLines(t, state)
	if len(states) != 2 {
		t.Fatalf("expected 2 state lines, got %d", len(states))
	}
	var st telemetry.StateRow
	if err := json.Unmarshal(states[1], &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Tick != 2 || !st.Collided {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestFileWriterWithoutStateLog(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWriter(filepath.Join(dir, "nav.jsonl"), "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	defer fw.Close()
	if err := fw.WriteState(telemetry.StateRow{Tick: 1}); err != nil {
		t.Fatalf("WriteState should be a no-op: %v", err)
	}
}
