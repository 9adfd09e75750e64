package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"robotnav/internal/telemetry"
)

type mockGreptimeClient struct {
	tables []*table.Table
	err    error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.tables = append(m.tables, tables...)
	return &gpb.GreptimeResponse{}, m.err
}

func newMockWriter() (*GreptimeDBWriter, *mockGreptimeClient) {
	m := &mockGreptimeClient{}
	return &GreptimeDBWriter{
		client:       m,
		commandTable: "nav_commands",
		poseTable:    "nav_poses",
		arrivalTable: "nav_arrivals",
		stateTable:   "nav_state",
	}, m
}

func TestGreptimeWriterCommand(t *testing.T) {
	w, m := newMockWriter()
	row := telemetry.CommandRow{RunID: "r1", Command: "FRONTLEFT", Code: 1, Mode: "AUTONOMOUS", Phase: "AUTONOMOUS_SEEKING", TargetID: "4", Timestamp: time.Unix(0, 0).UTC()}
	if err := w.WriteCommand(row); err != nil {
		t.Fatalf("WriteCommand: %v", err)
	}
	if len(m.tables) != 1 {
		t.Fatalf("expected one table, got %d", len(m.tables))
	}
	rows := m.tables[0].GetRows()
	schema := rows.Schema
	if len(schema) != len(commandColumns)+1 {
		t.Fatalf("unexpected schema length: %d", len(schema))
	}
	if schema[0].ColumnName != "run_id" || schema[0].SemanticType != gpb.SemanticType_TAG {
		t.Fatalf("run_id column = %+v", schema[0])
	}
	if schema[2].Datatype != gpb.ColumnDataType_INT64 {
		t.Fatalf("code column type = %v", schema[2].Datatype)
	}
	last := schema[len(schema)-1]
	if last.ColumnName != "ts" || last.SemanticType != gpb.SemanticType_TIMESTAMP {
		t.Fatalf("ts column = %+v", last)
	}
	vals := rows.Rows[0].Values
	if got := vals[1].GetStringValue(); got != "FRONTLEFT" {
		t.Fatalf("command = %s", got)
	}
	if got := vals[2].GetI64Value(); got != 1 {
		t.Fatalf("code = %d", got)
	}
	if got := vals[5].GetStringValue(); got != "4" {
		t.Fatalf("target_id = %s", got)
	}
}

func TestGreptimeWriterPoseAndArrival(t *testing.T) {
	w, m := newMockWriter()
	if err := w.WritePose(telemetry.PoseRow{RunID: "r", MarkerID: 7, X: 0.25, Y: -0.5, HeadingDeg: 90}); err != nil {
		t.Fatalf("WritePose: %v", err)
	}
	if err := w.WriteArrival(telemetry.ArrivalRow{RunID: "r", TargetID: "2", TargetX: 0.5, PoseX: 0.45}); err != nil {
		t.Fatalf("WriteArrival: %v", err)
	}
	if len(m.tables) != 2 {
		t.Fatalf("expected two tables, got %d", len(m.tables))
	}
	pose := m.tables[0].GetRows().Rows[0].Values
	if pose[1].GetI64Value() != 7 || pose[2].GetF64Value() != 0.25 || pose[4].GetF64Value() != 90 {
		t.Fatalf("unexpected pose values %v", pose)
	}
	arr := m.tables[1].GetRows().Rows[0].Values
	if arr[1].GetStringValue() != "2" || arr[4].GetF64Value() != 0.45 {
		t.Fatalf("unexpected arrival values %v", arr)
	}
}

func TestGreptimeWriterStatesBatch(t *testing.T) {
	w, m := newMockWriter()
	rows := []telemetry.StateRow{
		{RunID: "r", Tick: 1, FreeSpace: "ooooo"},
		{RunID: "r", Tick: 2, FreeSpace: "ooxoo", Collided: true},
	}
	if err := w.WriteStates(rows); err != nil {
		t.Fatalf("WriteStates: %v", err)
	}
	if len(m.tables) != 1 {
		t.Fatalf("expected a single batched table, got %d", len(m.tables))
	}
	got := m.tables[0].GetRows().Rows
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[1].Values[14].GetStringValue() != "ooxoo" || !got[1].Values[15].GetBoolValue() {
		t.Fatalf("unexpected state values %v", got[1].Values)
	}
	if err := w.WriteStates(nil); err != nil || len(m.tables) != 1 {
		t.Fatalf("empty batch should not write")
	}
}

func TestGreptimeWriterPropagatesError(t *testing.T) {
	w, m := newMockWriter()
	m.err = errors.New("unavailable")
	if err := w.WriteCommand(telemetry.CommandRow{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSplitEndpoint(t *testing.T) {
	cases := []struct {
		in   string
		host string
		port int
	}{
		{"localhost:4001", "localhost", 4001},
		{"db.example:5001", "db.example", 5001},
		{"greptime", "greptime", defaultGreptimePort},
	}
	for _, tc := range cases {
		host, port, err := splitEndpoint(tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if host != tc.host || port != tc.port {
			t.Fatalf("%s: got %s:%d", tc.in, host, port)
		}
	}
	if _, _, err := splitEndpoint("host:abc"); err == nil {
		t.Fatalf("expected bad port error")
	}
}
