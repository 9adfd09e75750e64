package sink

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"robotnav/internal/telemetry"
)

const (
	defaultGreptimePort = 4001
	greptimeTimeout     = 5 * time.Second
)

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes navigator rows to GreptimeDB via the ingester
// client. Tables are created on first write.
type GreptimeDBWriter struct {
	client       greptimeClient
	commandTable string
	poseTable    string
	arrivalTable string
	stateTable   string
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{
		client:       client,
		commandTable: telemetry.CommandTableName,
		poseTable:    telemetry.PoseTableName,
		arrivalTable: telemetry.ArrivalTableName,
		stateTable:   telemetry.StateTableName,
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("greptime endpoint %q: bad port: %w", endpoint, err)
	}
	return host, port, nil
}

func (w *GreptimeDBWriter) write(tbl *table.Table) error {
	ctx, cancel := context.WithTimeout(context.Background(), greptimeTimeout)
	defer cancel()
	_, err := w.client.Write(ctx, tbl)
	return err
}

type column struct {
	name string
	kind types.ColumnType
	tag  bool
}

func newTable(name string, cols []column) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.kind)
		} else {
			err = tbl.AddFieldColumn(c.name, c.kind)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

var commandColumns = []column{
	{"run_id", types.STRING, true},
	{"command", types.STRING, true},
	{"code", types.INT64, false},
	{"mode", types.STRING, false},
	{"phase", types.STRING, false},
	{"target_id", types.STRING, false},
}

var poseColumns = []column{
	{"run_id", types.STRING, true},
	{"marker_id", types.INT64, true},
	{"x", types.FLOAT64, false},
	{"y", types.FLOAT64, false},
	{"heading_deg", types.FLOAT64, false},
}

var arrivalColumns = []column{
	{"run_id", types.STRING, true},
	{"target_id", types.STRING, true},
	{"target_x", types.FLOAT64, false},
	{"target_y", types.FLOAT64, false},
	{"pose_x", types.FLOAT64, false},
	{"pose_y", types.FLOAT64, false},
}

var stateColumns = []column{
	{"run_id", types.STRING, true},
	{"tick", types.INT64, false},
	{"true_x", types.FLOAT64, false},
	{"true_y", types.FLOAT64, false},
	{"true_heading", types.FLOAT64, false},
	{"est_x", types.FLOAT64, false},
	{"est_y", types.FLOAT64, false},
	{"est_heading", types.FLOAT64, false},
	{"marker_id", types.INT64, false},
	{"command", types.STRING, false},
	{"mode", types.STRING, false},
	{"phase", types.STRING, false},
	{"target_id", types.STRING, false},
	{"leg", types.STRING, false},
	{"free_space", types.STRING, false},
	{"collided", types.BOOLEAN, false},
}

// WriteCommand inserts a command row.
func (w *GreptimeDBWriter) WriteCommand(r telemetry.CommandRow) error {
	tbl, err := newTable(w.commandTable, commandColumns)
	if err != nil {
		return err
	}
	if err := tbl.AddRow(r.RunID, r.Command, int64(r.Code), r.Mode, r.Phase, r.TargetID, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl)
}

// WritePose inserts a pose row.
func (w *GreptimeDBWriter) WritePose(r telemetry.PoseRow) error {
	tbl, err := newTable(w.poseTable, poseColumns)
	if err != nil {
		return err
	}
	if err := tbl.AddRow(r.RunID, int64(r.MarkerID), r.X, r.Y, r.HeadingDeg, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl)
}

// WriteArrival inserts an arrival row.
func (w *GreptimeDBWriter) WriteArrival(r telemetry.ArrivalRow) error {
	tbl, err := newTable(w.arrivalTable, arrivalColumns)
	if err != nil {
		return err
	}
	if err := tbl.AddRow(r.RunID, r.TargetID, r.TargetX, r.TargetY, r.PoseX, r.PoseY, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl)
}

// WriteState inserts a simulator state row.
func (w *GreptimeDBWriter) WriteState(r telemetry.StateRow) error {
	return w.WriteStates([]telemetry.StateRow{r})
}

// WriteStates inserts multiple state rows in one request.
func (w *GreptimeDBWriter) WriteStates(rows []telemetry.StateRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.stateTable, stateColumns)
	if err != nil {
		return err
	}
	for _, r := range rows {
		err := tbl.AddRow(r.RunID, int64(r.Tick),
			r.TrueX, r.TrueY, r.TrueHeading,
			r.EstX, r.EstY, r.EstHeading,
			int64(r.MarkerID), r.Command, r.Mode, r.Phase,
			r.TargetID, r.Leg, r.FreeSpace, r.Collided, r.Timestamp)
		if err != nil {
			return err
		}
	}
	return w.write(tbl)
}
