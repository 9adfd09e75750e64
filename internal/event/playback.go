package event

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"
)

// Replay feeds a JSONL event log through the dispatcher. A speed >0 scales
// the recorded gaps between events; speed <= 0 replays without delay.
func Replay(ctx context.Context, r io.Reader, d *Dispatcher, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	n := 0
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := ev.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					return n, ctx.Err()
				}
			}
		}
		d.Handle(ctx, ev)
		n++
		prev = ev.Timestamp
	}
}

// ReplayFile opens path and replays its events.
func ReplayFile(ctx context.Context, path string, d *Dispatcher, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Replay(ctx, f, d, speed)
}

// FileRecorder appends applied events to a JSONL log.
type FileRecorder struct {
	f   *os.File
	enc *json.Encoder
}

// NewFileRecorder creates (or truncates) path.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileRecorder{f: f, enc: json.NewEncoder(f)}, nil
}

// Record writes ev as one JSON line.
func (r *FileRecorder) Record(ev Event) error { return r.enc.Encode(ev) }

// Close closes the log file.
func (r *FileRecorder) Close() error { return r.f.Close() }
