package sink

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"robotnav/internal/config"
	"robotnav/internal/telemetry"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	ts := time.Unix(0, 0).UTC()
	if err := w.WriteCommand(telemetry.CommandRow{Command: "FRONT", Code: 2, Timestamp: ts}); err != nil {
		t.Fatalf("WriteCommand: %v", err)
	}
	if _, ok := p.msgs[0].(logMsg); !ok {
		t.Fatalf("expected logMsg, got %T", p.msgs[0])
	}
	if _, ok := p.msgs[1].(commandMsg); !ok {
		t.Fatalf("expected commandMsg, got %T", p.msgs[1])
	}
	if err := w.WritePose(telemetry.PoseRow{MarkerID: 1}); err != nil {
		t.Fatalf("WritePose: %v", err)
	}
	if _, ok := p.msgs[2].(poseMsg); !ok {
		t.Fatalf("expected poseMsg, got %T", p.msgs[2])
	}
	if err := w.WriteState(telemetry.StateRow{Tick: 3}); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if len(p.msgs) != 4 {
		t.Fatalf("non-colliding state should send one message, got %d total", len(p.msgs))
	}
	if err := w.WriteState(telemetry.StateRow{Tick: 4, Collided: true}); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if _, ok := p.msgs[5].(logMsg); !ok {
		t.Fatalf("expected collision log line, got %T", p.msgs[5])
	}
	w.SetAdminStatus(true)
	if _, ok := p.msgs[6].(adminMsg); !ok {
		t.Fatalf("expected adminMsg, got %T", p.msgs[6])
	}
}

func testModel(t *testing.T) tuiModel {
	t.Helper()
	cfg := config.Default()
	grid, err := cfg.Grid()
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	m := newTUIModel(cfg, grid)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return mi.(tuiModel)
}

func TestTUIModelTracksTargets(t *testing.T) {
	m := testModel(t)
	mi, _ := m.Update(poseMsg{telemetry.PoseRow{X: 0, Y: 0, MarkerID: 5}})
	m = mi.(tuiModel)
	mi, _ = m.Update(commandMsg{telemetry.CommandRow{Command: "FRONT", TargetID: "1", Phase: "AUTONOMOUS_SEEKING"}})
	m = mi.(tuiModel)
	mi, _ = m.Update(arrivalMsg{telemetry.ArrivalRow{TargetID: "4"}})
	m = mi.(tuiModel)

	status := map[string]string{}
	for _, r := range m.table.Rows() {
		status[r[0]] = r[4]
	}
	if status["1"] != "seeking" || status["4"] != "reached" {
		t.Fatalf("unexpected target status %v", status)
	}
	if !strings.Contains(m.View(), "AUTONOMOUS_SEEKING") {
		t.Fatalf("header should show the phase")
	}
}

func TestTUIWrapToggle(t *testing.T) {
	cfg := config.Default()
	m := newTUIModel(cfg, nil)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 40})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "one two three four five six"})
	m = mi.(tuiModel)
	before := strings.Count(m.vp.View(), "three")
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("wrap not toggled")
	}
	if before != 1 || !strings.Contains(m.vp.View(), "five six") {
		t.Fatalf("expected wrapped content, got %q", m.vp.View())
	}
}

func TestTUIMapAndHelp(t *testing.T) {
	m := testModel(t)
	mi, _ := m.Update(stateMsg{telemetry.StateRow{TrueX: 0, TrueY: 0}})
	m = mi.(tuiModel)
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	m = mi.(tuiModel)
	view := m.View()
	if !strings.Contains(view, "R") || !strings.Contains(view, "·") {
		t.Fatalf("map should show robot and markers:\n%s", view)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	m = mi.(tuiModel)
	if !strings.HasPrefix(m.View(), "Key Bindings:") {
		t.Fatalf("help view not shown")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatalf("q should quit")
	}
}
