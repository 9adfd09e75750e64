package sink

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"robotnav/internal/config"
	"robotnav/internal/marker"
	"robotnav/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

type commandMsg struct{ telemetry.CommandRow }
type poseMsg struct{ telemetry.PoseRow }
type arrivalMsg struct{ telemetry.ArrivalRow }
type stateMsg struct{ telemetry.StateRow }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

const (
	maxLogLines = 500
	mapMargin   = 0.1
)

// TUIWriter renders navigator output using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the UI interrupts the process.
func NewTUIWriter(cfg *config.NavigatorConfig, grid *marker.Grid) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg, grid), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteCommand implements CommandWriter.
func (w *TUIWriter) WriteCommand(row telemetry.CommandRow) error {
	line := fmt.Sprintf("%s[%s]%s %sCMD%s %s%s(%d)%s %sphase=%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset,
		commandColor(row.Command), row.Command, row.Code, colorReset,
		colorMagenta, row.Phase, colorReset)
	if row.TargetID != "" {
		line += fmt.Sprintf(" target=%s", row.TargetID)
	}
	w.program.Send(logMsg{line: line})
	w.program.Send(commandMsg{row})
	return nil
}

// WritePose implements PoseWriter.
func (w *TUIWriter) WritePose(row telemetry.PoseRow) error {
	w.program.Send(poseMsg{row})
	return nil
}

// WriteArrival implements ArrivalWriter.
func (w *TUIWriter) WriteArrival(row telemetry.ArrivalRow) error {
	line := fmt.Sprintf("%s[%s]%s %sARRIVED%s target=%s pose=(%.3f,%.3f)",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorGreen, colorReset, row.TargetID, row.PoseX, row.PoseY)
	w.program.Send(logMsg{line: line})
	w.program.Send(arrivalMsg{row})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.StateRow) error {
	w.program.Send(stateMsg{row})
	if row.Collided {
		w.program.Send(logMsg{line: fmt.Sprintf("%s[%s]%s %sCOLLISION%s at (%.3f,%.3f)",
			colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
			colorRed, colorReset, row.TrueX, row.TrueY)})
	}
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type mapPoint struct {
	x, y float64
}

type tuiModel struct {
	cfg        *config.NavigatorConfig
	targetIDs  []string
	markers    []marker.Marker
	table      table.Model
	vp         viewport.Model
	logs       []string
	state      telemetry.StateRow
	haveState  bool
	lastCmd    telemetry.CommandRow
	pose       telemetry.PoseRow
	havePose   bool
	arrived    map[string]bool
	admin      bool
	wrap       bool
	autoscroll bool
	showMap    bool
	help       bool
	width      int
	height     int
}

func newTUIModel(cfg *config.NavigatorConfig, grid *marker.Grid) tuiModel {
	ids := make([]string, 0, len(cfg.Targets))
	for id := range cfg.Targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	cols := []table.Column{
		{Title: "Target", Width: 8},
		{Title: "X", Width: 7},
		{Title: "Y", Width: 7},
		{Title: "Dist", Width: 7},
		{Title: "Status", Width: 9},
	}
	m := tuiModel{
		cfg:        cfg,
		targetIDs:  ids,
		vp:         viewport.New(0, 0),
		arrived:    make(map[string]bool),
		autoscroll: true,
	}
	if grid != nil {
		m.markers = grid.Markers()
	}
	m.table = table.New(table.WithColumns(cols), table.WithRows(m.targetRows()), table.WithHeight(len(ids)+1))
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "h", "?", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "m":
			m.showMap = !m.showMap
		case "h", "?":
			m.help = true
		default:
			if !m.autoscroll {
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case commandMsg:
		m.lastCmd = msg.CommandRow
		m.table.SetRows(m.targetRows())
	case poseMsg:
		m.pose = msg.PoseRow
		m.havePose = true
		m.table.SetRows(m.targetRows())
	case arrivalMsg:
		m.arrived[msg.TargetID] = true
		m.table.SetRows(m.targetRows())
	case stateMsg:
		m.state = msg.StateRow
		m.haveState = true
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func (m tuiModel) targetRows() []table.Row {
	rows := make([]table.Row, 0, len(m.targetIDs))
	for _, id := range m.targetIDs {
		p := m.cfg.Targets[id]
		dist := "-"
		if m.havePose {
			dist = fmt.Sprintf("%.3f", math.Hypot(p.X-m.pose.X, p.Y-m.pose.Y))
		}
		status := ""
		switch {
		case m.arrived[id]:
			status = "reached"
		case id == m.lastCmd.TargetID:
			status = "seeking"
		}
		rows = append(rows, table.Row{id, fmt.Sprintf("%.2f", p.X), fmt.Sprintf("%.2f", p.Y), dist, status})
	}
	return rows
}

func (m *tuiModel) updateViewportHeight() {
	h := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.renderBottom()) - 2
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.width)
	body := m.vp.View()
	if m.showMap {
		body = m.renderMap()
	}
	return strings.Join([]string{m.renderHeader(), divider, body, divider, m.renderBottom()}, "\n")
}

func (m tuiModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Render("robotnav")
	var status strings.Builder
	status.WriteString(title + "\n")
	fmt.Fprintf(&status, "phase   %s\n", orDash(m.lastCmd.Phase))
	fmt.Fprintf(&status, "command %s\n", orDash(m.lastCmd.Command))
	if m.havePose {
		fmt.Fprintf(&status, "pose    (%.3f, %.3f) %.1f° via marker %d\n", m.pose.X, m.pose.Y, m.pose.HeadingDeg, m.pose.MarkerID)
	} else {
		status.WriteString("pose    -\n")
	}
	if m.haveState {
		fmt.Fprintf(&status, "sonar   %s\n", m.state.FreeSpace)
		fmt.Fprintf(&status, "leg     %s", orDash(m.state.Leg))
	}
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, m.table.View(), sep, strings.TrimRight(status.String(), "\n"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	state := fmt.Sprintf("%sSTATE%s %stick=%d%s %smode=%s%s",
		colorBlue, colorReset,
		colorYellow, m.state.Tick, colorReset,
		colorMagenta, orDash(m.lastCmd.Mode), colorReset)
	if m.state.Collided {
		state += fmt.Sprintf(" %scollided%s", colorRed, colorReset)
	}
	return fmt.Sprintf("%s | Admin UI %s | Wrap %s | Scroll %s | Map %s | Help %s",
		state, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.showMap), indicator(m.help))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for log lines",
		" s  toggle auto-scroll",
		" m  toggle arena map",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
		"",
		"Map legend: · marker, digits targets, # obstacle, R robot, e estimate",
	}
	return strings.Join(lines, "\n")
}

// mapBounds returns the arena extent covering markers and targets.
func (m tuiModel) mapBounds() (minX, minY, maxX, maxY float64) {
	pts := make([]mapPoint, 0, len(m.markers)+len(m.targetIDs))
	for _, mk := range m.markers {
		pts = append(pts, mapPoint{mk.X, mk.Y})
	}
	for _, id := range m.targetIDs {
		p := m.cfg.Targets[id]
		pts = append(pts, mapPoint{p.X, p.Y})
	}
	if len(pts) == 0 {
		return -1, -1, 1, 1
	}
	minX, minY, maxX, maxY = pts[0].x, pts[0].y, pts[0].x, pts[0].y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	return minX - mapMargin, minY - mapMargin, maxX + mapMargin, maxY + mapMargin
}

func (m tuiModel) renderMap() string {
	w, h := m.width, m.vp.Height
	if w < 2 || h < 2 {
		return ""
	}
	minX, minY, maxX, maxY := m.mapBounds()
	cells := make([][]rune, h)
	for i := range cells {
		cells[i] = []rune(strings.Repeat(" ", w))
	}
	put := func(x, y float64, r rune) {
		col := int(math.Round((x - minX) / (maxX - minX) * float64(w-1)))
		row := int(math.Round((maxY - y) / (maxY - minY) * float64(h-1)))
		if col < 0 || col >= w || row < 0 || row >= h {
			return
		}
		cells[row][col] = r
	}
	for _, mk := range m.markers {
		put(mk.X, mk.Y, '·')
	}
	for _, o := range m.cfg.Simulation.Obstacles {
		put(o.X, o.Y, '#')
	}
	for _, id := range m.targetIDs {
		p := m.cfg.Targets[id]
		r := '*'
		if len(id) == 1 {
			r = rune(id[0])
		}
		put(p.X, p.Y, r)
	}
	if m.havePose {
		put(m.pose.X, m.pose.Y, 'e')
	}
	if m.haveState {
		put(m.state.TrueX, m.state.TrueY, 'R')
	}
	lines := make([]string, h)
	for i, row := range cells {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}
