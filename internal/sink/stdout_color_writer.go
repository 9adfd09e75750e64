package sink

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"robotnav/internal/config"
	"robotnav/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var targetPalette = []string{colorRed, colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

// ColorStdoutWriter prints human-friendly, colorized rows to STDOUT.
type ColorStdoutWriter struct {
	cfg          *config.NavigatorConfig
	out          io.Writer
	once         sync.Once
	mu           sync.Mutex
	targetColors map[string]string
	colorIdx     int
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.NavigatorConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		cfg:          cfg,
		out:          os.Stdout,
		targetColors: make(map[string]string),
	}
}

func (w *ColorStdoutWriter) targetColor(id string) string {
	if id == "" {
		return colorGray
	}
	if c, ok := w.targetColors[id]; ok {
		return c
	}
	c := targetPalette[w.colorIdx%len(targetPalette)]
	w.targetColors[id] = c
	w.colorIdx++
	return c
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Navigator Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Robot Radius (m):\t%.2f\n", w.cfg.Robot.Radius)
	fmt.Fprintf(tw, "Closeness Threshold (m):\t%.2f\n", w.cfg.Robot.ClosenessThreshold)
	fmt.Fprintf(tw, "Sonar Long/Medium/Short (m):\t%.2f/%.2f/%.2f\n",
		w.cfg.Perception.LongDistance, w.cfg.Perception.MediumDistance, w.cfg.Perception.ShortDistance)
	if n := len(w.cfg.Markers.List); n > 0 {
		fmt.Fprintf(tw, "Markers:\t%d listed\n", n)
	} else {
		fmt.Fprintf(tw, "Markers:\t%.2fx%.2f grid every %.2f\n", w.cfg.Markers.Width, w.cfg.Markers.Height, w.cfg.Markers.Spacing)
	}
	fmt.Fprintf(tw, "Broker:\t%s\n", w.cfg.MQTT.Broker)
	tw.Flush()

	fmt.Fprintln(w.out, "\nTargets:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tX\tY\n")
	ids := make([]string, 0, len(w.cfg.Targets))
	for id := range w.cfg.Targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := w.cfg.Targets[id]
		fmt.Fprintf(tw, "%s%s%s\t%.2f\t%.2f\n", w.targetColor(id), id, colorReset, p.X, p.Y)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

func commandColor(cmd string) string {
	switch cmd {
	case "STOP":
		return colorRed
	case "SLOW_LEFT", "SLOW_RIGHT":
		return colorYellow
	case "FRONT":
		return colorGreen
	default:
		return colorCyan
	}
}

// WriteCommand prints a drive command.
func (w *ColorStdoutWriter) WriteCommand(row telemetry.CommandRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%sCMD%s ", colorBlue, colorReset)
	fmt.Fprintf(w.out, "%s%s(%d)%s ", commandColor(row.Command), row.Command, row.Code, colorReset)
	fmt.Fprintf(w.out, "%sphase=%s%s", colorMagenta, row.Phase, colorReset)
	if row.TargetID != "" {
		fmt.Fprintf(w.out, " %starget=%s%s", w.targetColor(row.TargetID), row.TargetID, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WritePose prints a pose estimate.
func (w *ColorStdoutWriter) WritePose(row telemetry.PoseRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s[%s]%s %sPOSE%s marker=%d %sx=%.3f%s %sy=%.3f%s %shdg=%.1f%s\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorCyan, colorReset, row.MarkerID,
		colorGreen, row.X, colorReset,
		colorYellow, row.Y, colorReset,
		colorMagenta, row.HeadingDeg, colorReset)
	return nil
}

// WriteArrival prints a target arrival.
func (w *ColorStdoutWriter) WriteArrival(row telemetry.ArrivalRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s[%s]%s %sARRIVED%s %starget=%s%s at (%.3f,%.3f) pose=(%.3f,%.3f)\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorGreen, colorReset,
		w.targetColor(row.TargetID), row.TargetID, colorReset,
		row.TargetX, row.TargetY, row.PoseX, row.PoseY)
	return nil
}

// WriteState prints a simulator state row.
func (w *ColorStdoutWriter) WriteState(row telemetry.StateRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	collided := ""
	if row.Collided {
		collided = fmt.Sprintf(" %sCOLLISION%s", colorRed, colorReset)
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sSTATE%s tick=%d true=(%.3f,%.3f,%.1f) est=(%.3f,%.3f,%.1f) sonar=%s %s%s%s%s\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, row.Tick,
		row.TrueX, row.TrueY, row.TrueHeading,
		row.EstX, row.EstY, row.EstHeading,
		row.FreeSpace,
		commandColor(row.Command), row.Command, colorReset, collided)
	return nil
}
