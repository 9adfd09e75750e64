package sink

import (
	"io"
	"os"

	"golang.org/x/term"

	"robotnav/internal/config"
)

// StdoutWriter is a Writer that also accepts state rows.
type StdoutWriter interface {
	Writer
	StateWriter
}

// NewStdoutWriter picks colorized output when stdout is a terminal and
// JSON lines otherwise.
func NewStdoutWriter(cfg *config.NavigatorConfig) StdoutWriter {
	return newStdoutWriter(cfg, os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
}

func newStdoutWriter(cfg *config.NavigatorConfig, out io.Writer, tty bool) StdoutWriter {
	if tty {
		w := NewColorStdoutWriter(cfg)
		w.out = out
		return w
	}
	return &JSONStdoutWriter{out: out}
}
