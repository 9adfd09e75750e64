package main

import (
	"os"

	"robotnav/internal/config"
	"robotnav/internal/marker"
	"robotnav/internal/sink"
)

type writerOptions struct {
	printOnly bool
	tui       bool
	logFile   string
	stateLog  bool
}

// newWriters sets up the output writers based on flags and env vars. The
// returned MultiWriter always wraps the base writer so callers can attach
// arrival listeners. The TUI writer is nil unless requested.
func newWriters(cfg *config.NavigatorConfig, grid *marker.Grid, opts writerOptions) (*sink.MultiWriter, *sink.TUIWriter, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	var base sink.Writer
	var tui *sink.TUIWriter
	switch {
	case opts.tui:
		tui = sink.NewTUIWriter(cfg, grid)
		closers = append(closers, tui.Close)
		base = tui
	case opts.printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "":
		base = sink.NewStdoutWriter(cfg)
	default:
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		w, err := sink.NewGreptimeDBWriter(os.Getenv("GREPTIMEDB_ENDPOINT"), database)
		if err != nil {
			return nil, nil, nil, err
		}
		base = w
	}

	writers := []sink.Writer{base}
	if opts.logFile != "" {
		statePath := ""
		if opts.stateLog {
			statePath = opts.logFile + ".state"
		}
		fw, err := sink.NewFileWriter(opts.logFile, statePath)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		closers = append(closers, fw.Close)
		writers = append(writers, fw)
	}
	return sink.NewMultiWriter(writers...), tui, cleanup, nil
}
