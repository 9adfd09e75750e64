package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"robotnav/internal/event"
	"robotnav/internal/logging"
	"robotnav/internal/nav"
	"robotnav/internal/sink"
	"robotnav/internal/telemetry"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayLogFile   string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded event log",
	Long:  "replay feeds a recorded event log back through a fresh controller and writes the resulting rows to GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		ctx := cmd.Context()
		cfg, grid, err := loadConfig()
		if err != nil {
			return err
		}
		writer, _, cleanup, err := newWriters(cfg, grid, writerOptions{printOnly: replayPrintOnly, logFile: replayLogFile})
		if err != nil {
			return err
		}
		defer cleanup()

		navCfg, err := cfg.Controller()
		if err != nil {
			return err
		}
		ctrl := nav.NewController(navCfg, sink.NewRowEmitter(telemetry.NewGenerator(runID(), time.Now), writer))
		d := event.NewDispatcher(ctrl, 1)
		ctrl.Start(ctx)
		n, err := event.ReplayFile(ctx, replayInput, d, replaySpeed)
		if err != nil {
			return err
		}
		applied, rejected := d.Stats()
		logging.FromContext(ctx).Info("replay finished", "events", n, "applied", applied, "rejected", rejected)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to recorded event log")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
	replayCmd.Flags().StringVar(&replayLogFile, "log-file", "", "Path to export rows (JSONL)")
	replayCmd.MarkFlagRequired("input")
}
