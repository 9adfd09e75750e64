package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"robotnav/internal/admin"
	"robotnav/internal/config"
	"robotnav/internal/event"
	"robotnav/internal/logging"
	"robotnav/internal/mission"
	"robotnav/internal/nav"
	"robotnav/internal/sink"
	"robotnav/internal/telemetry"
	"robotnav/internal/transport"
)

const eventBuffer = 64

var (
	runPrintOnly bool
	runTUI       bool
	runLogFile   string
	runRecord    string
	runMission   string
	runAdminAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Navigate a live robot over MQTT",
	Long:  "run subscribes to the operator, perception and detector topics and publishes drive commands, pose estimates and arrival confirmations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log := logging.FromContext(ctx)

		cfg, grid, err := loadConfig()
		if err != nil {
			return err
		}
		writer, tui, cleanup, err := newWriters(cfg, grid, writerOptions{printOnly: runPrintOnly, tui: runTUI, logFile: runLogFile})
		if err != nil {
			return err
		}
		defer cleanup()

		id := runID()
		navCfg, err := cfg.Controller()
		if err != nil {
			return err
		}
		bridge := transport.NewBridge(transport.NewClient(cfg.MQTT), cfg.MQTT, thresholds(cfg))
		rows := sink.NewRowEmitter(telemetry.NewGenerator(id, time.Now), writer)
		ctrl := nav.NewController(navCfg, sink.Tee{bridge, rows})
		d := event.NewDispatcher(ctrl, eventBuffer)

		if runRecord != "" {
			rec, err := event.NewFileRecorder(runRecord)
			if err != nil {
				return err
			}
			defer rec.Close()
			d.SetRecorder(rec)
		}
		if runMission != "" {
			runner, err := newRunner(cfg, runMission, "")
			if err != nil {
				return err
			}
			d.SetPilot(runner)
			writer.AddArrivalWriter(runner)
		}

		if err := bridge.Connect(ctx); err != nil {
			return err
		}
		defer bridge.Close()
		if err := bridge.Subscribe(ctx, d); err != nil {
			return err
		}
		log.Info("navigator connected", "run_id", id, "broker", cfg.MQTT.Broker)

		startAdmin(ctx, runAdminAddr, d, tui)
		ctrl.Start(ctx)
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		applied, rejected := d.Stats()
		log.Info("navigator stopped", "applied", applied, "rejected", rejected)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show the terminal dashboard")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Path to export command/pose/arrival rows (JSONL)")
	runCmd.Flags().StringVar(&runRecord, "record", "", "Path to record applied events for replay (JSONL)")
	runCmd.Flags().StringVar(&runMission, "mission", "", "Drive a built-in mission instead of waiting for operator targets")
	runCmd.Flags().StringVar(&runAdminAddr, "admin", "", "Serve the admin console on this address (e.g. :8080)")
}

// newRunner resolves and validates a mission against the configured targets.
func newRunner(cfg *config.NavigatorConfig, name, path string) (*mission.Runner, error) {
	m, err := mission.Resolve(name, path)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(targetSet(cfg)); err != nil {
		return nil, err
	}
	return mission.NewRunner(m, nil), nil
}

// startAdmin serves the admin console in the background when addr is set.
func startAdmin(ctx context.Context, addr string, d *event.Dispatcher, tui *sink.TUIWriter) {
	if addr == "" {
		return
	}
	srv := admin.NewServer(d)
	if tui != nil {
		tui.SetAdminStatus(true)
	}
	go func() {
		if err := srv.Start(ctx, addr); err != nil {
			logging.FromContext(ctx).Error("admin server failed", "err", err)
			if tui != nil {
				tui.SetAdminStatus(false)
			}
		}
	}()
}
