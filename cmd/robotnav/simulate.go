package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"robotnav/internal/event"
	"robotnav/internal/logging"
	"robotnav/internal/nav"
	"robotnav/internal/sim"
	"robotnav/internal/sink"
	"robotnav/internal/telemetry"
)

var (
	simPrintOnly   bool
	simTUI         bool
	simTick        time.Duration
	simLogFile     string
	simRecord      string
	simMission     string
	simMissionFile string
	simAdminAddr   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the navigator against the arena simulator",
	Long:  "simulate closes the loop with a simulated robot, camera and sonar ring while a mission selects targets.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log := logging.FromContext(ctx)

		cfg, grid, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("tick") {
			cfg.Simulation.TickInterval = simTick
		}
		if cfg.Simulation.TickInterval, err = tickInterval(cfg.Simulation.TickInterval); err != nil {
			return err
		}
		name, path := cfg.Simulation.Mission, cfg.Simulation.MissionFile
		if simMission != "" || simMissionFile != "" {
			name, path = simMission, simMissionFile
		}
		runner, err := newRunner(cfg, name, path)
		if err != nil {
			return err
		}

		writer, tui, cleanup, err := newWriters(cfg, grid, writerOptions{printOnly: simPrintOnly, tui: simTUI, logFile: simLogFile, stateLog: true})
		if err != nil {
			return err
		}
		defer cleanup()
		writer.AddArrivalWriter(runner)

		id := runID()
		navCfg, err := cfg.Controller()
		if err != nil {
			return err
		}
		simulator := sim.NewSimulator(id, cfg, grid, writer)
		rows := sink.NewRowEmitter(telemetry.NewGenerator(id, time.Now), writer)
		ctrl := nav.NewController(navCfg, sink.Tee{simulator, rows})
		d := event.NewDispatcher(ctrl, eventBuffer)
		d.SetPilot(runner)
		if simRecord != "" {
			rec, err := event.NewFileRecorder(simRecord)
			if err != nil {
				return err
			}
			defer rec.Close()
			d.SetRecorder(rec)
		}
		simulator.Bind(d)
		simulator.SetRunner(runner)

		startAdmin(ctx, simAdminAddr, d, tui)
		go d.Run(ctx)

		log.Info("simulation started", "run_id", id, "mission", name)
		ctrl.Start(ctx)
		simulator.Start(ctx)
		err = simulator.Run(ctx)
		applied, rejected := d.Stats()
		log.Info("simulation stopped", "applied", applied, "rejected", rejected, "collisions", simulator.Collisions())
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Show the terminal dashboard")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 100*time.Millisecond, "Simulation tick interval (e.g. 50ms, 1s)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export rows (JSONL); state rows go to <path>.state")
	simulateCmd.Flags().StringVar(&simRecord, "record", "", "Path to record applied events for replay (JSONL)")
	simulateCmd.Flags().StringVar(&simMission, "mission", "", "Built-in mission name (overrides the config)")
	simulateCmd.Flags().StringVar(&simMissionFile, "mission-file", "", "Mission YAML file (overrides the config)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin", "", "Serve the admin console on this address (e.g. :8080)")
}
