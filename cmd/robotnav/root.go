package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"robotnav/internal/config"
	"robotnav/internal/logging"
	"robotnav/internal/marker"
	"robotnav/internal/perception"
)

var (
	configPath string
	schemaPath string
	logLevel   string
	logFormat  string
	logOutput  string
)

var rootCmd = &cobra.Command{
	Use:   "robotnav",
	Short: "Marker-guided robot navigator",
	Long:  "robotnav steers a differential-drive robot towards named targets using fiducial markers and sonar free-space reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var out io.Writer = os.Stderr
		if logOutput != "" {
			f, err := os.OpenFile(logOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return err
			}
			out = f
		}
		logger, err := logging.NewWith(out, logLevel, logFormat)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(logging.NewContext(ctx, logger))
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/navigator.yaml", "Path to navigator configuration YAML")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Path to CUE schema file (defaults to the embedded schema)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "", "Append logs to this file instead of STDERR")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// loadConfig loads the configuration and builds the marker grid.
func loadConfig() (*config.NavigatorConfig, *marker.Grid, error) {
	cfg, err := config.Load(configPath, schemaPath)
	if err != nil {
		return nil, nil, err
	}
	grid, err := cfg.Grid()
	if err != nil {
		return nil, nil, err
	}
	return cfg, grid, nil
}

func thresholds(cfg *config.NavigatorConfig) perception.Thresholds {
	return perception.Thresholds{
		Long:   cfg.Perception.LongDistance,
		Medium: cfg.Perception.MediumDistance,
		Short:  cfg.Perception.ShortDistance,
	}
}

// runID returns RUN_ID from the environment or a fresh UUID.
func runID() string {
	if id := os.Getenv("RUN_ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// tickInterval applies the TICK_INTERVAL override.
func tickInterval(def time.Duration) (time.Duration, error) {
	env := os.Getenv("TICK_INTERVAL")
	if env == "" {
		return def, nil
	}
	d, err := time.ParseDuration(env)
	if err != nil {
		return 0, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}
	return d, nil
}

func targetSet(cfg *config.NavigatorConfig) map[string]bool {
	out := make(map[string]bool, len(cfg.Targets))
	for id := range cfg.Targets {
		out[id] = true
	}
	return out
}
