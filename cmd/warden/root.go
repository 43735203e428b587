package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - detection policy-gate engine",
	Long: `Warden wraps anomaly and signal detectors with a uniform governance layer
that decides, per detection, whether the detector's action executes
immediately, waits for a reviewer's approval, or is suppressed.

It provides:
  - Per-detector policy gates with live, shadow and disabled modes
  - A human approval queue for warn/block tier detections
  - An append-only, crash-durable audit log of every decision
  - Restart-safe metrics reconstructed by replaying the audit log`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
