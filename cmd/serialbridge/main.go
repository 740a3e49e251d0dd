// Package main is the entry point for the serialbridge CLI.
//
// Usage:
//
//	serialbridge serve -c config.yaml    # Start the bridge and dashboard
//	serialbridge ports                   # List serial devices
//	serialbridge tail --url ws://...     # Follow the stream in a terminal
//	serialbridge version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd shows help; functionality lives in subcommands.
var rootCmd = &cobra.Command{
	Use:   "serialbridge",
	Short: "Bridge a serial port to WebSocket clients",
	Long: `serialbridge reads newline-delimited telemetry from one serial port
(or a built-in simulated sensor) and pushes every line to all connected
browsers over a WebSocket.

Quick start:
  1. Run: serialbridge serve
  2. Open http://localhost:3000 in your browser
  3. Pick a port (or "mock") and press Connect`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "serialbridge %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
