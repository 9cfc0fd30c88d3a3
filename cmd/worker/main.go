// ============================================================================
// Netspatch Worker - Main Entry Point
// ============================================================================
//
// File: cmd/worker/main.go
// Purpose: Entry point for the polling worker binary
//
// Usage:
//   ./netspatch-worker work --host dispatch.example.com --port 7878
//   ./netspatch-worker work --id $SLURM_JOB_ID --retries 3
//
// The worker polls until the dispatcher reports a full drain, then exits
// zero. Transport failures after the configured retries exit nonzero.
//
// ============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/gregjesl/netspatch/internal/cli"
)

// Build-time version injection via ldflags
var (
	version = "1.0.0"   // Semantic version
	commit  = "dev"     // Git commit hash
	date    = "unknown" // Build timestamp
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildWorkerCLI()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
