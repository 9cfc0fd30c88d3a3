// ============================================================================
// Netspatch Dispatcher - Main Entry Point
// ============================================================================
//
// File: cmd/dispatcher/main.go
// Purpose: Application entry point and CLI initialization
//
// Version Injection:
//   Variables injected at build time via -ldflags:
//   go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
//
// Usage:
//   ./netspatch-dispatcher --help          # Show help
//   ./netspatch-dispatcher serve 10 10     # Dispatch a 10x10 index space
//   ./netspatch-dispatcher status          # Show resolved configuration
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

	rootCmd := cli.BuildDispatcherCLI()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
