// ============================================================================
// Netspatch CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra command trees for the dispatcher and worker binaries
//
// Command Structure:
//   netspatch-dispatcher               # Root command (serve)
//   ├── serve <span>...                # Start the dispatch server
//   │   ├── --host, --port            # Bind address
//   │   ├── --fuse                    # Post-drain quiescence (seconds)
//   │   └── --config, -c              # YAML config file
//   └── status                         # Show resolved configuration
//
//   netspatch-worker                   # Root command (work)
//   └── work                           # Poll a dispatcher until drained
//       ├── --host, --port            # Dispatcher address
//       ├── --id                      # Worker identity for result records
//       ├── --timeout, --retries      # Connect policy
//       └── --interval                # Sleep between polls (seconds)
//
// Configuration precedence: built-in defaults < YAML file < NETSPATCH_
// environment variables < explicit CLI flags.
//
// serve exits nonzero when the span vector is empty or the address cannot
// be bound, and zero on a graceful drain-and-stop.
//
// ============================================================================

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gregjesl/netspatch/internal/client"
	"github.com/gregjesl/netspatch/internal/config"
	"github.com/gregjesl/netspatch/internal/job"
	"github.com/gregjesl/netspatch/internal/metrics"
	"github.com/gregjesl/netspatch/internal/server"
	"github.com/gregjesl/netspatch/internal/worker"
)

var (
	configFile string
	verbose    bool
)

// newLogger returns the console logger shared by all commands.
func newLogger(service string) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Str("service", service).
		Timestamp().
		Logger()
}

// BuildDispatcherCLI builds the command tree for the dispatcher binary.
func BuildDispatcherCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "netspatch-dispatcher",
		Short: "Netspatch: dispatch an N-dimensional index space to remote workers",
		Long: `Netspatch enumerates the cells of an N-dimensional rectangular index
space, hands each cell to at most one polling worker at a time, tracks
completion, and shuts itself down once every cell has been reported.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "netspatch.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

// BuildWorkerCLI builds the command tree for the worker binary.
func BuildWorkerCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "netspatch-worker",
		Short: "Netspatch worker: poll a dispatcher and report results",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "netspatch.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(buildWorkCommand())

	return rootCmd
}

func buildServeCommand() *cobra.Command {
	var host string
	var port int
	var fuseSeconds int

	cmd := &cobra.Command{
		Use:   "serve <span>...",
		Short: "Start the dispatch server over the given span vector",
		Long: `Start the dispatch server. Each positional argument is the positive
span of one dimension; the server drains the full cross-product and then
stops itself after the configured fuse.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spans, err := parseSpans(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, &host, &port, &fuseSeconds)
			if err != nil {
				return err
			}
			return runServe(cfg, spans)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "host to bind")
	cmd.Flags().IntVar(&port, "port", 0, "port to bind")
	cmd.Flags().IntVar(&fuseSeconds, "fuse", 0, "seconds to wait after drain before stopping")

	return cmd
}

func runServe(cfg *config.Config, spans []int) error {
	log := newLogger("dispatcher")

	manager, err := job.NewManager(spans)
	if err != nil {
		return fmt.Errorf("could not build job manager: %w", err)
	}

	opts := []server.Option{server.WithLogger(log)}
	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector()
		opts = append(opts, server.WithCollector(collector))
		go func() {
			log.Info().Int("port", cfg.Metrics.Port).Msg("starting metrics server")
			if err := collector.StartServer(cfg.Metrics.Port); err != nil {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	srv, err := server.Start(cfg.Server.Host, cfg.Server.Port, manager, cfg.Fuse(), opts...)
	if err != nil {
		return fmt.Errorf("could not start server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		srv.Wait()
		close(done)
	}()

	select {
	case <-sigChan:
		log.Info().Msg("received shutdown signal, stopping")
		srv.Stop()
	case <-done:
	}
	return nil
}

func buildWorkCommand() *cobra.Command {
	var host string
	var port int
	var id string
	var timeoutSeconds int
	var retries int
	var intervalSeconds int

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Poll the dispatcher until it reports a full drain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Client.TimeoutSeconds = timeoutSeconds
			}
			if cmd.Flags().Changed("retries") {
				cfg.Client.Retries = retries
			}
			if cmd.Flags().Changed("interval") {
				cfg.Client.PollIntervalSeconds = intervalSeconds
			}
			return runWork(cfg, id)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "dispatcher host")
	cmd.Flags().IntVar(&port, "port", 0, "dispatcher port")
	cmd.Flags().StringVar(&id, "id", strconv.Itoa(os.Getpid()), "worker identity reported with each result")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "connect timeout in seconds")
	cmd.Flags().IntVar(&retries, "retries", 0, "additional connect rounds after the first")
	cmd.Flags().IntVar(&intervalSeconds, "interval", 0, "seconds to sleep between polls")

	return cmd
}

func runWork(cfg *config.Config, id string) error {
	log := newLogger("worker")

	source := client.New(cfg.Server.Host, cfg.Server.Port).
		WithTimeout(cfg.Timeout()).
		WithRetries(cfg.Client.Retries).
		WithLogger(log)

	handler := func(j job.Job) (string, error) {
		return fmt.Sprintf("worker %s responded to job %s", id, j.URI()), nil
	}

	w := worker.New(id, source, handler).
		WithInterval(cfg.PollInterval()).
		WithLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return w.Run(ctx)
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	fmt.Println("Netspatch configuration")
	fmt.Printf("  Config File:     %s\n", configFile)
	fmt.Printf("  Server:          %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Fuse:            %s\n", cfg.Fuse())
	fmt.Printf("  Client Timeout:  %s\n", cfg.Timeout())
	fmt.Printf("  Client Retries:  %d\n", cfg.Client.Retries)
	fmt.Printf("  Poll Interval:   %s\n", cfg.PollInterval())
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics:         enabled on http://localhost:%d/metrics\n", cfg.Metrics.Port)
	} else {
		fmt.Printf("  Metrics:         disabled\n")
	}
	return nil
}

// loadConfig resolves the config file and layers explicit serve flags over it.
func loadConfig(cmd *cobra.Command, host *string, port *int, fuseSeconds *int) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = *host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = *port
	}
	if cmd.Flags().Changed("fuse") {
		cfg.Server.FuseSeconds = *fuseSeconds
	}
	return cfg, cfg.Validate()
}

// parseSpans converts the positional arguments into a span vector.
func parseSpans(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no dimensions provided")
	}
	spans := make([]int, len(args))
	for i, arg := range args {
		value, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid dimension %q", arg)
		}
		if value <= 0 {
			return nil, fmt.Errorf("dimension %q must be positive", arg)
		}
		spans[i] = value
	}
	return spans, nil
}
