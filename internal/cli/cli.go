// ============================================================================
// MLFQ Simulator CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra command tree, configuration loading and exit-code mapping
//
// Command Structure:
//   mlfq --in=<tasks> --out=<report>   # Simulate and write the report
//   ├── serve                          # gRPC Simulator service + /metrics
//   ├── report --archive=<path>        # Re-render a report from an archive
//   ├── verify --trace-dir=<dir>       # Replay and verify trace logs
//   ├── schemes                        # List the predefined schemes
//   ├── --config, -c                   # YAML configuration file
//   └── --log-level, --log-format      # Logging overrides
//
// Exit codes (root command):
//   0 success, 1 missing --in/--out, 2 output cannot be opened,
//   3 parse or execution failure
//
// Signal Handling:
//   serve stops on SIGINT/SIGTERM: the gRPC server drains in-flight calls,
//   then the metrics endpoint shuts down.
//
// ============================================================================

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ChuLiYu/mlfq-sim/internal/controller"
	"github.com/ChuLiYu/mlfq-sim/internal/logging"
	"github.com/ChuLiYu/mlfq-sim/internal/metrics"
	"github.com/ChuLiYu/mlfq-sim/internal/report"
	"github.com/ChuLiYu/mlfq-sim/internal/server"
	"github.com/ChuLiYu/mlfq-sim/internal/snapshot"
	"github.com/ChuLiYu/mlfq-sim/internal/workload"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// Version is reported by --version.
var Version = "1.0.0"

// app carries state shared by the commands of one invocation.
type app struct {
	configFile string
	logLevel   string
	logFormat  string

	cfg    *Config
	logger *slog.Logger
	stderr io.Writer
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := BuildCLI(stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return ExitCode(err)
}

// BuildCLI assembles the command tree. Logs and progress go to stderr.
func BuildCLI(stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}

	rootCmd := buildSimulateCommand(a)
	rootCmd.Version = Version
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.init()
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	rootCmd.AddCommand(buildServeCommand(a))
	rootCmd.AddCommand(buildReportCommand(a))
	rootCmd.AddCommand(buildVerifyCommand(a))
	rootCmd.AddCommand(buildSchemesCommand())

	return rootCmd
}

// init loads the configuration and builds the logger.
func (a *app) init() error {
	cfg, err := LoadConfig(a.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	a.cfg = cfg
	a.logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, a.stderr)
	return nil
}

// ============================================================================
// mlfq (root): simulate
// ============================================================================

type simulateOptions struct {
	in, out     string
	schemes     []string
	parallelism int
	archive     string
	traceDir    string
	table       bool
	progress    bool
}

func buildSimulateCommand(a *app) *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "mlfq",
		Short: "Multi-level feedback queue scheduling simulator",
		Long: `mlfq runs a task list through the four-tier MLFQ schemes:
  A: RR(1), RR(3), RR(4), SJF
  B: RR(2), RR(3), RR(4), SRTF
  C: RR(3), RR(5), RR(6), RR(20)
and writes a per-task report plus a comparison of the schemes.

Input lines have the form id;service;arrival;tier;priority.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("schemes") {
				a.cfg.Simulation.Schemes = opts.schemes
			}
			if cmd.Flags().Changed("parallelism") {
				a.cfg.Simulation.Parallelism = opts.parallelism
			}
			if opts.archive == "" {
				opts.archive = a.cfg.Archive.Path
			}
			if opts.traceDir == "" {
				opts.traceDir = a.cfg.Trace.Dir
			}
			return a.simulate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.in, "in", "", "task list file")
	cmd.Flags().StringVar(&opts.out, "out", "", "report file")
	cmd.Flags().StringSliceVar(&opts.schemes, "schemes", nil, "schemes to run, in report order (default from config: A,B,C)")
	cmd.Flags().IntVar(&opts.parallelism, "parallelism", 0, "concurrent scheme runs, 0 runs all at once")
	cmd.Flags().StringVar(&opts.archive, "archive", "", "write a JSON archive of the input and results")
	cmd.Flags().StringVar(&opts.traceDir, "trace-dir", "", "write <dir>/<scheme>.jsonl scheduling traces")
	cmd.Flags().BoolVar(&opts.table, "table", false, "print a comparison table to stdout")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "show a progress bar on stderr")

	return cmd
}

func (a *app) simulate(ctx context.Context, stdout io.Writer, opts simulateOptions) error {
	if opts.in == "" || opts.out == "" {
		return exitErr(ExitUsage, errors.New("both --in and --out are required"))
	}

	tasks, err := workload.ParseFile(opts.in)
	if err != nil {
		return exitErr(ExitSimulation, err)
	}

	schemes := a.cfg.SchemeIDs()
	config := controller.Config{
		Schemes:     schemes,
		Parallelism: a.cfg.Simulation.Parallelism,
		TraceDir:    opts.traceDir,
		ArchivePath: opts.archive,
		Logger:      a.logger,
	}
	if opts.progress {
		bar := report.NewProgressBar(len(schemes))
		config.OnSchemeDone = func(types.SchemeID, error) { _ = bar.Add(1) }
		defer bar.Finish()
	}

	ctrl, err := controller.NewController(config)
	if err != nil {
		return exitErr(ExitSimulation, err)
	}
	batch, err := ctrl.Run(ctx, tasks)
	if err != nil {
		return exitErr(ExitSimulation, err)
	}

	if err := writeReportFile(opts.out, batch.Results); err != nil {
		return err
	}

	a.logger.Info("Report written",
		"run_id", batch.RunID,
		"path", opts.out,
		"tasks", len(tasks))

	if opts.table {
		if err := report.PrintComparison(stdout, batch.Results); err != nil {
			return exitErr(ExitSimulation, err)
		}
	}
	return nil
}

func writeReportFile(path string, results []types.RunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return exitErr(ExitOutputOpen, fmt.Errorf("open output: %w", err))
	}
	if err := report.Write(f, results); err != nil {
		f.Close()
		return exitErr(ExitSimulation, err)
	}
	if err := f.Close(); err != nil {
		return exitErr(ExitSimulation, fmt.Errorf("close output: %w", err))
	}
	return nil
}

// ============================================================================
// serve
// ============================================================================

func buildServeCommand(a *app) *cobra.Command {
	var (
		port        int
		metricsPort int
		rateLimit   float64
		burst       int
		maxTicks    int
		noMetrics   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC Simulator service",
		Long:  "Serve mlfq.v1.Simulator over gRPC and expose Prometheus metrics on /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("metrics-port") {
				cfg.Metrics.Port = metricsPort
			}
			if cmd.Flags().Changed("rate-limit") {
				cfg.Server.RateLimit = rateLimit
			}
			if cmd.Flags().Changed("burst") {
				cfg.Server.Burst = burst
			}
			if cmd.Flags().Changed("max-ticks") {
				cfg.Server.MaxTicks = maxTicks
			}
			if noMetrics {
				cfg.Metrics.Enabled = false
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 50051, "gRPC listen port")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 9090, "metrics HTTP port")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 50, "requests per second, 0 disables limiting")
	cmd.Flags().IntVar(&burst, "burst", 10, "rate limiter burst")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 1_000_000, "reject workloads whose latest arrival plus total service exceeds this")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the metrics endpoint")

	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	log := a.logger.With("component", "serve")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	srv := server.NewServer(server.Config{
		Schemes:     cfg.SchemeIDs(),
		Parallelism: cfg.Simulation.Parallelism,
		MaxTicks:    cfg.Server.MaxTicks,
		Metrics:     collector,
		Logger:      a.logger,
	})
	grpcServer := server.NewGRPCServer(srv, cfg.Server.RateLimit, cfg.Server.Burst)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("gRPC server listening", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server failed: %w", err)
		}
	}()

	var httpServer *http.Server
	if cfg.Metrics.Enabled {
		httpServer = metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port), registry)
		go func() {
			log.Info("Metrics server listening", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server failed: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal, stopping gracefully...")
	case runErr = <-errCh:
		log.Error("Server error", "error", runErr)
	}

	grpcServer.GracefulStop()
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to stop metrics server", "error", err)
		}
	}

	log.Info("Server stopped")
	return runErr
}

// ============================================================================
// report
// ============================================================================

func buildReportCommand(a *app) *cobra.Command {
	var (
		archivePath string
		outPath     string
		table       bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the report stored in an archive",
		Long:  "Load an archive written with --archive and write its report to --out (stdout when omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if archivePath == "" {
				archivePath = a.cfg.Archive.Path
			}
			if archivePath == "" {
				return exitErr(ExitUsage, errors.New("--archive is required"))
			}

			data, err := snapshot.NewManager(archivePath).Load()
			if err != nil {
				return exitErr(ExitSimulation, err)
			}
			a.logger.Debug("Archive loaded",
				"run_id", data.RunID,
				"created_at", time.UnixMilli(data.CreatedAt).UTC().Format(time.RFC3339),
				"schemes", len(data.Results))

			if outPath == "" {
				if err := report.Write(cmd.OutOrStdout(), data.Results); err != nil {
					return exitErr(ExitSimulation, err)
				}
			} else if err := writeReportFile(outPath, data.Results); err != nil {
				return err
			}

			if table {
				if err := report.PrintComparison(cmd.OutOrStdout(), data.Results); err != nil {
					return exitErr(ExitSimulation, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "archive file")
	cmd.Flags().StringVar(&outPath, "out", "", "report file (default stdout)")
	cmd.Flags().BoolVar(&table, "table", false, "also print the comparison table")

	return cmd
}

// ============================================================================
// verify
// ============================================================================

func buildVerifyCommand(a *app) *cobra.Command {
	var (
		traceDir string
		schemes  []string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify scheduling trace logs",
		Long:  "Replay <dir>/<scheme>.jsonl for every scheme, checking sequence numbers and checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if traceDir == "" {
				traceDir = a.cfg.Trace.Dir
			}
			if traceDir == "" {
				return exitErr(ExitUsage, errors.New("--trace-dir is required"))
			}
			if cmd.Flags().Changed("schemes") {
				a.cfg.Simulation.Schemes = schemes
			}

			ctrl, err := controller.NewController(controller.Config{
				Schemes:  a.cfg.SchemeIDs(),
				TraceDir: traceDir,
				Logger:   a.logger,
			})
			if err != nil {
				return exitErr(ExitSimulation, err)
			}

			counts, err := ctrl.VerifyTraces()
			if err != nil {
				return exitErr(ExitSimulation, err)
			}
			for _, id := range ctrl.Schemes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records OK\n", id, counts[id])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&traceDir, "trace-dir", "", "directory holding the trace logs")
	cmd.Flags().StringSliceVar(&schemes, "schemes", nil, "schemes to verify (default from config)")

	return cmd
}

// ============================================================================
// schemes
// ============================================================================

func buildSchemesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "List the predefined scheduling schemes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report.PrintSchemes(cmd.OutOrStdout())
		},
	}
}
