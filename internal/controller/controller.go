// ============================================================================
// MLFQ Simulator Controller - batch orchestration
// ============================================================================
//
// Package: internal/controller
// File: controller.go
// Purpose: Run one task list through several schemes and persist the batch
//
// Components coordinated per batch:
//   - engine:   one private Engine per scheme (each deep-copies the input)
//   - trace:    optional <dir>/<scheme>.jsonl event log per scheme
//   - snapshot: optional archive of the input plus every result
//   - metrics:  optional Prometheus collector fed live events and run totals
//
// Flow:
//   1. Assign a run id (uuid)
//   2. Run the schemes concurrently, at most Parallelism at a time
//   3. Collect results in the configured scheme order
//   4. Write the archive once every scheme has succeeded
//
// The first failing scheme cancels the batch; no archive is written.
//
// ============================================================================

package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ChuLiYu/mlfq-sim/internal/engine"
	"github.com/ChuLiYu/mlfq-sim/internal/metrics"
	"github.com/ChuLiYu/mlfq-sim/internal/report"
	"github.com/ChuLiYu/mlfq-sim/internal/snapshot"
	"github.com/ChuLiYu/mlfq-sim/internal/trace"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// ErrNoSchemes is returned when a controller is configured without schemes.
var ErrNoSchemes = errors.New("no schemes configured")

// ============================================================================
// Data structures
// ============================================================================

// Config configures a Controller. Zero values disable the optional parts.
type Config struct {
	Schemes     []types.SchemeID // Run order; duplicates are dropped
	Parallelism int              // Concurrent scheme runs, <= 0 means all at once
	TraceDir    string           // Directory for per-scheme trace logs
	ArchivePath string           // Archive file written after a successful batch

	Logger  *slog.Logger
	Metrics *metrics.Collector

	// OnSchemeDone is called once per finished scheme, from the goroutine
	// that ran it.
	OnSchemeDone func(scheme types.SchemeID, err error)
}

// Batch is the outcome of one Run.
type Batch struct {
	RunID   string
	Results []types.RunResult // Same order as Config.Schemes
}

// Controller runs batches. It is safe for concurrent use.
type Controller struct {
	config  Config
	schemes []types.SchemeID
	log     *slog.Logger
	archive *snapshot.Manager

	newRunID func() string

	mu        sync.Mutex
	batches   int
	lastRunID string
}

// ============================================================================
// Construction
// ============================================================================

// NewController validates the scheme list and prepares the optional sinks.
// An unknown scheme yields an *engine.ConfigError.
func NewController(config Config) (*Controller, error) {
	if len(config.Schemes) == 0 {
		return nil, ErrNoSchemes
	}

	seen := make(map[types.SchemeID]bool, len(config.Schemes))
	schemes := make([]types.SchemeID, 0, len(config.Schemes))
	for _, id := range config.Schemes {
		scheme, err := engine.LookupScheme(id)
		if err != nil {
			return nil, err
		}
		if seen[scheme.ID] {
			continue
		}
		seen[scheme.ID] = true
		schemes = append(schemes, scheme.ID)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		config:   config,
		schemes:  schemes,
		log:      logger.With("component", "controller"),
		newRunID: uuid.NewString,
	}
	if config.ArchivePath != "" {
		c.archive = snapshot.NewManager(config.ArchivePath)
	}
	return c, nil
}

// Schemes returns the normalized run order.
func (c *Controller) Schemes() []types.SchemeID {
	out := make([]types.SchemeID, len(c.schemes))
	copy(out, c.schemes)
	return out
}

// ============================================================================
// Batch execution
// ============================================================================

// Run simulates input under every configured scheme.
func (c *Controller) Run(ctx context.Context, input []types.Task) (Batch, error) {
	runID := c.newRunID()
	start := time.Now()

	c.log.Info("Batch started",
		"run_id", runID,
		"tasks", len(input),
		"schemes", len(c.schemes))

	results := make([]types.RunResult, len(c.schemes))

	g, gctx := errgroup.WithContext(ctx)
	if c.config.Parallelism > 0 {
		g.SetLimit(c.config.Parallelism)
	}
	for i, id := range c.schemes {
		g.Go(func() error {
			result, err := c.runScheme(gctx, runID, id, input)
			if c.config.OnSchemeDone != nil {
				c.config.OnSchemeDone(id, err)
			}
			if err != nil {
				return fmt.Errorf("scheme %s: %w", id, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Error("Batch failed", "run_id", runID, "error", err)
		return Batch{RunID: runID}, err
	}

	if c.archive != nil {
		data := types.ArchiveData{
			RunID:   runID,
			Input:   input,
			Results: results,
		}
		if c.archive.Exists() {
			c.log.Info("Replacing existing archive", "path", c.archive.Path())
		}
		if err := c.archive.Write(data); err != nil {
			return Batch{RunID: runID}, fmt.Errorf("write archive: %w", err)
		}
		c.log.Debug("Archive written", "run_id", runID, "path", c.archive.Path())
	}

	c.mu.Lock()
	c.batches++
	c.lastRunID = runID
	c.mu.Unlock()

	c.log.Info("Batch completed",
		"run_id", runID,
		"duration", time.Since(start))

	return Batch{RunID: runID, Results: results}, nil
}

// runScheme runs one scheme with its trace and metrics observers attached.
func (c *Controller) runScheme(ctx context.Context, runID string, id types.SchemeID, input []types.Task) (result types.RunResult, err error) {
	if err := ctx.Err(); err != nil {
		return result, err
	}

	var opts []engine.Option
	if c.config.Metrics != nil {
		opts = append(opts, engine.WithObserver(c.config.Metrics))
		defer func() {
			if err != nil {
				c.config.Metrics.RecordFailure(id)
			}
		}()
	}
	if c.config.TraceDir != "" {
		traceLog, terr := trace.Create(trace.PathFor(c.config.TraceDir, id), runID)
		if terr != nil {
			return result, terr
		}
		recorder := trace.NewRecorder(traceLog)
		opts = append(opts, engine.WithObserver(recorder))
		defer func() {
			if cerr := recorder.Close(); cerr != nil {
				if err == nil {
					err = fmt.Errorf("trace: %w", cerr)
				}
				return
			}
			c.log.Debug("Trace written",
				"run_id", runID,
				"scheme", id,
				"path", traceLog.Path(),
				"records", recorder.Records())
		}()
	}

	start := time.Now()
	result, err = engine.Run(id, input, opts...)
	elapsed := time.Since(start)
	if err != nil {
		return result, err
	}

	avg := report.Summarize(result.Tasks)
	if c.config.Metrics != nil {
		c.config.Metrics.RecordRun(result, avg, elapsed)
	}

	c.log.Debug("Scheme completed",
		"run_id", runID,
		"scheme", id,
		"ticks", result.Stats.Ticks,
		"avg_turnaround", avg.Turnaround,
		"duration", elapsed)

	return result, nil
}

// LoadArchive reads the configured archive.
func (c *Controller) LoadArchive() (types.ArchiveData, error) {
	if c.archive == nil {
		return types.ArchiveData{}, fmt.Errorf("%w: no archive path configured", snapshot.ErrArchiveNotFound)
	}
	return c.archive.Load()
}

// VerifyTraces replays the trace of every configured scheme and returns the
// number of verified records per scheme.
func (c *Controller) VerifyTraces() (map[types.SchemeID]int, error) {
	if c.config.TraceDir == "" {
		return nil, errors.New("no trace directory configured")
	}

	counts := make(map[types.SchemeID]int, len(c.schemes))
	for _, id := range c.schemes {
		n, err := trace.Count(trace.PathFor(c.config.TraceDir, id))
		if err != nil {
			return counts, fmt.Errorf("scheme %s: %w", id, err)
		}
		counts[id] = n
	}
	return counts, nil
}

// GetStatus reports batch counters.
func (c *Controller) GetStatus() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	return map[string]interface{}{
		"schemes":     c.schemes,
		"parallelism": c.config.Parallelism,
		"batches":     c.batches,
		"last_run_id": c.lastRunID,
	}
}
