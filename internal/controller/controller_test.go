package controller

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/mlfq-sim/internal/engine"
	"github.com/ChuLiYu/mlfq-sim/internal/logging"
	"github.com/ChuLiYu/mlfq-sim/internal/metrics"
	"github.com/ChuLiYu/mlfq-sim/internal/snapshot"
	"github.com/ChuLiYu/mlfq-sim/internal/trace"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

func sampleInput() []types.Task {
	return []types.Task{
		{ID: "A", ServiceDuration: 5, ArrivalMoment: 0, Tier: 1, Priority: 1},
		{ID: "B", ServiceDuration: 2, ArrivalMoment: 0, Tier: 1, Priority: 2},
		{ID: "C", ServiceDuration: 9, ArrivalMoment: 3, Tier: 1, Priority: 1},
		{ID: "D", ServiceDuration: 1, ArrivalMoment: 12, Tier: 1, Priority: 3},
	}
}

func allSchemes() []types.SchemeID {
	return []types.SchemeID{types.SchemeA, types.SchemeB, types.SchemeC}
}

func createTestController(t *testing.T, config Config) *Controller {
	t.Helper()
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	c, err := NewController(config)
	require.NoError(t, err)
	return c
}

// ============================================================================
// Construction
// ============================================================================

func TestNewController(t *testing.T) {
	c := createTestController(t, Config{Schemes: []types.SchemeID{"c", "A", "C"}})
	assert.Equal(t, []types.SchemeID{types.SchemeC, types.SchemeA}, c.Schemes(), "normalized and deduplicated")
}

func TestNewController_Errors(t *testing.T) {
	_, err := NewController(Config{})
	assert.ErrorIs(t, err, ErrNoSchemes)

	_, err = NewController(Config{Schemes: []types.SchemeID{"A", "Z"}})
	assert.True(t, engine.IsConfigError(err))
}

// ============================================================================
// Batch execution
// ============================================================================

func TestRun_MatchesSequentialEngineRuns(t *testing.T) {
	c := createTestController(t, Config{Schemes: allSchemes(), Parallelism: 2})

	batch, err := c.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.NotEmpty(t, batch.RunID)
	require.Len(t, batch.Results, 3)

	for i, id := range allSchemes() {
		want, err := engine.Run(id, sampleInput())
		require.NoError(t, err)
		assert.Equal(t, want, batch.Results[i], "scheme %s", id)
	}

	status := c.GetStatus()
	assert.Equal(t, 1, status["batches"])
	assert.Equal(t, batch.RunID, status["last_run_id"])
}

func TestRun_DoesNotMutateInput(t *testing.T) {
	c := createTestController(t, Config{Schemes: allSchemes()})
	input := sampleInput()

	_, err := c.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, sampleInput(), input)
}

func TestRun_InvalidWorkload(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	archive := filepath.Join(t.TempDir(), "archive.json")
	c := createTestController(t, Config{Schemes: allSchemes(), Metrics: collector, ArchivePath: archive})

	_, err := c.Run(context.Background(), []types.Task{{ID: "X", ServiceDuration: 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidWorkload)

	_, statErr := os.Stat(archive)
	assert.True(t, os.IsNotExist(statErr), "failed batch writes no archive")
}

func TestRun_CancelledContext(t *testing.T) {
	c := createTestController(t, Config{Schemes: allSchemes(), Parallelism: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, sampleInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ProgressCallback(t *testing.T) {
	var (
		mu   sync.Mutex
		done []types.SchemeID
	)
	c := createTestController(t, Config{
		Schemes: allSchemes(),
		OnSchemeDone: func(id types.SchemeID, err error) {
			assert.NoError(t, err)
			mu.Lock()
			done = append(done, id)
			mu.Unlock()
		},
	})

	_, err := c.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.ElementsMatch(t, allSchemes(), done)
}

func TestRun_WritesArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.json")
	c := createTestController(t, Config{Schemes: allSchemes(), ArchivePath: path})
	c.newRunID = func() string { return "fixed-run" }

	batch, err := c.Run(context.Background(), sampleInput())
	require.NoError(t, err)

	data, err := c.LoadArchive()
	require.NoError(t, err)
	assert.Equal(t, snapshot.SchemaVersion, data.SchemaVer)
	assert.Equal(t, "fixed-run", data.RunID)
	assert.Equal(t, sampleInput(), data.Input)
	require.Len(t, data.Results, len(batch.Results))
	for i := range batch.Results {
		assert.Equal(t, batch.Results[i].Tasks, data.Results[i].Tasks)
	}
}

func TestLoadArchive_NotConfigured(t *testing.T) {
	c := createTestController(t, Config{Schemes: allSchemes()})
	_, err := c.LoadArchive()
	assert.ErrorIs(t, err, snapshot.ErrArchiveNotFound)
}

func TestRun_WritesVerifiableTraces(t *testing.T) {
	dir := t.TempDir()
	c := createTestController(t, Config{Schemes: allSchemes(), TraceDir: dir})

	batch, err := c.Run(context.Background(), sampleInput())
	require.NoError(t, err)

	counts, err := c.VerifyTraces()
	require.NoError(t, err)
	for _, id := range allSchemes() {
		assert.Positive(t, counts[id], "scheme %s", id)
	}

	require.NoError(t, trace.Replay(trace.PathFor(dir, types.SchemeA), func(rec trace.Record) error {
		assert.Equal(t, batch.RunID, rec.RunID)
		return nil
	}))
}

func TestVerifyTraces_NotConfigured(t *testing.T) {
	c := createTestController(t, Config{Schemes: allSchemes()})
	_, err := c.VerifyTraces()
	assert.Error(t, err)
}

func TestRun_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	c := createTestController(t, Config{Schemes: allSchemes(), Metrics: collector})

	_, err := c.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	_, err = c.Run(context.Background(), []types.Task{{ID: "X", ServiceDuration: -1}})
	require.Error(t, err)

	expected := `
# HELP mlfq_runs_total Total number of completed simulation runs
# TYPE mlfq_runs_total counter
mlfq_runs_total{scheme="A"} 1
mlfq_runs_total{scheme="B"} 1
mlfq_runs_total{scheme="C"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "mlfq_runs_total"))
	failures, err := testutil.GatherAndCount(reg, "mlfq_run_failures_total")
	require.NoError(t, err)
	assert.Positive(t, failures)
}

func TestRun_Logging(t *testing.T) {
	var buf bytes.Buffer
	c := createTestController(t, Config{
		Schemes: []types.SchemeID{types.SchemeA},
		Logger:  logging.NewLoggerWithWriter(slog.LevelDebug, logging.FormatText, &buf),
	})

	_, err := c.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "component=controller")
	assert.Contains(t, buf.String(), "Batch completed")
	assert.Contains(t, buf.String(), "scheme=A")
}

func TestRun_LogsTraceAndArchiveReplacement(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	c := createTestController(t, Config{
		Schemes:     []types.SchemeID{types.SchemeA},
		TraceDir:    filepath.Join(dir, "traces"),
		ArchivePath: filepath.Join(dir, "archive.json"),
		Logger:      logging.NewLoggerWithWriter(slog.LevelDebug, logging.FormatText, &buf),
	})

	_, err := c.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Trace written")
	assert.NotContains(t, buf.String(), "Replacing existing archive")

	counts, err := c.VerifyTraces()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), fmt.Sprintf("records=%d", counts[types.SchemeA]))

	buf.Reset()
	_, err = c.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Replacing existing archive")
}
