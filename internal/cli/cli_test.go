package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/mlfq-sim/internal/snapshot"
	"github.com/ChuLiYu/mlfq-sim/internal/trace"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

const sampleTasks = `# id;service;arrival;tier;priority
A;5;0;1;1
B;2;0;1;2
C;8;3;1;1
`

// ============================================================================
// Test Helper Functions
// ============================================================================

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = Execute(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// ============================================================================
// Command tree
// ============================================================================

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI(&bytes.Buffer{})

	assert.Equal(t, "mlfq", cmd.Use)
	assert.Equal(t, Version, cmd.Version)

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "report", "verify", "schemes"} {
		assert.True(t, names[want], "missing %q command", want)
	}

	for _, flag := range []string{"in", "out", "schemes", "archive", "trace-dir", "table", "progress"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "missing --%s", flag)
	}
	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

// ============================================================================
// Simulate + exit codes
// ============================================================================

func TestSimulate_WritesReport(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "tasks.txt", sampleTasks)
	out := filepath.Join(dir, "report.txt")

	code, _, stderr := run(t, "--in="+in, "--out="+out, "--log-level=error")
	require.Equal(t, ExitOK, code, stderr)

	got := readFile(t, out)
	assert.True(t, strings.HasPrefix(got, "Algorithm A: RR(1), RR(3), RR(4), SJF\nidentifier; BT; AT; Q; Pr; WT; CT; RT; TAT\n"))
	assert.Contains(t, got, "Algorithm B: RR(2), RR(3), RR(4), SRTF\n")
	assert.Contains(t, got, "Algorithm C: RR(3), RR(5), RR(6), RR(20)\n")
	assert.Contains(t, got, "Algorithm Comparison\nalgorithm; WT; CT; RT; TAT\nA; ")

	comparison := got[strings.Index(got, "Algorithm Comparison"):]
	assert.Equal(t, 5, strings.Count(comparison, "\n"), "title, header and one line per scheme")
}

func TestSimulate_SchemeSelection(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "tasks.txt", sampleTasks)
	out := filepath.Join(dir, "report.txt")

	code, _, stderr := run(t, "--in", in, "--out", out, "--schemes", "c,a", "--parallelism", "1")
	require.Equal(t, ExitOK, code, stderr)

	got := readFile(t, out)
	assert.True(t, strings.HasPrefix(got, "Algorithm C: "))
	assert.NotContains(t, got, "Algorithm B: ")
	assert.Less(t, strings.Index(got, "Algorithm C: "), strings.Index(got, "Algorithm A: "))
}

func TestSimulate_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "tasks.txt", sampleTasks)
	bad := writeFile(t, dir, "bad.txt", "A;x;0;1;1\n")
	out := filepath.Join(dir, "report.txt")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "missing in", args: []string{"--out=" + out}, want: ExitUsage},
		{name: "missing out", args: []string{"--in=" + in}, want: ExitUsage},
		{name: "unknown flag", args: []string{"--bogus"}, want: ExitUsage},
		{name: "output not openable", args: []string{"--in=" + in, "--out=" + filepath.Join(dir, "missing", "r.txt")}, want: ExitOutputOpen},
		{name: "input missing", args: []string{"--in=" + filepath.Join(dir, "none.txt"), "--out=" + out}, want: ExitSimulation},
		{name: "malformed input", args: []string{"--in=" + bad, "--out=" + out}, want: ExitSimulation},
		{name: "unknown scheme", args: []string{"--in=" + in, "--out=" + out, "--schemes=Z"}, want: ExitSimulation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := run(t, tt.args...)
			assert.Equal(t, tt.want, code, stderr)
			assert.Contains(t, stderr, "Error:")
		})
	}
}

func TestSimulate_EmptyTaskList(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "tasks.txt", "# nothing\n")
	out := filepath.Join(dir, "report.txt")

	code, _, stderr := run(t, "--in="+in, "--out="+out)
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, readFile(t, out), "WT=0.0; CT=0.0; RT=0.0; TAT=0.0;")
}

func TestSimulate_ArchiveTraceAndReport(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "tasks.txt", sampleTasks)
	out := filepath.Join(dir, "report.txt")
	archive := filepath.Join(dir, "runs", "archive.json")
	traces := filepath.Join(dir, "traces")

	code, _, stderr := run(t, "--in="+in, "--out="+out, "--archive="+archive, "--trace-dir="+traces)
	require.Equal(t, ExitOK, code, stderr)

	data, err := snapshot.NewManager(archive).Load()
	require.NoError(t, err)
	assert.Len(t, data.Results, 3)
	assert.NotEmpty(t, data.RunID)

	for _, id := range []types.SchemeID{types.SchemeA, types.SchemeB, types.SchemeC} {
		n, err := trace.Count(trace.PathFor(traces, id))
		assert.NoError(t, err)
		assert.Positive(t, n)
	}

	// report re-renders byte-identical output from the archive
	code, stdout, stderr := run(t, "report", "--archive="+archive)
	require.Equal(t, ExitOK, code, stderr)
	assert.Equal(t, readFile(t, out), stdout)

	code, stdout, stderr = run(t, "verify", "--trace-dir="+traces)
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "A: ")
	assert.Contains(t, stdout, "records OK")
}

func TestReport_Errors(t *testing.T) {
	code, _, _ := run(t, "report")
	assert.Equal(t, ExitUsage, code)

	code, _, stderr := run(t, "report", "--archive="+filepath.Join(t.TempDir(), "none.json"))
	assert.Equal(t, ExitSimulation, code)
	assert.Contains(t, stderr, "not found")
}

func TestVerify_DetectsTampering(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "tasks.txt", sampleTasks)
	traces := filepath.Join(dir, "traces")

	code, _, stderr := run(t, "--in="+in, "--out="+filepath.Join(dir, "r.txt"), "--trace-dir="+traces, "--schemes=A")
	require.Equal(t, ExitOK, code, stderr)

	path := trace.PathFor(traces, types.SchemeA)
	content := readFile(t, path)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(content, `"tick":0`, `"tick":1`, 1)), 0o644))

	code, _, _ = run(t, "verify", "--trace-dir="+traces, "--schemes=A")
	assert.Equal(t, ExitSimulation, code)
}

func TestSimulate_ComparisonTable(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	in := writeFile(t, dir, "tasks.txt", sampleTasks)

	code, stdout, stderr := run(t, "--in="+in, "--out="+filepath.Join(dir, "r.txt"), "--table")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "ALGORITHM COMPARISON")
	assert.Contains(t, stdout, "Lowest average turnaround")
}

func TestSchemesCommand(t *testing.T) {
	code, stdout, _ := run(t, "schemes")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "SJF")
	assert.Contains(t, stdout, "SRTF")
	assert.Contains(t, stdout, "RR(20)")
}

func TestLogFormatOverride(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "tasks.txt", sampleTasks)

	code, _, stderr := run(t, "--in="+in, "--out="+filepath.Join(dir, "r.txt"), "--log-format=json")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stderr, `"msg":"Report written"`)
}

// ============================================================================
// Configuration
// ============================================================================

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, []types.SchemeID{"A", "B", "C"}, cfg.SchemeIDs())
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
log:
  level: debug
  format: json

simulation:
  schemes: [B, C]
  parallelism: 1

trace:
  dir: "./traces"

archive:
  path: "./archive.json"

server:
  port: 6000
  rate_limit: 2.5
  burst: 4
  max_ticks: 500

metrics:
  enabled: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []types.SchemeID{"B", "C"}, cfg.SchemeIDs())
	assert.Equal(t, 1, cfg.Simulation.Parallelism)
	assert.Equal(t, "./traces", cfg.Trace.Dir)
	assert.Equal(t, "./archive.json", cfg.Archive.Path)
	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, 4, cfg.Server.Burst)
	assert.Equal(t, 500, cfg.Server.MaxTicks)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port, "unset values keep their defaults")
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeFile(t, dir, "bad.yaml", "log: [unclosed"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, dir, "scheme.yaml", "simulation:\n  schemes: [A, Q]\n"))
	assert.ErrorContains(t, err, "unknown scheme")

	_, err = LoadConfig(writeFile(t, dir, "neg.yaml", "simulation:\n  parallelism: -2\n"))
	assert.ErrorContains(t, err, "parallelism")

	_, err = LoadConfig(writeFile(t, dir, "ticks.yaml", "server:\n  max_ticks: -1\n"))
	assert.ErrorContains(t, err, "max_ticks")
}

func TestConfigFileDrivesRun(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "tasks.txt", sampleTasks)
	out := filepath.Join(dir, "report.txt")
	archive := filepath.Join(dir, "a.json")
	cfgPath := writeFile(t, dir, "config.yaml", "simulation:\n  schemes: [B]\narchive:\n  path: "+archive+"\n")

	code, _, stderr := run(t, "-c", cfgPath, "--in="+in, "--out="+out)
	require.Equal(t, ExitOK, code, stderr)

	got := readFile(t, out)
	assert.True(t, strings.HasPrefix(got, "Algorithm B: "))
	assert.NotContains(t, got, "Algorithm A: ")

	_, err := os.Stat(archive)
	assert.NoError(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitOutputOpen, ExitCode(exitErr(ExitOutputOpen, assert.AnError)))
	assert.Equal(t, ExitUsage, ExitCode(assert.AnError))

	err := exitErr(ExitSimulation, assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, assert.AnError.Error(), err.Error())
}
