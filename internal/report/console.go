package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/ChuLiYu/mlfq-sim/internal/engine"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
)

// PrintComparison prints a console table of per-scheme averages and run
// statistics. The scheme with the lowest average turnaround is marked.
func PrintComparison(w io.Writer, results []types.RunResult) error {
	printSectionHeader(w, "ALGORITHM COMPARISON", "Averages per task, lower is better")

	best := -1
	bestTAT := 0.0
	for i, r := range results {
		tat := Summarize(r.Tasks).Turnaround
		if best < 0 || tat < bestTAT {
			best, bestTAT = i, tat
		}
	}

	table := tablewriter.NewWriter(w)
	table.Header("Scheme", "Levels", "WT", "CT", "RT", "TAT", "Ticks", "Idle", "Switches", "Demotions", "Preemptions")

	for i, r := range results {
		avg := Summarize(r.Tasks)
		scheme := string(r.Scheme)
		if i == best {
			scheme += " *"
		}
		_ = table.Append(
			scheme,
			r.Description,
			fmt.Sprintf("%.1f", avg.Waiting),
			fmt.Sprintf("%.1f", avg.Completion),
			fmt.Sprintf("%.1f", avg.Response),
			fmt.Sprintf("%.1f", avg.Turnaround),
			fmt.Sprintf("%d", r.Stats.Ticks),
			fmt.Sprintf("%d", r.Stats.IdleTicks),
			fmt.Sprintf("%d", r.Stats.ContextSwitches),
			fmt.Sprintf("%d", r.Stats.Demotions),
			fmt.Sprintf("%d", r.Stats.Preemptions),
		)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("render comparison table: %w", err)
	}
	if best >= 0 {
		_, _ = green.Fprintf(w, "Lowest average turnaround: scheme %s (%.1f)\n", results[best].Scheme, bestTAT)
	}
	return nil
}

// PrintSchemes lists the predefined schemes and their per-tier policies.
func PrintSchemes(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Scheme", "Tier 1", "Tier 2", "Tier 3", "Tier 4")

	for _, s := range engine.Schemes() {
		row := []any{string(s.ID)}
		for _, lvl := range s.Levels {
			row = append(row, lvl.String())
		}
		_ = table.Append(row...)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("render scheme table: %w", err)
	}
	return nil
}

// NewProgressBar returns a stderr progress bar over n scheme runs.
func NewProgressBar(n int) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Simulating schemes"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func printSectionHeader(w io.Writer, title string, descriptions ...string) {
	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, "═══════════════════════════════════════════════════════════")
	_, _ = bold.Fprintln(w, title)
	_, _ = bold.Fprintln(w, "═══════════════════════════════════════════════════════════")
	for _, desc := range descriptions {
		fmt.Fprintln(w, desc)
	}
	fmt.Fprintln(w)
}
