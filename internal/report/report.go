// Package report renders simulation results as the consolidated text report
// and as console comparison tables.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

const (
	taskColumns       = "identifier; BT; AT; Q; Pr; WT; CT; RT; TAT"
	comparisonTitle   = "Algorithm Comparison"
	comparisonColumns = "algorithm; WT; CT; RT; TAT"
)

// Summarize averages the per-task metrics of a run. An empty run averages to zero.
func Summarize(tasks []types.Task) types.Averages {
	if len(tasks) == 0 {
		return types.Averages{}
	}

	var wt, ct, rt, tat int
	for _, t := range tasks {
		wt += t.DelayAccumulated
		if t.Completed() {
			ct += t.FinishMoment
		}
		rt += t.ResponseTime()
		tat += t.TurnaroundTime()
	}

	n := float64(len(tasks))
	return types.Averages{
		Waiting:    float64(wt) / n,
		Completion: float64(ct) / n,
		Response:   float64(rt) / n,
		Turnaround: float64(tat) / n,
	}
}

// Write renders one section per result, in the given order, followed by the
// comparison section.
func Write(w io.Writer, results []types.RunResult) error {
	bw := bufio.NewWriter(w)

	for _, r := range results {
		fmt.Fprintf(bw, "Algorithm %s: %s\n", r.Scheme, r.Description)
		fmt.Fprintln(bw, taskColumns)
		for _, t := range r.Tasks {
			writeTaskRow(bw, t)
		}
		avg := Summarize(r.Tasks)
		fmt.Fprintf(bw, "WT=%.1f; CT=%.1f; RT=%.1f; TAT=%.1f;\n\n",
			avg.Waiting, avg.Completion, avg.Response, avg.Turnaround)
	}

	fmt.Fprintln(bw, comparisonTitle)
	fmt.Fprintln(bw, comparisonColumns)
	for _, r := range results {
		avg := Summarize(r.Tasks)
		fmt.Fprintf(bw, "%s; %.1f; %.1f; %.1f; %.1f\n",
			r.Scheme, avg.Waiting, avg.Completion, avg.Response, avg.Turnaround)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writeTaskRow(w io.Writer, t types.Task) {
	fmt.Fprintf(w, "%s;%d;%d;%d;%d; %d; %d; %d; %d\n",
		t.ID, t.ServiceDuration, t.ArrivalMoment, t.Tier, t.Priority,
		t.DelayAccumulated, t.FinishMoment, t.ResponseTime(), t.TurnaroundTime())
}
