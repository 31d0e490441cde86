package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/mlfq-sim/internal/engine"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func finished(id string, service, arrival, tier, start, finish, delay int) types.Task {
	return types.Task{
		ID:               id,
		ServiceDuration:  service,
		ArrivalMoment:    arrival,
		Tier:             tier,
		Priority:         1,
		StartMoment:      start,
		FinishMoment:     finish,
		DelayAccumulated: delay,
	}
}

func TestSummarize(t *testing.T) {
	avg := Summarize([]types.Task{
		finished("A", 5, 0, 3, 0, 7, 2),
		finished("B", 2, 0, 2, 1, 6, 4),
	})

	assert.InDelta(t, 3.0, avg.Waiting, 1e-9)
	assert.InDelta(t, 6.5, avg.Completion, 1e-9)
	assert.InDelta(t, 0.5, avg.Response, 1e-9)
	assert.InDelta(t, 6.5, avg.Turnaround, 1e-9)

	assert.Equal(t, types.Averages{}, Summarize(nil))
}

func TestSummarize_ResponseIsRelativeToArrival(t *testing.T) {
	avg := Summarize([]types.Task{finished("L", 3, 4, 1, 6, 9, 3)})
	assert.InDelta(t, 2.0, avg.Response, 1e-9)
	assert.InDelta(t, 5.0, avg.Turnaround, 1e-9)
}

func TestSummarize_UnfinishedTaskContributesZero(t *testing.T) {
	pending := finished("P", 4, 0, 1, types.Unset, types.Unset, 0)
	avg := Summarize([]types.Task{finished("A", 2, 0, 1, 0, 2, 0), pending})
	assert.InDelta(t, 1.0, avg.Completion, 1e-9)
	assert.InDelta(t, 1.0, avg.Turnaround, 1e-9)
}

func TestWrite(t *testing.T) {
	results := []types.RunResult{
		{
			Scheme:      types.SchemeA,
			Description: "RR(1), RR(3), RR(4), SJF",
			Tasks: []types.Task{
				finished("A", 5, 0, 3, 0, 7, 2),
				finished("B", 2, 0, 2, 1, 6, 4),
			},
		},
		{
			Scheme:      types.SchemeC,
			Description: "RR(3), RR(5), RR(6), RR(20)",
			Tasks:       []types.Task{finished("X", 4, 0, 2, 0, 4, 0)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, results))

	want := strings.Join([]string{
		"Algorithm A: RR(1), RR(3), RR(4), SJF",
		"identifier; BT; AT; Q; Pr; WT; CT; RT; TAT",
		"A;5;0;3;1; 2; 7; 0; 7",
		"B;2;0;2;1; 4; 6; 1; 6",
		"WT=3.0; CT=6.5; RT=0.5; TAT=6.5;",
		"",
		"Algorithm C: RR(3), RR(5), RR(6), RR(20)",
		"identifier; BT; AT; Q; Pr; WT; CT; RT; TAT",
		"X;4;0;2;1; 0; 4; 0; 4",
		"WT=0.0; CT=4.0; RT=0.0; TAT=4.0;",
		"",
		"Algorithm Comparison",
		"algorithm; WT; CT; RT; TAT",
		"A; 3.0; 6.5; 0.5; 6.5",
		"C; 0.0; 4.0; 0.0; 4.0",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWrite_FromEngine(t *testing.T) {
	result, err := engine.Run(types.SchemeA, []types.Task{
		{ID: "A", ServiceDuration: 5, Tier: 1, Priority: 1},
		{ID: "B", ServiceDuration: 2, Tier: 1, Priority: 1},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []types.RunResult{result}))
	assert.Contains(t, buf.String(), "A;5;0;3;1; 2; 7; 0; 7\n")
	assert.Contains(t, buf.String(), "B;2;0;2;1; 4; 6; 1; 6\n")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_PropagatesWriterError(t *testing.T) {
	err := Write(failingWriter{}, []types.RunResult{{Scheme: types.SchemeA}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPrintComparison(t *testing.T) {
	results := []types.RunResult{
		{Scheme: types.SchemeA, Description: "RR(1), RR(3), RR(4), SJF", Tasks: []types.Task{finished("A", 5, 0, 3, 0, 9, 4)}},
		{Scheme: types.SchemeB, Description: "RR(2), RR(3), RR(4), SRTF", Tasks: []types.Task{finished("A", 5, 0, 3, 0, 5, 0)}},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintComparison(&buf, results))

	out := buf.String()
	assert.Contains(t, out, "ALGORITHM COMPARISON")
	assert.Contains(t, out, "B *")
	assert.Contains(t, out, "Lowest average turnaround: scheme B (5.0)")
}

func TestPrintSchemes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSchemes(&buf))

	out := buf.String()
	assert.Contains(t, out, "SRTF")
	assert.Contains(t, out, "RR(20)")
}
