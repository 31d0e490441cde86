package strategy

import (
	"errors"
	"fmt"

	"github.com/ChuLiYu/mlfq-sim/internal/tasktable"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

var (
	// ErrUnknownMode is returned by New for a mode outside the three supported ones.
	ErrUnknownMode = errors.New("unknown scheduling mode")
	// ErrInvalidQuantum is returned by New for a Round-Robin tier with quantum < 1.
	ErrInvalidQuantum = errors.New("round-robin quantum must be at least 1")
)

// Strategy owns the ready structure and selection policy of exactly one tier.
// Implementations hold only task handles and consult the shared table for data.
//
// The set of implementations is closed: Round-Robin, Shortest-Job-First and
// Shortest-Remaining-Time-First, all built through New.
type Strategy interface {
	// AddToQueue makes the task ready at this tier.
	AddToQueue(h tasktable.Handle)

	// HasWaitingTasks reports whether the ready structure is non-empty.
	HasWaitingTasks() bool

	// SelectNextTask chooses the task to run given the currently running one
	// (tasktable.None if the CPU is free). Returning current keeps it running;
	// returning tasktable.None forces an idle selection.
	SelectNextTask(current tasktable.Handle) tasktable.Handle

	// ProcessTimeUnit is invoked after the task executed one unit and still has work left.
	ProcessTimeUnit(h tasktable.Handle)

	// HandleTaskExit is invoked when the task leaves this tier, finished or migrating.
	HandleTaskExit(h tasktable.Handle)

	// PurgeTask forcibly removes every trace of the task from internal structures.
	PurgeTask(h tasktable.Handle)

	// UpdateWaitingTimes charges one tick of delay to every ready task other than running.
	UpdateWaitingTimes(running tasktable.Handle)

	// Waiting returns a copy of the ready structure in its internal order.
	Waiting() []tasktable.Handle

	// Mode reports which variant this is.
	Mode() types.Mode

	sealed()
}

// New builds the strategy for one tier, keyed by the configuration's mode.
// Each call returns a fresh instance with private state.
func New(cfg types.LevelConfig, table *tasktable.Table) (Strategy, error) {
	switch cfg.Mode {
	case types.ModeRoundRobin:
		if cfg.Quantum < 1 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantum, cfg.Quantum)
		}
		return newRoundRobin(table, cfg.Quantum), nil

	case types.ModeShortestJobFirst:
		return newShortestJobFirst(table), nil

	case types.ModeShortestRemainingTimeFirst:
		return newShortestRemainingTime(table), nil

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownMode, cfg.Mode)
	}
}

// preferred reports whether a should run before b: less remaining work first,
// then earlier arrival, then the lexicographically smaller identifier.
func preferred(table *tasktable.Table, a, b tasktable.Handle) bool {
	ta, tb := table.At(a), table.At(b)
	if ta.TimeLeft != tb.TimeLeft {
		return ta.TimeLeft < tb.TimeLeft
	}
	if ta.ArrivalMoment != tb.ArrivalMoment {
		return ta.ArrivalMoment < tb.ArrivalMoment
	}
	return ta.ID < tb.ID
}

// best returns the preferred handle among incumbent and candidates.
// incumbent may be tasktable.None.
func best(table *tasktable.Table, incumbent tasktable.Handle, candidates []tasktable.Handle) tasktable.Handle {
	choice := incumbent
	for _, h := range candidates {
		if !choice.Valid() || preferred(table, h, choice) {
			choice = h
		}
	}
	return choice
}

// remove deletes the first occurrence of h, preserving order.
func remove(list []tasktable.Handle, h tasktable.Handle) []tasktable.Handle {
	for i, v := range list {
		if v == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func chargeDelay(table *tasktable.Table, ready []tasktable.Handle, running tasktable.Handle) {
	for _, h := range ready {
		if h != running {
			table.At(h).DelayAccumulated++
		}
	}
}

func cloneHandles(list []tasktable.Handle) []tasktable.Handle {
	out := make([]tasktable.Handle, len(list))
	copy(out, list)
	return out
}
