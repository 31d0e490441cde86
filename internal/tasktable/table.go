// ============================================================================
// MLFQ Task Table - the shared task arena of one run
// ============================================================================
//
// Package: internal/tasktable
// File: table.go
// Purpose: Single source of truth for every Task record of a simulation run
//
// Design:
//   tasks []Task - the arena, owned by the engine of exactly one run
//   Handle       - stable index into the arena; tiers and strategies only
//                  ever hold handles, never copies of a Task
//
// Lifecycle:
//   New() deep copies the caller's input and resets every record to tier 1
//   with fresh metrics, so no state is shared across runs. Records are
//   mutated tick by tick and never removed; Tasks() copies them back out.
//
// Concurrency:
//   A Table belongs to one strictly sequential tick loop and is not
//   safe for concurrent use. Independent runs use independent tables.
//
// ============================================================================

package tasktable

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

var (
	// ErrDuplicateTask is returned when two input records share an identifier.
	ErrDuplicateTask = errors.New("duplicate task identifier")
	// ErrInvalidTask is returned for records the engine cannot simulate.
	ErrInvalidTask = errors.New("invalid task")
)

// Handle addresses one record in a Table.
type Handle int

// None is the absent handle ("no task").
const None Handle = -1

// Valid reports whether h refers to a task.
func (h Handle) Valid() bool {
	return h != None
}

// Table is the arena of Task records for one run.
type Table struct {
	tasks []types.Task
}

// New builds a table from a private deep copy of input, reset for a fresh run.
//
// Errors:
//   - ErrInvalidTask: empty identifier, non-positive service duration or negative arrival
//   - ErrDuplicateTask: identifier seen twice
func New(input []types.Task) (*Table, error) {
	t := &Table{
		tasks: make([]types.Task, len(input)),
	}
	seen := make(map[string]struct{}, len(input))

	for i, task := range input {
		if err := validate(task); err != nil {
			return nil, err
		}
		if _, exists := seen[task.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTask, task.ID)
		}

		task.Tier = types.MinTier
		task.TimeLeft = task.ServiceDuration
		task.StartMoment = types.Unset
		task.FinishMoment = types.Unset
		task.DelayAccumulated = 0

		t.tasks[i] = task
		seen[task.ID] = struct{}{}
	}

	return t, nil
}

func validate(task types.Task) error {
	switch {
	case task.ID == "":
		return fmt.Errorf("%w: empty identifier", ErrInvalidTask)
	case task.ServiceDuration <= 0:
		return fmt.Errorf("%w: %q has service duration %d", ErrInvalidTask, task.ID, task.ServiceDuration)
	case task.ArrivalMoment < 0:
		return fmt.Errorf("%w: %q has arrival moment %d", ErrInvalidTask, task.ID, task.ArrivalMoment)
	}
	return nil
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.tasks)
}

// At returns the record addressed by h. It panics on an invalid handle.
func (t *Table) At(h Handle) *types.Task {
	return &t.tasks[h]
}

// ID returns the identifier of h, or "" for None.
func (t *Table) ID(h Handle) string {
	if !h.Valid() {
		return ""
	}
	return t.tasks[h].ID
}

// ArrivalOrder returns every handle sorted by arrival moment, ties broken by identifier.
func (t *Table) ArrivalOrder() []Handle {
	order := make([]Handle, len(t.tasks))
	for i := range order {
		order[i] = Handle(i)
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := &t.tasks[order[i]], &t.tasks[order[j]]
		if a.ArrivalMoment != b.ArrivalMoment {
			return a.ArrivalMoment < b.ArrivalMoment
		}
		return a.ID < b.ID
	})
	return order
}

// Tasks returns a copy of every record in input order.
func (t *Table) Tasks() []types.Task {
	out := make([]types.Task, len(t.tasks))
	copy(out, t.tasks)
	return out
}
