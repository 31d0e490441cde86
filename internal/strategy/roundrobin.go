package strategy

import (
	"github.com/ChuLiYu/mlfq-sim/internal/tasktable"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// roundRobin grants each task at most quantum consecutive units at this tier.
// When the quota runs out the task is demoted one tier and flagged to yield;
// re-enqueuing it at the new tier is left to the engine.
type roundRobin struct {
	table   *tasktable.Table
	quantum int

	queue     []tasktable.Handle       // FIFO ready queue
	quota     map[tasktable.Handle]int // remaining units per task, survives repeated visits
	mustYield tasktable.Handle         // task that must give up the CPU on the next selection
}

func newRoundRobin(table *tasktable.Table, quantum int) *roundRobin {
	return &roundRobin{
		table:     table,
		quantum:   quantum,
		quota:     make(map[tasktable.Handle]int),
		mustYield: tasktable.None,
	}
}

func (r *roundRobin) AddToQueue(h tasktable.Handle) {
	r.queue = append(r.queue, h)
	if _, ok := r.quota[h]; !ok {
		r.quota[h] = r.quantum
	}
}

func (r *roundRobin) HasWaitingTasks() bool {
	return len(r.queue) > 0
}

func (r *roundRobin) SelectNextTask(current tasktable.Handle) tasktable.Handle {
	if !current.Valid() {
		return r.pop()
	}

	if r.mustYield == current {
		r.mustYield = tasktable.None
		// Switch even when nobody is queued; the caller sees an idle selection.
		return r.pop()
	}

	return current
}

func (r *roundRobin) pop() tasktable.Handle {
	if len(r.queue) == 0 {
		return tasktable.None
	}
	h := r.queue[0]
	r.queue = r.queue[1:]
	return h
}

func (r *roundRobin) ProcessTimeUnit(h tasktable.Handle) {
	if !h.Valid() {
		return
	}

	r.quota[h]--
	task := r.table.At(h)
	if r.quota[h] == 0 && task.TimeLeft > 0 {
		r.quota[h] = r.quantum
		if task.Tier < types.MaxTier {
			task.Tier++
		}
		r.mustYield = h
	}
}

func (r *roundRobin) HandleTaskExit(h tasktable.Handle) {
	if !h.Valid() {
		return
	}
	r.quota[h] = r.quantum
}

func (r *roundRobin) PurgeTask(h tasktable.Handle) {
	r.queue = remove(r.queue, h)
	delete(r.quota, h)
}

func (r *roundRobin) UpdateWaitingTimes(running tasktable.Handle) {
	chargeDelay(r.table, r.queue, running)
}

func (r *roundRobin) Waiting() []tasktable.Handle {
	return cloneHandles(r.queue)
}

func (r *roundRobin) Mode() types.Mode {
	return types.ModeRoundRobin
}

// Quota returns the remaining units of h at this tier and whether it is tracked.
func (r *roundRobin) Quota(h tasktable.Handle) (int, bool) {
	q, ok := r.quota[h]
	return q, ok
}

func (r *roundRobin) sealed() {}
