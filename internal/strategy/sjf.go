package strategy

import (
	"github.com/ChuLiYu/mlfq-sim/internal/tasktable"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// shortestJobFirst is non-preemptive: once a task is selected it keeps the
// CPU at this tier until it completes or the engine takes it away.
type shortestJobFirst struct {
	table   *tasktable.Table
	waiting []tasktable.Handle
}

func newShortestJobFirst(table *tasktable.Table) *shortestJobFirst {
	return &shortestJobFirst{table: table}
}

func (s *shortestJobFirst) AddToQueue(h tasktable.Handle) {
	s.waiting = append(s.waiting, h)
}

func (s *shortestJobFirst) HasWaitingTasks() bool {
	return len(s.waiting) > 0
}

func (s *shortestJobFirst) SelectNextTask(current tasktable.Handle) tasktable.Handle {
	if current.Valid() {
		return current
	}
	if len(s.waiting) == 0 {
		return tasktable.None
	}

	next := best(s.table, tasktable.None, s.waiting)
	s.waiting = remove(s.waiting, next)
	return next
}

func (s *shortestJobFirst) ProcessTimeUnit(tasktable.Handle) {}

func (s *shortestJobFirst) HandleTaskExit(tasktable.Handle) {}

func (s *shortestJobFirst) PurgeTask(h tasktable.Handle) {
	s.waiting = remove(s.waiting, h)
}

func (s *shortestJobFirst) UpdateWaitingTimes(running tasktable.Handle) {
	chargeDelay(s.table, s.waiting, running)
}

func (s *shortestJobFirst) Waiting() []tasktable.Handle {
	return cloneHandles(s.waiting)
}

func (s *shortestJobFirst) Mode() types.Mode {
	return types.ModeShortestJobFirst
}

func (s *shortestJobFirst) sealed() {}
