package strategy

import (
	"github.com/ChuLiYu/mlfq-sim/internal/tasktable"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// shortestRemainingTime re-evaluates the choice on every selection with the
// running task as incumbent. The candidate list never holds the running task.
type shortestRemainingTime struct {
	table      *tasktable.Table
	candidates []tasktable.Handle
}

func newShortestRemainingTime(table *tasktable.Table) *shortestRemainingTime {
	return &shortestRemainingTime{table: table}
}

func (s *shortestRemainingTime) AddToQueue(h tasktable.Handle) {
	s.candidates = append(s.candidates, h)
}

func (s *shortestRemainingTime) HasWaitingTasks() bool {
	return len(s.candidates) > 0
}

func (s *shortestRemainingTime) SelectNextTask(current tasktable.Handle) tasktable.Handle {
	if len(s.candidates) == 0 && !current.Valid() {
		return tasktable.None
	}

	winner := best(s.table, current, s.candidates)
	if winner == current {
		return current
	}

	// Preempt: the displaced task goes back among the candidates.
	if current.Valid() {
		s.candidates = append(s.candidates, current)
	}
	s.candidates = remove(s.candidates, winner)
	return winner
}

func (s *shortestRemainingTime) ProcessTimeUnit(tasktable.Handle) {}

func (s *shortestRemainingTime) HandleTaskExit(tasktable.Handle) {}

func (s *shortestRemainingTime) PurgeTask(h tasktable.Handle) {
	s.candidates = remove(s.candidates, h)
}

func (s *shortestRemainingTime) UpdateWaitingTimes(running tasktable.Handle) {
	chargeDelay(s.table, s.candidates, running)
}

func (s *shortestRemainingTime) Waiting() []tasktable.Handle {
	return cloneHandles(s.candidates)
}

func (s *shortestRemainingTime) Mode() types.Mode {
	return types.ModeShortestRemainingTimeFirst
}

func (s *shortestRemainingTime) sealed() {}
