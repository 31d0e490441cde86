package engine

import (
	"github.com/ChuLiYu/mlfq-sim/internal/strategy"
	"github.com/ChuLiYu/mlfq-sim/internal/tasktable"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// tier binds one strategy instance to its configuration.
type tier struct {
	level    int // 1..4
	strategy strategy.Strategy
}

func newTier(level int, cfg types.LevelConfig, table *tasktable.Table) (*tier, error) {
	s, err := strategy.New(cfg, table)
	if err != nil {
		return nil, err
	}
	return &tier{level: level, strategy: s}, nil
}

// hasWork reports whether the tier has ready tasks.
func (t *tier) hasWork() bool {
	return t.strategy.HasWaitingTasks()
}
