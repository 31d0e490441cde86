// ============================================================================
// MLFQ Engine - discrete-time scheduling loop
// ============================================================================
//
// Package: internal/engine
// File: engine.go
// Purpose: Drives one scheme over one task list until every task completes
//
// Per tick:
//   1. Arrivals      - tasks arriving now enter the tier named by their tier value
//   2. Tier select   - first tier (1 -> 4) with ready work; otherwise keep the
//                      running task at its tier
//   3. Idle          - nothing ready and nothing running: advance the clock
//   4. Preemption    - a strictly higher tier has work: requeue the running
//                      task at its own tier
//   5. Selection     - the active tier's strategy picks the task
//   6. Execution     - one unit of work; every other ready task accrues delay
//   7. Completion    - finish = tick+1, task leaves its tier
//   8. Migration     - otherwise post-execution hook, reselect; a changed
//                      selection moves the task to the tier named by its
//                      (possibly demoted) tier value
//   9. Advance clock
//
// Ownership:
//   The engine owns the task table, the four tiers and the clock. Strategies
//   are tier-local and hold handles only; cross-tier migration happens here.
//
// ============================================================================

package engine

import (
	"fmt"

	"github.com/ChuLiYu/mlfq-sim/internal/tasktable"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

const noLevel = -1

// Observer receives scheduling events as they happen. Implementations must
// not block; Observe is called from inside the tick loop.
type Observer interface {
	Observe(scheme types.SchemeID, ev types.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(scheme types.SchemeID, ev types.Event)

func (f ObserverFunc) Observe(scheme types.SchemeID, ev types.Event) {
	f(scheme, ev)
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers an event observer. Nil observers are ignored.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// Engine simulates one scheme over a private copy of the task list.
type Engine struct {
	scheme    Scheme
	table     *tasktable.Table
	tiers     [types.TierCount]*tier
	observers []Observer

	clock       int
	active      tasktable.Handle
	activeLevel int // index into tiers, noLevel when unset
	completed   int
	lastRan     tasktable.Handle

	timeline []types.Segment
	stats    types.RunStats
	done     bool

	afterTick func(e *Engine) // test hook, called at the end of every tick
}

// New prepares an engine for the given scheme. An unknown scheme yields a
// *ConfigError; an unusable task list yields ErrInvalidWorkload.
func New(id types.SchemeID, input []types.Task, opts ...Option) (*Engine, error) {
	scheme, err := LookupScheme(id)
	if err != nil {
		return nil, err
	}
	return newEngine(scheme, input, opts...)
}

func newEngine(scheme Scheme, input []types.Task, opts ...Option) (*Engine, error) {
	table, err := tasktable.New(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWorkload, err)
	}

	e := &Engine{
		scheme:      scheme,
		table:       table,
		active:      tasktable.None,
		activeLevel: noLevel,
		lastRan:     tasktable.None,
	}
	for i, cfg := range scheme.Levels {
		t, err := newTier(i+types.MinTier, cfg, table)
		if err != nil {
			return nil, fmt.Errorf("tier %d: %w", i+types.MinTier, err)
		}
		e.tiers[i] = t
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes a scheme over input and returns the annotated result.
func Run(id types.SchemeID, input []types.Task, opts ...Option) (types.RunResult, error) {
	e, err := New(id, input, opts...)
	if err != nil {
		return types.RunResult{}, err
	}
	return e.Run()
}

// Run drives the simulation to completion. An Engine runs at most once.
func (e *Engine) Run() (types.RunResult, error) {
	if e.done {
		return types.RunResult{}, ErrAlreadyRun
	}
	e.done = true

	arrivals := e.table.ArrivalOrder()
	nextArrival := 0
	total := e.table.Len()

	for e.completed < total {
		for nextArrival < len(arrivals) && e.table.At(arrivals[nextArrival]).ArrivalMoment == e.clock {
			h := arrivals[nextArrival]
			level := e.enqueue(h)
			e.emit(types.EventArrival, h, e.tiers[level].level)
			nextArrival++
		}

		top := e.highestReadyLevel()
		if top == noLevel && e.active.Valid() {
			top = e.activeLevel
		}
		if top == noLevel {
			e.idle()
			continue
		}

		if e.active.Valid() && top < e.activeLevel {
			e.preempt(e.active)
			if e.table.At(e.active).TimeLeft > 0 {
				e.tiers[e.activeLevel].strategy.AddToQueue(e.active)
			}
			e.active = tasktable.None
			e.activeLevel = noLevel
		}
		if !e.active.Valid() {
			e.activeLevel = top
		}

		current := e.tiers[e.activeLevel].strategy
		selected := current.SelectNextTask(e.active)
		if selected != e.active {
			if e.active.Valid() && selected.Valid() {
				e.preempt(e.active)
			}
			e.dispatch(selected, e.clock)
		}
		if !e.active.Valid() {
			e.idle()
			continue
		}

		e.execute()

		task := e.table.At(e.active)
		if task.TimeLeft == 0 {
			task.FinishMoment = e.clock + 1
			current.HandleTaskExit(e.active)
			current.PurgeTask(e.active)
			e.emit(types.EventComplete, e.active, e.activeTier().level)
			e.active = tasktable.None
			e.activeLevel = noLevel
			e.completed++
		} else {
			tierBefore := task.Tier
			current.ProcessTimeUnit(e.active)
			next := current.SelectNextTask(e.active)
			if next != e.active {
				current.HandleTaskExit(e.active)
				current.PurgeTask(e.active)
				if task.Tier != tierBefore {
					e.stats.Demotions++
					e.emit(types.EventDemote, e.active, task.Tier)
				}
				e.enqueue(e.active)
				e.dispatch(next, e.clock+1)
			}
		}

		e.tick()
	}

	e.stats.Ticks = e.clock
	return types.RunResult{
		Scheme:      e.scheme.ID,
		Description: e.scheme.Description(),
		Tasks:       e.table.Tasks(),
		Timeline:    e.timeline,
		Stats:       e.stats,
	}, nil
}

// enqueue hands h to the tier matching its current tier value and returns that tier's index.
func (e *Engine) enqueue(h tasktable.Handle) int {
	level := e.table.At(h).Tier
	if level < types.MinTier {
		level = types.MinTier
	}
	if level > types.MaxTier {
		level = types.MaxTier
	}
	idx := level - types.MinTier
	e.tiers[idx].strategy.AddToQueue(h)
	return idx
}

func (e *Engine) activeTier() *tier {
	return e.tiers[e.activeLevel]
}

func (e *Engine) highestReadyLevel() int {
	for i, t := range e.tiers {
		if t.hasWork() {
			return i
		}
	}
	return noLevel
}

// dispatch makes h the active task; startAt is recorded on its first dispatch.
func (e *Engine) dispatch(h tasktable.Handle, startAt int) {
	e.active = h
	if !h.Valid() {
		return
	}
	task := e.table.At(h)
	if task.StartMoment == types.Unset {
		task.StartMoment = startAt
	}
	e.stats.Dispatches++
	e.emitAt(startAt, types.EventDispatch, h, e.activeTier().level)
}

func (e *Engine) preempt(h tasktable.Handle) {
	e.stats.Preemptions++
	e.emit(types.EventPreempt, h, e.activeTier().level)
}

// execute consumes one unit of the active task and charges delay to every
// other ready task. This is the only place delay accrues.
func (e *Engine) execute() {
	task := e.table.At(e.active)
	task.TimeLeft--
	e.record(e.active, e.activeTier().level)
	e.chargeWaiting(e.active)
}

func (e *Engine) chargeWaiting(running tasktable.Handle) {
	for _, t := range e.tiers {
		t.strategy.UpdateWaitingTimes(running)
	}
}

// record appends the executed tick to the timeline, merging contiguous runs.
func (e *Engine) record(h tasktable.Handle, level int) {
	if e.lastRan.Valid() && e.lastRan != h {
		e.stats.ContextSwitches++
	}
	e.lastRan = h

	id := e.table.ID(h)
	if n := len(e.timeline); n > 0 {
		last := &e.timeline[n-1]
		if last.TaskID == id && last.Tier == level && last.End == e.clock {
			last.End++
			return
		}
	}
	e.timeline = append(e.timeline, types.Segment{TaskID: id, Tier: level, Start: e.clock, End: e.clock + 1})
}

func (e *Engine) idle() {
	e.chargeWaiting(tasktable.None)
	e.stats.IdleTicks++
	e.emit(types.EventIdle, tasktable.None, 0)
	e.tick()
}

func (e *Engine) tick() {
	if e.afterTick != nil {
		e.afterTick(e)
	}
	e.clock++
}

func (e *Engine) emit(kind types.EventKind, h tasktable.Handle, level int) {
	e.emitAt(e.clock, kind, h, level)
}

func (e *Engine) emitAt(at int, kind types.EventKind, h tasktable.Handle, level int) {
	if len(e.observers) == 0 {
		return
	}
	ev := types.Event{Tick: at, Kind: kind, TaskID: e.table.ID(h), Tier: level}
	for _, o := range e.observers {
		o.Observe(e.scheme.ID, ev)
	}
}
