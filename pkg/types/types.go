// Package types defines the core domain model shared by the MLFQ simulator packages.
package types

import "fmt"

// SchemeID identifies one of the predefined four-tier configurations.
type SchemeID string

const (
	SchemeA SchemeID = "A" // RR(1), RR(3), RR(4), SJF
	SchemeB SchemeID = "B" // RR(2), RR(3), RR(4), SRTF
	SchemeC SchemeID = "C" // RR(3), RR(5), RR(6), RR(20)
)

// Tier bounds. Tier 1 has the highest priority.
const (
	MinTier   = 1
	MaxTier   = 4
	TierCount = MaxTier - MinTier + 1
)

// Unset marks a start or finish moment that has not happened yet.
const Unset = -1

// Mode selects the per-tier scheduling strategy.
type Mode int

const (
	ModeRoundRobin Mode = iota
	ModeShortestJobFirst
	ModeShortestRemainingTimeFirst
)

func (m Mode) String() string {
	switch m {
	case ModeRoundRobin:
		return "RR"
	case ModeShortestJobFirst:
		return "SJF"
	case ModeShortestRemainingTimeFirst:
		return "SRTF"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// LevelConfig configures one tier. Quantum is only meaningful for Round-Robin.
type LevelConfig struct {
	Mode    Mode `json:"mode"`
	Quantum int  `json:"quantum,omitempty"`
}

// String renders the config the way reports name it, e.g. "RR(3)" or "SJF".
func (c LevelConfig) String() string {
	if c.Mode == ModeRoundRobin {
		return fmt.Sprintf("RR(%d)", c.Quantum)
	}
	return c.Mode.String()
}

// Task is a schedulable unit of work plus its accumulated execution metrics.
type Task struct {
	// Identity and service parameters
	ID              string `json:"id"`
	ServiceDuration int    `json:"service_duration"`
	ArrivalMoment   int    `json:"arrival_moment"`

	// Scheduling metadata. Priority is carried for reporting only.
	Tier     int `json:"tier"`
	Priority int `json:"priority"`

	// Execution state
	TimeLeft         int `json:"time_left"`
	StartMoment      int `json:"start_moment"`
	FinishMoment     int `json:"finish_moment"`
	DelayAccumulated int `json:"delay_accumulated"`
}

// Completed reports whether the task has a finish moment.
func (t Task) Completed() bool {
	return t.FinishMoment != Unset
}

// ResponseTime is the number of ticks between arrival and first execution.
func (t Task) ResponseTime() int {
	if t.StartMoment == Unset {
		return 0
	}
	return t.StartMoment - t.ArrivalMoment
}

// TurnaroundTime is the number of ticks between arrival and completion.
func (t Task) TurnaroundTime() int {
	if t.FinishMoment == Unset {
		return 0
	}
	return t.FinishMoment - t.ArrivalMoment
}

// EventKind classifies scheduling events emitted by the engine.
type EventKind string

const (
	EventArrival  EventKind = "ARRIVAL"  // task entered a tier's ready structure for the first time
	EventDispatch EventKind = "DISPATCH" // task became the active task
	EventPreempt  EventKind = "PREEMPT"  // active task displaced by a higher tier
	EventDemote   EventKind = "DEMOTE"   // quantum expired, task moved one tier down
	EventComplete EventKind = "COMPLETE" // task finished its last unit
	EventIdle     EventKind = "IDLE"     // no task executed during the tick
)

// Event is a single scheduling decision observed at a tick.
type Event struct {
	Tick   int       `json:"tick"`
	Kind   EventKind `json:"kind"`
	TaskID string    `json:"task_id,omitempty"`
	Tier   int       `json:"tier,omitempty"`
}

// Segment is a contiguous execution interval [Start, End) of one task at one tier.
type Segment struct {
	TaskID string `json:"task_id"`
	Tier   int    `json:"tier"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// Len returns the number of ticks covered by the segment.
func (s Segment) Len() int {
	return s.End - s.Start
}

// RunStats aggregates counters collected during one run.
type RunStats struct {
	Ticks           int `json:"ticks"`
	IdleTicks       int `json:"idle_ticks"`
	Dispatches      int `json:"dispatches"`
	ContextSwitches int `json:"context_switches"`
	Demotions       int `json:"demotions"`
	Preemptions     int `json:"preemptions"`
}

// RunResult is the fully annotated outcome of running one scheme.
type RunResult struct {
	Scheme      SchemeID  `json:"scheme"`
	Description string    `json:"description"`
	Tasks       []Task    `json:"tasks"`
	Timeline    []Segment `json:"timeline"`
	Stats       RunStats  `json:"stats"`
}

// Averages holds per-run means of the derived task metrics.
type Averages struct {
	Waiting    float64 `json:"waiting"`
	Completion float64 `json:"completion"`
	Response   float64 `json:"response"`
	Turnaround float64 `json:"turnaround"`
}

// ArchiveData is the persisted form of a batch of runs over one input.
type ArchiveData struct {
	SchemaVer int         `json:"schema_ver"`
	RunID     string      `json:"run_id"`
	CreatedAt int64       `json:"created_at"` // Unix milliseconds
	Input     []Task      `json:"input"`
	Results   []RunResult `json:"results"`
}
