package trace

import "github.com/ChuLiYu/mlfq-sim/pkg/types"

// ============================================================================
// Trace Type Definitions
// Responsibility: the on-disk record of one scheduling event
// ============================================================================

// Record is one line of a trace file.
type Record struct {
	Seq      uint64          `json:"seq"`    // Monotonically increasing, starts at 1
	RunID    string          `json:"run_id"` // Batch the run belongs to
	Scheme   types.SchemeID  `json:"scheme"`
	Tick     int             `json:"tick"`
	Kind     types.EventKind `json:"kind"`
	TaskID   string          `json:"task_id,omitempty"`
	Tier     int             `json:"tier,omitempty"`
	Checksum uint32          `json:"checksum"` // CRC32 over every other field
}

// Event returns the scheduling event carried by the record.
func (r Record) Event() types.Event {
	return types.Event{Tick: r.Tick, Kind: r.Kind, TaskID: r.TaskID, Tier: r.Tier}
}

// Handler processes records during Replay. Returning an error stops the replay.
type Handler func(rec Record) error
