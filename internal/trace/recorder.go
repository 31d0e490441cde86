package trace

import (
	"errors"
	"sync"

	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// Recorder adapts a Log to the engine's observer interface. The engine does
// not handle observer errors, so the first append error is kept and returned
// by Close.
type Recorder struct {
	log *Log

	mu  sync.Mutex
	err error
}

// NewRecorder wraps log.
func NewRecorder(log *Log) *Recorder {
	return &Recorder{log: log}
}

// Observe appends ev to the log.
func (r *Recorder) Observe(scheme types.SchemeID, ev types.Event) {
	if err := r.log.Append(scheme, ev); err != nil {
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
}

// Err returns the first append error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Records returns the number of events appended so far.
func (r *Recorder) Records() uint64 {
	return r.log.LastSeq()
}

// Close closes the log and reports the first error seen.
func (r *Recorder) Close() error {
	return errors.Join(r.Err(), r.log.Close())
}
