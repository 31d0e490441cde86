// Package trace persists scheduling events as an append-only JSON-lines log
// and replays it with sequence and checksum verification.
package trace

// ============================================================================
// Trace Log
// Responsibilities:
// 1. Append scheduling events with a sequence number and checksum
// 2. Batch encoded records in memory, flush when the batch is full
// 3. Sync and close the file once the run is over
// ============================================================================

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

const defaultBatchSize = 256

// FileInterface is the subset of *os.File the log writes through.
type FileInterface interface {
	Write(p []byte) (n int, err error)
	Sync() error
	Close() error
}

// Log is a single trace file.
type Log struct {
	mu      sync.Mutex
	file    FileInterface
	encoder *json.Encoder
	path    string
	runID   string
	seq     uint64
	closed  bool

	buffer    []Record
	batchSize int
}

// Option configures a Log.
type Option func(*Log)

// WithBatchSize sets how many records are held before a flush. Values below
// one flush every record.
func WithBatchSize(n int) Option {
	return func(l *Log) {
		if n < 1 {
			n = 1
		}
		l.batchSize = n
	}
}

// Create opens path for writing, truncating any previous trace. Parent
// directories are created as needed.
func Create(path, runID string, opts ...Option) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("trace: create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}
	return newLog(file, path, runID, opts...), nil
}

// PathFor returns the trace file of scheme inside dir.
func PathFor(dir string, scheme types.SchemeID) string {
	return filepath.Join(dir, string(scheme)+".jsonl")
}

func newLog(file FileInterface, path, runID string, opts ...Option) *Log {
	l := &Log{
		file:      file,
		encoder:   json.NewEncoder(file),
		path:      path,
		runID:     runID,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.buffer = make([]Record, 0, l.batchSize)
	return l
}

// Append records ev for scheme.
//
// Behavior:
// - Assigns the next sequence number
// - Computes the checksum
// - Buffers the record; the batch is written once it is full
func (l *Log) Append(scheme types.SchemeID, ev types.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}

	l.seq++
	rec := Record{
		Seq:    l.seq,
		RunID:  l.runID,
		Scheme: scheme,
		Tick:   ev.Tick,
		Kind:   ev.Kind,
		TaskID: ev.TaskID,
		Tier:   ev.Tier,
	}
	rec.Checksum = Checksum(rec)
	l.buffer = append(l.buffer, rec)

	if len(l.buffer) >= l.batchSize {
		return l.flushLocked()
	}
	return nil
}

// Flush writes buffered records without syncing.
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}
	return l.flushLocked()
}

// Close flushes, syncs and closes the file. A closed Log cannot be reused.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if err := l.flushLocked(); err != nil {
		_ = l.file.Close()
		return err
	}
	if err := l.file.Sync(); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("trace: sync %s: %w", l.path, err)
	}
	return l.file.Close()
}

// LastSeq returns the sequence number of the most recent record.
func (l *Log) LastSeq() uint64 {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Path returns the file the log writes to.
func (l *Log) Path() string {
	return l.path
}

// flushLocked assumes l.mu is held.
func (l *Log) flushLocked() error {
	for _, rec := range l.buffer {
		if err := l.encoder.Encode(rec); err != nil {
			return fmt.Errorf("trace: write seq=%d: %w", rec.Seq, err)
		}
	}
	l.buffer = l.buffer[:0]
	return nil
}
