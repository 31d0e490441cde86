package trace

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptedLog indicates a line that cannot be decoded or a broken sequence.
	ErrCorruptedLog = errors.New("trace: log is corrupted")

	// ErrChecksumMismatch indicates a record whose checksum does not match its fields.
	ErrChecksumMismatch = errors.New("trace: checksum mismatch")

	// ErrLogClosed indicates an operation on a closed log.
	ErrLogClosed = errors.New("trace: log already closed")
)

// ChecksumError carries the details of a checksum mismatch.
type ChecksumError struct {
	Seq      uint64
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("trace: checksum mismatch at seq=%d (expected=0x%08x, got=0x%08x)", e.Seq, e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}

// CorruptionError locates a corrupted record.
type CorruptionError struct {
	Line  int   // 1-based line in the trace file
	Cause error // Decode error or sequence violation
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("trace: corrupted record at line %d: %v", e.Line, e.Cause)
}

func (e *CorruptionError) Unwrap() []error {
	return []error{ErrCorruptedLog, e.Cause}
}
