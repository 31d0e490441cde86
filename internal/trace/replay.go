package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single record line.
const maxLineSize = 1 << 20

// Replay reads the trace at path from the start and calls handler for each
// record.
//
// Behavior:
// - Every record must decode, carry a valid checksum and the next sequence number
// - Replay stops at the first violation or handler error
func Replay(path string, handler Handler) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("trace: open %s: %w", path, err)
	}
	defer file.Close()

	return ReplayFrom(file, handler)
}

// ReplayFrom is Replay over an arbitrary reader.
func ReplayFrom(r io.Reader, handler Handler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	var (
		line    int
		lastSeq uint64
	)
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return &CorruptionError{Line: line, Cause: err}
		}
		if rec.Seq != lastSeq+1 {
			return &CorruptionError{Line: line, Cause: fmt.Errorf("sequence gap: want %d, got %d", lastSeq+1, rec.Seq)}
		}
		if expected := Checksum(rec); rec.Checksum != expected {
			return &ChecksumError{Seq: rec.Seq, Expected: expected, Actual: rec.Checksum}
		}
		lastSeq = rec.Seq

		if handler != nil {
			if err := handler(rec); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("trace: read: %w", err)
	}
	return nil
}

// Count returns the number of verified records in the trace.
func Count(path string) (int, error) {
	n := 0
	err := Replay(path, func(Record) error {
		n++
		return nil
	})
	return n, err
}
