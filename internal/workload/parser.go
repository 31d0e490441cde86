// Package workload reads task lists in the "id;service;arrival;tier;priority"
// line format.
package workload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

const (
	fieldSeparator = ";"
	commentPrefix  = "#"
	minFields      = 5
)

var (
	// ErrMalformedField is the root cause of every ParseError.
	ErrMalformedField = errors.New("malformed field")
	// ErrDuplicateID is returned when an identifier appears on two lines.
	ErrDuplicateID = errors.New("duplicate task identifier")
)

// ParseError locates a rejected line.
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: field %s: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseFile opens path and parses it.
func ParseFile(path string) ([]types.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workload: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads one task per line. Blank lines, comment lines and lines with
// fewer than five fields are skipped; anything else must be well formed.
func Parse(r io.Reader) ([]types.Task, error) {
	var (
		tasks   []types.Task
		seen    = make(map[string]int)
		scanner = bufio.NewScanner(r)
		lineNo  int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		fields := strings.Split(line, fieldSeparator)
		if len(fields) < minFields {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		task, err := parseTask(lineNo, fields)
		if err != nil {
			return nil, err
		}
		if first, dup := seen[task.ID]; dup {
			return nil, &ParseError{
				Line:  lineNo,
				Field: "id",
				Err:   fmt.Errorf("%w: %q first seen on line %d", ErrDuplicateID, task.ID, first),
			}
		}
		seen[task.ID] = lineNo
		tasks = append(tasks, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read workload: %w", err)
	}

	return tasks, nil
}

func parseTask(lineNo int, fields []string) (types.Task, error) {
	task := types.Task{
		ID:           fields[0],
		StartMoment:  types.Unset,
		FinishMoment: types.Unset,
	}
	if task.ID == "" {
		return task, &ParseError{Line: lineNo, Field: "id", Err: fmt.Errorf("%w: empty identifier", ErrMalformedField)}
	}

	numeric := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"service", fields[1], &task.ServiceDuration},
		{"arrival", fields[2], &task.ArrivalMoment},
		{"tier", fields[3], &task.Tier},
		{"priority", fields[4], &task.Priority},
	}
	for _, f := range numeric {
		v, err := strconv.Atoi(f.raw)
		if err != nil {
			return task, &ParseError{Line: lineNo, Field: f.name, Err: fmt.Errorf("%w: %q is not an integer", ErrMalformedField, f.raw)}
		}
		*f.dst = v
	}

	if task.ServiceDuration <= 0 {
		return task, &ParseError{Line: lineNo, Field: "service", Err: fmt.Errorf("%w: must be positive, got %d", ErrMalformedField, task.ServiceDuration)}
	}
	if task.ArrivalMoment < 0 {
		return task, &ParseError{Line: lineNo, Field: "arrival", Err: fmt.Errorf("%w: must not be negative, got %d", ErrMalformedField, task.ArrivalMoment)}
	}

	task.TimeLeft = task.ServiceDuration
	return task, nil
}
