// Package snapshot stores a batch of simulation runs as a single JSON archive.
package snapshot

// ============================================================================
// Responsibilities:
// 1. Serialize the input and every run result into one JSON file
// 2. Write atomically (temp file + rename) so a crash never leaves a torn archive
// 3. Verify the schema version on load
// ============================================================================

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// SchemaVersion is the archive layout this package reads and writes.
const SchemaVersion = 1

var (
	ErrCorruptedArchive    = errors.New("archive file is corrupted")
	ErrIncompatibleVersion = errors.New("archive schema version is incompatible")
	ErrArchiveNotFound     = errors.New("archive file not found")
)

// Manager reads and writes one archive file.
type Manager struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewManager returns a manager for the archive at path.
func NewManager(path string) *Manager {
	return &Manager{
		path: path,
		now:  time.Now,
	}
}

// Write stores data atomically.
//
// Flow:
// 1. Stamp the schema version (and the creation time when unset)
// 2. Write a sibling .tmp file
// 3. Rename it over the archive
func (m *Manager) Write(data types.ArchiveData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data.SchemaVer = SchemaVersion
	if data.CreatedAt == 0 {
		data.CreatedAt = m.now().UnixMilli()
	}

	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archive: %w", err)
	}

	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write temp archive: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename archive: %w", err)
	}

	return nil
}

// Load reads the archive.
//
// Behavior:
//   - A missing file yields ErrArchiveNotFound
//   - Undecodable content yields ErrCorruptedArchive
//   - Any schema version other than SchemaVersion yields ErrIncompatibleVersion
func (m *Manager) Load() (types.ArchiveData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var data types.ArchiveData

	jsonBytes, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, fmt.Errorf("%w: %s", ErrArchiveNotFound, m.path)
		}
		return data, fmt.Errorf("failed to read archive: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return data, fmt.Errorf("%w: %v", ErrCorruptedArchive, err)
	}
	if data.SchemaVer != SchemaVersion {
		return data, fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, data.SchemaVer, SchemaVersion)
	}

	return data, nil
}

// Exists reports whether the archive file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Path returns the archive location.
func (m *Manager) Path() string {
	return m.path
}
