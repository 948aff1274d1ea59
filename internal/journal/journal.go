// Package journal persists finalized records to a shared append-only JSON
// array file. The file may already contain entries from earlier runs or other
// agents; appends preserve them.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is an immutable snapshot of a finalized record plus its generated
// identifier and completion timestamp.
type Entry struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	CreatedAt time.Time      `json:"created_at"`
	Fields    map[string]any `json:"fields"`
}

// PersistenceError wraps a backing-store failure. The caller's in-memory
// record is untouched, so the operation can be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("journal %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Journal is a process-wide shared append target. Appends follow a
// read-modify-write cycle, so they are serialized with an internal mutex;
// the rewrite goes through a temp file and an atomic rename so a concurrent
// reader never observes a truncated file.
type Journal struct {
	path  string
	clock Clock

	mu sync.Mutex
}

// Open creates a Journal backed by the given file path. The file does not
// need to exist yet.
func Open(path string) *Journal {
	return &Journal{path: path, clock: realClock{}}
}

// OpenWithClock creates a Journal with a custom clock (for testing).
func OpenWithClock(path string, clock Clock) *Journal {
	return &Journal{path: path, clock: clock}
}

// Path returns the backing file path.
func (j *Journal) Path() string { return j.path }

// Append snapshots the given fields into a new entry and durably appends it.
// Prior entries in the file are preserved.
func (j *Journal) Append(kind string, fields map[string]any) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:        uuid.New().String(),
		Kind:      kind,
		CreatedAt: j.clock.Now().UTC(),
		Fields:    fields,
	}
	entries = append(entries, entry)

	if err := j.writeAll(entries); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// LoadRecent returns the last n entries in append order. A missing or empty
// backing file yields an empty slice, never an error.
func (j *Journal) LoadRecent(n int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(entries) {
		return entries, nil
	}
	return entries[len(entries)-n:], nil
}

// readAll loads the full entry list. Caller must hold j.mu.
func (j *Journal) readAll() ([]Entry, error) {
	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Err: err}
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &PersistenceError{Op: "decode", Err: err}
	}
	return entries, nil
}

// writeAll rewrites the whole collection via temp file + rename. Caller must
// hold j.mu.
func (j *Journal) writeAll(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(j.path)+".tmp-*")
	if err != nil {
		return &PersistenceError{Op: "create temp", Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &PersistenceError{Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &PersistenceError{Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Op: "close", Err: err}
	}

	if err := os.Rename(tmpPath, j.path); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Op: "rename", Err: err}
	}
	return nil
}
