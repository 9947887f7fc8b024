// Package runrecord provides storage for completed scenario runs.
// Run records are stored as JSON files in .tally/records/<run-id>.json.
// Run IDs sort lexically in start order.
package runrecord

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/pengelbrecht/tally/internal/runner"
)

// idLayout is a time layout whose output sorts chronologically.
const idLayout = "20060102T150405.000000000"

// Record summarizes one run.
type Record struct {
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration_ns"`
	Paths     []string       `json:"paths,omitempty"`
	Tags      string         `json:"tags,omitempty"`
	Summary   runner.Summary `json:"summary"`
	Failures  []Failure      `json:"failures,omitempty"`
}

// Failure describes a scenario that did not pass.
type Failure struct {
	Feature  string        `json:"feature"`
	Scenario string        `json:"scenario"`
	Line     int           `json:"line"`
	Status   runner.Status `json:"status"`
	Step     string        `json:"step,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// NewID returns a run ID derived from t.
func NewID(t time.Time) string {
	return t.UTC().Format(idLayout)
}

// ValidID reports an ErrInvalidID error unless id has the form NewID
// produces. IDs end up in file paths, so anything else is rejected.
func ValidID(id string) error {
	if _, err := time.Parse(idLayout, id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// FromResult builds a record from a runner result.
func FromResult(res *runner.Result, paths []string, tags string) *Record {
	rec := &Record{
		ID:        NewID(res.StartedAt),
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
		Paths:     paths,
		Tags:      tags,
		Summary:   res.Summary,
	}
	for _, fr := range res.Features {
		for _, sr := range fr.Scenarios {
			if sr.Status == runner.StatusPassed {
				continue
			}
			f := Failure{Feature: fr.Path, Scenario: sr.Name, Line: sr.Line, Status: sr.Status}
			if st, ok := sr.Failed(); ok {
				f.Step = st.Keyword + " " + st.Text
				f.Error = st.Error
			}
			rec.Failures = append(rec.Failures, f)
		}
	}
	return rec
}

// Store manages run record files in the .tally/records/ directory.
type Store struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

var (
	// ErrNotFound is returned when a run record doesn't exist.
	ErrNotFound = errors.New("run record not found")
	// ErrInvalidID is returned for IDs that NewID could not have produced.
	ErrInvalidID = errors.New("invalid run id")
)

// NewStore creates a store for the given project root.
// The project root should contain a .tally/ directory.
func NewStore(root string) *Store {
	dir := filepath.Join(root, ".tally", "records")
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(root, ".tally", "records.lock")),
	}
}

// Dir returns the records directory.
func (s *Store) Dir() string {
	return s.dir
}

// withLock runs fn while holding the cross-process records lock.
func (s *Store) withLock(fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create records dir: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock records: %w", err)
	}
	defer s.lock.Unlock()
	return fn()
}

// Write saves a run record. Overwrites any existing record with the same ID.
func (s *Store) Write(record *Record) error {
	if record.ID == "" {
		return errors.New("run record has no id")
	}
	if err := ValidID(record.ID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	return s.withLock(func() error {
		tmp, err := os.CreateTemp(s.dir, record.ID+".*.tmp")
		if err != nil {
			return fmt.Errorf("create temp record: %w", err)
		}
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return fmt.Errorf("write run record: %w", err)
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmp.Name())
			return fmt.Errorf("close run record: %w", err)
		}
		if err := os.Rename(tmp.Name(), s.path(record.ID)); err != nil {
			os.Remove(tmp.Name())
			return fmt.Errorf("rename run record: %w", err)
		}
		return nil
	})
}

// Read loads a run record by ID.
// Returns ErrNotFound if no record exists.
func (s *Store) Read(id string) (*Record, error) {
	if err := ValidID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read run record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal run record: %w", err)
	}

	return &record, nil
}

// Exists checks if a run record exists for the given ID.
func (s *Store) Exists(id string) bool {
	if ValidID(id) != nil {
		return false
	}
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Delete removes a run record.
// Does not return an error if the record doesn't exist.
func (s *Store) Delete(id string) error {
	if err := ValidID(id); err != nil {
		return err
	}
	return s.withLock(func() error {
		err := os.Remove(s.path(id))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete run record: %w", err)
		}
		return nil
	})
}

// List returns all run IDs, newest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read records dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		if id := strings.TrimSuffix(name, ".json"); ValidID(id) == nil {
			ids = append(ids, id)
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Latest returns the newest record, or ErrNotFound if there are none.
func (s *Store) Latest() (*Record, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return s.Read(ids[0])
}

// Prune deletes all but the newest keep records and returns how many were
// removed.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	ids, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(ids) <= keep {
		return 0, nil
	}

	removed := 0
	err = s.withLock(func() error {
		for _, id := range ids[keep:] {
			if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("prune run record %s: %w", id, err)
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// path returns the file path for a run record.
func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
