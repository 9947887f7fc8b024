package runrecord

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pengelbrecht/tally/internal/runner"
)

func sampleResult(start time.Time) *runner.Result {
	return &runner.Result{
		StartedAt: start,
		Duration:  3 * time.Millisecond,
		Features: []runner.FeatureResult{{
			Path: "features/calculator.feature",
			Name: "Calculator",
			Scenarios: []runner.ScenarioResult{
				{Name: "Add two numbers", Line: 7, Status: runner.StatusPassed},
				{
					Name:   "Broken",
					Line:   12,
					Status: runner.StatusFailed,
					Steps: []runner.StepResult{
						{Keyword: "Given", Text: "I have entered 1 into the calculator", Status: runner.StatusPassed},
						{Keyword: "Then", Text: "the result should be 2", Status: runner.StatusFailed, Error: "expected 2, got 1"},
					},
				},
			},
		}},
		Summary: runner.Summary{Scenarios: 2, Passed: 1, Failed: 1, Steps: 2},
	}
}

func TestStore_WriteRead(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	record := FromResult(sampleResult(start), []string{"features"}, "@add")

	if err := store.Write(record); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	path := filepath.Join(dir, ".tally", "records", record.ID+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("Run record file not created")
	}

	got, err := store.Read(record.ID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Summary != record.Summary {
		t.Errorf("Summary mismatch: got %+v, want %+v", got.Summary, record.Summary)
	}
	if got.Tags != "@add" {
		t.Errorf("Tags mismatch: got %q", got.Tags)
	}
	if len(got.Failures) != 1 {
		t.Fatalf("Failures length: got %d, want 1", len(got.Failures))
	}
	f := got.Failures[0]
	if f.Scenario != "Broken" || f.Step != "Then the result should be 2" || f.Error != "expected 2, got 1" {
		t.Errorf("unexpected failure: %+v", f)
	}
	if !store.Exists(record.ID) {
		t.Error("Exists should be true after write")
	}
}

func TestStore_WriteRequiresID(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Write(&Record{}); err == nil {
		t.Fatal("expected error for record without id")
	}
}

func TestStore_ReadNotFound(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Read(NewID(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
	if _, err := store.Latest(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest on empty store: %v", err)
	}
}

func TestStore_RejectsPathLikeIDs(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	// A record-shaped file outside the records directory.
	outside := filepath.Join(root, "secret.json")
	if err := os.WriteFile(outside, []byte(`{"id":"x"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, id := range []string{"../../secret", "../secret", "nope", "", "20260101T000000.000000000/../x"} {
		t.Run(id, func(t *testing.T) {
			if _, err := store.Read(id); !errors.Is(err, ErrInvalidID) {
				t.Errorf("Read(%q) = %v, want ErrInvalidID", id, err)
			}
			if err := store.Delete(id); !errors.Is(err, ErrInvalidID) {
				t.Errorf("Delete(%q) = %v, want ErrInvalidID", id, err)
			}
			if store.Exists(id) {
				t.Errorf("Exists(%q) = true", id)
			}
		})
	}
	if err := store.Write(&Record{ID: "../escape"}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Write with bad id = %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("file outside records dir touched: %v", err)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := NewStore(t.TempDir())

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		rec := &Record{ID: NewID(base.Add(time.Duration(i) * time.Hour))}
		if err := store.Write(rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0] != ids[2] || list[2] != ids[0] {
		t.Errorf("List = %v, want newest first of %v", list, ids)
	}

	latest, err := store.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != ids[2] {
		t.Errorf("Latest = %s, want %s", latest.ID, ids[2])
	}
}

func TestStore_ListEmptyDir(t *testing.T) {
	store := NewStore(t.TempDir())
	ids, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
}

func TestStore_DeleteAndPrune(t *testing.T) {
	store := NewStore(t.TempDir())

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.Write(&Record{ID: NewID(base.Add(time.Duration(i) * time.Minute))}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	newest := NewID(base.Add(4 * time.Minute))
	oldest := NewID(base)
	if err := store.Delete(oldest); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Exists(oldest) {
		t.Error("record should be gone after Delete")
	}
	if err := store.Delete(oldest); err != nil {
		t.Errorf("Delete of missing record should not fail: %v", err)
	}

	removed, err := store.Prune(2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	ids, _ := store.List()
	if len(ids) != 2 || ids[0] != newest {
		t.Errorf("after prune: %v", ids)
	}

	removed, err = store.Prune(10)
	if err != nil || removed != 0 {
		t.Errorf("Prune above count = %d, %v", removed, err)
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Separate stores mimic separate processes sharing the directory.
			store := NewStore(dir)
			if err := store.Write(&Record{ID: NewID(base.Add(time.Duration(i) * time.Second))}); err != nil {
				t.Errorf("Write %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	ids, err := NewStore(dir).List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 10 {
		t.Errorf("got %d records, want 10", len(ids))
	}
}
