package journal

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLoadRecentMissingFile(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "orders.json"))

	entries, err := j.LoadRecent(10)
	if err != nil {
		t.Fatalf("LoadRecent on missing file: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "orders.json"))

	entry, err := j.Append("coffee_order", map[string]any{"drinkType": "latte"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID == "" {
		t.Error("entry should get a generated id")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry should get a timestamp")
	}
	if entry.CreatedAt.Location() != time.UTC {
		t.Error("timestamps should be UTC")
	}
}

func TestAppendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")

	j1 := Open(path)
	if _, err := j1.Append("coffee_order", map[string]any{"name": "Amit"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := j1.Append("coffee_order", map[string]any{"name": "Priya"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// A fresh Journal over the same file sees everything.
	j2 := Open(path)
	entries, err := j2.LoadRecent(0)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Fields["name"] != "Amit" || entries[1].Fields["name"] != "Priya" {
		t.Errorf("append order not preserved: %v", entries)
	}
}

func TestLoadRecentReturnsLastN(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "orders.json"))
	for _, name := range []string{"a", "b", "c", "d"} {
		if _, err := j.Append("coffee_order", map[string]any{"name": name}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := j.LoadRecent(2)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Fields["name"] != "c" || entries[1].Fields["name"] != "d" {
		t.Errorf("expected the last two entries, got %v", entries)
	}
}

func TestCorruptFileReportsPersistenceError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	j := Open(path)
	_, err := j.LoadRecent(5)
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if pe.Op != "decode" {
		t.Errorf("Op = %q, want decode", pe.Op)
	}
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "orders.json"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := j.Append("coffee_order", map[string]any{"n": i}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := j.LoadRecent(0)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("got %d entries, want 10", len(entries))
	}
}
