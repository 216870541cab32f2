package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pingen/internal/pin"
)

func run(id string) *pin.BatchResult {
	return &pin.BatchResult{
		RunID: id,
		Topic: "topic " + id,
		Records: []*pin.Record{
			{Title: "t", Status: pin.StatusImageUploaded, ImageURL: "https://example.com/" + id + ".png"},
		},
	}
}

func TestStoreAddAndList(t *testing.T) {
	tests := []struct {
		name    string
		maxRuns int
		add     int
		wantIDs []string
	}{
		{name: "underCapacity", maxRuns: 5, add: 3, wantIDs: []string{"r2", "r1", "r0"}},
		{name: "evictsOldest", maxRuns: 2, add: 4, wantIDs: []string{"r3", "r2"}},
		{name: "empty", maxRuns: 2, add: 0, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(filepath.Join(t.TempDir(), "history.json"), tt.maxRuns)
			for i := range tt.add {
				if err := s.Add(run(fmt.Sprintf("r%d", i))); err != nil {
					t.Fatalf("Add() error = %v", err)
				}
			}

			got := s.List()
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("List() len = %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].RunID != id {
					t.Errorf("List()[%d] = %s, want %s", i, got[i].RunID, id)
				}
			}
		})
	}
}

func TestStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")

	s := NewStore(path, 3)
	_ = s.Add(run("a"))
	_ = s.Add(run("b"))

	reloaded := NewStore(path, 3)
	if reloaded.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reloaded.Len())
	}

	got, err := reloaded.Get("a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Records[0].Status != pin.StatusImageUploaded {
		t.Errorf("status = %q", got.Records[0].Status)
	}

	smaller := NewStore(path, 1)
	if ids := smaller.List(); len(ids) != 1 || ids[0].RunID != "b" {
		t.Errorf("reload with smaller capacity = %v", ids)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "history.json"), 3)
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := NewStore(path, 3)
	_ = s.Add(run("a"))

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 || NewStore(path, 3).Len() != 0 {
		t.Error("Clear() should empty memory and disk")
	}
}

func TestStoreIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, 3)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if err := s.Add(nil); err != nil || s.Len() != 0 {
		t.Error("Add(nil) should be a no-op")
	}
}
