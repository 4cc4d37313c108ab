package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "kdk.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteAndReadHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.WriteHistory(ctx, "trace-1", "snapshot", "alice-kdk:1000", "success", "committed", ""); err != nil {
		t.Fatalf("WriteHistory: %v", err)
	}
	if err := s.WriteHistory(ctx, "trace-2", "destroy", "kdk", "error", "", "container not found"); err != nil {
		t.Fatalf("WriteHistory: %v", err)
	}

	entries, err := s.RecentHistory(ctx, 10)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	// Newest first
	if entries[0].Command != "destroy" {
		t.Errorf("entries[0].Command = %q, want %q", entries[0].Command, "destroy")
	}
	if entries[0].Outcome != "error" {
		t.Errorf("entries[0].Outcome = %q, want %q", entries[0].Outcome, "error")
	}
	if !entries[0].ErrorMessage.Valid || entries[0].ErrorMessage.String != "container not found" {
		t.Errorf("entries[0].ErrorMessage = %+v", entries[0].ErrorMessage)
	}
	if entries[1].Command != "snapshot" {
		t.Errorf("entries[1].Command = %q, want %q", entries[1].Command, "snapshot")
	}
	if !entries[1].Target.Valid || entries[1].Target.String != "alice-kdk:1000" {
		t.Errorf("entries[1].Target = %+v", entries[1].Target)
	}
	if entries[1].Detail.Valid && entries[1].Detail.String == "" {
		t.Error("empty detail should be stored as NULL")
	}
}

func TestRecentHistoryLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.WriteHistory(ctx, "t", "pull", "", "success", "", ""); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := s.RecentHistory(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestRecentHistoryEmpty(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.RecentHistory(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kdk.db")
	s1, err := New(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s2.Close()
}
