package history

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"), logger)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{Kind: "paste-text", Source: "hello", URL: "https://p.example/1", ShortURL: "https://s.example/1", Outcome: OutcomeOK},
		{Kind: "file-set", Source: "notes.txt", URL: "https://p.example/2", Outcome: OutcomeOK},
		{Kind: "link-set", Source: "http://a.co", Outcome: OutcomeFailed},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	// Newest first.
	if got[0].Kind != "link-set" || got[0].Outcome != OutcomeFailed {
		t.Errorf("got[0] = %+v, want the link-set failure", got[0])
	}
	if got[2].Kind != "paste-text" || got[2].ShortURL != "https://s.example/1" {
		t.Errorf("got[2] = %+v, want the first paste", got[2])
	}
}

func TestStore_RecentLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, Entry{Kind: "paste-text", Outcome: OutcomeOK}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d entries, want 2", len(got))
	}
}

func TestStore_RecentEmpty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d entries from an empty store", len(got))
	}
}

func TestStore_CreatesParentDirectory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	store, err := NewStore(path, logger)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}
