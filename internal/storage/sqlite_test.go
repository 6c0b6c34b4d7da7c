package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
)

func setupTestArchive(t *testing.T) *SQLiteArchive {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	a, err := NewSQLiteArchive(":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSQLiteArchive_SaveAndRecent(t *testing.T) {
	a := setupTestArchive(t)
	ctx := context.Background()
	id := uuid.New()

	scenes := []string{
		"YUKARI: First scene.",
		"JUNPEI: Second scene.",
		"MITSURU: Third scene.",
	}
	for _, s := range scenes {
		if err := a.Save(ctx, id, s); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	recent, err := a.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 scenes, got %d", len(recent))
	}
	if recent[0] != "MITSURU: Third scene." {
		t.Errorf("Expected newest scene first, got %q", recent[0])
	}
}

func TestSQLiteArchive_RecentEmpty(t *testing.T) {
	a := setupTestArchive(t)

	recent, err := a.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("Expected empty archive, got %v", recent)
	}
}
