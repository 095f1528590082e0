package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := OpenCatalog(":memory:")
	if err != nil {
		t.Fatalf("OpenCatalog() unexpected error: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })
	return catalog
}

func TestCatalog_RecordAndList(t *testing.T) {
	ctx := context.Background()
	catalog := openTestCatalog(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := catalog.Record(ctx, BackupEntry{
		PlaylistID:   "pl1",
		PlaylistName: "Road Trip",
		Path:         "backups/road-trip-1.json",
		Tracks:       42,
		Version:      "0.4.0",
		CreatedAt:    base,
	})
	if err != nil {
		t.Fatalf("Record() unexpected error: %v", err)
	}
	if first.ID == "" {
		t.Error("Record() should assign an id")
	}

	second, err := catalog.Record(ctx, BackupEntry{
		PlaylistID:   "pl2",
		PlaylistName: "Focus",
		Path:         "backups/focus.json",
		Tracks:       7,
		Version:      "0.4.0",
		CreatedAt:    base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Record() unexpected error: %v", err)
	}
	if second.ID == first.ID {
		t.Error("Record() should assign distinct ids")
	}

	entries, err := catalog.List(ctx)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(entries))
	}
	if entries[0].ID != second.ID || entries[1].ID != first.ID {
		t.Error("List() should return the newest backup first")
	}
	if entries[1].Tracks != 42 || entries[1].Path != "backups/road-trip-1.json" || !entries[1].CreatedAt.Equal(base) {
		t.Errorf("Unexpected entry %+v", entries[1])
	}
}

func TestCatalog_Latest(t *testing.T) {
	ctx := context.Background()
	catalog := openTestCatalog(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, path := range []string{"old.json", "new.json"} {
		_, err := catalog.Record(ctx, BackupEntry{
			PlaylistID:   "pl1",
			PlaylistName: "Road Trip",
			Path:         path,
			Version:      "0.4.0",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	latest, err := catalog.Latest(ctx, "Road Trip")
	if err != nil {
		t.Fatalf("Latest() unexpected error: %v", err)
	}
	if latest.Path != "new.json" {
		t.Errorf("Latest() path = %q, want new.json", latest.Path)
	}

	if _, err := catalog.Latest(ctx, "Unknown"); !errors.Is(err, ErrNoBackup) {
		t.Errorf("Latest() error = %v, want ErrNoBackup", err)
	}
}

func TestCatalog_DefaultTimestamp(t *testing.T) {
	catalog := openTestCatalog(t)

	before := time.Now().Add(-time.Second)
	entry, err := catalog.Record(context.Background(), BackupEntry{PlaylistName: "x", Path: "x.json", Version: "0.4.0"})
	if err != nil {
		t.Fatal(err)
	}
	if entry.CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want about now", entry.CreatedAt)
	}
}
