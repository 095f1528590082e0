package compose

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mix.yaml")
	if err := os.WriteFile(path, []byte("nb_songs: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, zap.NewNop(), func(_ context.Context, cfg *Config) error {
			applied <- cfg
			return nil
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("nb_songs: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("nb_songs: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("nb_songs: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-applied:
		if cfg.NbSongs() != 7 {
			t.Errorf("Applied configuration with nb_songs %d, want 7", cfg.NbSongs())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the configuration to be reloaded")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not return after cancellation")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "mix.yaml"),
		time.Millisecond, zap.NewNop(), func(context.Context, *Config) error { return nil })
	if err == nil {
		t.Error("Expected an error for a missing directory")
	}
}
