package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchTuning(t *testing.T) {
	reloadDelay = 10 * time.Millisecond
	t.Cleanup(func() { reloadDelay = 200 * time.Millisecond })

	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("speech:\n  reveal_interval: 30ms\n"), 0o644))

	var mu sync.Mutex
	var got []Tuning
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchTuning(ctx, path, DefaultTuning(), func(tu Tuning) {
			mu.Lock()
			got = append(got, tu)
			mu.Unlock()
		}, nil)
	}()

	last := func() (Tuning, bool) {
		mu.Lock()
		defer mu.Unlock()
		if len(got) == 0 {
			return Tuning{}, false
		}
		return got[len(got)-1], true
	}

	// Keep rewriting until the watcher, which starts asynchronously, sees it.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("speech:\n  reveal_interval: 80ms\n"), 0o644)
		tu, ok := last()
		return ok && tu.Speech.RevealInterval == 80*time.Millisecond
	}, 5*time.Second, 50*time.Millisecond)

	tu, _ := last()
	assert.Equal(t, DefaultTuning().Cursor, tu.Cursor, "unset sections keep the base")

	// Other files in the directory are ignored; broken YAML is skipped.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	n := len(got)
	mu.Unlock()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("speech: [not, a, map"), 0o644))
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, n, len(got))
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchTuning_MissingDir(t *testing.T) {
	err := WatchTuning(context.Background(), filepath.Join(t.TempDir(), "nope", "tuning.yaml"), DefaultTuning(), func(Tuning) {}, nil)
	assert.Error(t, err)
}
