package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	indexed []string
	removed []string
}

func (r *recorder) onIndex(path string) {
	r.mu.Lock()
	r.indexed = append(r.indexed, filepath.Base(path))
	r.mu.Unlock()
}

func (r *recorder) onRemove(path string) {
	r.mu.Lock()
	r.removed = append(r.removed, filepath.Base(path))
	r.mu.Unlock()
}

func (r *recorder) snapshot() (indexed, removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.indexed), slices.Clone(r.removed)
}

func txtOnly(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, root string, rec *recorder) *Watcher {
	t.Helper()
	w := NewWatcher(root, txtOnly, rec.onIndex, rec.onRemove, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DebounceAndFilter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	startWatcher(t, dir, rec)

	fPath := filepath.Join(sub, "f.txt")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(fPath, []byte(strings.Repeat("x", i+1)), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "ignore.bin"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		indexed, _ := rec.snapshot()
		return len(indexed) > 0
	})
	time.Sleep(200 * time.Millisecond)
	indexed, _ := rec.snapshot()
	if len(indexed) > 2 || slices.ContainsFunc(indexed, func(s string) bool { return s != "f.txt" }) {
		t.Errorf("indexed = %v, want debounced calls for f.txt only", indexed)
	}
}

func TestWatcher_Remove(t *testing.T) {
	dir := t.TempDir()
	fPath := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(fPath, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	startWatcher(t, dir, rec)

	if err := os.Remove(fPath); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		_, removed := rec.snapshot()
		return slices.Contains(removed, "a.txt")
	})
}

func TestWatcher_NewDirectoryIsIndexed(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	// Prepare a folder outside the root and move it in.
	staging := filepath.Join(t.TempDir(), "new-folder")
	if err := os.MkdirAll(staging, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"one.txt", "two.txt", "skip.bin"} {
		if err := os.WriteFile(filepath.Join(staging, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	target := filepath.Join(dir, "new-folder")
	if err := os.Rename(staging, target); err != nil {
		// Cross-device temp dirs: create in place instead.
		if err := os.MkdirAll(target, 0755); err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{"one.txt", "two.txt", "skip.bin"} {
			if err := os.WriteFile(filepath.Join(target, name), []byte("x"), 0600); err != nil {
				t.Fatal(err)
			}
		}
	}
	eventually(t, func() bool {
		indexed, _ := rec.snapshot()
		return slices.Contains(indexed, "one.txt") && slices.Contains(indexed, "two.txt")
	})
	indexed, _ := rec.snapshot()
	if slices.Contains(indexed, "skip.bin") {
		t.Errorf("indexed = %v", indexed)
	}
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	if err := os.WriteFile(filepath.Join(dir, ".draft.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		indexed, _ := rec.snapshot()
		return slices.Contains(indexed, "visible.txt")
	})
	time.Sleep(150 * time.Millisecond)
	indexed, _ := rec.snapshot()
	if slices.Contains(indexed, ".draft.txt") {
		t.Errorf("indexed = %v", indexed)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, root, &recorder{})
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(t.TempDir(), nil, nil, nil)
	w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestHidden(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/docs", false},
		{"/docs/a.txt", false},
		{"/docs/.a.txt", true},
		{"/docs/.git/config", true},
		{"/docs/sub/.upload-123", true},
	}
	for _, tt := range tests {
		if got := hidden("/docs", tt.path); got != tt.want {
			t.Errorf("hidden(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
