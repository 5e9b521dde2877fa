package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(WithDebounce(20 * time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_Watch(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t)

	if err := w.Watch(filepath.Join(dir, "a.toml")); err != nil {
		t.Errorf("Watch() error = %v", err)
	}
	if err := w.Watch(filepath.Join(dir, "a.toml")); err != nil {
		t.Errorf("Watch() twice error = %v", err)
	}
	if err := w.Watch(filepath.Join(dir, "b.toml")); err != nil {
		t.Errorf("Watch() error = %v", err)
	}
	if got := len(w.WatchedFiles()); got != 2 {
		t.Errorf("WatchedFiles() = %d files, want 2", got)
	}

	if err := w.Watch(filepath.Join(dir, "missing", "c.toml")); err == nil {
		t.Error("Watch() in a missing directory should fail")
	}

	if err := w.Unwatch(filepath.Join(dir, "a.toml")); err != nil {
		t.Errorf("Unwatch() error = %v", err)
	}
	if got := w.WatchedFiles(); len(got) != 1 || filepath.Base(got[0]) != "b.toml" {
		t.Errorf("WatchedFiles() = %v, want [b.toml]", got)
	}
}

func TestWatcher_CoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.toml")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t)
	var rec recorder
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	for _, s := range []string{"b", "c", "d"} {
		if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	time.Sleep(60 * time.Millisecond)
	events := rec.snapshot()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if filepath.Base(events[0].Path) != "spec.toml" {
		t.Errorf("event path = %q", events[0].Path)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.toml")
	other := filepath.Join(dir, "other.toml")

	w := newWatcher(t)
	var rec recorder
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	time.Sleep(60 * time.Millisecond)
	for _, ev := range rec.snapshot() {
		if filepath.Base(ev.Path) != "spec.toml" {
			t.Errorf("unexpected event for %q", ev.Path)
		}
	}
}

func TestWatcher_SeesRenameOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.toml")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t)
	var rec recorder
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	tmp := filepath.Join(dir, ".spec.toml.tmp")
	if err := os.WriteFile(tmp, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
}

func TestWatcher_Close(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.Watch(filepath.Join(t.TempDir(), "x")); err != ErrClosed {
		t.Errorf("Watch() after Close = %v, want ErrClosed", err)
	}
}
