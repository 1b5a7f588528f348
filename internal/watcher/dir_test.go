package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
)

func startDirWatcher(t *testing.T, dir string, opts Options) *DirWatcher {
	t.Helper()
	w, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), dir))
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	// When: creating a watcher with a negative window
	_, err := New(Options{RenameWindow: -time.Second})

	// Then: a validation error is returned
	require.Error(t, err)
	assert.Equal(t, ekerrors.ErrCodeInvalidInput, ekerrors.GetCode(err))
}

func TestDirWatcher_CreateModifyDelete(t *testing.T) {
	// Given: a watcher on an empty directory
	dir := t.TempDir()
	w := startDirWatcher(t, dir, Options{})
	if w.IsPolling() {
		t.Skip("fsnotify unavailable")
	}

	// When: a file is created, written again and removed
	path := writeFile(t, dir, "a.txt", "one")
	nextEvent(t, w.Events(), isOp(OpCreate, path))

	require.NoError(t, os.WriteFile(path, []byte("one two"), 0o644))
	nextEvent(t, w.Events(), isOp(OpModify, path))

	require.NoError(t, os.Remove(path))

	// Then: the deletion is reported too
	nextEvent(t, w.Events(), isOp(OpDelete, path))
}

func TestDirWatcher_RenameWithinDirectory(t *testing.T) {
	// Given: a directory with a file
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.txt", "content")
	w := startDirWatcher(t, dir, Options{})
	if w.IsPolling() {
		t.Skip("fsnotify unavailable")
	}

	// When: the file is renamed
	newPath := filepath.Join(dir, "new.txt")
	require.NoError(t, os.Rename(oldPath, newPath))

	// Then: a single RENAME carries both names
	ev := nextEvent(t, w.Events(), func(FileEvent) bool { return true })
	assert.Equal(t, OpRename, ev.Operation)
	assert.Equal(t, newPath, ev.Path)
	assert.Equal(t, oldPath, ev.OldPath)
}

func TestDirWatcher_MoveOutIsDelete(t *testing.T) {
	// Given: a watched directory and a sibling outside it
	root := t.TempDir()
	dir := filepath.Join(root, "watched")
	require.NoError(t, os.Mkdir(dir, 0o755))
	path := writeFile(t, dir, "leaving.txt", "bye")
	w := startDirWatcher(t, dir, Options{RenameWindow: 20 * time.Millisecond})
	if w.IsPolling() {
		t.Skip("fsnotify unavailable")
	}

	// When: the file is moved out of the directory
	require.NoError(t, os.Rename(path, filepath.Join(root, "leaving.txt")))

	// Then: it is reported as deleted once the rename window passes
	nextEvent(t, w.Events(), isOp(OpDelete, path))
}

func TestDirWatcher_IgnoresSubdirectories(t *testing.T) {
	// Given: a watcher on an empty directory
	dir := t.TempDir()
	w := startDirWatcher(t, dir, Options{})

	// When: a subdirectory with a file appears, then a marker file
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, sub, "inner.txt", "x")
	marker := writeFile(t, dir, "marker.txt", "m")

	// Then: the first event is about the marker
	ev := nextEvent(t, w.Events(), func(FileEvent) bool { return true })
	assert.Equal(t, marker, ev.Path)
}

func TestDirWatcher_ForcePolling(t *testing.T) {
	// Given: a watcher forced into polling mode
	dir := t.TempDir()
	w := startDirWatcher(t, dir, Options{ForcePolling: true, PollInterval: 20 * time.Millisecond})

	// When: a file is created
	path := writeFile(t, dir, "polled.txt", "x")

	// Then: polling reports it
	assert.True(t, w.IsPolling())
	nextEvent(t, w.Events(), isOp(OpCreate, path))
}

func TestDirWatcher_Debounced(t *testing.T) {
	// Given: a debouncing watcher
	dir := t.TempDir()
	w := startDirWatcher(t, dir, Options{DebounceWindow: 50 * time.Millisecond})

	// When: a file is created and rewritten quickly
	path := writeFile(t, dir, "burst.txt", "1")
	require.NoError(t, os.WriteFile(path, []byte("12"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("123"), 0o644))

	// Then: a single CREATE comes out
	ev := nextEvent(t, w.Events(), func(FileEvent) bool { return true })
	assert.Equal(t, OpCreate, ev.Operation)
	assert.Equal(t, path, ev.Path)
	select {
	case extra := <-w.Events():
		t.Fatalf("unexpected extra event: %+v", extra)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDirWatcher_StartTwice(t *testing.T) {
	// Given: a started watcher
	dir := t.TempDir()
	other := t.TempDir()
	w := startDirWatcher(t, dir, Options{})
	polling := w.IsPolling()

	// When: started again, on another directory
	err := w.Start(context.Background(), other)

	// Then: it is refused and the first watch is untouched
	require.Error(t, err)
	assert.Equal(t, ekerrors.ErrCodeWatchFailed, ekerrors.GetCode(err))
	assert.Equal(t, polling, w.IsPolling())
	if !polling {
		path := writeFile(t, dir, "still.txt", "here")
		nextEvent(t, w.Events(), isOp(OpCreate, path))
	}

	// Then: stopping releases everything it opened
	require.NoError(t, w.Stop())
}

func TestDirWatcher_StartAfterStop(t *testing.T) {
	w, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, w.Stop())

	err = w.Start(context.Background(), t.TempDir())

	require.Error(t, err)
	assert.Equal(t, ekerrors.ErrCodeWatchFailed, ekerrors.GetCode(err))
}

func TestDirWatcher_StartOnMissingDirectory(t *testing.T) {
	// Given: a path that does not exist
	w, err := New(Options{})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	// When: starting on it
	err = w.Start(context.Background(), filepath.Join(t.TempDir(), "missing"))

	// Then: a not-found error is returned
	require.Error(t, err)
	assert.Equal(t, ekerrors.ErrCodeFileNotFound, ekerrors.GetCode(err))
}

func TestDirWatcher_Stop(t *testing.T) {
	// Given: a running watcher
	w, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), t.TempDir()))

	// When: stopped twice
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	// Then: channels are closed
	_, ok := <-w.Events()
	assert.False(t, ok)
	_, ok = <-w.Errors()
	assert.False(t, ok)
}

func TestDirWatcher_StopBeforeStart(t *testing.T) {
	// Given: a watcher that never started
	w, err := New(Options{})
	require.NoError(t, err)

	// When/Then: Stop works and Start is refused afterwards
	require.NoError(t, w.Stop())
	assert.Error(t, w.Start(context.Background(), t.TempDir()))
}

func TestDirWatcher_ContextCancellation(t *testing.T) {
	// Given: a watcher started with a cancellable context
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx, t.TempDir()))

	// When: the context is cancelled
	cancel()

	// Then: the events channel closes
	select {
	case _, ok := <-w.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}
