package analyzer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastickilla/elastickilla/internal/watcher"
)

func TestSubscribe_IgnorePatterns(t *testing.T) {
	// Given: logs, one of them re-included, and a text file
	dir := t.TempDir()
	paths := writeFiles(t, dir, map[string]string{
		"app.log":  "a",
		"keep.log": "k",
		"note.txt": "n",
	})
	a, rec, _ := newRecordingAnalyzer(t, WithIgnore([]string{"*.log", "!keep.log"}, ""))

	// When: subscribing to everything
	require.NoError(t, a.Subscribe(context.Background(), dir, ""))
	drain(t, a)

	// Then: the ignored log is skipped
	assert.Empty(t, rec.Ops(ResourceID(paths[0])))
	assert.Equal(t, []string{"Add"}, rec.Ops(ResourceID(paths[1])))
	assert.Equal(t, []string{"Add"}, rec.Ops(ResourceID(paths[2])))
}

func TestSubscribe_IgnoreFile(t *testing.T) {
	// Given: two directories, only one with an ignore file
	withRules := t.TempDir()
	plain := t.TempDir()
	writeFiles(t, withRules, map[string]string{".ekignore": "# build output\n*.o\n"})
	ignored := writeFiles(t, withRules, map[string]string{"main.o": "x"})[0]
	kept := writeFiles(t, plain, map[string]string{"main.o": "x"})[0]
	a, rec, _ := newRecordingAnalyzer(t, WithIgnore(nil, ".ekignore"))
	ctx := context.Background()

	// When: subscribing to both
	require.NoError(t, a.Subscribe(ctx, withRules, "*.o"))
	require.NoError(t, a.Subscribe(ctx, plain, "*.o"))
	drain(t, a)

	// Then: each directory's own rules apply
	assert.Empty(t, rec.Ops(ResourceID(ignored)))
	assert.Equal(t, []string{"Add"}, rec.Ops(ResourceID(kept)))
}

func TestEvents_IgnoredFiles(t *testing.T) {
	// Given: a subscription that ignores temporary files
	dir := t.TempDir()
	a, rec, fw := newRecordingAnalyzer(t, WithIgnore([]string{"*.tmp"}, ""))
	require.NoError(t, a.Subscribe(context.Background(), dir, ""))
	w := fw.last(t)
	tmp := writeFiles(t, dir, map[string]string{"draft.tmp": "x"})[0]
	txt := writeFiles(t, dir, map[string]string{"draft.txt": "x"})[0]

	// When: the temporary file appears and changes, then a real file appears
	w.emit(t, watcher.OpCreate, tmp, "")
	w.emit(t, watcher.OpModify, tmp, "")
	w.emit(t, watcher.OpCreate, txt, "")
	eventually(t, a, func() bool { return rec.Count("Add") == 1 })

	// Then: only the real file was indexed
	assert.Empty(t, rec.Ops(ResourceID(tmp)))
	assert.Equal(t, []string{"Add"}, rec.Ops(ResourceID(txt)))
}

func TestEvents_RenameIntoIgnoredName(t *testing.T) {
	// Given: an indexed file
	dir := t.TempDir()
	path := writeFiles(t, dir, map[string]string{"report.txt": "x"})[0]
	a, rec, fw := newRecordingAnalyzer(t, WithIgnore([]string{"*.bak"}, ""))
	require.NoError(t, a.Subscribe(context.Background(), dir, ""))
	drain(t, a)
	w := fw.last(t)

	// When: it is renamed to an ignored name
	bak := filepath.Join(dir, "report.bak")
	w.emit(t, watcher.OpRename, bak, path)
	eventually(t, a, func() bool { return rec.Count("Remove") == 1 })

	// Then: it leaves the index and the new name is not added
	assert.Equal(t, []string{"Add", "Remove"}, rec.Ops(ResourceID(path)))
	assert.Empty(t, rec.Ops(ResourceID(bak)))
}
