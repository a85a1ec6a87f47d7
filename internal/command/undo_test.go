package command

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func journalPath(t *testing.T, dir string) string {
	t.Helper()
	jdir := filepath.Join(dir, "food-journal")
	require.NoError(t, os.MkdirAll(jdir, 0o755))
	return filepath.Join(jdir, time.Now().Format("2006-01")+".jsonl")
}

func TestUndoLogRemovesLastLine(t *testing.T) {
	dir := t.TempDir()
	path := journalPath(t, dir)
	require.NoError(t, os.WriteFile(path,
		[]byte("{\"food\":\"breakfast\"}\n{\"food\":\"lunch\"}\n"), 0o644))

	assert.True(t, Undo("log", dir))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"food\":\"breakfast\"}\n", string(got))
}

func TestUndoLogNeverInspectsContent(t *testing.T) {
	dir := t.TempDir()
	path := journalPath(t, dir)
	require.NoError(t, os.WriteFile(path,
		[]byte("{\"food\":\"breakfast\"}\nnot json at all\n"), 0o644))

	assert.True(t, Undo("log", dir))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"food\":\"breakfast\"}\n", string(got))
}

func TestUndoLogEmptyJournal(t *testing.T) {
	dir := t.TempDir()
	path := journalPath(t, dir)
	require.NoError(t, os.WriteFile(path, []byte("  \n\n"), 0o644))

	assert.False(t, Undo("log", dir), "blank journal has nothing to undo")
	assert.False(t, Undo("log", dir), "second undo still fails without corrupting")

	_, err := os.ReadFile(path)
	assert.NoError(t, err, "file must survive failed undo")
}

func TestUndoLogDoubleUndoToEmpty(t *testing.T) {
	dir := t.TempDir()
	path := journalPath(t, dir)
	require.NoError(t, os.WriteFile(path, []byte("{\"food\":\"lunch\"}\n"), 0o644))

	assert.True(t, Undo("log", dir))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, string(got))

	assert.False(t, Undo("log", dir))
}

func TestUndoLogMissingJournal(t *testing.T) {
	assert.False(t, Undo("log", t.TempDir()))
}

func TestUndoNoteRemovesLastSection(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.md")
	content := "# Notes\n\n## 2026-08-30 09:15\nfirst entry\n\n## 2026-08-31 10:00\nsecond entry\nmore text\n"
	require.NoError(t, os.WriteFile(notes, []byte(content), 0o644))

	assert.True(t, Undo("note", dir))

	got, err := os.ReadFile(notes)
	require.NoError(t, err)
	assert.Equal(t, "# Notes\n\n## 2026-08-30 09:15\nfirst entry\n", string(got))
}

func TestUndoListenSharesNoteSemantics(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notes,
		[]byte("intro\n\n## 2026-08-31 11:30\ntranscribed meeting\n"), 0o644))

	assert.True(t, Undo("listen", dir))

	got, err := os.ReadFile(notes)
	require.NoError(t, err)
	assert.NotContains(t, string(got), "transcribed meeting")
}

func TestUndoNoteWithoutSections(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"),
		[]byte("just some text without timestamped sections\n"), 0o644))

	assert.False(t, Undo("note", dir))
}

func TestUndoNoteMissingFile(t *testing.T) {
	assert.False(t, Undo("note", t.TempDir()))
}

func TestUndoUnknownCommand(t *testing.T) {
	assert.False(t, Undo("spend", t.TempDir()))
}
