package conversation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func today() string { return time.Now().Format("2006-01-02") }

func TestAppendAndLastAgentResponse(t *testing.T) {
	log := NewLog(t.TempDir(), "")

	assert.Empty(t, log.LastAgentResponse(), "fresh log has nothing to repeat")

	require.NoError(t, log.Append("what did I eat", "Pizza for lunch.", "", "voice"))
	require.NoError(t, log.Append("and yesterday", "Salad and soup.", "checking the journal", "voice"))

	assert.Equal(t, "Salad and soup.", log.LastAgentResponse())
}

func TestAppendFormat(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir, "Kevin")

	require.NoError(t, log.Append("hello", "hi there", "a thought", "chat"))

	raw, err := os.ReadFile(filepath.Join(dir, today()+".md"))
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "[chat]")
	assert.Contains(t, content, "**Kevin:** hello")
	assert.Contains(t, content, "**Agent thinking:** a thought")
	assert.Contains(t, content, "**Agent:** hi there")
}

func TestMessagesRoundTrip(t *testing.T) {
	log := NewLog(t.TempDir(), "")

	require.NoError(t, log.Append("first question", "first answer", "", "voice"))
	require.NoError(t, log.Append("second question", "second answer", "thinking hard", "chat"))

	msgs := log.Messages(today())
	require.Len(t, msgs, 4)

	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "first question", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "first answer", msgs[1].Content)
	assert.Equal(t, "second answer", msgs[3].Content)
	assert.Equal(t, "thinking hard", msgs[3].Thinking)
	assert.NotEmpty(t, msgs[0].Timestamp)
}

func TestMessagesMissingDay(t *testing.T) {
	log := NewLog(t.TempDir(), "")
	assert.Nil(t, log.Messages("2020-01-01"))
}

func TestListAndPreview(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir, "")

	older := "\n## 10:00\n**You:** old question\n\n**Agent:** old answer\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-08-29.md"), []byte(older), 0o644))
	require.NoError(t, log.Append("newest question about dinner plans", "answer", "", "voice"))
	// Non-transcript files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".claude-session.json"), []byte("{}"), 0o644))

	list := log.List("diet")
	require.Len(t, list, 2)
	assert.Equal(t, today(), list[0].Date, "newest first")
	assert.Equal(t, "2026-08-29", list[1].Date)
	assert.Equal(t, "diet", list[0].Agent)
	assert.Equal(t, "newest question about dinner plans", list[0].Preview)
	assert.Equal(t, "old question", list[1].Preview)
}

func TestRecentMergesDays(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir, "")

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	entry := "\n## 09:30\n**You:** yesterday question\n\n**Agent:** yesterday answer\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, yesterday+".md"), []byte(entry), 0o644))
	require.NoError(t, log.Append("today question", "today answer", "", "voice"))

	msgs := log.Recent(3)
	require.Len(t, msgs, 4)
	assert.Equal(t, "yesterday question", msgs[0].Content, "oldest first")
	assert.Equal(t, "today answer", msgs[3].Content)
}
