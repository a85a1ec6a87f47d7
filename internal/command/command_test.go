package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrompt(t *testing.T, dir, name, text string) {
	t.Helper()
	pdir := filepath.Join(dir, "voice-commands")
	require.NoError(t, os.MkdirAll(pdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pdir, name+".md"), []byte(text), 0o644))
}

func TestLoadPromptAgentOverridesGlobal(t *testing.T) {
	global := t.TempDir()
	agent := t.TempDir()
	writePrompt(t, global, "log", "global prompt")
	writePrompt(t, agent, "log", "agent prompt")

	r := NewRunner(filepath.Join(global, "voice-commands"))

	prompt, ok := r.LoadPrompt("log", agent)
	require.True(t, ok)
	assert.Equal(t, "agent prompt", prompt)
}

func TestLoadPromptGlobalFallback(t *testing.T) {
	global := t.TempDir()
	writePrompt(t, global, "log", "global prompt")

	r := NewRunner(filepath.Join(global, "voice-commands"))

	prompt, ok := r.LoadPrompt("log", t.TempDir())
	require.True(t, ok)
	assert.Equal(t, "global prompt", prompt)

	_, ok = r.LoadPrompt("missing", t.TempDir())
	assert.False(t, ok)
}

func TestExecuteWithoutPromptFails(t *testing.T) {
	r := NewRunner(t.TempDir())
	r.Binary = "true"

	err := r.Execute(context.Background(), "log", "pizza", t.TempDir())
	assert.Error(t, err)
}

func TestExecuteRunsBinary(t *testing.T) {
	agent := t.TempDir()
	writePrompt(t, agent, "log", "journal prompt")

	r := NewRunner(t.TempDir())
	r.Binary = "true"
	assert.NoError(t, r.Execute(context.Background(), "log", "pizza", agent))

	r.Binary = "false"
	assert.Error(t, r.Execute(context.Background(), "log", "pizza", agent))
}
