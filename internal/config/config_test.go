package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
keywords:
  - diet agent
commands:
  log:
    agents: [diet]
    silent: true
    aliases: [add, ate]
  listen:
    silent: true
agents:
  diet:
    path: /srv/diet
    voice: nova
  video-games:
    path: /srv/games
`

func TestLoadMissingFileIsEmptyConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Agents)
	assert.Empty(t, cfg.Commands)
	assert.Empty(t, cfg.Keywords)
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Agents, 2)
	assert.Len(t, cfg.Commands, 2)
}

func TestParseCommands(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	log := cfg.CommandByName("log")
	require.NotNil(t, log)
	assert.Equal(t, []string{"diet"}, log.Agents)
	assert.True(t, log.Silent)
	assert.Equal(t, []string{"add", "ate"}, log.Aliases)

	listen := cfg.CommandByName("listen")
	require.NotNil(t, listen)
	assert.Empty(t, listen.Agents, "universal command")

	assert.Nil(t, cfg.CommandByName("missing"))
}

func TestParsePreservesDeclarationOrder(t *testing.T) {
	cfg, err := Parse([]byte(`
commands:
  zulu: {}
  alpha: {}
  mike: {}
`))
	require.NoError(t, err)

	var names []string
	for _, cmd := range cfg.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, names)
}

func TestAgentTriggerDerivation(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	diet := cfg.AgentByName("diet")
	require.NotNil(t, diet)
	assert.Equal(t, []string{"diet agent"}, diet.Triggers)
	assert.Equal(t, "/srv/diet", diet.Path)
	assert.Equal(t, "nova", diet.Voice)

	games := cfg.AgentByName("video-games")
	require.NotNil(t, games)
	assert.Equal(t, []string{"video-games agent", "video games agent"}, games.Triggers)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("commands: [not, a, mapping]"))
	assert.Error(t, err)
}

func TestHotwords(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	hw := cfg.Hotwords()
	for _, want := range []string{"diet", "agent", "log", "add", "ate", "listen", "video", "games"} {
		assert.Contains(t, hw, want)
	}

	// Deterministic regardless of load order.
	cfg2, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, hw, cfg2.Hotwords())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := Parse([]byte("agents:\n  diet:\n    path: ~/diet\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "diet"), cfg.AgentByName("diet").Path)
}
