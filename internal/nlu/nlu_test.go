package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxgate/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
keywords:
  - diet agent
  - budget agent
commands:
  log:
    agents: [diet]
    silent: true
    aliases: [add]
  listen:
    silent: true
  spend:
    agents: [budget]
agents:
  diet:
    path: /home/user/diet
    voice: nova
  budget:
    path: /home/user/budget
  video-games:
    path: /home/user/games
`))
	require.NoError(t, err)
	return cfg
}

func TestExtractNoTriggerWordPassesThrough(t *testing.T) {
	cfg := testConfig(t)

	for _, text := range []string{
		"What Time Is It",
		"log pizza for lunch",
		"tell me about the diet plan",
		"",
	} {
		res := Extract(text, cfg, DefaultWindow)
		assert.False(t, res.HasAgentKeyword, "text %q", text)
		assert.Nil(t, res.AgentName)
		assert.Empty(t, res.Command)
		assert.Equal(t, text, res.Message, "message must stay verbatim, casing included")
	}
}

func TestExtractOrderIndependence(t *testing.T) {
	cfg := testConfig(t)

	a := Extract("diet agent log pizza", cfg, DefaultWindow)
	b := Extract("agent diet log pizza", cfg, DefaultWindow)

	require.NotNil(t, a.AgentName)
	require.NotNil(t, b.AgentName)
	assert.Equal(t, *a.AgentName, *b.AgentName)
	assert.Equal(t, a.Command, b.Command)
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, "log", a.Command)
	assert.Equal(t, "pizza", a.Message)
}

func TestExtractAliasCanonicalization(t *testing.T) {
	cfg := testConfig(t)

	res := Extract("diet agent add pizza", cfg, DefaultWindow)
	require.NotNil(t, res.AgentName)
	assert.Equal(t, "diet", *res.AgentName)
	assert.Equal(t, "log", res.Command)
	assert.Equal(t, "pizza", res.Message)
}

func TestExtractUniversalCommandDefaultAgent(t *testing.T) {
	cfg := testConfig(t)

	res := Extract("agent listen the meeting started", cfg, DefaultWindow)
	assert.True(t, res.HasAgentKeyword)
	assert.Nil(t, res.AgentName, "no agent named means default agent")
	assert.Equal(t, "listen", res.Command)
	assert.Equal(t, "the meeting started", res.Message)
}

func TestExtractAllowListedCommandNeedsItsAgent(t *testing.T) {
	cfg := testConfig(t)

	// log is allow-listed to diet only; with no agent in the window it
	// must not resolve as a command, though it is still stripped from the
	// residual as routing vocabulary.
	res := Extract("agent log pizza", cfg, DefaultWindow)
	assert.True(t, res.HasAgentKeyword)
	assert.Nil(t, res.AgentName)
	assert.Empty(t, res.Command)
	assert.Equal(t, "pizza", res.Message)
}

func TestExtractMultiWordAgent(t *testing.T) {
	cfg := testConfig(t)

	hyphen := Extract("video-games agent what came out", cfg, DefaultWindow)
	require.NotNil(t, hyphen.AgentName)
	assert.Equal(t, "video-games", *hyphen.AgentName)
	assert.Equal(t, "what came out", hyphen.Message)

	spoken := Extract("video games agent what came out", cfg, DefaultWindow)
	require.NotNil(t, spoken.AgentName)
	assert.Equal(t, "video-games", *spoken.AgentName)
	assert.Equal(t, "what came out", spoken.Message)
}

func TestExtractWindowBoundary(t *testing.T) {
	cfg := testConfig(t)

	// "log" is word six; the scan stops at five, so it stays payload.
	res := Extract("diet agent please would you log pizza", cfg, DefaultWindow)
	require.NotNil(t, res.AgentName)
	assert.Equal(t, "diet", *res.AgentName)
	assert.Empty(t, res.Command)
	assert.Equal(t, "please would you log pizza", res.Message)
}

func TestExtractDeclarationOrderWins(t *testing.T) {
	cfg, err := config.Parse([]byte(`
commands:
  first: {silent: true}
  second: {silent: true, aliases: [first]}
`))
	require.NoError(t, err)

	res := Extract("agent first do it", cfg, DefaultWindow)
	assert.Equal(t, "first", res.Command)
}

func TestExtractCaseInsensitive(t *testing.T) {
	cfg := testConfig(t)

	res := Extract("Diet Agent LOG pizza", cfg, DefaultWindow)
	require.NotNil(t, res.AgentName)
	assert.Equal(t, "diet", *res.AgentName)
	assert.Equal(t, "log", res.Command)
	assert.Equal(t, "pizza", res.Message)
}

func TestExtractTriggerOnlyKeepsFullText(t *testing.T) {
	cfg := testConfig(t)

	res := Extract("agent", cfg, DefaultWindow)
	assert.True(t, res.HasAgentKeyword)
	assert.Nil(t, res.AgentName)
	assert.Empty(t, res.Command)
	assert.Empty(t, res.Message)
}

func TestResolveCommand(t *testing.T) {
	cfg := testConfig(t)
	diet := "diet"
	budget := "budget"

	t.Run("allow-listed against wrong agent", func(t *testing.T) {
		assert.Nil(t, ResolveCommand("log", &budget, cfg))
	})
	t.Run("allow-listed against its agent", func(t *testing.T) {
		cmd := ResolveCommand("log", &diet, cfg)
		require.NotNil(t, cmd)
		assert.Equal(t, "log", cmd.Name)
	})
	t.Run("allow-listed against default agent", func(t *testing.T) {
		assert.Nil(t, ResolveCommand("log", nil, cfg))
	})
	t.Run("universal against any agent", func(t *testing.T) {
		assert.NotNil(t, ResolveCommand("listen", &budget, cfg))
		assert.NotNil(t, ResolveCommand("listen", nil, cfg))
	})
	t.Run("unknown command", func(t *testing.T) {
		assert.Nil(t, ResolveCommand("missing", &diet, cfg))
	})
}
