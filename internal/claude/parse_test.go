package claude

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = `{"type":"system","subtype":"init","session_id":"abc-123"}
{"type":"assistant","session_id":"abc-123","message":{"content":[{"type":"thinking","thinking":"Let me check the journal."}]}}
{"type":"assistant","session_id":"abc-123","message":{"content":[{"type":"text","text":"You had pizza for lunch."}]}}
{"type":"result","session_id":"abc-123","usage":{"input_tokens":1200,"output_tokens":45,"cache_read_input_tokens":30000,"cache_creation_input_tokens":500}}
`

func TestParseStream(t *testing.T) {
	parsed := parseStream([]byte(sampleStream))

	assert.Equal(t, "abc-123", parsed.ConversationID)
	assert.Equal(t, "You had pizza for lunch.", parsed.Response)
	assert.Equal(t, "Let me check the journal.", parsed.Thinking)
	assert.Equal(t, 1200, parsed.Usage.InputTokens)
	assert.Equal(t, 45, parsed.Usage.OutputTokens)
	assert.Equal(t, 1200+30000+500, parsed.Usage.ContextTokens())
}

func TestParseStreamJoinsMultipleBlocks(t *testing.T) {
	stream := `{"type":"assistant","message":{"content":[{"type":"text","text":"First part."}]}}
{"type":"assistant","message":{"content":[{"type":"text","text":"Second part."}]}}
`
	parsed := parseStream([]byte(stream))
	assert.Equal(t, "First part.\n\nSecond part.", parsed.Response)
}

func TestParseStreamSkipsNoise(t *testing.T) {
	stream := "not json at all\n\n" +
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Read"}]}}` + "\n" +
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Done."}]}}` + "\n"

	parsed := parseStream([]byte(stream))
	assert.Equal(t, "Done.", parsed.Response)
	assert.Empty(t, parsed.Thinking)
}

func TestParseStreamEmpty(t *testing.T) {
	parsed := parseStream(nil)
	assert.Empty(t, parsed.Response)
	assert.Empty(t, parsed.ConversationID)
}

func TestConversationRegisterRoundTrip(t *testing.T) {
	dir := t.TempDir()

	assert.Empty(t, ConversationID(dir), "no register yet")

	require.NoError(t, saveConversationID(dir, "abc-123", Usage{InputTokens: 100}))
	assert.Equal(t, "abc-123", ConversationID(dir))

	ClearConversation(dir)
	assert.Empty(t, ConversationID(dir))
	// Clearing twice is fine.
	ClearConversation(dir)
}

func TestContextUsage(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, ContextUsage(dir))

	require.NoError(t, saveConversationID(dir, "abc-123", Usage{
		InputTokens:          2000,
		CacheReadInputTokens: 98000,
	}))
	summary := ContextUsage(dir)
	assert.Contains(t, summary, "100 thousand tokens")
	assert.Contains(t, summary, "50 percent")
}
