package claude

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCLI writes an executable stand-in for the claude binary that emits
// the given stream-json lines and exits.
func fakeCLI(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+lines), 0o755))
	return path
}

func TestStreamEmitsEventsAndSavesRegister(t *testing.T) {
	bin := fakeCLI(t, `cat >/dev/null
echo '{"type":"assistant","session_id":"s-42","message":{"content":[{"type":"thinking","thinking":"hm"},{"type":"text","text":"hello"}]}}'
echo '{"type":"result","usage":{"input_tokens":10,"output_tokens":5}}'
`)
	convDir := t.TempDir()
	c := NewClient("")
	c.Binary = bin

	events, err := c.Stream(context.Background(), "hi", Options{CWD: t.TempDir(), ConversationsDir: convDir})
	require.NoError(t, err)

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 3)
	assert.Equal(t, EventThinking, got[0].Type)
	assert.Equal(t, "hm", got[0].Content)
	assert.Equal(t, EventText, got[1].Type)
	assert.Equal(t, "hello", got[1].Content)
	assert.Equal(t, EventDone, got[2].Type)
	assert.Equal(t, "s-42", got[2].ConversationID)

	assert.Equal(t, "s-42", ConversationID(convDir), "register written on clean exit")
}

func TestStreamReleasesProducerWhenConsumerStops(t *testing.T) {
	// Two pending events; the consumer takes one and cancels. The
	// producer must not stay parked on the second send.
	bin := fakeCLI(t, `cat >/dev/null
echo '{"type":"assistant","message":{"content":[{"type":"text","text":"one"}]}}'
echo '{"type":"assistant","message":{"content":[{"type":"text","text":"two"}]}}'
`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewClient("")
	c.Binary = bin
	events, err := c.Stream(ctx, "hi", Options{CWD: t.TempDir(), ConversationsDir: t.TempDir()})
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, "one", first.Content)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-events:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("stream goroutine still running after context cancel")
		}
	}
}
