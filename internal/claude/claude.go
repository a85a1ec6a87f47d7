// Package claude drives the Claude Code CLI: one-shot prompts, streamed
// responses, and the daily conversation continuity that backs both.
package claude

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Client invokes the Claude CLI. The zero value is not usable; construct
// with NewClient.
type Client struct {
	// Binary is the CLI name, "claude" unless overridden in tests.
	Binary string
	// VoiceModePrompt is appended to the system prompt on every call to
	// keep answers short enough to speak. Empty disables it.
	VoiceModePrompt string
	// Timeout bounds one Ask call.
	Timeout time.Duration
}

func NewClient(voiceModePrompt string) *Client {
	return &Client{
		Binary:          "claude",
		VoiceModePrompt: voiceModePrompt,
		Timeout:         90 * time.Second,
	}
}

// Options scope a call to an agent: the working directory decides which
// CLAUDE.md the CLI loads, the conversations directory holds the daily
// conversation register and markdown logs.
type Options struct {
	CWD              string
	ConversationsDir string
}

func (c *Client) args(conversationID, cwd string) []string {
	args := []string{"-p", "--output-format", "stream-json", "--verbose"}
	if c.VoiceModePrompt != "" {
		args = append(args, "--append-system-prompt", c.VoiceModePrompt)
	}
	if ctxDir := filepath.Join(cwd, "context"); dirExists(ctxDir) {
		args = append(args, "--add-dir", ctxDir)
	}
	if conversationID != "" {
		args = append(args, "--resume", conversationID)
	}
	return args
}

// Ask sends one prompt and returns (response, thinking). Today's
// conversation is resumed when a register entry exists; a failed resume
// (stale id) is retried once from scratch.
func (c *Client) Ask(ctx context.Context, prompt string, opts Options) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	conversationID := ConversationID(opts.ConversationsDir)

	out, err := c.run(ctx, prompt, conversationID, opts.CWD)
	if err != nil && conversationID != "" {
		slog.Warn("resume failed, retrying fresh", "conversation_id", conversationID, "err", err)
		ClearConversation(opts.ConversationsDir)
		out, err = c.run(ctx, prompt, "", opts.CWD)
	}
	if err != nil {
		return "", "", err
	}

	parsed := parseStream(out)
	if parsed.ConversationID != "" {
		if err := saveConversationID(opts.ConversationsDir, parsed.ConversationID, parsed.Usage); err != nil {
			slog.Warn("failed to save conversation id", "err", err)
		}
	}
	return parsed.Response, parsed.Thinking, nil
}

func (c *Client) run(ctx context.Context, prompt, conversationID, cwd string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Binary, c.args(conversationID, cwd)...)
	cmd.Dir = cwd
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("claude timed out after %s", c.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("claude failed: %s", msg)
	}
	return stdout.Bytes(), nil
}

// EventType identifies a streamed chunk.
type EventType string

const (
	EventThinking EventType = "thinking"
	EventText     EventType = "text"
	EventDone     EventType = "done"
)

// Event is one streamed chunk of a Claude response.
type Event struct {
	Type           EventType
	Content        string
	ConversationID string
}

// Stream runs the CLI and emits thinking/text events as they arrive,
// closing the channel after a final done event. Cancelling ctx kills the
// subprocess.
func (c *Client) Stream(ctx context.Context, prompt string, opts Options) (<-chan Event, error) {
	conversationID := ConversationID(opts.ConversationsDir)

	cmd := exec.CommandContext(ctx, c.Binary, c.args(conversationID, opts.CWD)...)
	cmd.Dir = opts.CWD
	cmd.Stdin = strings.NewReader(prompt)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start claude: %w", err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)

		// Sends race against the consumer walking away; a cancelled ctx
		// must release the goroutine, never leave it parked on the channel.
		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		currentID := conversationID
		var usage Usage

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			msg, ok := decodeLine([]byte(line))
			if !ok {
				continue
			}
			if msg.SessionID != "" {
				currentID = msg.SessionID
			}
			switch msg.Type {
			case "assistant":
				for _, block := range msg.Message.Content {
					switch block.Type {
					case "thinking":
						if t := strings.TrimSpace(block.Thinking); t != "" {
							if !send(Event{Type: EventThinking, Content: t, ConversationID: currentID}) {
								cmd.Wait()
								return
							}
						}
					case "text":
						if t := strings.TrimSpace(block.Text); t != "" {
							if !send(Event{Type: EventText, Content: t, ConversationID: currentID}) {
								cmd.Wait()
								return
							}
						}
					}
				}
			case "result":
				usage = msg.Usage
			}
		}

		if err := cmd.Wait(); err != nil {
			slog.Error("claude stream exited", "err", err)
			return
		}
		if currentID != "" {
			if err := saveConversationID(opts.ConversationsDir, currentID, usage); err != nil {
				slog.Warn("failed to save conversation id", "err", err)
			}
		}
		send(Event{Type: EventDone, ConversationID: currentID})
	}()

	return events, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
