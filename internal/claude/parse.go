package claude

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
)

// streamMessage mirrors the CLI's stream-json line shape. Only the fields
// we consume are declared; everything else is ignored on decode.
type streamMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Message   struct {
		Content []contentBlock `json:"content"`
	} `json:"message"`
	Usage Usage `json:"usage"`
}

type contentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Thinking string `json:"thinking"`
}

// Usage is the token accounting reported on the final result line.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// ContextTokens is the total prompt-side footprint, cache included.
func (u Usage) ContextTokens() int {
	return u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
}

type parsedStream struct {
	Response       string
	Thinking       string
	ConversationID string
	Usage          Usage
}

func decodeLine(line []byte) (streamMessage, bool) {
	var msg streamMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return streamMessage{}, false
	}
	return msg, true
}

// parseStream collects text and thinking blocks across all assistant
// messages of a stream-json transcript. Malformed lines are skipped; the
// CLI interleaves tool-use noise we do not care about.
func parseStream(out []byte) parsedStream {
	var parsed parsedStream
	var texts, thoughts []string

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg, ok := decodeLine(line)
		if !ok {
			continue
		}
		if msg.SessionID != "" {
			parsed.ConversationID = msg.SessionID
		}
		switch msg.Type {
		case "assistant":
			for _, block := range msg.Message.Content {
				switch block.Type {
				case "text":
					if t := strings.TrimSpace(block.Text); t != "" {
						texts = append(texts, t)
					}
				case "thinking":
					if t := strings.TrimSpace(block.Thinking); t != "" {
						thoughts = append(thoughts, t)
					}
				}
			}
		case "result":
			parsed.Usage = msg.Usage
		}
	}

	parsed.Response = strings.Join(texts, "\n\n")
	parsed.Thinking = strings.Join(thoughts, "\n\n")
	return parsed
}
