package claude

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

const registerName = ".claude-session.json"

// contextWindow is the model context size the usage percentage is
// reported against.
const contextWindow = 200_000

type register struct {
	ConversationID string `json:"conversation_id"`
	Date           string `json:"date"`
	Usage          Usage  `json:"usage"`
}

func registerPath(conversationsDir string) string {
	return filepath.Join(conversationsDir, registerName)
}

func loadRegister(conversationsDir string) (register, bool) {
	data, err := os.ReadFile(registerPath(conversationsDir))
	if err != nil {
		return register{}, false
	}
	var reg register
	if err := json.Unmarshal(data, &reg); err != nil {
		slog.Warn("corrupt conversation register, starting fresh", "path", registerPath(conversationsDir))
		return register{}, false
	}
	return reg, true
}

// ConversationID returns today's conversation id, or "" when none exists
// or the register belongs to a previous day. Each day starts a fresh
// conversation.
func ConversationID(conversationsDir string) string {
	reg, ok := loadRegister(conversationsDir)
	if !ok {
		return ""
	}
	if reg.Date != time.Now().Format("2006-01-02") {
		return ""
	}
	return reg.ConversationID
}

func saveConversationID(conversationsDir, id string, usage Usage) error {
	if err := os.MkdirAll(conversationsDir, 0o755); err != nil {
		return err
	}
	reg := register{
		ConversationID: id,
		Date:           time.Now().Format("2006-01-02"),
		Usage:          usage,
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(registerPath(conversationsDir), bytes.NewReader(data))
}

// ClearConversation drops the register so the next call starts a new
// conversation. Missing file is fine.
func ClearConversation(conversationsDir string) {
	if err := os.Remove(registerPath(conversationsDir)); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to clear conversation register", "err", err)
	}
}

// ContextUsage renders the last recorded token usage as a short spoken
// sentence. Empty string when nothing has been recorded today.
func ContextUsage(conversationsDir string) string {
	reg, ok := loadRegister(conversationsDir)
	if !ok || reg.Date != time.Now().Format("2006-01-02") {
		return ""
	}
	total := reg.Usage.ContextTokens()
	if total == 0 {
		return ""
	}
	pct := float64(total) / contextWindow * 100
	return fmt.Sprintf("The conversation is using about %d thousand tokens, %.0f percent of the context window.", total/1000, pct)
}
