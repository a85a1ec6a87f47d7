package gateway

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"voxgate/internal/claude"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Local daemon; the phone client connects from whatever origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsRequest struct {
	Message string `json:"message"`
}

type wsEvent struct {
	Type           string `json:"type"`
	Content        string `json:"content,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// handleWS streams Claude chat over a websocket: the client sends
// {"message": ...}, the server answers with thinking/text events and a
// final done. The connection stays open for follow-up messages.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	slog.Info("ws client connected", "remote", conn.RemoteAddr())

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws read", "err", err)
			}
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			continue
		}
		if err := s.streamChat(r, conn, req.Message); err != nil {
			_ = conn.WriteJSON(wsEvent{Type: "error", Error: err.Error()})
		}
	}
}

func (s *Server) streamChat(r *http.Request, conn *websocket.Conn, message string) error {
	cwd, _, convDir := s.agentContext(s.store.CurrentAgent())

	events, err := s.claude.Stream(r.Context(), message, claude.Options{
		CWD:              cwd,
		ConversationsDir: convDir,
	})
	if err != nil {
		return err
	}

	var texts, thoughts []string
	for ev := range events {
		switch ev.Type {
		case claude.EventThinking:
			thoughts = append(thoughts, ev.Content)
		case claude.EventText:
			texts = append(texts, ev.Content)
		case claude.EventDone:
			log := s.transcriptLog(convDir)
			if err := log.Append(message, strings.Join(texts, "\n"), strings.Join(thoughts, "\n"), "chat"); err != nil {
				slog.Warn("transcript append failed", "err", err)
			}
		}
		if err := conn.WriteJSON(wsEvent{
			Type:           string(ev.Type),
			Content:        ev.Content,
			ConversationID: ev.ConversationID,
		}); err != nil {
			return err
		}
	}
	return nil
}
