package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"voxgate/internal/conversation"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTranscribe is a debug endpoint: audio in, text out.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	s.markMLUsed()
	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 25<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	text, err := s.transcriber.Transcribe(r.Context(), audio)
	if err != nil {
		slog.Error("transcription failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// handleTTS is a debug endpoint: text in, speech out.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	s.markMLUsed()
	var req struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "expected json body with text", http.StatusBadRequest)
		return
	}
	speech, err := s.synth.Synthesize(r.Context(), req.Text, req.Voice)
	if err != nil {
		slog.Error("tts failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeAudio(w, speech)
}

type agentStatus struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	current := s.store.CurrentAgent()
	cfg := s.config()

	var out []agentStatus
	for _, agent := range cfg.Agents {
		out = append(out, agentStatus{
			Name:   agent.Name,
			Active: current != nil && *current == agent.Name,
		})
	}
	out = append(out, agentStatus{Name: "default", Active: current == nil})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAgentSwitch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Agent string `json:"agent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Agent == "" {
		http.Error(w, "expected json body with agent", http.StatusBadRequest)
		return
	}

	cfg := s.config()
	if req.Agent != "default" && cfg.AgentByName(req.Agent) == nil {
		http.Error(w, "agent '"+req.Agent+"' not found", http.StatusBadRequest)
		return
	}

	var target *string
	if req.Agent != "default" {
		target = &req.Agent
	}
	if err := s.store.SetCurrentAgent(target); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Switched to agent '" + req.Agent + "'"})
}

func (s *Server) handleReloadConfig(w http.ResponseWriter, _ *http.Request) {
	cfg, err := s.Reload()
	if err != nil {
		slog.Error("config reload failed", "err", err)
		http.Error(w, "failed to reload config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("config reloaded", "agents", len(cfg.Agents), "commands", len(cfg.Commands))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"agents":   len(cfg.Agents),
		"commands": len(cfg.Commands),
	})
}

func (s *Server) handleConversations(w http.ResponseWriter, _ *http.Request) {
	_, _, convDir := s.agentContext(s.store.CurrentAgent())
	log := s.transcriptLog(convDir)
	list := log.List(agentLabel(s.store.CurrentAgent()))
	if list == nil {
		list = []conversation.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRecentMessages(w http.ResponseWriter, r *http.Request) {
	days := 3
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	_, _, convDir := s.agentContext(s.store.CurrentAgent())
	msgs := s.transcriptLog(convDir).Recent(days)
	if msgs == nil {
		msgs = []conversation.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !datePattern.MatchString(id) {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	_, _, convDir := s.agentContext(s.store.CurrentAgent())
	msgs := s.transcriptLog(convDir).Messages(id)
	if msgs == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "messages": msgs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "err", err)
	}
}
