package gateway

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"voxgate/internal/claude"
	"voxgate/internal/command"
	"voxgate/internal/conversation"
	"voxgate/internal/nlu"
	"voxgate/internal/research"
	"voxgate/internal/session"
	"voxgate/internal/sound"
)

// minAudioBytes rejects uploads too small to hold any speech.
const minAudioBytes = 100

var markdownNoise = regexp.MustCompile("[*_`]+")

// handleVoice is the full round trip: audio in, spoken answer out. Every
// failure path answers with an audio cue rather than a bare status so the
// phone client always has something to play.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	s.markMLUsed()

	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 25<<20))
	if err != nil {
		s.errorAudio(w, r, sound.ErrGeneral, http.StatusBadRequest, "read body")
		return
	}
	slog.Info("voice request", "bytes", len(audio))
	if len(audio) < minAudioBytes {
		s.errorAudio(w, r, sound.ErrEmptyTranscription, http.StatusBadRequest, "audio too short")
		return
	}

	userText, err := s.transcriber.Transcribe(r.Context(), audio)
	if err != nil {
		slog.Error("transcription failed", "err", err)
		s.errorAudio(w, r, sound.ErrGeneral, http.StatusInternalServerError, "transcribe")
		return
	}
	userText = strings.TrimSpace(userText)
	slog.Info("transcription", "text", userText)
	if userText == "" {
		s.errorAudio(w, r, sound.ErrEmptyTranscription, http.StatusBadRequest, "empty transcription")
		return
	}

	cfg := s.config()
	currentAgent := s.store.CurrentAgent()
	extraction := nlu.Extract(userText, cfg, nlu.DefaultWindow)

	if extraction.HasAgentKeyword {
		if !equalAgent(extraction.AgentName, currentAgent) {
			if err := s.store.SetCurrentAgent(extraction.AgentName); err != nil {
				slog.Warn("persist agent switch", "err", err)
			}
			currentAgent = extraction.AgentName
			slog.Info("switched agent", "agent", agentLabel(currentAgent))
		}

		cwd, voice, convDir := s.agentContext(currentAgent)
		log := s.transcriptLog(convDir)

		if extraction.Command != "" {
			cmdCfg := nlu.ResolveCommand(extraction.Command, currentAgent, cfg)
			if cmdCfg == nil {
				slog.Warn("command not available", "command", extraction.Command, "agent", agentLabel(currentAgent))
				s.errorAudio(w, r, sound.ErrEmptyTranscription, http.StatusBadRequest, "command unavailable")
				return
			}

			switch extraction.Command {
			case "undo":
				s.handleUndo(w, r, userText, cwd, log)
				return
			case "repeat":
				s.handleRepeat(w, r, userText, voice, log)
				return
			case "research":
				s.handleResearch(w, r, userText, extraction.Message, cwd, voice, log)
				return
			default:
				done := s.handleAgentCommand(w, r, userText, extraction.Command, extraction.Message, cwd, cmdCfg.Silent, currentAgent, log)
				if done {
					return
				}
				// Non-silent commands fall through to Claude with the
				// residual message as the prompt.
				userText = extraction.Message
			}
		} else {
			// Pure switch: talk to the new agent with what is left.
			if extraction.Message != "" {
				userText = extraction.Message
			}
		}
	}

	cwd, voice, convDir := s.agentContext(currentAgent)
	log := s.transcriptLog(convDir)

	var assistantText, thinkingText string
	switch {
	case matchesPhrase(userText, s.resetPhrases):
		slog.Info("resetting conversation")
		claude.ClearConversation(convDir)
		assistantText = "Starting a new conversation."
	case matchesPhrase(userText, s.contextPhrases):
		assistantText = claude.ContextUsage(convDir)
		if assistantText == "" {
			assistantText = "There is no conversation yet today."
		}
	case strings.TrimSpace(userText) == "":
		assistantText = "I'm here. What would you like to discuss?"
	default:
		prompt := userText
		if recall := s.memory.Recall(r.Context(), userText, agentLabel(currentAgent)); recall != "" {
			prompt = recall + "\n" + userText
		}
		start := time.Now()
		assistantText, thinkingText, err = s.claude.Ask(r.Context(), prompt, claude.Options{
			CWD:              cwd,
			ConversationsDir: convDir,
		})
		if err != nil {
			slog.Error("claude failed", "err", err)
			s.errorAudio(w, r, sound.ErrGeneral, http.StatusInternalServerError, "claude")
			return
		}
		slog.Info("claude responded", "elapsed", time.Since(start).Round(100*time.Millisecond), "chars", len(assistantText))
		if err := s.memory.SaveExchange(r.Context(), agentLabel(currentAgent), userText, assistantText); err != nil {
			slog.Warn("memory save failed", "err", err)
		}
	}

	speech, err := s.synth.Synthesize(r.Context(), markdownNoise.ReplaceAllString(assistantText, ""), voice)
	if err != nil {
		slog.Error("tts failed", "err", err)
		s.errorAudio(w, r, sound.ErrTTSFailed, http.StatusInternalServerError, "tts")
		return
	}
	speech = s.sounds.PrependNotification(r.Context(), speech)

	if err := log.Append(userText, assistantText, thinkingText, "voice"); err != nil {
		slog.Warn("transcript append failed", "err", err)
	}
	s.writeAudio(w, speech)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request, userText, cwd string, log *conversation.Log) {
	if last := s.store.LastCommand(); last != nil {
		path := last.AgentPath
		if path == "" {
			path = cwd
		}
		command.Undo(last.Command, path)
		if err := s.store.ClearLastCommand(); err != nil {
			slog.Warn("clear last command", "err", err)
		}
	}
	if err := log.Append(userText, "[undo]", "", ""); err != nil {
		slog.Warn("transcript append failed", "err", err)
	}
	s.writeAudio(w, s.sounds.Chime(r.Context()))
}

func (s *Server) handleRepeat(w http.ResponseWriter, r *http.Request, userText, voice string, log *conversation.Log) {
	last := log.LastAgentResponse()
	if last == "" {
		s.errorAudio(w, r, sound.ErrEmptyTranscription, http.StatusNotFound, "nothing to repeat")
		return
	}
	speech, err := s.synth.Synthesize(r.Context(), markdownNoise.ReplaceAllString(last, ""), voice)
	if err != nil {
		slog.Error("tts failed", "err", err)
		s.errorAudio(w, r, sound.ErrTTSFailed, http.StatusInternalServerError, "tts")
		return
	}
	if err := log.Append(userText, "[repeated]", "", ""); err != nil {
		slog.Warn("transcript append failed", "err", err)
	}
	s.writeAudio(w, s.sounds.PrependNotification(r.Context(), speech))
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request, userText, topic, cwd, voice string, log *conversation.Log) {
	if strings.TrimSpace(topic) == "" {
		s.errorAudio(w, r, sound.ErrEmptyTranscription, http.StatusBadRequest, "empty research topic")
		return
	}
	outFile, err := research.Spawn(cwd, topic)
	if err != nil {
		slog.Error("research spawn failed", "err", err)
		s.errorAudio(w, r, sound.ErrGeneral, http.StatusInternalServerError, "research")
		return
	}
	assistantText := fmt.Sprintf("Started research on %s. Results will be saved to %s", topic, filepath.Base(outFile))

	speech, err := s.synth.Synthesize(r.Context(), assistantText, voice)
	if err != nil {
		slog.Error("tts failed", "err", err)
		s.errorAudio(w, r, sound.ErrTTSFailed, http.StatusInternalServerError, "tts")
		return
	}
	if err := log.Append(userText, assistantText, "", ""); err != nil {
		slog.Warn("transcript append failed", "err", err)
	}
	s.writeAudio(w, s.sounds.PrependNotification(r.Context(), speech))
}

// handleAgentCommand runs a configured command. Returns true when the
// response was written; false means the caller should continue to Claude.
func (s *Server) handleAgentCommand(w http.ResponseWriter, r *http.Request, userText, name, message string, cwd string, silent bool, agent *string, log *conversation.Log) bool {
	if strings.TrimSpace(message) == "" {
		slog.Warn("command with no message", "command", name)
		s.errorAudio(w, r, sound.ErrEmptyTranscription, http.StatusBadRequest, "empty command message")
		return true
	}

	err := s.commands.Execute(r.Context(), name, message, cwd)
	if err != nil {
		slog.Warn("command failed, deferring to claude", "command", name, "err", err)
		return false
	}
	if !silent {
		return false
	}

	if err := s.store.SaveLastCommand(session.LastCommand{
		Agent:     agent,
		Command:   name,
		Message:   message,
		AgentPath: cwd,
	}); err != nil {
		slog.Warn("save last command", "err", err)
	}
	if err := log.Append(userText, "["+name+"]", "", ""); err != nil {
		slog.Warn("transcript append failed", "err", err)
	}
	s.writeAudio(w, s.sounds.Chime(r.Context()))
	return true
}

func (s *Server) writeAudio(w http.ResponseWriter, audio []byte) {
	w.Header().Set("Content-Type", s.format.MediaType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		slog.Warn("write response", "err", err)
	}
}

// errorAudio answers with the cue for the failure class, or a plain
// status when the asset is unavailable.
func (s *Server) errorAudio(w http.ResponseWriter, r *http.Request, kind sound.ErrorKind, status int, reason string) {
	if cue := s.sounds.Error(r.Context(), kind); cue != nil {
		s.writeAudio(w, cue)
		return
	}
	http.Error(w, reason, status)
}

func matchesPhrase(text string, phrases []string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func equalAgent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func agentLabel(a *string) string {
	if a == nil {
		return "default"
	}
	return *a
}
