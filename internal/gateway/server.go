// Package gateway is the HTTP surface of the daemon: the /voice round
// trip, debug endpoints, the agent and conversation APIs, and the
// websocket chat stream.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"voxgate/internal/claude"
	"voxgate/internal/command"
	"voxgate/internal/config"
	"voxgate/internal/conversation"
	"voxgate/internal/memory"
	"voxgate/internal/session"
	"voxgate/internal/sound"
	"voxgate/internal/transcribe"
	"voxgate/internal/tts"
)

// mlIdleTimeout is how long the heavyweight models stay loaded without a
// request before being dropped.
const mlIdleTimeout = 30 * time.Minute

// Server wires the pipeline together behind a ServeMux.
type Server struct {
	configPath string
	baseDir    string

	mu  sync.RWMutex
	cfg *config.Config

	store       session.Store
	transcriber transcribe.Transcriber
	synth       tts.Synthesizer
	sounds      *sound.Bank
	claude      *claude.Client
	memory      *memory.Client
	commands    *command.Runner

	format   tts.Format
	userName string

	resetPhrases   []string
	contextPhrases []string

	lastML struct {
		sync.Mutex
		at     time.Time
		loaded bool
	}
}

// Options collect the constructor inputs main resolves from flags/env.
type Options struct {
	ConfigPath string
	// BaseDir is the daemon's own directory: default agent cwd,
	// conversations root, sound assets.
	BaseDir string

	Store       session.Store
	Transcriber transcribe.Transcriber
	Synth       tts.Synthesizer
	Sounds      *sound.Bank
	Claude      *claude.Client
	Memory      *memory.Client
	Commands    *command.Runner
	Format      tts.Format
	// UserName labels the user's transcript lines.
	UserName string

	// ResetPhrases and ContextPhrases are spoken triggers for starting a
	// fresh conversation and for reporting context-window usage. Empty
	// lists disable the shortcuts.
	ResetPhrases   []string
	ContextPhrases []string
}

func NewServer(cfg *config.Config, opts Options) *Server {
	return &Server{
		configPath:     opts.ConfigPath,
		baseDir:        opts.BaseDir,
		cfg:            cfg,
		store:          opts.Store,
		transcriber:    opts.Transcriber,
		synth:          opts.Synth,
		sounds:         opts.Sounds,
		claude:         opts.Claude,
		memory:         opts.Memory,
		commands:       opts.Commands,
		format:         opts.Format,
		userName:       opts.UserName,
		resetPhrases:   opts.ResetPhrases,
		contextPhrases: opts.ContextPhrases,
	}
}

// Reload re-reads the config file and swaps it in.
func (s *Server) Reload() (*config.Config, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return cfg, nil
}

func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /voice", s.handleVoice)
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /tts", s.handleTTS)
	mux.HandleFunc("GET /api/agents", s.handleAgents)
	mux.HandleFunc("POST /api/agents/switch", s.handleAgentSwitch)
	mux.HandleFunc("POST /reload-config", s.handleReloadConfig)
	mux.HandleFunc("GET /api/conversations", s.handleConversations)
	mux.HandleFunc("GET /api/conversations/recent", s.handleRecentMessages)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleConversation)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully and
// unloads the models.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleCtx, stopIdle := context.WithCancel(ctx)
	defer stopIdle()
	go s.idleLoop(idleCtx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown", "err", err)
		}
		s.transcriber.Unload()
		slog.Info("gateway stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

// markMLUsed stamps model activity for the idle unloader.
func (s *Server) markMLUsed() {
	s.lastML.Lock()
	s.lastML.at = time.Now()
	s.lastML.loaded = true
	s.lastML.Unlock()
}

func (s *Server) idleLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.lastML.Lock()
			idle := s.lastML.loaded && !s.lastML.at.IsZero() && time.Since(s.lastML.at) >= mlIdleTimeout
			if idle {
				s.lastML.loaded = false
			}
			s.lastML.Unlock()
			if idle {
				slog.Info("models idle, unloading")
				s.transcriber.Unload()
			}
		}
	}
}

// agentContext resolves the active agent to its working directory, voice
// and conversations directory. Nil agent means the daemon's own base dir.
func (s *Server) agentContext(agentName *string) (cwd, voice, conversationsDir string) {
	cfg := s.config()
	cwd = s.baseDir
	logName := "voice-agent"
	if agentName != nil {
		if agent := cfg.AgentByName(*agentName); agent != nil {
			cwd = agent.Path
			voice = agent.Voice
			logName = agent.Name
		}
	}
	conversationsDir = filepath.Join(s.baseDir, "conversations", logName)
	if err := os.MkdirAll(conversationsDir, 0o755); err != nil {
		slog.Warn("create conversations dir", "err", err)
	}
	return cwd, voice, conversationsDir
}

func (s *Server) transcriptLog(conversationsDir string) *conversation.Log {
	return conversation.NewLog(conversationsDir, s.userName)
}
