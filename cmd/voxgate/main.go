package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voxgate/internal/claude"
	"voxgate/internal/command"
	"voxgate/internal/config"
	"voxgate/internal/gateway"
	"voxgate/internal/ipc"
	"voxgate/internal/memory"
	"voxgate/internal/session"
	"voxgate/internal/sound"
	"voxgate/internal/transcribe"
	"voxgate/internal/tts"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const voiceModePrompt = `The user is talking to you by voice, so keep responses short and
conversational. No markdown lists or headings unless asked to write a document.`

// phraseList splits a comma-separated env value into lowercase phrases.
func phraseList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configPath := cli.StringP("config", "c", "voxgate.yaml", "Agent/command config file")
	addr := cli.StringP("addr", "a", ":8090", "HTTP listen address")
	baseDir := cli.StringP("base", "b", ".", "Daemon base directory")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	base, err := filepath.Abs(*baseDir)
	if err != nil {
		log.Error("Failed to resolve base dir", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("Failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}
	log.Info("Loaded config", "agents", len(cfg.Agents), "commands", len(cfg.Commands), "keywords", len(cfg.Keywords))

	store := session.NewFileStore(filepath.Join(base, ".voxgate-session.json"))

	transcriber, err := transcribe.New(cfg.Hotwords())
	if err != nil {
		log.Error("Failed to init transcription", "err", err)
		os.Exit(1)
	}
	log.Debug("Loaded transcription")

	format := tts.OutputFormat()
	synth, err := tts.New(format)
	if err != nil {
		log.Error("Failed to init tts", "err", err)
		os.Exit(1)
	}
	log.Debug("Loaded tts", "format", format)

	server := gateway.NewServer(cfg, gateway.Options{
		ConfigPath:     *configPath,
		BaseDir:        base,
		Store:          store,
		Transcriber:    transcriber,
		Synth:          synth,
		Sounds:         sound.NewBank(filepath.Join(base, "sounds"), format),
		Claude:         claude.NewClient(voiceModePrompt),
		Memory:         memory.NewFromEnv(),
		Commands:       command.NewRunner(filepath.Join(base, "voice-commands")),
		Format:         format,
		UserName:       os.Getenv("VOXGATE_USER_NAME"),
		ResetPhrases:   phraseList(os.Getenv("VOXGATE_RESET_PHRASES")),
		ContextPhrases: phraseList(os.Getenv("VOXGATE_CONTEXT_PHRASES")),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ipc.Serve(ctx, controlHandler(server, store, cfg)); err != nil {
		log.Error("Failed to start control socket", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful")
	if err := server.Run(ctx, *addr); err != nil {
		log.Error("Gateway failed", "err", err)
		os.Exit(1)
	}
}
