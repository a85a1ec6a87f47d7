// Package transcribe turns recorded speech into text. Two backends are
// provided: a local whisper.cpp model and the OpenAI transcription API,
// selected by TRANSCRIBE_PROVIDER with fallback from local to api when
// the model cannot be loaded.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Transcriber converts an audio blob into text. Implementations receive
// the raw upload bytes and decode whatever container they support.
type Transcriber interface {
	// Transcribe returns the recognized text, trimmed. Empty text with a
	// nil error means silence.
	Transcribe(ctx context.Context, audio []byte) (string, error)
	// Unload releases heavyweight resources (models). Idempotent.
	Unload()
}

// New picks a backend from TRANSCRIBE_PROVIDER ("local", "api"). Hotwords
// bias recognition toward agent and command vocabulary.
func New(hotwords string) (Transcriber, error) {
	provider := os.Getenv("TRANSCRIBE_PROVIDER")
	switch provider {
	case "", "local":
		local, err := NewWhisper(os.Getenv("WHISPER_MODEL_PATH"), hotwords)
		if err == nil {
			return local, nil
		}
		if provider == "local" {
			return nil, fmt.Errorf("local transcription unavailable: %w", err)
		}
		slog.Warn("local whisper unavailable, falling back to api", "err", err)
		fallthrough
	case "api":
		return NewAPI(hotwords)
	default:
		return nil, fmt.Errorf("unknown TRANSCRIBE_PROVIDER %q", provider)
	}
}
