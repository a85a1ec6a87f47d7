// Package tts renders response text to speech. The OpenAI speech API is
// the primary backend, with a local espeak-ng subprocess as the offline
// fallback. Output format is negotiated once at startup from
// AUDIO_OUTPUT_FORMAT.
package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Synthesizer turns text into an audio blob in the configured output
// format. The voice names an agent's preferred voice; empty picks the
// backend default.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	// MediaType is the MIME type of blobs this synthesizer produces.
	MediaType() string
}

// Format is the negotiated output container.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatOpus Format = "opus"
)

// OutputFormat reads AUDIO_OUTPUT_FORMAT, defaulting to mp3.
func OutputFormat() Format {
	switch os.Getenv("AUDIO_OUTPUT_FORMAT") {
	case "wav":
		return FormatWAV
	case "opus":
		return FormatOpus
	case "", "mp3":
		return FormatMP3
	default:
		slog.Warn("unknown AUDIO_OUTPUT_FORMAT, using mp3", "value", os.Getenv("AUDIO_OUTPUT_FORMAT"))
		return FormatMP3
	}
}

func (f Format) MediaType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatOpus:
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}

// New builds the backend chain from TTS_PROVIDER ("api", "local"). The
// default prefers the API and falls back to local when no key is set.
func New(format Format) (Synthesizer, error) {
	provider := os.Getenv("TTS_PROVIDER")
	switch provider {
	case "", "api":
		api, err := NewAPI(format)
		if err == nil {
			return api, nil
		}
		if provider == "api" {
			return nil, fmt.Errorf("api tts unavailable: %w", err)
		}
		slog.Warn("api tts unavailable, falling back to local", "err", err)
		fallthrough
	case "local":
		return NewLocal(format), nil
	default:
		return nil, fmt.Errorf("unknown TTS_PROVIDER %q", provider)
	}
}
