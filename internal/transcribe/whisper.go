package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"voxgate/pkg/audioconv"
)

// maxAudioSamples caps a single utterance at two minutes of 16 kHz audio.
const maxAudioSamples = 2 * 60 * 16000

// Whisper runs a local whisper.cpp model. The model is loaded lazily on
// first use and can be dropped with Unload when the daemon goes idle.
type Whisper struct {
	modelPath     string
	initialPrompt string
	language      string

	mu    sync.Mutex
	model whisper.Model
}

// NewWhisper validates the model path without loading the model yet.
func NewWhisper(modelPath, hotwords string) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("WHISPER_MODEL_PATH not set")
	}
	return &Whisper{
		modelPath:     modelPath,
		initialPrompt: hotwords,
		language:      strings.ToLower(envOr("WHISPER_LANGUAGE", "en")),
	}, nil
}

func (w *Whisper) load() (whisper.Model, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model != nil {
		return w.model, nil
	}
	slog.Info("loading whisper model", "path", w.modelPath)
	m, err := whisper.New(w.modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}
	w.model = m
	return m, nil
}

// Unload drops the loaded model to reclaim memory. The next Transcribe
// reloads it.
func (w *Whisper) Unload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return
	}
	slog.Info("unloading whisper model")
	if err := w.model.Close(); err != nil {
		slog.Warn("close whisper model", "err", err)
	}
	w.model = nil
}

func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (string, error) {
	pcm, err := audioconv.DecodePCM16k(audio, audioconv.Options{MaxSamples: maxAudioSamples})
	if err != nil {
		return "", fmt.Errorf("decode audio: %w", err)
	}
	if len(pcm) == 0 {
		return "", nil
	}

	model, err := w.load()
	if err != nil {
		return "", err
	}
	wctx, err := model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper context: %w", err)
	}
	if err := wctx.SetLanguage(w.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	wctx.SetThreads(uint(runtime.NumCPU()))
	if w.initialPrompt != "" {
		wctx.SetInitialPrompt(w.initialPrompt)
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var parts []string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read segment: %w", err)
		}
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
