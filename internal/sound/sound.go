// Package sound serves the non-speech audio the gateway sends back:
// error cues, the silent-command chime, and the notification ding glued
// in front of a spoken response. Source assets are WAV files in the
// sounds directory; they are converted to the negotiated output format
// with ffmpeg and cached per format on first use.
package sound

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"voxgate/internal/tts"
)

// ErrorKind names the failure classes that get a distinct audio cue.
type ErrorKind string

const (
	ErrEmptyTranscription ErrorKind = "empty_transcription"
	ErrTTSFailed          ErrorKind = "tts_failed"
	ErrGeneral            ErrorKind = "general_error"
	ErrFatal              ErrorKind = "fatal_error"
)

var errorAssets = map[ErrorKind]string{
	ErrEmptyTranscription: "nothing-heard.wav",
	ErrTTSFailed:          "voice-lost.wav",
	ErrGeneral:            "error.wav",
	ErrFatal:              "fatal.wav",
}

const chimeAsset = "chime.wav"
const notifyAsset = "ding.wav"

// Bank loads, converts and caches the sound assets.
type Bank struct {
	dir    string
	format tts.Format
	volume string

	mu    sync.Mutex
	cache map[string][]byte
}

// NewBank points at a directory of WAV assets. Missing assets degrade to
// empty responses at call time, never errors at construction.
func NewBank(dir string, format tts.Format) *Bank {
	return &Bank{
		dir:    dir,
		format: format,
		volume: "0.5",
		cache:  make(map[string][]byte),
	}
}

func (b *Bank) MediaType() string { return b.format.MediaType() }

// Error returns the cue for a failure class, or nil when the asset is
// missing or conversion fails. Callers fall back to an empty body.
func (b *Bank) Error(ctx context.Context, kind ErrorKind) []byte {
	asset, ok := errorAssets[kind]
	if !ok {
		asset = errorAssets[ErrGeneral]
	}
	return b.get(ctx, asset)
}

// Chime is the acknowledgment played for silent commands.
func (b *Bank) Chime(ctx context.Context) []byte {
	return b.get(ctx, chimeAsset)
}

func (b *Bank) get(ctx context.Context, asset string) []byte {
	key := asset + ":" + string(b.format)

	b.mu.Lock()
	cached, ok := b.cache[key]
	b.mu.Unlock()
	if ok {
		return cached
	}

	path := filepath.Join(b.dir, asset)
	if _, err := os.Stat(path); err != nil {
		slog.Warn("sound asset missing", "path", path)
		return nil
	}
	out, err := b.convert(ctx, path)
	if err != nil {
		slog.Warn("sound conversion failed", "asset", asset, "err", err)
		return nil
	}

	b.mu.Lock()
	b.cache[key] = out
	b.mu.Unlock()
	return out
}

// convert renders one asset to the output format at reduced volume so
// cues sit under speech level.
func (b *Bank) convert(ctx context.Context, path string) ([]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-filter:a", "volume=" + b.volume,
	}
	args = append(args, encodeArgs(b.format)...)
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %s: %w", strings.TrimSpace(errBuf.String()), err)
	}
	return out.Bytes(), nil
}

// PrependNotification concatenates the ding in front of synthesized
// speech so background listeners notice a response is starting. On any
// failure the speech is returned untouched.
func (b *Bank) PrependNotification(ctx context.Context, speech []byte) []byte {
	dingPath := filepath.Join(b.dir, notifyAsset)
	if _, err := os.Stat(dingPath); err != nil {
		return speech
	}

	tmp, err := os.CreateTemp("", "voxgate-speech-*")
	if err != nil {
		return speech
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(speech); err != nil {
		tmp.Close()
		return speech
	}
	tmp.Close()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", dingPath,
		"-i", tmp.Name(),
		"-filter_complex", "[0:a]volume=" + b.volume + "[d];[d][1:a]concat=n=2:v=0:a=1[out]",
		"-map", "[out]",
	}
	args = append(args, encodeArgs(b.format)...)
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		slog.Warn("notification prepend failed", "err", strings.TrimSpace(errBuf.String()))
		return speech
	}
	return out.Bytes()
}

func encodeArgs(format tts.Format) []string {
	switch format {
	case tts.FormatWAV:
		return []string{"-c:a", "pcm_s16le", "-f", "wav"}
	case tts.FormatOpus:
		return []string{"-c:a", "libopus", "-f", "ogg"}
	default:
		return []string{"-c:a", "libmp3lame", "-q:a", "4", "-f", "mp3"}
	}
}
