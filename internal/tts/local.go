package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Local synthesizes with espeak-ng and converts to the output format with
// ffmpeg. No network, no keys; quality is what it is.
type Local struct {
	format Format
}

func NewLocal(format Format) *Local {
	return &Local{format: format}
}

func (l *Local) MediaType() string { return l.format.MediaType() }

func (l *Local) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	speak := exec.CommandContext(ctx, "espeak-ng", "--stdout", "-v", "en", "-s", "165")
	speak.Stdin = strings.NewReader(text)

	var wavBuf, speakErr bytes.Buffer
	speak.Stdout = &wavBuf
	speak.Stderr = &speakErr
	if err := speak.Run(); err != nil {
		return nil, fmt.Errorf("espeak-ng: %s: %w", strings.TrimSpace(speakErr.String()), err)
	}
	if l.format == FormatWAV {
		return wavBuf.Bytes(), nil
	}
	return convertWAV(ctx, wavBuf.Bytes(), l.format)
}

// convertWAV pipes WAV through ffmpeg into the requested container.
func convertWAV(ctx context.Context, wav []byte, format Format) ([]byte, error) {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0"}
	switch format {
	case FormatOpus:
		args = append(args, "-c:a", "libopus", "-f", "ogg")
	default:
		args = append(args, "-c:a", "libmp3lame", "-q:a", "4", "-f", "mp3")
	}
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdin = bytes.NewReader(wav)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg convert: %s: %w", strings.TrimSpace(errBuf.String()), err)
	}
	return out.Bytes(), nil
}
