package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voxgate/internal/proxy"
)

// API transcribes through the OpenAI transcription endpoint. Hotwords go
// into the prompt so agent names survive recognition.
type API struct {
	client openai.Client
	prompt string
}

func NewAPI(hotwords string) (*API, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	httpClient, err := proxy.ClientFromEnv()
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &API{
		client: openai.NewClient(opts...),
		prompt: hotwords,
	}, nil
}

func (a *API) Transcribe(ctx context.Context, audio []byte) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		Model:    openai.AudioModelWhisper1,
		File:     openai.File(bytes.NewReader(audio), "speech.wav", "audio/wav"),
		Language: openai.String("en"),
	}
	if a.prompt != "" {
		params.Prompt = openai.String(a.prompt)
	}
	resp, err := a.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription api: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Unload is a no-op; the API backend holds no local resources.
func (a *API) Unload() {}
