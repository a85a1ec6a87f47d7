package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voxgate/internal/proxy"
)

const speechInstructions = "Speak naturally at a relaxed pace, like talking to a friend."

// API synthesizes through the OpenAI speech endpoint.
type API struct {
	client openai.Client
	format Format
}

func NewAPI(format Format) (*API, error) {
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
		format: format,
	}, nil
}

func (a *API) MediaType() string { return a.format.MediaType() }

func (a *API) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = "nova"
	}
	resp, err := a.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelGPT4oMiniTTS,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: apiFormat(a.format),
		Instructions:   openai.String(speechInstructions),
	})
	if err != nil {
		return nil, fmt.Errorf("speech api: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech body: %w", err)
	}
	return audio, nil
}

func apiFormat(f Format) openai.AudioSpeechNewParamsResponseFormat {
	switch f {
	case FormatWAV:
		return openai.AudioSpeechNewParamsResponseFormatWAV
	case FormatOpus:
		return openai.AudioSpeechNewParamsResponseFormatOpus
	default:
		return openai.AudioSpeechNewParamsResponseFormatMP3
	}
}
