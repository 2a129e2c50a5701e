package oracle

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber converts voice notes to text with Whisper.
type Transcriber struct {
	client *openai.Client
	model  string
}

// NewTranscriber creates a transcriber. An empty model uses whisper-1.
func NewTranscriber(client *openai.Client, model string) *Transcriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{client: client, model: model}
}

// Transcribe returns the text spoken in audio. filename only tells the API
// which container format to expect.
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader, filename, language string) (string, error) {
	if filename == "" {
		filename = "voice.ogg"
	}
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   audio,
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("transcription is empty")
	}
	return text, nil
}
