package llm

import (
	"cmp"
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to the Chat Completions API. Its client is also
// shared with the Whisper transcriber.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIProviderWithConfig creates an OpenAI provider against any
// OpenAI-compatible endpoint described by cfg.
func NewOpenAIProviderWithConfig(cfg openai.ClientConfig, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Client exposes the underlying client so audio endpoints can share it.
func (p *OpenAIProvider) Client() *openai.Client {
	return p.client
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	apiReq := openai.ChatCompletionRequest{
		Model:       cmp.Or(req.Model, p.model),
		Messages:    make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		MaxTokens:   cmp.Or(req.MaxTokens, DefaultMaxTokens),
		Temperature: float32(req.Temperature),
	}
	for _, msg := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices for model %s", apiReq.Model)
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
