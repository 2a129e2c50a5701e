package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OllamaProvider implements Provider using direct HTTP calls to a local
// Ollama server. No API key is needed.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(baseURL string, model string) *OllamaProvider {
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  struct {
		Temperature float64 `json:"temperature,omitempty"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	Model           string        `json:"model"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error,omitempty"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ollamaReq := ollamaChatRequest{Model: req.Model}
	if ollamaReq.Model == "" {
		ollamaReq.Model = p.model
	}
	ollamaReq.Options.Temperature = req.Temperature
	ollamaReq.Options.NumPredict = req.MaxTokens
	if req.JSONMode {
		ollamaReq.Format = "json"
	}
	for _, msg := range req.Messages {
		ollamaReq.Messages = append(ollamaReq.Messages, ollamaMessage{Role: string(msg.Role), Content: msg.Content})
	}

	status, body, err := postJSON(ctx, p.client, p.baseURL+"/api/chat", nil, ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}

	var ollamaResp ollamaChatResponse
	jsonErr := json.Unmarshal(body, &ollamaResp)
	if status != http.StatusOK {
		if jsonErr == nil && ollamaResp.Error != "" {
			return nil, fmt.Errorf("ollama returned status %d: %s", status, ollamaResp.Error)
		}
		return nil, fmt.Errorf("ollama returned status %d: %s", status, string(body))
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("failed to unmarshal ollama response: %w", jsonErr)
	}

	return &CompletionResponse{
		Content:      ollamaResp.Message.Content,
		InputTokens:  ollamaResp.PromptEvalCount,
		OutputTokens: ollamaResp.EvalCount,
		Model:        ollamaResp.Model,
		FinishReason: ollamaResp.DoneReason,
	}, nil
}
