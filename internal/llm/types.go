package llm

import "context"

// DefaultMaxTokens caps a completion when the caller sets no limit. Scenarios,
// alternative answers and score objects all fit well inside it.
const DefaultMaxTokens = 1024

// Provider is a chat completion backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is one call to the backend. The oracle sends a system
// prompt with the task and a user message with the situation or answer.
// JSONMode asks for a bare JSON object where the backend supports it.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse carries the text plus the token counts used for cost logging.
type CompletionResponse struct {
	Content      string
	Model        string
	FinishReason string
	InputTokens  int
	OutputTokens int
}
