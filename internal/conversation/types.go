package conversation

import "github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"

// Command selects what an incoming message asks for.
type Command string

const (
	CommandStart   Command = "start"
	CommandAnswer  Command = "answer"
	CommandAbandon Command = "abandon"
	CommandStatus  Command = "status"
)

// ReplyType tells a front end how to render an outgoing message.
type ReplyType string

const (
	ReplySituation     ReplyType = "situation"
	ReplyClarification ReplyType = "clarification"
	ReplyResults       ReplyType = "results"
	ReplyRetry         ReplyType = "retry"
	ReplyError         ReplyType = "error"
	ReplyStatus        ReplyType = "status"
)

// IncomingMessage is a player's message from any front end.
type IncomingMessage struct {
	PlayerID int64
	Text     string
	Command  Command
	Language string
}

// OutgoingMessage is the reply to show the player.
type OutgoingMessage struct {
	Type      ReplyType
	SessionID string
	Content   string
	Phase     assessment.Phase
	Progress  *assessment.Progress
	Results   []assessment.SessionResult
}
