package assessment

import (
	"encoding/json"
	"time"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/analysis"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

// Status is the lifecycle stage of a session.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusClarifying Status = "clarifying"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether no further mutation is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Phase is the position of a session inside the conversation protocol.
type Phase string

const (
	PhaseNone             Phase = ""
	PhaseIntro            Phase = "intro"
	PhaseSituation        Phase = "situation"
	PhaseWaitingAnswer    Phase = "waiting_answer"
	PhaseAnalyzing        Phase = "analyzing"
	PhaseClarification    Phase = "clarification"
	PhaseGeneratingReport Phase = "generating_report"
)

// ContextType tags the kind of pressure a situation puts on the player.
type ContextType string

const (
	ContextPressure   ContextType = "pressure"
	ContextConflict   ContextType = "conflict"
	ContextLeadership ContextType = "leadership"
	ContextTactical   ContextType = "tactical"
	ContextEmotional  ContextType = "emotional"
	ContextFailure    ContextType = "failure"
)

// ContextTypes is the rotation used when picking a context for a new situation.
var ContextTypes = []ContextType{
	ContextPressure,
	ContextConflict,
	ContextLeadership,
	ContextTactical,
	ContextEmotional,
	ContextFailure,
}

// ContextTypeFor returns the context type for the situation at orderNum.
func ContextTypeFor(orderNum int) ContextType {
	if orderNum < 0 {
		orderNum = 0
	}
	return ContextTypes[orderNum%len(ContextTypes)]
}

// AnswerType distinguishes the first answer to a situation from follow-ups.
type AnswerType string

const (
	AnswerMain          AnswerType = "main"
	AnswerClarification AnswerType = "clarification"
)

// Session is one player's attempt at the assessment.
type Session struct {
	ID             string     `json:"id"`
	PlayerID       int64      `json:"player_id"`
	Language       string     `json:"language"`
	Status         Status     `json:"status"`
	Phase          Phase      `json:"phase,omitempty"`
	SituationIndex int        `json:"situation_index"`
	PendingTraits  []string   `json:"pending_traits"`
	HintTraits     []string   `json:"hint_traits"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Situation is one scenario presented within a session.
type Situation struct {
	ID          string      `json:"id"`
	SessionID   string      `json:"session_id"`
	OrderNum    int         `json:"order_num"`
	Content     string      `json:"content"`
	ContextType ContextType `json:"context_type"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Answer is one scored response to a situation.
type Answer struct {
	ID          string             `json:"id"`
	SituationID string             `json:"situation_id"`
	Type        AnswerType         `json:"type"`
	Text        string             `json:"text"`
	TargetTrait string             `json:"target_trait,omitempty"`
	Scores      map[string]float64 `json:"scores"`
	Analysis    json.RawMessage    `json:"analysis,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// SessionResult is the finalized score of one trait.
type SessionResult struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	TraitCode  string          `json:"trait_code"`
	FinalScore float64         `json:"final_score"`
	Strength   traits.Strength `json:"strength"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Subject is the engine's view of a player.
type Subject struct {
	ID       int64
	Name     string
	RoleHint string
}

// ScenarioRequest carries the context a scenario provider needs.
type ScenarioRequest struct {
	ContextType       ContextType
	RoleHint          string
	PriorScenarios    []string
	PendingTraitHints []string
	Language          string
}

// RoundOutcome reports what happened to a submitted answer.
type RoundOutcome struct {
	Accepted      bool             `json:"accepted"`
	Reason        string           `json:"reason,omitempty"`
	Analysis      *analysis.Result `json:"analysis"`
	Pending       []string         `json:"pending"`
	RoundComplete bool             `json:"round_complete"`
}

// ClarificationPrompt is the next follow-up to show the player.
type ClarificationPrompt struct {
	TraitCode   string `json:"trait_code"`
	TraitName   string `json:"trait_name"`
	Alternative string `json:"alternative"`
	Prompt      string `json:"prompt"`
}

// ClarificationInput is the player's reaction to a ClarificationPrompt.
type ClarificationInput struct {
	TraitCode   string `json:"trait_code"`
	Alternative string `json:"alternative"`
	Text        string `json:"text"`
}

// AdvanceResult reports whether the situation sequence is exhausted.
type AdvanceResult struct {
	Complete       bool `json:"complete"`
	SituationIndex int  `json:"situation_index"`
}

// Progress describes how far a session is through the sequence.
// Min is advisory and never ends a session early.
type Progress struct {
	Index    int  `json:"index"`
	Min      int  `json:"min"`
	Max      int  `json:"max"`
	Complete bool `json:"complete"`
}
