// Package conversation turns free-text player messages into assessment
// engine calls, so chat front ends only deal with text in and text out.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

// MessageHandler processes incoming messages and produces responses.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error)
}

const (
	retryText      = "Something went wrong on our side. Please send that again."
	noSessionText  = "You have no assessment in progress. Send start to begin."
	emptyText      = "I received an empty answer. Please describe what you would do."
	irrelevantText = "That doesn't seem to answer the situation. Please tell us what you would do."
)

// Processor connects player messages to the assessment engine. It remembers
// the last clarification shown per session so the reaction can be scored
// against the same alternative.
type Processor struct {
	engine *assessment.Engine
	logger *zap.Logger

	mu    sync.Mutex
	shown map[string]*assessment.ClarificationPrompt
}

// NewProcessor creates a new message processor.
func NewProcessor(engine *assessment.Engine, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		engine: engine,
		logger: logger,
		shown:  make(map[string]*assessment.ClarificationPrompt),
	}
}

var _ MessageHandler = (*Processor)(nil)

// HandleMessage processes an incoming message and returns a response.
//   - start   -> resume the active session or create one
//   - abandon -> abandon the active session
//   - status  -> report progress
//   - default -> treat the text as an answer to whatever is on screen
//
// Failures of the reasoning backend come back as a retry reply. When the
// player is out of step with the stored session, the reply re-presents
// whatever the session is waiting for.
func (p *Processor) HandleMessage(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	var out *OutgoingMessage
	var err error

	switch msg.Command {
	case CommandStart:
		out, err = p.handleStart(ctx, msg)
	case CommandAbandon:
		out, err = p.handleAbandon(ctx, msg)
	case CommandStatus:
		out, err = p.handleStatus(ctx, msg)
	case CommandAnswer, "":
		out, err = p.handleAnswer(ctx, msg)
	default:
		return &OutgoingMessage{Type: ReplyError, Content: fmt.Sprintf("Unknown command %q.", msg.Command)}, nil
	}
	if err != nil {
		return p.recover(ctx, msg, err)
	}
	return out, nil
}

func (p *Processor) handleStart(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	sess, err := p.engine.GetActiveSession(ctx, msg.PlayerID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess, err = p.engine.CreateSession(ctx, msg.PlayerID, msg.Language)
		if err != nil {
			return nil, err
		}
	}
	return p.resume(ctx, sess)
}

func (p *Processor) handleAbandon(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	sess, err := p.engine.GetActiveSession(ctx, msg.PlayerID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &OutgoingMessage{Type: ReplyStatus, Content: "No assessment in progress."}, nil
	}
	if err := p.engine.AbandonSession(ctx, sess.ID); err != nil {
		return nil, err
	}
	p.forget(sess.ID)
	return &OutgoingMessage{
		Type:      ReplyStatus,
		SessionID: sess.ID,
		Content:   "Assessment abandoned. Send start to begin a new one.",
	}, nil
}

func (p *Processor) handleStatus(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	sess, err := p.engine.GetActiveSession(ctx, msg.PlayerID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &OutgoingMessage{Type: ReplyStatus, Content: "No assessment in progress."}, nil
	}
	prog, err := p.engine.Progress(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return &OutgoingMessage{
		Type:      ReplyStatus,
		SessionID: sess.ID,
		Phase:     sess.Phase,
		Progress:  prog,
		Content:   fmt.Sprintf("Answered %d of %d situations (%s).", prog.Index, prog.Max, sess.Status),
	}, nil
}

func (p *Processor) handleAnswer(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	sess, err := p.engine.GetActiveSession(ctx, msg.PlayerID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &OutgoingMessage{Type: ReplyError, Content: noSessionText}, nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return &OutgoingMessage{Type: ReplyError, SessionID: sess.ID, Phase: sess.Phase, Content: emptyText}, nil
	}

	switch {
	case sess.Status == assessment.StatusClarifying:
		return p.answerClarification(ctx, sess, text)
	case sess.Phase == assessment.PhaseGeneratingReport:
		return p.finish(ctx, sess.ID)
	case sess.Status == assessment.StatusCreated, sess.Phase == assessment.PhaseIntro:
		return p.presentSituation(ctx, sess.ID, "")
	}
	return p.answerSituation(ctx, sess, text)
}

func (p *Processor) answerSituation(ctx context.Context, sess *assessment.Session, text string) (*OutgoingMessage, error) {
	out, err := p.engine.SubmitMainAnswer(ctx, sess.ID, text)
	if errors.Is(err, assessment.ErrSessionInvalidPhase) {
		// The answer may already be stored by a round that was interrupted
		// before it advanced.
		return p.advance(ctx, sess.ID)
	}
	if err != nil {
		return nil, err
	}
	if !out.Accepted {
		return p.presentSituation(ctx, sess.ID, irrelevantText)
	}
	if out.RoundComplete {
		return p.advance(ctx, sess.ID)
	}
	return p.nextClarification(ctx, sess.ID)
}

func (p *Processor) answerClarification(ctx context.Context, sess *assessment.Session, text string) (*OutgoingMessage, error) {
	prompt := p.lastShown(sess.ID)
	if prompt == nil || len(sess.PendingTraits) == 0 || sess.PendingTraits[0] != prompt.TraitCode {
		// Nothing on record for this trait, so the player has not seen it yet.
		return p.nextClarification(ctx, sess.ID)
	}

	out, err := p.engine.SubmitClarificationAnswer(ctx, sess.ID, assessment.ClarificationInput{
		TraitCode:   prompt.TraitCode,
		Alternative: prompt.Alternative,
		Text:        text,
	})
	if err != nil {
		return nil, err
	}
	p.forget(sess.ID)

	if out.RoundComplete {
		return p.advance(ctx, sess.ID)
	}
	return p.nextClarification(ctx, sess.ID)
}

func (p *Processor) nextClarification(ctx context.Context, sessionID string) (*OutgoingMessage, error) {
	prompt, err := p.engine.NextClarification(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if prompt == nil {
		return p.advance(ctx, sessionID)
	}
	p.remember(sessionID, prompt)
	return p.reply(ctx, sessionID, ReplyClarification, prompt.Prompt)
}

func (p *Processor) advance(ctx context.Context, sessionID string) (*OutgoingMessage, error) {
	res, err := p.engine.AdvanceToNextScenario(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if res.Complete {
		return p.finish(ctx, sessionID)
	}
	return p.presentSituation(ctx, sessionID, "")
}

func (p *Processor) finish(ctx context.Context, sessionID string) (*OutgoingMessage, error) {
	results, err := p.engine.CompleteSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p.forget(sessionID)
	out, err := p.reply(ctx, sessionID, ReplyResults, Summarize(p.engine.Catalog(), results))
	if err != nil {
		return nil, err
	}
	out.Results = results
	return out, nil
}

func (p *Processor) presentSituation(ctx context.Context, sessionID, notice string) (*OutgoingMessage, error) {
	sit, err := p.engine.GetCurrentScenario(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	content := sit.Content
	if notice != "" {
		content = notice + "\n\n" + content
	}
	return p.reply(ctx, sessionID, ReplySituation, content)
}

// resume re-presents whatever the session is waiting for.
func (p *Processor) resume(ctx context.Context, sess *assessment.Session) (*OutgoingMessage, error) {
	switch {
	case sess.Status == assessment.StatusClarifying:
		if prompt := p.lastShown(sess.ID); prompt != nil && len(sess.PendingTraits) > 0 && sess.PendingTraits[0] == prompt.TraitCode {
			return p.reply(ctx, sess.ID, ReplyClarification, prompt.Prompt)
		}
		return p.nextClarification(ctx, sess.ID)
	case sess.Phase == assessment.PhaseGeneratingReport:
		return p.finish(ctx, sess.ID)
	}
	return p.presentSituation(ctx, sess.ID, "")
}

func (p *Processor) reply(ctx context.Context, sessionID string, typ ReplyType, content string) (*OutgoingMessage, error) {
	sess, err := p.engine.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	prog, err := p.engine.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &OutgoingMessage{
		Type:      typ,
		SessionID: sessionID,
		Content:   content,
		Phase:     sess.Phase,
		Progress:  prog,
	}, nil
}

func (p *Processor) recover(ctx context.Context, msg IncomingMessage, err error) (*OutgoingMessage, error) {
	switch {
	case assessment.IsTransient(err):
		p.logger.Warn("retryable assessment failure", zap.Int64("player_id", msg.PlayerID), zap.Error(err))
		return &OutgoingMessage{Type: ReplyRetry, Content: retryText}, nil

	case errors.Is(err, assessment.ErrSubjectNotFound):
		return &OutgoingMessage{Type: ReplyError, Content: fmt.Sprintf("Player %d is not registered.", msg.PlayerID)}, nil

	case errors.Is(err, assessment.ErrSessionInvalidPhase),
		errors.Is(err, assessment.ErrSessionTerminal),
		errors.Is(err, assessment.ErrSessionNotFound):
		p.logger.Info("resynchronizing conversation", zap.Int64("player_id", msg.PlayerID), zap.Error(err))
		sess, rerr := p.engine.GetActiveSession(ctx, msg.PlayerID)
		if rerr != nil {
			return nil, rerr
		}
		if sess == nil {
			return &OutgoingMessage{Type: ReplyError, Content: noSessionText}, nil
		}
		out, rerr := p.resume(ctx, sess)
		if rerr != nil {
			if assessment.IsTransient(rerr) {
				return &OutgoingMessage{Type: ReplyRetry, SessionID: sess.ID, Phase: sess.Phase, Content: retryText}, nil
			}
			return nil, fmt.Errorf("resynchronizing session %s: %w", sess.ID, rerr)
		}
		return out, nil
	}
	return nil, err
}

func (p *Processor) remember(sessionID string, prompt *assessment.ClarificationPrompt) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown[sessionID] = prompt
}

func (p *Processor) lastShown(sessionID string) *assessment.ClarificationPrompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown[sessionID]
}

func (p *Processor) forget(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.shown, sessionID)
}

// Summarize renders finalized results as a short plain-text profile.
func Summarize(catalog *traits.Catalog, results []assessment.SessionResult) string {
	if catalog == nil {
		catalog = traits.Default()
	}
	var b strings.Builder
	b.WriteString("Assessment complete. Your profile:")
	for _, r := range results {
		name := r.TraitCode
		if t, ok := catalog.Lookup(r.TraitCode); ok {
			name = t.Name
		}
		fmt.Fprintf(&b, "\n- %s: %.1f (%s)", name, r.FinalScore, r.Strength)
	}
	return b.String()
}
