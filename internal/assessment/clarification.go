package assessment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

const clarificationPromptFormat = `Another player answered the same situation like this:

"%s"

Do you agree or disagree with this approach? Tell us what you would do differently and why.`

// NextClarification prepares the follow-up for the trait at the head of the
// pending queue. It returns nil when nothing is pending. The session is not
// changed, so a failed generation can simply be asked for again.
func (e *Engine) NextClarification(ctx context.Context, sessionID string) (*ClarificationPrompt, error) {
	sess, err := e.mutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(sess.PendingTraits) == 0 {
		return nil, nil
	}
	if sess.Phase != PhaseClarification {
		return nil, invalidPhase(sess, "next clarification")
	}

	code := sess.PendingTraits[0]
	trait, ok := e.catalog.Lookup(code)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTraitCode, code)
	}
	sit, err := e.currentSituation(ctx, sess)
	if err != nil {
		return nil, err
	}

	gctx, cancel := withTimeout(ctx, e.opts.OracleTimeout)
	alt, err := e.alternatives.GenerateAlternativeResponse(gctx, sit.Content, code, e.roleHint(ctx, sess.PlayerID))
	cancel()
	if err != nil {
		e.logger.Warn("alternative response generation failed",
			zap.String("session_id", sess.ID), zap.String("trait", code), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	alt = strings.TrimSpace(alt)
	if alt == "" {
		return nil, fmt.Errorf("%w: empty alternative response", ErrGenerationFailed)
	}

	return &ClarificationPrompt{
		TraitCode:   code,
		TraitName:   trait.Name,
		Alternative: alt,
		Prompt:      fmt.Sprintf(clarificationPromptFormat, alt),
	}, nil
}

// SubmitClarificationAnswer scores the player's reaction to an alternative
// response. Only the trait at the head of the pending queue is accepted. The
// trait leaves the queue whether or not the reaction was relevant; only a
// relevant reaction is stored.
func (e *Engine) SubmitClarificationAnswer(ctx context.Context, sessionID string, in ClarificationInput) (*RoundOutcome, error) {
	if !e.catalog.Has(in.TraitCode) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTraitCode, in.TraitCode)
	}
	sess, err := e.mutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := expectHead(sess, in.TraitCode); err != nil {
		return nil, err
	}
	sit, err := e.currentSituation(ctx, sess)
	if err != nil {
		return nil, err
	}

	scenario := sit.Content
	if alt := strings.TrimSpace(in.Alternative); alt != "" {
		scenario += "\n\nAlternative response shown to the player: " + alt
	}

	actx, cancel := withTimeout(ctx, e.opts.OracleTimeout)
	res, err := e.analyzer.Analyze(actx, scenario, in.Text)
	cancel()
	if err != nil {
		return nil, err
	}

	cur, err := e.mutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cur.SituationIndex != sess.SituationIndex {
		return nil, invalidPhase(cur, "situation index moved during analysis")
	}
	if err := expectHead(cur, in.TraitCode); err != nil {
		return nil, err
	}

	next := *cur
	next.PendingTraits = append([]string(nil), cur.PendingTraits[1:]...)
	if res.IsRelevant && res.Scores[in.TraitCode] >= traits.MidpointScore {
		next.HintTraits = without(cur.HintTraits, in.TraitCode)
	}
	if len(next.PendingTraits) == 0 {
		next.Status = StatusInProgress
		next.Phase = PhaseSituation
	}

	if res.IsRelevant {
		answer := &Answer{
			SituationID: sit.ID,
			Type:        AnswerClarification,
			Text:        in.Text,
			TargetTrait: in.TraitCode,
			Scores:      res.Scores,
			Analysis:    res.Raw(),
			CreatedAt:   e.now(),
		}
		if err := e.store.SaveAnswer(ctx, answer, &next); err != nil {
			return nil, err
		}
	} else if err := e.store.UpdateSession(ctx, &next); err != nil {
		return nil, err
	}

	e.logger.Info("clarification answered",
		zap.String("session_id", next.ID),
		zap.String("trait", in.TraitCode),
		zap.Bool("relevant", res.IsRelevant),
		zap.Int("remaining", len(next.PendingTraits)),
	)
	if len(next.PendingTraits) == 0 {
		e.logTransition("clarification loop finished", &next)
	}

	return &RoundOutcome{
		Accepted:      res.IsRelevant,
		Reason:        res.Reason,
		Analysis:      res,
		Pending:       next.PendingTraits,
		RoundComplete: len(next.PendingTraits) == 0,
	}, nil
}

func expectHead(sess *Session, code string) error {
	if sess.Phase != PhaseClarification || len(sess.PendingTraits) == 0 {
		return invalidPhase(sess, "submit clarification")
	}
	if sess.PendingTraits[0] != code {
		return invalidPhase(sess, fmt.Sprintf("expected clarification for %s, got %s", sess.PendingTraits[0], code))
	}
	return nil
}

func without(codes []string, code string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c != code {
			out = append(out, c)
		}
	}
	return out
}
