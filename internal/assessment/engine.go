// Package assessment drives a player through the situational assessment:
// scenario delivery, answer intake, the clarification loop and finalization.
package assessment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/analysis"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

// Options controls the length of a session and the budgets of external calls.
type Options struct {
	// MinSituations is reported to front ends; it never ends a session.
	MinSituations   int
	MaxSituations   int
	DominantCount   int
	ScenarioTimeout time.Duration
	OracleTimeout   time.Duration
	DefaultLanguage string
	Now             func() time.Time
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MinSituations:   3,
		MaxSituations:   5,
		DominantCount:   2,
		ScenarioTimeout: 60 * time.Second,
		OracleTimeout:   60 * time.Second,
		DefaultLanguage: "en",
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

// Engine is the session lifecycle manager.
type Engine struct {
	store        *Store
	subjects     SubjectDirectory
	scenarios    ScenarioProvider
	alternatives AlternativeGenerator
	analyzer     *analysis.Analyzer
	catalog      *traits.Catalog
	opts         Options
	logger       *zap.Logger

	generating singleflight.Group
}

// NewEngine creates a new assessment engine. Zero-valued options fall back
// to DefaultOptions.
func NewEngine(store *Store, subjects SubjectDirectory, scenarios ScenarioProvider, alternatives AlternativeGenerator, analyzer *analysis.Analyzer, opts Options, logger *zap.Logger) *Engine {
	def := DefaultOptions()
	if opts.MaxSituations <= 0 {
		opts.MaxSituations = def.MaxSituations
	}
	if opts.MinSituations <= 0 || opts.MinSituations > opts.MaxSituations {
		opts.MinSituations = min(def.MinSituations, opts.MaxSituations)
	}
	if opts.DominantCount < 0 {
		opts.DominantCount = 0
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = def.DefaultLanguage
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer(nil, nil, logger)
	}

	return &Engine{
		store:        store,
		subjects:     subjects,
		scenarios:    scenarios,
		alternatives: alternatives,
		analyzer:     analyzer,
		catalog:      analyzer.Catalog(),
		opts:         opts,
		logger:       logger,
	}
}

// Options returns the effective engine settings.
func (e *Engine) Options() Options { return e.opts }

// Catalog returns the trait catalog answers are scored against.
func (e *Engine) Catalog() *traits.Catalog { return e.catalog }

func (e *Engine) now() time.Time { return e.opts.Now() }

func (e *Engine) logTransition(msg string, s *Session) {
	e.logger.Info(msg,
		zap.String("session_id", s.ID),
		zap.Int("situation_index", s.SituationIndex),
		zap.String("status", string(s.Status)),
		zap.String("phase", string(s.Phase)),
	)
}

// withTimeout bounds an external call. A zero budget leaves ctx unchanged.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// CreateSession starts a new session for the player.
func (e *Engine) CreateSession(ctx context.Context, subjectID int64, language string) (*Session, error) {
	subject, err := e.subjects.LookupSubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("looking up subject: %w", err)
	}
	if subject == nil {
		return nil, fmt.Errorf("%w: %d", ErrSubjectNotFound, subjectID)
	}
	if language == "" {
		language = e.opts.DefaultLanguage
	}

	sess, err := e.store.CreateSession(ctx, Session{
		PlayerID:       subjectID,
		Language:       language,
		Status:         StatusCreated,
		Phase:          PhaseIntro,
		SituationIndex: 0,
		CreatedAt:      e.now(),
	})
	if err != nil {
		return nil, err
	}
	e.logTransition("session created", sess)
	return sess, nil
}

// GetActiveSession returns the player's most recent unfinished session, or
// nil when there is none.
func (e *Engine) GetActiveSession(ctx context.Context, subjectID int64) (*Session, error) {
	return e.store.GetActiveSession(ctx, subjectID)
}

// ListSessions returns every session of the player, newest first.
func (e *Engine) ListSessions(ctx context.Context, subjectID int64) ([]Session, error) {
	return e.store.ListSessions(ctx, subjectID)
}

// GetSession returns a session by ID.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// mutable loads a session that may still change.
func (e *Engine) mutable(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, terminal(sess)
	}
	return sess, nil
}

func (e *Engine) roleHint(ctx context.Context, playerID int64) string {
	subject, err := e.subjects.LookupSubject(ctx, playerID)
	if err != nil {
		e.logger.Warn("role hint lookup failed", zap.Int64("player_id", playerID), zap.Error(err))
		return ""
	}
	if subject == nil {
		return ""
	}
	return subject.RoleHint
}

// GetCurrentScenario returns the situation at the session's current index,
// generating and storing it on first read. Repeated reads at the same index
// return the stored situation unchanged.
func (e *Engine) GetCurrentScenario(ctx context.Context, sessionID string) (*Situation, error) {
	sess, err := e.mutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Phase == PhaseGeneratingReport {
		return nil, invalidPhase(sess, "all situations have been presented")
	}

	existing, err := e.store.GetSituation(ctx, sess.ID, sess.SituationIndex)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := e.markPresented(ctx, sess); err != nil {
			return nil, err
		}
		return existing, nil
	}

	key := fmt.Sprintf("%s/%d", sess.ID, sess.SituationIndex)
	v, err, shared := e.generating.Do(key, func() (interface{}, error) {
		return e.generateSituation(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.logger.Debug("situation generation shared", zap.String("key", key))
	}
	return v.(*Situation), nil
}

func (e *Engine) generateSituation(ctx context.Context, sess *Session) (*Situation, error) {
	prior, err := e.store.ListSituations(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	priorTexts := make([]string, 0, len(prior))
	for _, p := range prior {
		if p.OrderNum < sess.SituationIndex {
			priorTexts = append(priorTexts, p.Content)
		}
	}

	req := ScenarioRequest{
		ContextType:       ContextTypeFor(sess.SituationIndex),
		RoleHint:          e.roleHint(ctx, sess.PlayerID),
		PriorScenarios:    priorTexts,
		PendingTraitHints: sess.HintTraits,
		Language:          sess.Language,
	}

	gctx, cancel := withTimeout(ctx, e.opts.ScenarioTimeout)
	text, err := e.scenarios.GenerateScenario(gctx, req)
	cancel()
	if err != nil {
		e.logger.Warn("scenario generation failed", zap.String("session_id", sess.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty scenario", ErrGenerationFailed)
	}

	// The session may have ended or moved on while the provider was busy.
	cur, err := e.mutable(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if cur.SituationIndex != sess.SituationIndex {
		return nil, invalidPhase(cur, "situation index moved during generation")
	}

	sit, inserted, err := e.store.InsertSituation(ctx, Situation{
		SessionID:   cur.ID,
		OrderNum:    cur.SituationIndex,
		Content:     text,
		ContextType: req.ContextType,
		CreatedAt:   e.now(),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		e.logger.Debug("situation already stored, using existing",
			zap.String("session_id", cur.ID), zap.Int("order_num", cur.SituationIndex))
	}

	if err := e.markPresented(ctx, cur); err != nil {
		return nil, err
	}
	return sit, nil
}

// markPresented moves a session that has not yet seen its current situation
// into the situation phase.
func (e *Engine) markPresented(ctx context.Context, sess *Session) error {
	if sess.Status != StatusCreated && sess.Phase != PhaseIntro {
		return nil
	}
	next := *sess
	next.Status = StatusInProgress
	next.Phase = PhaseSituation
	if next.StartedAt == nil {
		now := e.now()
		next.StartedAt = &now
	}
	if err := e.store.UpdateSession(ctx, &next); err != nil {
		return err
	}
	*sess = next
	e.logTransition("situation presented", sess)
	return nil
}

// currentSituation returns the situation at the session's index or an
// invalid-phase error when none has been generated yet.
func (e *Engine) currentSituation(ctx context.Context, sess *Session) (*Situation, error) {
	sit, err := e.store.GetSituation(ctx, sess.ID, sess.SituationIndex)
	if err != nil {
		return nil, err
	}
	if sit == nil {
		return nil, invalidPhase(sess, "no current situation")
	}
	return sit, nil
}

// SubmitMainAnswer scores the player's first answer to the current situation.
// Irrelevant answers are not stored; the session waits for another attempt.
// A relevant answer is stored with its scores and opens the clarification
// loop for the traits it did not surface.
func (e *Engine) SubmitMainAnswer(ctx context.Context, sessionID, text string) (*RoundOutcome, error) {
	sess, err := e.mutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Phase != PhaseSituation && sess.Phase != PhaseWaitingAnswer {
		return nil, invalidPhase(sess, "submit main answer")
	}
	sit, err := e.currentSituation(ctx, sess)
	if err != nil {
		return nil, err
	}
	answered, err := e.store.HasMainAnswer(ctx, sit.ID)
	if err != nil {
		return nil, err
	}
	if answered {
		return nil, invalidPhase(sess, "situation already answered")
	}

	actx, cancel := withTimeout(ctx, e.opts.OracleTimeout)
	res, err := e.analyzer.Analyze(actx, sit.Content, text)
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

	if !res.IsRelevant {
		if cur.Phase != PhaseWaitingAnswer {
			next := *cur
			next.Phase = PhaseWaitingAnswer
			if err := e.store.UpdateSession(ctx, &next); err != nil {
				return nil, err
			}
			e.logTransition("main answer rejected as irrelevant", &next)
		}
		return &RoundOutcome{Accepted: false, Reason: res.Reason, Analysis: res}, nil
	}

	pending := pendingAfter(analysis.Rank(e.catalog, res.Scores), e.opts.DominantCount)
	next := *cur
	next.PendingTraits = pending
	next.HintTraits = append([]string(nil), pending...)
	if len(pending) > 0 {
		next.Status = StatusClarifying
		next.Phase = PhaseClarification
	} else {
		next.Status = StatusInProgress
		next.Phase = PhaseSituation
	}

	answer := &Answer{
		SituationID: sit.ID,
		Type:        AnswerMain,
		Text:        text,
		Scores:      res.Scores,
		Analysis:    res.Raw(),
		CreatedAt:   e.now(),
	}
	if err := e.store.SaveAnswer(ctx, answer, &next); err != nil {
		return nil, err
	}
	e.logTransition("main answer accepted", &next)

	return &RoundOutcome{
		Accepted:      true,
		Analysis:      res,
		Pending:       pending,
		RoundComplete: len(pending) == 0,
	}, nil
}

// pendingAfter drops the top dominant codes from a ranking.
func pendingAfter(ranked []string, dominant int) []string {
	if dominant >= len(ranked) {
		return nil
	}
	if dominant < 0 {
		dominant = 0
	}
	return append([]string(nil), ranked[dominant:]...)
}

// AdvanceToNextScenario closes the current round. Complete is set once the
// configured maximum number of situations has been presented.
func (e *Engine) AdvanceToNextScenario(ctx context.Context, sessionID string) (*AdvanceResult, error) {
	sess, err := e.mutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch {
	case sess.Phase == PhaseGeneratingReport:
		return nil, invalidPhase(sess, "all situations have been presented")
	case sess.Phase == PhaseClarification || len(sess.PendingTraits) > 0:
		return nil, invalidPhase(sess, "clarification still pending")
	}
	sit, err := e.currentSituation(ctx, sess)
	if err != nil {
		return nil, err
	}
	answered, err := e.store.HasMainAnswer(ctx, sit.ID)
	if err != nil {
		return nil, err
	}
	if !answered {
		return nil, invalidPhase(sess, "current situation has no answer")
	}

	complete := sess.SituationIndex+1 >= e.opts.MaxSituations
	next := *sess
	next.SituationIndex++
	next.PendingTraits = nil
	next.Status = StatusInProgress
	if complete {
		next.Phase = PhaseGeneratingReport
	} else {
		next.Phase = PhaseSituation
	}
	if err := e.store.UpdateSession(ctx, &next); err != nil {
		return nil, err
	}
	e.logTransition("advanced to next situation", &next)

	return &AdvanceResult{Complete: complete, SituationIndex: next.SituationIndex}, nil
}

// CompleteSession finalizes the session and marks it completed. A second
// call fails with ErrSessionTerminal rather than finalizing again.
func (e *Engine) CompleteSession(ctx context.Context, sessionID string) ([]SessionResult, error) {
	sess, err := e.mutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	results, err := e.Finalize(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if err := e.store.CompleteWithResults(ctx, sess.ID, results, now); err != nil {
		return nil, err
	}

	sess.Status = StatusCompleted
	sess.Phase = PhaseNone
	sess.CompletedAt = &now
	e.logTransition("session completed", sess)
	return results, nil
}

// AbandonSession ends the session without results. Abandoning a finished
// session does nothing.
func (e *Engine) AbandonSession(ctx context.Context, sessionID string) error {
	sess, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	changed, err := e.store.AbandonSession(ctx, sess.ID)
	if err != nil {
		return err
	}
	if changed {
		sess.Status = StatusAbandoned
		sess.Phase = PhaseNone
		e.logTransition("session abandoned", sess)
	}
	return nil
}

// Results returns the stored results of a completed session.
func (e *Engine) Results(ctx context.Context, sessionID string) ([]SessionResult, error) {
	sess, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.store.GetResults(ctx, sess.ID)
}

// Progress reports how far the session is through its situations.
func (e *Engine) Progress(ctx context.Context, sessionID string) (*Progress, error) {
	sess, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Progress{
		Index:    sess.SituationIndex,
		Min:      e.opts.MinSituations,
		Max:      e.opts.MaxSituations,
		Complete: sess.Phase == PhaseGeneratingReport || sess.Status == StatusCompleted,
	}, nil
}
