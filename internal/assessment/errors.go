package assessment

import (
	"errors"
	"fmt"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/analysis"
)

var (
	ErrSubjectNotFound     = errors.New("subject not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionTerminal     = errors.New("session is completed or abandoned")
	ErrSessionInvalidPhase = errors.New("operation not permitted in the current phase")
	ErrAnalysisFailed      = analysis.ErrAnalysisFailed
	ErrGenerationFailed    = errors.New("generation failed")
	ErrNoScoresRecorded    = errors.New("no scores recorded")
	ErrUnknownTraitCode    = errors.New("unknown trait code")
)

// IsTransient reports whether err came from an external call and the same
// request may be retried against unchanged session state.
func IsTransient(err error) bool {
	return errors.Is(err, ErrAnalysisFailed) || errors.Is(err, ErrGenerationFailed)
}

func invalidPhase(s *Session, op string) error {
	return fmt.Errorf("%w: %s (status %s, phase %q)", ErrSessionInvalidPhase, op, s.Status, s.Phase)
}

func terminal(s *Session) error {
	return fmt.Errorf("%w: session %s is %s", ErrSessionTerminal, s.ID, s.Status)
}
