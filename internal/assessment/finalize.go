package assessment

import (
	"context"
	"fmt"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

// Finalize averages every stored score of the session per trait. Traits
// that were never scored are left out. Nothing is written.
func (e *Engine) Finalize(ctx context.Context, sessionID string) ([]SessionResult, error) {
	answers, err := e.store.ListAnswers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	results := Aggregate(e.catalog, answers)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: session %s", ErrNoScoresRecorded, sessionID)
	}
	return results, nil
}

// Aggregate computes the unweighted mean per trait across main and
// clarification answers, rounded to one decimal and classified. Results
// follow catalog order.
func Aggregate(catalog *traits.Catalog, answers []Answer) []SessionResult {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, a := range answers {
		for code, score := range a.Scores {
			if !catalog.Has(code) {
				continue
			}
			sums[code] += score
			counts[code]++
		}
	}

	var results []SessionResult
	for _, code := range catalog.Codes() {
		n := counts[code]
		if n == 0 {
			continue
		}
		mean := traits.RoundScore(sums[code] / float64(n))
		results = append(results, SessionResult{
			TraitCode:  code,
			FinalScore: mean,
			Strength:   traits.Classify(mean),
		})
	}
	return results
}
