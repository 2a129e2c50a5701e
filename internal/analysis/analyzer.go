// Package analysis scores free-form answers against the trait catalog by
// delegating to a reasoning oracle and normalizing whatever it returns.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

// ErrAnalysisFailed is returned when the oracle is unavailable, times out or
// answers with a payload that cannot be used.
var ErrAnalysisFailed = errors.New("analysis failed")

// OracleResponse is the raw payload returned by a reasoning oracle. Scores
// are pointers so a missing value can be told apart from an explicit zero.
type OracleResponse struct {
	Scores     map[string]*float64 `json:"scores"`
	IsRelevant bool                `json:"is_relevant"`
	Reason     string              `json:"reason,omitempty"`
	Commentary string              `json:"commentary,omitempty"`
}

// Oracle scores an answer to a scenario against every catalog trait.
type Oracle interface {
	AnalyzeAnswer(ctx context.Context, scenario, answer string) (*OracleResponse, error)
}

// Result is a normalized analysis: every catalog code has a score in [0,10].
type Result struct {
	Scores        map[string]float64 `json:"scores"`
	IsRelevant    bool               `json:"is_relevant"`
	Reason        string             `json:"reason,omitempty"`
	Commentary    string             `json:"commentary,omitempty"`
	DominantTrait string             `json:"dominant_trait"`
	WeakestTrait  string             `json:"weakest_trait"`
	Coerced       []string           `json:"coerced,omitempty"`
}

// Raw returns the result as the JSON payload persisted with an answer.
func (r *Result) Raw() json.RawMessage {
	b, err := json.Marshal(r)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

// Analyzer wraps oracle calls and enforces the score contract.
type Analyzer struct {
	oracle  Oracle
	catalog *traits.Catalog
	logger  *zap.Logger
}

// NewAnalyzer creates an analyzer over the given oracle and catalog.
func NewAnalyzer(oracle Oracle, catalog *traits.Catalog, logger *zap.Logger) *Analyzer {
	if catalog == nil {
		catalog = traits.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{oracle: oracle, catalog: catalog, logger: logger}
}

// Catalog returns the catalog scores are normalized against.
func (a *Analyzer) Catalog() *traits.Catalog { return a.catalog }

// Analyze scores answer against scenario. Blank answers are irrelevant
// without consulting the oracle. The call is not retried.
func (a *Analyzer) Analyze(ctx context.Context, scenario, answer string) (*Result, error) {
	if strings.TrimSpace(answer) == "" {
		return a.normalize(&OracleResponse{IsRelevant: false, Reason: "empty answer"}), nil
	}
	if a.oracle == nil {
		return nil, fmt.Errorf("%w: no oracle configured", ErrAnalysisFailed)
	}

	resp, err := a.oracle.AnalyzeAnswer(ctx, scenario, answer)
	if err != nil {
		a.logger.Warn("oracle analysis failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty oracle response", ErrAnalysisFailed)
	}

	res := a.normalize(resp)
	if len(res.Coerced) > 0 {
		a.logger.Debug("coerced oracle scores",
			zap.Strings("codes", res.Coerced),
			zap.Bool("relevant", res.IsRelevant))
	}
	return res, nil
}

func (a *Analyzer) normalize(resp *OracleResponse) *Result {
	res := &Result{
		Scores:     make(map[string]float64, a.catalog.Len()),
		IsRelevant: resp.IsRelevant,
		Reason:     resp.Reason,
		Commentary: resp.Commentary,
	}

	for _, code := range a.catalog.Codes() {
		v, ok := resp.Scores[code]
		switch {
		case !resp.IsRelevant:
			// Irrelevant answers carry no evidence for any trait.
			res.Scores[code] = traits.MinScore
		case !ok || v == nil || !traits.InRange(*v):
			res.Scores[code] = traits.MidpointScore
			res.Coerced = append(res.Coerced, code)
		default:
			res.Scores[code] = *v
		}
	}

	ranked := Rank(a.catalog, res.Scores)
	res.DominantTrait = ranked[0]
	res.WeakestTrait = weakest(a.catalog, res.Scores)
	return res
}

// Rank orders every catalog code by score, highest first. Ties keep
// catalog order.
func Rank(catalog *traits.Catalog, scores map[string]float64) []string {
	codes := catalog.Codes()
	sort.SliceStable(codes, func(i, j int) bool {
		return scores[codes[i]] > scores[codes[j]]
	})
	return codes
}

// weakest is the lowest-scored code; ties resolve to the earlier catalog entry.
func weakest(catalog *traits.Catalog, scores map[string]float64) string {
	codes := catalog.Codes()
	best := codes[0]
	for _, c := range codes[1:] {
		if scores[c] < scores[best] {
			best = c
		}
	}
	return best
}
