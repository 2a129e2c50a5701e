// Package oracle implements the reasoning oracle and scenario provider on top
// of an LLM provider, and voice transcription on top of Whisper.
package oracle

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/analysis"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/llm"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

const (
	scoringTemperature    = 0.2
	generationTemperature = 0.8
)

// Oracle scores answers and writes scenarios and alternative responses.
type Oracle struct {
	provider llm.Provider
	model    string
	catalog  *traits.Catalog
	logger   *zap.Logger
}

var (
	_ analysis.Oracle                 = (*Oracle)(nil)
	_ assessment.ScenarioProvider     = (*Oracle)(nil)
	_ assessment.AlternativeGenerator = (*Oracle)(nil)
)

// New creates an oracle over the given provider. An empty model uses the
// provider's default.
func New(provider llm.Provider, model string, catalog *traits.Catalog, logger *zap.Logger) *Oracle {
	if catalog == nil {
		catalog = traits.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{provider: provider, model: model, catalog: catalog, logger: logger}
}

// AnalyzeAnswer scores answer against every catalog trait in a single call.
func (o *Oracle) AnalyzeAnswer(ctx context.Context, scenario, answer string) (*analysis.OracleResponse, error) {
	content, err := o.complete(ctx, "analyze", analysisSystemPrompt, buildAnalysisPrompt(o.catalog, scenario, answer), scoringTemperature, 1024, true)
	if err != nil {
		return nil, err
	}
	return parseAnalysisResponse(content)
}

// GenerateAlternativeResponse writes a short first-person answer to scenario
// that strongly expresses traitCode.
func (o *Oracle) GenerateAlternativeResponse(ctx context.Context, scenario, traitCode, roleHint string) (string, error) {
	trait, ok := o.catalog.Lookup(traitCode)
	if !ok {
		return "", fmt.Errorf("unknown trait code %q", traitCode)
	}
	content, err := o.complete(ctx, "alternative", alternativeSystemPrompt, buildAlternativePrompt(trait, scenario, roleHint), generationTemperature, 300, false)
	if err != nil {
		return "", err
	}
	text := cleanText(content)
	if text == "" {
		return "", fmt.Errorf("empty alternative response")
	}
	return text, nil
}

// GenerateScenario writes a new situation for the requested context.
func (o *Oracle) GenerateScenario(ctx context.Context, req assessment.ScenarioRequest) (string, error) {
	content, err := o.complete(ctx, "scenario", scenarioSystemPrompt, buildScenarioPrompt(o.catalog, req), generationTemperature, 600, false)
	if err != nil {
		return "", err
	}
	text := cleanText(content)
	if text == "" {
		return "", fmt.Errorf("empty scenario")
	}
	return text, nil
}

func (o *Oracle) complete(ctx context.Context, op, system, prompt string, temperature float64, maxTokens int, jsonMode bool) (string, error) {
	resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
		Model: o.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		JSONMode:    jsonMode,
	})
	if err != nil {
		return "", fmt.Errorf("LLM completion (%s): %w", op, err)
	}

	o.logger.Debug("oracle call",
		zap.String("op", op),
		zap.String("provider", o.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Float64("cost_usd", resp.EstimatedCost()),
	)
	return resp.Content, nil
}

// cleanText strips whitespace and the quotes models like to wrap short
// answers in.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"') {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
