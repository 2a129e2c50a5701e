package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/analysis"
)

type analysisPayload struct {
	Scores     map[string]*float64 `json:"scores"`
	IsRelevant *bool               `json:"is_relevant"`
	Reason     string              `json:"reason"`
	Commentary string              `json:"commentary"`
}

// parseAnalysisResponse extracts the scoring JSON, which may be wrapped in a
// markdown code block. A payload without a scores object is malformed.
func parseAnalysisResponse(content string) (*analysis.OracleResponse, error) {
	jsonStr := content
	if idx := strings.Index(jsonStr, "{"); idx >= 0 {
		jsonStr = jsonStr[idx:]
	}
	if idx := strings.LastIndex(jsonStr, "}"); idx >= 0 {
		jsonStr = jsonStr[:idx+1]
	}

	var p analysisPayload
	if err := json.Unmarshal([]byte(jsonStr), &p); err != nil {
		return nil, fmt.Errorf("malformed analysis response: %w", err)
	}
	if p.Scores == nil && (p.IsRelevant == nil || *p.IsRelevant) {
		return nil, fmt.Errorf("malformed analysis response: no scores")
	}

	relevant := true
	if p.IsRelevant != nil {
		relevant = *p.IsRelevant
	}
	return &analysis.OracleResponse{
		Scores:     p.Scores,
		IsRelevant: relevant,
		Reason:     p.Reason,
		Commentary: p.Commentary,
	}, nil
}
