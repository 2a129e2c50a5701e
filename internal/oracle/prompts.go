package oracle

import (
	"fmt"
	"strings"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

const analysisSystemPrompt = `You are a sports psychologist assessing football players. You read a game situation and the player's answer and rate how strongly the answer expresses each behavioral archetype.

You MUST respond with valid JSON matching this schema:
{
  "scores": {"<archetype code>": <number from 0 to 10>},
  "is_relevant": true,
  "reason": "why the answer is not relevant (only when is_relevant is false)",
  "commentary": "one or two sentences about the player's behavior"
}

Rules:
- Give a score for every archetype code listed, even when the evidence is weak.
- 0 means no sign of the archetype, 10 means it dominates the answer.
- Set is_relevant to false when the answer does not address the situation: off-topic text, nonsense, jokes, or an empty reply.
- Do not include anything outside the JSON object.`

const alternativeSystemPrompt = `You write short first-person answers a football player might give to a game situation. Each answer must clearly show one behavioral archetype. Write two to four sentences in plain speech. No preamble, no quotes, no labels.`

const scenarioSystemPrompt = `You write realistic game situations for a psychological assessment of football players. A situation is a short second-person description (three to six sentences) of a moment on or off the pitch that forces the player to choose how to act. End with the question "What do you do?". Do not suggest possible answers and do not name any archetype.`

func buildAnalysisPrompt(catalog *traits.Catalog, scenario, answer string) string {
	var b strings.Builder
	b.WriteString("## Archetypes\n")
	b.WriteString(catalog.Describe())
	fmt.Fprintf(&b, "\n## Situation\n%s\n", scenario)
	fmt.Fprintf(&b, "\n## Player's answer\n%s\n", answer)
	return b.String()
}

func buildAlternativePrompt(trait traits.Trait, scenario, roleHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Situation\n%s\n", scenario)
	fmt.Fprintf(&b, "\n## Archetype to express\n%s (%s): %s\n", trait.Name, trait.Code, trait.Description)
	if roleHint != "" {
		fmt.Fprintf(&b, "\nThe player is a %s; answer from that position.\n", roleHint)
	}
	b.WriteString("\nWrite the player's answer.\n")
	return b.String()
}

func buildScenarioPrompt(catalog *traits.Catalog, req assessment.ScenarioRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Context type\n%s\n", req.ContextType)
	if req.RoleHint != "" {
		fmt.Fprintf(&b, "\n## Player position\n%s\n", req.RoleHint)
	}

	if len(req.PriorScenarios) > 0 {
		b.WriteString("\n## Situations already shown (write something clearly different)\n")
		for i, s := range req.PriorScenarios {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}

	if len(req.PendingTraitHints) > 0 {
		b.WriteString("\n## Give the player room to show these archetypes\n")
		for _, code := range req.PendingTraitHints {
			if t, ok := catalog.Lookup(code); ok {
				fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
			}
		}
	}

	if req.Language != "" {
		fmt.Fprintf(&b, "\nWrite the situation in the language with tag %q.\n", req.Language)
	}
	return b.String()
}
