package assessment

import "context"

// SubjectDirectory resolves players. LookupSubject returns nil, nil when the
// player does not exist.
type SubjectDirectory interface {
	LookupSubject(ctx context.Context, id int64) (*Subject, error)
}

// ScenarioProvider writes new situation text.
type ScenarioProvider interface {
	GenerateScenario(ctx context.Context, req ScenarioRequest) (string, error)
}

// AlternativeGenerator writes a short first-person answer that strongly
// expresses one trait, used to elicit a reaction during clarification.
type AlternativeGenerator interface {
	GenerateAlternativeResponse(ctx context.Context, scenario, traitCode, roleHint string) (string, error)
}
