package assessment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/analysis"
)

// startClarifying returns a session whose pending queue is
// [executor, diplomat, warrior, individualist, avoider].
func startClarifying(t *testing.T, env *testEnv) string {
	t.Helper()
	ctx := context.Background()
	env.oracle.set(organizeAnswer, leaderProfile())
	sess, err := env.engine.CreateSession(ctx, 42, "en")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := env.engine.GetCurrentScenario(ctx, sess.ID); err != nil {
		t.Fatalf("GetCurrentScenario: %v", err)
	}
	if _, err := env.engine.SubmitMainAnswer(ctx, sess.ID, organizeAnswer); err != nil {
		t.Fatalf("SubmitMainAnswer: %v", err)
	}
	return sess.ID
}

func TestNextClarificationPrompt(t *testing.T) {
	env := setupTestEngine(t, Options{DominantCount: 2})
	id := startClarifying(t, env)

	prompt, err := env.engine.NextClarification(context.Background(), id)
	if err != nil {
		t.Fatalf("NextClarification: %v", err)
	}
	if prompt.TraitCode != "executor" || prompt.TraitName == "" {
		t.Errorf("unexpected prompt target: %+v", prompt)
	}
	if !strings.Contains(prompt.Prompt, prompt.Alternative) {
		t.Errorf("prompt does not show the alternative: %q", prompt.Prompt)
	}

	// Asking again does not consume the queue.
	again, _ := env.engine.NextClarification(context.Background(), id)
	if again.TraitCode != "executor" {
		t.Errorf("second prompt targets %s", again.TraitCode)
	}
}

func TestNextClarificationNothingPending(t *testing.T) {
	env := setupTestEngine(t, Options{DominantCount: 7})
	ctx := context.Background()
	sess, _ := env.engine.CreateSession(ctx, 42, "en")
	env.engine.GetCurrentScenario(ctx, sess.ID)
	env.engine.SubmitMainAnswer(ctx, sess.ID, "answer")

	prompt, err := env.engine.NextClarification(ctx, sess.ID)
	if err != nil {
		t.Fatalf("NextClarification: %v", err)
	}
	if prompt != nil {
		t.Errorf("expected nil prompt, got %+v", prompt)
	}
}

func TestNextClarificationGenerationFailure(t *testing.T) {
	env := setupTestEngine(t, Options{DominantCount: 2})
	id := startClarifying(t, env)
	env.alternatives.err = errors.New("model overloaded")

	_, err := env.engine.NextClarification(context.Background(), id)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	cur, _ := env.engine.GetSession(context.Background(), id)
	if len(cur.PendingTraits) != 5 {
		t.Errorf("queue changed on failure: %v", cur.PendingTraits)
	}
}

func TestClarificationUnknownTrait(t *testing.T) {
	env := setupTestEngine(t, Options{DominantCount: 2})
	id := startClarifying(t, env)

	_, err := env.engine.SubmitClarificationAnswer(context.Background(), id, ClarificationInput{TraitCode: "goalkeeper", Text: "x"})
	if !errors.Is(err, ErrUnknownTraitCode) {
		t.Fatalf("expected ErrUnknownTraitCode, got %v", err)
	}
}

func TestClarificationOutOfOrder(t *testing.T) {
	env := setupTestEngine(t, Options{DominantCount: 2})
	id := startClarifying(t, env)

	_, err := env.engine.SubmitClarificationAnswer(context.Background(), id, ClarificationInput{TraitCode: "avoider", Text: "x"})
	if !errors.Is(err, ErrSessionInvalidPhase) {
		t.Fatalf("expected ErrSessionInvalidPhase, got %v", err)
	}
}

func TestClarificationOutsideLoop(t *testing.T) {
	env := setupTestEngine(t, Options{})
	ctx := context.Background()
	sess, _ := env.engine.CreateSession(ctx, 42, "en")
	env.engine.GetCurrentScenario(ctx, sess.ID)

	_, err := env.engine.SubmitClarificationAnswer(ctx, sess.ID, ClarificationInput{TraitCode: "leader", Text: "x"})
	if !errors.Is(err, ErrSessionInvalidPhase) {
		t.Fatalf("expected ErrSessionInvalidPhase, got %v", err)
	}
}

func TestIrrelevantClarificationSkipsTrait(t *testing.T) {
	env := setupTestEngine(t, Options{DominantCount: 2})
	id := startClarifying(t, env)
	ctx := context.Background()
	env.oracle.set("banana", &analysis.OracleResponse{IsRelevant: false, Reason: "nonsense"})

	out, err := env.engine.SubmitClarificationAnswer(ctx, id, ClarificationInput{TraitCode: "executor", Text: "banana"})
	if err != nil {
		t.Fatalf("SubmitClarificationAnswer: %v", err)
	}
	if out.Accepted {
		t.Error("expected irrelevant reaction to be rejected")
	}
	if diff := cmp.Diff([]string{"diplomat", "warrior", "individualist", "avoider"}, out.Pending); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}

	answers, _ := env.store.ListAnswers(ctx, id)
	if len(answers) != 1 {
		t.Errorf("expected only the main answer, got %d", len(answers))
	}
	cur, _ := env.engine.GetSession(ctx, id)
	if cur.HintTraits[0] != "executor" {
		t.Errorf("skipped trait should stay in hints: %v", cur.HintTraits)
	}
}

func TestClarificationUpdatesHints(t *testing.T) {
	env := setupTestEngine(t, Options{DominantCount: 2})
	id := startClarifying(t, env)
	ctx := context.Background()

	env.oracle.set("strong executor", &analysis.OracleResponse{IsRelevant: true, Scores: scores(map[string]float64{
		"leader": 4, "warrior": 4, "strategist": 4, "diplomat": 4,
		"executor": 8, "individualist": 4, "avoider": 4,
	})})
	env.oracle.set("weak diplomat", &analysis.OracleResponse{IsRelevant: true, Scores: flat(2)})

	if _, err := env.engine.SubmitClarificationAnswer(ctx, id, ClarificationInput{TraitCode: "executor", Text: "strong executor"}); err != nil {
		t.Fatalf("executor round: %v", err)
	}
	if _, err := env.engine.SubmitClarificationAnswer(ctx, id, ClarificationInput{TraitCode: "diplomat", Text: "weak diplomat"}); err != nil {
		t.Fatalf("diplomat round: %v", err)
	}

	cur, _ := env.engine.GetSession(ctx, id)
	wantHints := []string{"diplomat", "warrior", "individualist", "avoider"}
	if diff := cmp.Diff(wantHints, cur.HintTraits); diff != "" {
		t.Errorf("hints mismatch (-want +got):\n%s", diff)
	}

	answers, _ := env.store.ListAnswers(ctx, id)
	if len(answers) != 3 {
		t.Fatalf("expected 3 answers, got %d", len(answers))
	}
	clar := answers[1]
	if clar.Type != AnswerClarification || clar.TargetTrait != "executor" {
		t.Errorf("unexpected clarification answer: %+v", clar)
	}
	if len(clar.Scores) != 7 {
		t.Errorf("clarification should carry all trait scores, got %v", clar.Scores)
	}
}

func TestClarificationCoverage(t *testing.T) {
	env := setupTestEngine(t, Options{DominantCount: 2})
	id := startClarifying(t, env)
	ctx := context.Background()
	env.oracle.set("off topic", &analysis.OracleResponse{IsRelevant: false})

	initial := []string{"executor", "diplomat", "warrior", "individualist", "avoider"}
	for _, code := range initial {
		text := "I would keep my focus"
		if code == "warrior" {
			text = "off topic"
		}
		if _, err := env.engine.SubmitClarificationAnswer(ctx, id, ClarificationInput{TraitCode: code, Text: text}); err != nil {
			t.Fatalf("%s: %v", code, err)
		}
	}

	cur, _ := env.engine.GetSession(ctx, id)
	if len(cur.PendingTraits) != 0 {
		t.Fatalf("pending not drained: %v", cur.PendingTraits)
	}
	if cur.Status != StatusInProgress || cur.Phase != PhaseSituation {
		t.Errorf("after loop: status=%s phase=%s", cur.Status, cur.Phase)
	}

	answers, _ := env.store.ListAnswers(ctx, id)
	targeted := map[string]bool{}
	for _, a := range answers {
		if a.Type == AnswerClarification {
			targeted[a.TargetTrait] = true
		}
	}
	for _, code := range initial {
		if want := code != "warrior"; targeted[code] != want {
			t.Errorf("%s: has clarification answer = %v, want %v", code, targeted[code], want)
		}
	}
}
