package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/analysis"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/db"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/players"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubScenarios struct {
	mu sync.Mutex
	n  int
}

func (s *stubScenarios) GenerateScenario(ctx context.Context, req assessment.ScenarioRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("Situation %d (%s): the referee ignores a clear foul on you.", s.n, req.ContextType), nil
}

type stubAlternatives struct{}

func (stubAlternatives) GenerateAlternativeResponse(ctx context.Context, scenario, traitCode, roleHint string) (string, error) {
	return "As a " + roleHint + " I would respond like a " + traitCode + ".", nil
}

// stubOracle scores everything five, except "pizza" which is off-topic.
type stubOracle struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (o *stubOracle) AnalyzeAnswer(ctx context.Context, scenario, answer string) (*analysis.OracleResponse, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	if answer == "pizza" {
		return &analysis.OracleResponse{IsRelevant: false, Reason: "off-topic"}, nil
	}
	scores := map[string]*float64{}
	for _, code := range traits.Default().Codes() {
		v := 5.0
		scores[code] = &v
	}
	return &analysis.OracleResponse{IsRelevant: true, Scores: scores}, nil
}

func (o *stubOracle) setErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

func (o *stubOracle) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type testEnv struct {
	proc   *Processor
	engine *assessment.Engine
	oracle *stubOracle
	player int64
}

// setupTestProcessor runs two situations with two clarifications each.
func setupTestProcessor(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	roster := players.NewStore(database)
	p, err := roster.Create(context.Background(), players.Player{Name: "Jordan Reyes", Position: "defender"})
	if err != nil {
		t.Fatalf("creating player: %v", err)
	}

	oracle := &stubOracle{}
	engine := assessment.NewEngine(
		assessment.NewStore(database),
		roster,
		&stubScenarios{},
		stubAlternatives{},
		analysis.NewAnalyzer(oracle, nil, nil),
		assessment.Options{MaxSituations: 2, DominantCount: 5},
		nil,
	)
	return &testEnv{proc: NewProcessor(engine, nil), engine: engine, oracle: oracle, player: p.ID}
}

func (env *testEnv) send(t *testing.T, cmd Command, text string) *OutgoingMessage {
	t.Helper()
	out, err := env.proc.HandleMessage(context.Background(), IncomingMessage{PlayerID: env.player, Command: cmd, Text: text})
	if err != nil {
		t.Fatalf("HandleMessage(%s, %q): %v", cmd, text, err)
	}
	return out
}

func TestFullConversation(t *testing.T) {
	env := setupTestProcessor(t)

	out := env.send(t, CommandStart, "")
	if out.Type != ReplySituation || !strings.Contains(out.Content, "Situation 1") {
		t.Fatalf("start: unexpected reply %+v", out)
	}
	sessionID := out.SessionID

	want := []ReplyType{
		ReplyClarification, // individualist
		ReplyClarification, // avoider
		ReplySituation,
		ReplyClarification,
		ReplyClarification,
		ReplyResults,
	}
	for i, typ := range want {
		out = env.send(t, CommandAnswer, fmt.Sprintf("I would keep calm, answer %d", i))
		if out.Type != typ {
			t.Fatalf("step %d: expected %s, got %s: %s", i, typ, out.Type, out.Content)
		}
		if out.SessionID != sessionID {
			t.Fatalf("step %d: session changed to %s", i, out.SessionID)
		}
	}

	if len(out.Results) != 7 {
		t.Errorf("expected 7 results, got %d", len(out.Results))
	}
	if !strings.Contains(out.Content, "Leader: 5.0 (moderate)") {
		t.Errorf("summary missing leader line:\n%s", out.Content)
	}
	if env.oracle.count() != 6 {
		t.Errorf("expected 6 analyses, got %d", env.oracle.count())
	}

	sess, err := env.engine.GetSession(context.Background(), sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != assessment.StatusCompleted {
		t.Errorf("expected completed, got %s", sess.Status)
	}

	if out := env.send(t, CommandAnswer, "one more thing"); out.Type != ReplyError || out.Content != noSessionText {
		t.Errorf("answer after completion: unexpected reply %+v", out)
	}
}

func TestClarificationShowsAlternative(t *testing.T) {
	env := setupTestProcessor(t)
	env.send(t, CommandStart, "")

	out := env.send(t, CommandAnswer, "I would talk to the referee")
	if out.Type != ReplyClarification {
		t.Fatalf("expected clarification, got %+v", out)
	}
	if !strings.Contains(out.Content, "As a defender I would respond like a individualist.") {
		t.Errorf("alternative not shown: %s", out.Content)
	}
	if out.Phase != assessment.PhaseClarification {
		t.Errorf("expected clarification phase, got %q", out.Phase)
	}
}

func TestStartResumesActiveSession(t *testing.T) {
	env := setupTestProcessor(t)
	first := env.send(t, CommandStart, "")
	second := env.send(t, CommandStart, "")

	if first.SessionID != second.SessionID {
		t.Errorf("expected the same session, got %s and %s", first.SessionID, second.SessionID)
	}
	if first.Content != second.Content {
		t.Errorf("expected the same situation, got %q and %q", first.Content, second.Content)
	}
}

func TestIrrelevantAnswerRepeatsSituation(t *testing.T) {
	env := setupTestProcessor(t)
	start := env.send(t, CommandStart, "")

	out := env.send(t, CommandAnswer, "pizza")
	if out.Type != ReplySituation {
		t.Fatalf("expected situation, got %+v", out)
	}
	if !strings.HasPrefix(out.Content, irrelevantText) || !strings.Contains(out.Content, start.Content) {
		t.Errorf("unexpected content: %s", out.Content)
	}
	if out.Phase != assessment.PhaseWaitingAnswer {
		t.Errorf("expected waiting_answer, got %q", out.Phase)
	}

	if out := env.send(t, CommandAnswer, "I would stay focused"); out.Type != ReplyClarification {
		t.Errorf("expected clarification after a relevant answer, got %+v", out)
	}
}

func TestTransientFailureAsksForRetry(t *testing.T) {
	env := setupTestProcessor(t)
	env.send(t, CommandStart, "")

	env.oracle.setErr(errors.New("upstream timeout"))
	out := env.send(t, CommandAnswer, "I would stay focused")
	if out.Type != ReplyRetry {
		t.Fatalf("expected retry, got %+v", out)
	}

	env.oracle.setErr(nil)
	if out := env.send(t, CommandAnswer, "I would stay focused"); out.Type != ReplyClarification {
		t.Errorf("expected clarification on retry, got %+v", out)
	}
}

func TestRestartedProcessorResynchronizes(t *testing.T) {
	env := setupTestProcessor(t)
	env.send(t, CommandStart, "")
	env.send(t, CommandAnswer, "I would talk to the referee")
	before := env.oracle.count()

	// A fresh processor has no record of the alternative already shown.
	env.proc = NewProcessor(env.engine, nil)
	out := env.send(t, CommandAnswer, "I agree with them")
	if out.Type != ReplyClarification {
		t.Fatalf("expected the clarification again, got %+v", out)
	}
	if env.oracle.count() != before {
		t.Error("reaction to an unseen alternative should not be analyzed")
	}

	if out := env.send(t, CommandAnswer, "I agree with them"); out.Type != ReplyClarification {
		t.Errorf("expected the next clarification, got %+v", out)
	}
	if env.oracle.count() != before+1 {
		t.Errorf("expected one more analysis, got %d", env.oracle.count()-before)
	}
}

func TestAnswerWithoutSession(t *testing.T) {
	env := setupTestProcessor(t)
	out := env.send(t, CommandAnswer, "hello")
	if out.Type != ReplyError || out.Content != noSessionText {
		t.Errorf("unexpected reply %+v", out)
	}
}

func TestEmptyAnswer(t *testing.T) {
	env := setupTestProcessor(t)
	env.send(t, CommandStart, "")
	out := env.send(t, CommandAnswer, "   ")
	if out.Type != ReplyError || out.Content != emptyText {
		t.Errorf("unexpected reply %+v", out)
	}
	if env.oracle.count() != 0 {
		t.Error("empty answer should not be analyzed")
	}
}

func TestUnknownPlayer(t *testing.T) {
	env := setupTestProcessor(t)
	env.player = 999
	out := env.send(t, CommandStart, "")
	if out.Type != ReplyError || !strings.Contains(out.Content, "999") {
		t.Errorf("unexpected reply %+v", out)
	}
}

func TestAbandonAndStatus(t *testing.T) {
	env := setupTestProcessor(t)
	if out := env.send(t, CommandStatus, ""); out.Content != "No assessment in progress." {
		t.Errorf("status without session: %+v", out)
	}

	start := env.send(t, CommandStart, "")
	out := env.send(t, CommandStatus, "")
	if out.Type != ReplyStatus || out.Progress == nil || out.Progress.Max != 2 {
		t.Fatalf("unexpected status %+v", out)
	}

	out = env.send(t, CommandAbandon, "")
	if out.SessionID != start.SessionID {
		t.Errorf("abandoned %s, expected %s", out.SessionID, start.SessionID)
	}
	if out := env.send(t, CommandAnswer, "still here"); out.Content != noSessionText {
		t.Errorf("answer after abandon: %+v", out)
	}

	if out := env.send(t, CommandStart, ""); out.SessionID == start.SessionID {
		t.Error("start after abandon should create a new session")
	}
}

func TestUnknownCommand(t *testing.T) {
	env := setupTestProcessor(t)
	if out := env.send(t, Command("dance"), ""); out.Type != ReplyError {
		t.Errorf("unexpected reply %+v", out)
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(nil, []assessment.SessionResult{
		{TraitCode: "leader", FinalScore: 8.5, Strength: traits.StrengthDominant},
		{TraitCode: "mystery", FinalScore: 1, Strength: traits.StrengthAbsent},
	})
	want := "Assessment complete. Your profile:\n- Leader: 8.5 (dominant)\n- mystery: 1.0 (absent)"
	if got != want {
		t.Errorf("Summarize:\n got %q\nwant %q", got, want)
	}
}
