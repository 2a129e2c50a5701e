package assessment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/analysis"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/db"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

type fakeDirectory struct {
	subjects map[int64]*Subject
}

func (d *fakeDirectory) LookupSubject(ctx context.Context, id int64) (*Subject, error) {
	return d.subjects[id], nil
}

type fakeScenarios struct {
	mu       sync.Mutex
	requests []ScenarioRequest
	err      error
	// before runs inside GenerateScenario, standing in for a slow provider.
	before func()
	// stall makes the provider wait until its context ends.
	stall bool
}

func (f *fakeScenarios) GenerateScenario(ctx context.Context, req ScenarioRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	before, err, stall := f.before, f.err, f.stall
	f.mu.Unlock()

	if before != nil {
		before()
	}
	if stall {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Situation %d: a %s moment in the last minute of the match.", n, req.ContextType), nil
}

func (f *fakeScenarios) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeScenarios) last() ScenarioRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeAlternatives struct {
	err   error
	stall bool
}

func (f *fakeAlternatives) GenerateAlternativeResponse(ctx context.Context, scenario, traitCode, roleHint string) (string, error) {
	if f.stall {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return "I would act like a true " + traitCode + ".", nil
}

// fakeOracle answers by exact answer text; anything unknown is relevant
// with a flat profile of fives.
type fakeOracle struct {
	mu        sync.Mutex
	responses map[string]*analysis.OracleResponse
	err       error
	stall     bool
	calls     int
}

func (f *fakeOracle) AnalyzeAnswer(ctx context.Context, scenario, answer string) (*analysis.OracleResponse, error) {
	f.mu.Lock()
	f.calls++
	stall := f.stall
	f.mu.Unlock()
	if stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.responses[answer]; ok {
		return resp, nil
	}
	return &analysis.OracleResponse{IsRelevant: true, Scores: flat(5)}, nil
}

func (f *fakeOracle) setStall(stall bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stall = stall
}

func (f *fakeOracle) set(answer string, resp *analysis.OracleResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.responses == nil {
		f.responses = map[string]*analysis.OracleResponse{}
	}
	f.responses[answer] = resp
}

func scores(vals map[string]float64) map[string]*float64 {
	out := make(map[string]*float64, len(vals))
	for k, v := range vals {
		v := v
		out[k] = &v
	}
	return out
}

func flat(v float64) map[string]*float64 {
	vals := map[string]float64{}
	for _, code := range traits.Default().Codes() {
		vals[code] = v
	}
	return scores(vals)
}

type testEnv struct {
	engine       *Engine
	store        *Store
	database     *db.DB
	scenarios    *fakeScenarios
	alternatives *fakeAlternatives
	oracle       *fakeOracle
}

func setupTestStore(t *testing.T) (*Store, *db.DB) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database), database
}

func insertPlayer(t *testing.T, database *db.DB, id int64, name, position string) {
	t.Helper()
	if _, err := database.Exec(`INSERT INTO players (id, name, position) VALUES (?, ?, ?)`, id, name, position); err != nil {
		t.Fatalf("inserting player: %v", err)
	}
}

func setupTestEngine(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store, database := setupTestStore(t)
	insertPlayer(t, database, 42, "Alex Morgan", "midfielder")
	insertPlayer(t, database, 7, "Sam Kerr", "forward")

	dir := &fakeDirectory{subjects: map[int64]*Subject{
		42: {ID: 42, Name: "Alex Morgan", RoleHint: "midfielder"},
		7:  {ID: 7, Name: "Sam Kerr", RoleHint: "forward"},
	}}
	env := &testEnv{
		store:        store,
		database:     database,
		scenarios:    &fakeScenarios{},
		alternatives: &fakeAlternatives{},
		oracle:       &fakeOracle{},
	}

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	opts.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	analyzer := analysis.NewAnalyzer(env.oracle, traits.Default(), nil)
	env.engine = NewEngine(store, dir, env.scenarios, env.alternatives, analyzer, opts, nil)
	return env
}
