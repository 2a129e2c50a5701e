package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/config"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/conversation"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/db"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/llm"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/players"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/server"
)

func TestAnswerMessage(t *testing.T) {
	tests := []struct {
		text string
		cmd  conversation.Command
	}{
		{"I would pass the ball", conversation.CommandAnswer},
		{" /STATUS ", conversation.CommandStatus},
		{"/abandon", conversation.CommandAbandon},
	}
	for _, tt := range tests {
		msg := answerMessage(9, tt.text)
		if msg.Command != tt.cmd || msg.PlayerID != 9 {
			t.Errorf("answerMessage(%q) = %+v", tt.text, msg)
		}
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Assessment.MaxSituations = 4
	cfg.Timeouts.OracleSeconds = 15
	cfg.Language = "pt"

	opts := engineOptions(cfg)
	if opts.MaxSituations != 4 || opts.MinSituations != 3 || opts.DominantCount != 2 {
		t.Errorf("unexpected counts: %+v", opts)
	}
	if opts.OracleTimeout != 15*time.Second || opts.ScenarioTimeout != 60*time.Second {
		t.Errorf("unexpected timeouts: %v, %v", opts.OracleTimeout, opts.ScenarioTimeout)
	}
	if opts.DefaultLanguage != "pt" {
		t.Errorf("unexpected language %q", opts.DefaultLanguage)
	}
}

func TestNewTranscriber(t *testing.T) {
	cfg := config.DefaultConfig()

	if newTranscriber(llm.NewOpenAIProvider("key", "gpt-4o"), cfg) == nil {
		t.Error("expected a transcriber sharing the OpenAI client")
	}

	t.Setenv("OPENAI_API_KEY", "")
	if tr := newTranscriber(llm.NewOllamaProvider("http://localhost:11434", "llama3"), cfg); tr != nil {
		t.Errorf("expected no transcriber without an OpenAI key, got %T", tr)
	}

	t.Setenv("OPENAI_API_KEY", "key")
	if newTranscriber(llm.NewOllamaProvider("http://localhost:11434", "llama3"), cfg) == nil {
		t.Error("expected a transcriber when OPENAI_API_KEY is set")
	}
}

func TestRegisterAllRoutes(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	roster := players.NewStore(database)
	sessions := assessment.NewStore(database)
	a := &app{
		cfg:      config.DefaultConfig(),
		logger:   zap.NewNop(),
		db:       database,
		players:  roster,
		sessions: sessions,
		engine:   assessment.NewEngine(sessions, roster, nil, nil, nil, engineOptions(config.DefaultConfig()), nil),
	}
	p, err := roster.Create(t.Context(), players.Player{Name: "Casey Lee", Position: "goalkeeper"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.engine.CreateSession(t.Context(), p.ID, ""); err != nil {
		t.Fatal(err)
	}

	srv := server.New(server.Config{}, database, nil)
	registerAllRoutes(srv, a)

	for path, want := range map[string]int{
		"/api/players":                  http.StatusOK,
		"/api/players/1":                http.StatusOK,
		"/api/players/1/active-session": http.StatusOK,
		"/api/players/1/sessions":       http.StatusOK,
		"/api/players/2/active-session": http.StatusNotFound,
		"/healthz":                      http.StatusOK,
	} {
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Errorf("GET %s: expected %d, got %d: %s", path, want, w.Code, w.Body.String())
		}
	}
}
