package cmd

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/analysis"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/chat"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/config"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/db"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/llm"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/logging"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/oracle"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/players"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

// app holds the dependencies a command needs. engine and transcriber are
// only set when the command asked for the reasoning backend.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	db          *db.DB
	players     *players.Store
	sessions    *assessment.Store
	engine      *assessment.Engine
	transcriber chat.Transcriber
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `footballer init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openApp loads config, opens the database and, when withEngine is set,
// builds the assessment engine on the configured provider.
func openApp(ctx context.Context, withEngine bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		players:  players.NewStore(database),
		sessions: assessment.NewStore(database),
	}
	if !withEngine {
		return a, nil
	}

	provider, err := llm.NewProvider(ctx, string(cfg.Provider), cfg.Model)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	a.transcriber = newTranscriber(provider, cfg)
	provider = llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM)

	catalog := traits.Default()
	orc := oracle.New(provider, cfg.Model, catalog, logger)
	analyzer := analysis.NewAnalyzer(orc, catalog, logger)
	a.engine = assessment.NewEngine(a.sessions, a.players, orc, orc, analyzer, engineOptions(cfg), logger)
	return a, nil
}

// newTranscriber reuses the OpenAI client when that is the chat provider,
// and otherwise needs OPENAI_API_KEY. Voice answers are disabled without one.
func newTranscriber(provider llm.Provider, cfg *config.Config) chat.Transcriber {
	if p, ok := provider.(*llm.OpenAIProvider); ok {
		return oracle.NewTranscriber(p.Client(), cfg.TranscriptionModel)
	}
	if key := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI)); key != "" {
		return oracle.NewTranscriber(openai.NewClient(key), cfg.TranscriptionModel)
	}
	return nil
}

func engineOptions(cfg *config.Config) assessment.Options {
	return assessment.Options{
		MinSituations:   cfg.Assessment.MinSituations,
		MaxSituations:   cfg.Assessment.MaxSituations,
		DominantCount:   cfg.Assessment.DominantCount,
		ScenarioTimeout: cfg.ScenarioTimeout(),
		OracleTimeout:   cfg.OracleTimeout(),
		DefaultLanguage: cfg.Language,
	}
}

// Close releases the database and flushes the logger.
func (a *app) Close() {
	a.db.Close()
	_ = a.logger.Sync()
}
