package config

import "path/filepath"

// DefaultConfigFile is where init writes and every command reads by default.
const DefaultConfigFile = ".assessment.yml"

// qualityPresets maps each provider and tier to a chat model.
var qualityPresets = map[ProviderType]map[QualityTier]string{
	ProviderAnthropic: {
		QualityLite:   "claude-haiku-4-5-20251001",
		QualityNormal: "claude-sonnet-4-5-20250929",
		QualityMax:    "claude-opus-4-6",
	},
	ProviderOpenAI: {
		QualityLite:   "gpt-4o-mini",
		QualityNormal: "gpt-4o",
		QualityMax:    "gpt-4.1",
	},
	ProviderGoogle: {
		QualityLite:   "gemini-2.5-flash",
		QualityNormal: "gemini-2.5-pro",
		QualityMax:    "gemini-2.5-pro",
	},
	ProviderOllama: {
		QualityLite:   "llama3",
		QualityNormal: "llama3",
		QualityMax:    "llama3:70b",
	},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:           ProviderOpenAI,
		Model:              "gpt-4o",
		Quality:            QualityNormal,
		DataDir:            "data",
		Language:           "en",
		LogLevel:           "info",
		TranscriptionModel: "whisper-1",
		Assessment: AssessmentConfig{
			MinSituations: 3,
			MaxSituations: 5,
			DominantCount: 2,
		},
		Timeouts: TimeoutConfig{
			OracleSeconds:        60,
			ScenarioSeconds:      60,
			TranscriptionSeconds: 30,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// ModelFor returns the chat model for the given provider and tier.
// Returns the normal OpenAI model if the combination is not found.
func ModelFor(provider ProviderType, tier QualityTier) string {
	if tiers, ok := qualityPresets[provider]; ok {
		if model, ok := tiers[tier]; ok {
			return model
		}
	}
	return qualityPresets[ProviderOpenAI][QualityNormal]
}

// DatabasePath is the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "assessment.db")
}
