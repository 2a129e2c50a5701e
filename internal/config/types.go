package config

// QualityTier controls model selection, trading speed and cost for quality.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level configuration, corresponding to .assessment.yml.
type Config struct {
	Provider           ProviderType     `yaml:"provider" koanf:"provider"`
	Model              string           `yaml:"model" koanf:"model"`
	Quality            QualityTier      `yaml:"quality" koanf:"quality"`
	DataDir            string           `yaml:"data_dir" koanf:"data_dir"`
	Language           string           `yaml:"language" koanf:"language"`
	LogLevel           string           `yaml:"log_level" koanf:"log_level"`
	RateLimitRPM       int              `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	TranscriptionModel string           `yaml:"transcription_model" koanf:"transcription_model"`
	Assessment         AssessmentConfig `yaml:"assessment" koanf:"assessment"`
	Timeouts           TimeoutConfig    `yaml:"timeouts" koanf:"timeouts"`
	Server             ServerConfig     `yaml:"server" koanf:"server"`
}

// AssessmentConfig shapes each session. MinSituations is advisory.
type AssessmentConfig struct {
	MinSituations int `yaml:"min_situations" koanf:"min_situations"`
	MaxSituations int `yaml:"max_situations" koanf:"max_situations"`
	DominantCount int `yaml:"dominant_count" koanf:"dominant_count"`
}

// TimeoutConfig bounds calls to the reasoning backend and to transcription.
type TimeoutConfig struct {
	OracleSeconds        int `yaml:"oracle_seconds" koanf:"oracle_seconds"`
	ScenarioSeconds      int `yaml:"scenario_seconds" koanf:"scenario_seconds"`
	TranscriptionSeconds int `yaml:"transcription_seconds" koanf:"transcription_seconds"`
}

// ServerConfig holds settings for the server command.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
