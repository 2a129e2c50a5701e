package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the result
// to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome! Let's configure the player assessment.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "anthropic", "google", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Quality tier.
	qualityPrompt := promptui.Select{
		Label: "Select quality tier",
		Items: []string{
			"lite   (fast and cheap)",
			"normal (balanced)",
			"max    (highest quality)",
		},
		CursorPos: 1,
	}
	qualityIdx, _, err := qualityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quality selection: %w", err)
	}
	tiers := []QualityTier{QualityLite, QualityNormal, QualityMax}
	cfg.Quality = tiers[qualityIdx]
	cfg.Model = ModelFor(cfg.Provider, cfg.Quality)

	// 3. Language of generated situations.
	languagePrompt := promptui.Prompt{
		Label:   "Language for situations (ISO code)",
		Default: cfg.Language,
	}
	if cfg.Language, err = languagePrompt.Run(); err != nil {
		return nil, fmt.Errorf("language: %w", err)
	}

	// 4. Number of situations per session.
	maxPrompt := promptui.Prompt{
		Label:    "Situations per session",
		Default:  strconv.Itoa(cfg.Assessment.MaxSituations),
		Validate: validatePositiveInt,
	}
	maxStr, err := maxPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("situations per session: %w", err)
	}
	cfg.Assessment.MaxSituations, _ = strconv.Atoi(maxStr)
	cfg.Assessment.MinSituations = min(cfg.Assessment.MinSituations, cfg.Assessment.MaxSituations)

	// 5. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for the session database",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running a session.\n", envVar)
	}
	if cfg.Provider != ProviderOpenAI && os.Getenv(APIKeyEnvVar(ProviderOpenAI)) == "" {
		fmt.Printf("Note: Voice answers need %s for transcription.\n", APIKeyEnvVar(ProviderOpenAI))
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fmt.Errorf("enter a whole number of at least 1")
	}
	return nil
}
