package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/manifoldco/promptui"

	"github.com/stixly/stixly/internal/embeddings"
	"github.com/stixly/stixly/internal/telegram"
)

func validateBaseURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an absolute http(s) URL")
	}
	return nil
}

// rawInitData accepts either init data itself or a launch URL carrying it.
func rawInitData(s string) string {
	if v := telegram.InitDataFromURL(s); v != "" {
		return v
	}
	return s
}

func validateInitData(s string) error {
	if s == "" {
		return nil
	}
	if _, err := telegram.ParseInitData(rawInitData(s)); err != nil {
		return fmt.Errorf("not valid init data: %v", err)
	}
	return nil
}

// RunWizard runs an interactive configuration wizard, saves the result
// to path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to stixly! Let's connect to your sticker gallery.")
	fmt.Println()

	cfg := DefaultConfig()
	if existing, err := Load(path); err == nil {
		cfg = existing
	}

	// 1. API base URL.
	basePrompt := promptui.Prompt{
		Label:    "Gallery API base URL",
		Default:  cfg.APIBaseURL,
		Validate: validateBaseURL,
	}
	baseURL, err := basePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	cfg.APIBaseURL = baseURL

	// 2. Init data. A full Mini App launch URL is accepted too.
	initPrompt := promptui.Prompt{
		Label:    "Telegram init data or launch URL (blank to skip)",
		Mask:     '*',
		Validate: validateInitData,
	}
	initData, err := initPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("init data: %w", err)
	}
	if initData != "" {
		cfg.InitData = rawInitData(initData)
	}

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for the local database and downloads",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 4. Embeddings for `stixly similar`.
	embedPrompt := promptui.Select{
		Label: "Embedding provider for similar sticker sets",
		Items: []string{"none", embeddings.ProviderOpenAI, embeddings.ProviderOllama},
	}
	_, provider, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	if provider == "none" {
		provider = ""
	}
	cfg.Embeddings.Provider = provider
	if provider == embeddings.ProviderOpenAI && os.Getenv("OPENAI_API_KEY") == "" {
		fmt.Println("\nNote: set OPENAI_API_KEY in your environment or .env before running stixly similar.")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
