package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// CLI is the configuration of atactl. It only carries what a local run of
// the processing pipeline and the database tooling need.
type CLI struct {
	DatabaseURL       string
	MigrationsDir     string
	LLMProvider       string
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModel          string
	TranscribeAPIKey  string
	TranscribeBaseURL string
	TranscribeModel   string
}

type cliFile struct {
	DatabaseURL   string `toml:"database_url"`
	MigrationsDir string `toml:"migrations_dir"`
	LLM           struct {
		Provider string `toml:"provider"`
		APIKey   string `toml:"api_key"`
		BaseURL  string `toml:"base_url"`
		Model    string `toml:"model"`
	} `toml:"llm"`
	Transcribe struct {
		APIKey  string `toml:"api_key"`
		BaseURL string `toml:"base_url"`
		Model   string `toml:"model"`
	} `toml:"transcribe"`
}

// LoadCLI reads path, or the default config file when path is empty, and then
// applies ATAS_* environment overrides. A missing default file is not an
// error; an explicit path that cannot be decoded is.
func LoadCLI(path string) (CLI, error) {
	cfg := CLI{
		MigrationsDir:   "./db/migrations",
		LLMProvider:     "simulated",
		TranscribeModel: "whisper-1",
	}

	explicit := path != ""
	if !explicit {
		path = cliFilePath()
	}
	if path != "" {
		var fc cliFile
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			if explicit {
				return CLI{}, err
			}
		} else {
			mergeCLIFile(&cfg, fc)
		}
	}

	applyCLIEnv(&cfg)
	return cfg, nil
}

func mergeCLIFile(cfg *CLI, fc cliFile) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.DatabaseURL, fc.DatabaseURL)
	set(&cfg.MigrationsDir, fc.MigrationsDir)
	set(&cfg.LLMProvider, fc.LLM.Provider)
	set(&cfg.LLMAPIKey, fc.LLM.APIKey)
	set(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	set(&cfg.LLMModel, fc.LLM.Model)
	set(&cfg.TranscribeAPIKey, fc.Transcribe.APIKey)
	set(&cfg.TranscribeBaseURL, fc.Transcribe.BaseURL)
	set(&cfg.TranscribeModel, fc.Transcribe.Model)
}

func applyCLIEnv(cfg *CLI) {
	overrides := map[string]*string{
		"ATAS_DATABASE_URL":        &cfg.DatabaseURL,
		"ATAS_MIGRATIONS_DIR":      &cfg.MigrationsDir,
		"ATAS_LLM_PROVIDER":        &cfg.LLMProvider,
		"ATAS_LLM_API_KEY":         &cfg.LLMAPIKey,
		"ATAS_LLM_BASE_URL":        &cfg.LLMBaseURL,
		"ATAS_LLM_MODEL":           &cfg.LLMModel,
		"ATAS_TRANSCRIBE_API_KEY":  &cfg.TranscribeAPIKey,
		"ATAS_TRANSCRIBE_BASE_URL": &cfg.TranscribeBaseURL,
		"ATAS_TRANSCRIBE_MODEL":    &cfg.TranscribeModel,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}

func cliFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "atas")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "atas")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
