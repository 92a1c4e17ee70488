package config

import (
	"errors"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultConfigPath         = "config.toml"
	DefaultEnvPath            = ".env"
	DefaultHTTPAddr           = ":3000"
	DefaultLMStudioURL        = "http://localhost:1234"
	DefaultLMStudioAPIKey     = "lm-studio"
	DefaultLMStudioListPath   = "/api/v0/models"
	DefaultLMStudioLoadPath   = "/api/v1/models/load"
	DefaultMaxAttachmentBytes = 10 * 1024 * 1024
	DefaultMaxAttachments     = 10
	DefaultEvaluationModel    = "google/gemma-3-12b"
	DefaultMinTranscriptChars = 100
)

type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	LMStudio   LMStudioConfig   `toml:"lmstudio"`
	Limits     LimitsConfig     `toml:"limits"`
	Evaluation EvaluationConfig `toml:"evaluation"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LMStudioConfig points at the local inference server. BaseURL is the server
// root; the OpenAI-compatible API lives under BaseURL + "/v1".
type LMStudioConfig struct {
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	ListPath string `toml:"list_path"`
	LoadPath string `toml:"load_path"`
}

// OpenAIBaseURL returns the OpenAI-compatible endpoint root.
func (c LMStudioConfig) OpenAIBaseURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/v1"
}

type LimitsConfig struct {
	MaxAttachmentBytes int64 `toml:"max_attachment_bytes"`
	MaxAttachments     int   `toml:"max_attachments"`
}

type EvaluationConfig struct {
	Model              string `toml:"model"`
	MinTranscriptChars int    `toml:"min_transcript_chars"`
	StructuredOutput   bool   `toml:"structured_output"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		LMStudio: LMStudioConfig{
			BaseURL:  DefaultLMStudioURL,
			APIKey:   DefaultLMStudioAPIKey,
			ListPath: DefaultLMStudioListPath,
			LoadPath: DefaultLMStudioLoadPath,
		},
		Limits: LimitsConfig{
			MaxAttachmentBytes: DefaultMaxAttachmentBytes,
			MaxAttachments:     DefaultMaxAttachments,
		},
		Evaluation: EvaluationConfig{
			Model:              DefaultEvaluationModel,
			MinTranscriptChars: DefaultMinTranscriptChars,
		},
	}
}

// Load reads the optional .env file, then the TOML file at path, then applies
// environment overrides. A missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	if err := godotenv.Load(DefaultEnvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	normalize(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LMSTUDIO_BASE_URL")); v != "" {
		cfg.LMStudio.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PROMPTDECK_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
}

func normalize(cfg *Config) {
	defaults := Default()
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if strings.TrimSpace(cfg.LMStudio.BaseURL) == "" {
		cfg.LMStudio.BaseURL = defaults.LMStudio.BaseURL
	}
	cfg.LMStudio.BaseURL = strings.TrimRight(cfg.LMStudio.BaseURL, "/")
	if strings.TrimSpace(cfg.LMStudio.ListPath) == "" {
		cfg.LMStudio.ListPath = defaults.LMStudio.ListPath
	}
	if strings.TrimSpace(cfg.LMStudio.LoadPath) == "" {
		cfg.LMStudio.LoadPath = defaults.LMStudio.LoadPath
	}
	if cfg.Limits.MaxAttachmentBytes <= 0 {
		cfg.Limits.MaxAttachmentBytes = defaults.Limits.MaxAttachmentBytes
	}
	if cfg.Limits.MaxAttachments <= 0 {
		cfg.Limits.MaxAttachments = defaults.Limits.MaxAttachments
	}
	if strings.TrimSpace(cfg.Evaluation.Model) == "" {
		cfg.Evaluation.Model = defaults.Evaluation.Model
	}
	if cfg.Evaluation.MinTranscriptChars <= 0 {
		cfg.Evaluation.MinTranscriptChars = defaults.Evaluation.MinTranscriptChars
	}
}
