package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Whisper struct {
		// Mode selects the transcriber implementation: "local" runs
		// python -m whisper as a subprocess, "api" posts to an
		// OpenAI-compatible /v1/audio/transcriptions endpoint.
		Mode    string `yaml:"mode"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"whisper"`

	LLM struct {
		Enabled bool   `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`

	TTS struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		Voice   string `yaml:"voice"`
	} `yaml:"tts"`

	Resolver struct {
		// AllowAudioFallback permits escalating to download+transcribe
		// when caption extraction fails for a remote source. Defaults
		// to true when omitted.
		AllowAudioFallback *bool `yaml:"allow_audio_fallback"`
	} `yaml:"resolver"`

	Workers struct {
		MaxConcurrent int `yaml:"max_concurrent"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes        int `yaml:"interval_minutes"`
		MaxAgeHours            int `yaml:"max_age_hours"`
		ProgressRetentionHours int `yaml:"progress_retention_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

// Load reads the YAML config file, expanding ${VAR} references from the
// environment. A .env file next to the process, if present, is loaded
// first so secrets never have to live in the YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Whisper.Mode == "" {
		c.Whisper.Mode = "local"
	}
	if c.Whisper.Model == "" {
		c.Whisper.Model = "small"
	}
	if c.Workers.MaxConcurrent <= 0 {
		c.Workers.MaxConcurrent = 4
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "outputs"
	}
	if c.Cleanup.IntervalMinutes <= 0 {
		c.Cleanup.IntervalMinutes = 30
	}
	if c.Cleanup.MaxAgeHours <= 0 {
		c.Cleanup.MaxAgeHours = 24
	}
	if c.Cleanup.ProgressRetentionHours <= 0 {
		c.Cleanup.ProgressRetentionHours = 48
	}
	if c.Limits.MaxFileSizeMB <= 0 {
		c.Limits.MaxFileSizeMB = 100
	}
	if c.TTS.Voice == "" {
		c.TTS.Voice = "alloy"
	}
	if c.TTS.Model == "" {
		c.TTS.Model = "tts-1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "llama3"
	}
	if c.Resolver.AllowAudioFallback == nil {
		t := true
		c.Resolver.AllowAudioFallback = &t
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Whisper.Mode {
	case "local", "api":
	default:
		return fmt.Errorf("invalid whisper mode %q (want local or api)", c.Whisper.Mode)
	}
	if c.Whisper.Mode == "api" && c.Whisper.BaseURL == "" {
		return fmt.Errorf("whisper.base_url is required in api mode")
	}
	if c.LLM.Enabled && c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required when llm is enabled")
	}
	return nil
}
