package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Inference InferenceConfig `toml:"inference"`
	Assist    AssistConfig    `toml:"assist"`
	Feed      FeedConfig      `toml:"feed"`
	Storage   StorageConfig   `toml:"storage"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	StaticFilesDir     string   `toml:"static_files_dir"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// InferenceConfig represents the remote inference endpoint configuration.
// BaseURL selects the upstream provider: any OpenAI-compatible completion
// endpoint works, so switching providers is a config change, not a code path.
type InferenceConfig struct {
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	Model          string   `toml:"model"`
	MaxTokens      int      `toml:"max_tokens"`
	Temperature    float64  `toml:"temperature"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	StopSequences  []string `toml:"stop_sequences"`
}

// AssistConfig represents the analysis/command-relay service configuration
type AssistConfig struct {
	HistoryCapacity   int `toml:"history_capacity"`
	HistoryTTLSeconds int `toml:"history_ttl_seconds"` // 0 = unbounded by time
	MaxPromptRecords  int `toml:"max_prompt_records"`
	BatchSize         int `toml:"batch_size"`
	BatchPauseMs      int `toml:"batch_pause_ms"`
}

// FeedConfig represents the aircraft feed configuration
type FeedConfig struct {
	Enabled                bool    `toml:"enabled"`
	SourceURL              string  `toml:"source_url"`
	StationLat             float64 `toml:"station_lat"`
	StationLon             float64 `toml:"station_lon"`
	SearchRadiusNM         float64 `toml:"search_radius_nm"`
	RefreshIntervalSeconds int     `toml:"refresh_interval_seconds"`
	TimeoutSeconds         int     `toml:"timeout_seconds"`
}

// StorageConfig represents the SQLite audit storage configuration
type StorageConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			CORSAllowedOrigins: []string{"*"},
			StaticFilesDir:     "web",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Inference: InferenceConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			MaxTokens:      1024,
			Temperature:    0.3,
			TimeoutSeconds: 20,
		},
		Assist: AssistConfig{
			HistoryCapacity:   256,
			HistoryTTLSeconds: 0,
			MaxPromptRecords:  20,
			BatchSize:         5,
			BatchPauseMs:      500,
		},
		Feed: FeedConfig{
			Enabled:                false,
			SourceURL:              "https://api.adsb.lol/v2/lat/%f/lon/%f/dist/%f",
			SearchRadiusNM:         50,
			RefreshIntervalSeconds: 10,
			TimeoutSeconds:         10,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "stripdeck.db",
		},
	}
}

// Load reads the configuration from a TOML file, applying defaults for
// anything the file does not set
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the services cannot work with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Inference.TimeoutSeconds <= 0 {
		return fmt.Errorf("inference timeout must be positive, got %d", c.Inference.TimeoutSeconds)
	}
	if c.Assist.HistoryCapacity <= 0 {
		return fmt.Errorf("history capacity must be positive, got %d", c.Assist.HistoryCapacity)
	}
	if c.Assist.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Assist.BatchSize)
	}
	return nil
}

// Timeout returns the per-call inference timeout as a duration
func (c InferenceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HistoryTTL returns the history cache TTL, zero meaning unbounded by time
func (c AssistConfig) HistoryTTL() time.Duration {
	return time.Duration(c.HistoryTTLSeconds) * time.Second
}

// BatchPause returns the pause between analysis batches
func (c AssistConfig) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseMs) * time.Millisecond
}

// RefreshInterval returns the feed polling interval
func (c FeedConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// Timeout returns the per-fetch feed timeout
func (c FeedConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
