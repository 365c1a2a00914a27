package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// EnvPrefix is prepended to every environment override, e.g. PIPEWORKS_LOG_LEVEL.
const EnvPrefix = "PIPEWORKS_"

// Config holds all configuration settings for the pipeworks engine.
type Config struct {
	System   SystemConfig   `json:"system"`
	Worker   WorkerConfig   `json:"worker"`
	EventBus EventBusConfig `json:"eventBus"`
	Tasks    TasksConfig    `json:"tasks"`
	Sync     SyncConfig     `json:"sync"`
}

// SystemConfig holds general system settings.
type SystemConfig struct {
	LogLevel  string `json:"logLevel" env:"LOG_LEVEL"`   // trace, debug, info, warn, error
	LogPretty bool   `json:"logPretty" env:"LOG_PRETTY"` // Console writer instead of JSON
}

// WorkerConfig holds settings for the background worker.
type WorkerConfig struct {
	EventBufferSize int           `json:"eventBufferSize" env:"EVENT_BUFFER_SIZE"` // Capacity of handler subscription channels
	ShutdownTimeout time.Duration `json:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`  // Bound on a blocking stop; 0 waits forever
}

// EventBusConfig holds settings for the event bus.
type EventBusConfig struct {
	DefaultBufferSize int `json:"defaultBufferSize" env:"BUS_BUFFER_SIZE"` // Default buffer size for subscribers
}

// TasksConfig holds settings for the task kind registry.
type TasksConfig struct {
	AllowedKinds []string `json:"allowedKinds" env:"ALLOWED_KINDS"` // Registerable kinds; "*" allows all
}

// SyncConfig holds settings for the file synchronization collaborator.
type SyncConfig struct {
	Enabled   bool          `json:"enabled" env:"SYNC_ENABLED"`     // Watch and sync automatically
	SourceDir string        `json:"sourceDir" env:"SYNC_SOURCE"`    // Server mirror to sync from
	TargetDir string        `json:"targetDir" env:"SYNC_TARGET"`    // Local working directory
	Debounce  time.Duration `json:"debounce" env:"SYNC_DEBOUNCE"`   // Quiet period before a change burst triggers a sync
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		System: SystemConfig{
			LogLevel:  "info",
			LogPretty: false,
		},
		Worker: WorkerConfig{
			EventBufferSize: 16,
			ShutdownTimeout: 30 * time.Second,
		},
		EventBus: EventBusConfig{
			DefaultBufferSize: 10,
		},
		Tasks: TasksConfig{
			AllowedKinds: []string{"*"}, // Allow all by default
		},
		Sync: SyncConfig{
			Enabled:  false,
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load builds the effective configuration: defaults, overridden by the JSON
// file at filePath (if it exists), overridden by PIPEWORKS_* environment
// variables.
func Load(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		if _, err := os.Stat(filePath); err == nil {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("error applying environment overrides: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(filePath string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.System.LogLevel); err != nil {
		return fmt.Errorf("invalid logLevel %q: %w", c.System.LogLevel, err)
	}
	if c.Worker.EventBufferSize < 1 {
		return fmt.Errorf("eventBufferSize must be at least 1")
	}
	if c.Worker.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdownTimeout cannot be negative")
	}
	if c.EventBus.DefaultBufferSize < 1 {
		return fmt.Errorf("defaultBufferSize must be at least 1")
	}
	if c.Sync.Enabled {
		if c.Sync.SourceDir == "" || c.Sync.TargetDir == "" {
			return fmt.Errorf("sync requires both sourceDir and targetDir")
		}
		if c.Sync.Debounce <= 0 {
			return fmt.Errorf("sync debounce must be positive")
		}
	}
	return nil
}

// Level returns the parsed zerolog level for the configured log level.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.System.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
