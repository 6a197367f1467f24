package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds the tool configuration. Application descriptors are loaded
// separately, one per command argument.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Docker    DockerConfig    `mapstructure:"docker"`
	AWS       AWSConfig       `mapstructure:"aws"`
	ECS       ECSConfig       `mapstructure:"ecs"`
	History   HistoryConfig   `mapstructure:"history"`
	Log       LogConfig       `mapstructure:"log"`
}

// WorkspaceConfig holds the workspace location.
type WorkspaceConfig struct {
	Root string `mapstructure:"root"`
}

// DockerConfig holds Docker client and build context configuration.
type DockerConfig struct {
	Host     string `mapstructure:"host"`
	Network  string `mapstructure:"network"`
	Registry string `mapstructure:"registry"`
}

// AWSConfig holds AWS credentials. An empty region disables the provider.
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// ECSConfig holds defaults for the ECS backend.
type ECSConfig struct {
	Cluster string `mapstructure:"cluster"`
}

// HistoryConfig holds the run history database location.
type HistoryConfig struct {
	// DSN defaults to <data_dir>/appdesc.db.
	DSN string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("data_dir", "./data")
	v.SetDefault("workspace.root", ".")
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.network", "appdesc")
	v.SetDefault("docker.registry", "")
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("ecs.cluster", "")
	v.SetDefault("history.dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("APPDESC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.History.DSN == "" {
		cfg.History.DSN = filepath.Join(cfg.DataDir, "appdesc.db")
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
// Logs go to w so command output on stdout stays machine-readable.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
