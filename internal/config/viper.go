// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"fjacquet/fiscal-organizer/internal/organizer"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FISCAL_LOG_LEVEL.
const EnvPrefix = "FISCAL"

// Config represents the complete application configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Organizer  OrganizerConfig  `mapstructure:"organizer" yaml:"organizer"`
	Companies  CompaniesConfig  `mapstructure:"companies" yaml:"companies"`
	History    HistoryConfig    `mapstructure:"history" yaml:"history"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
}

// LogConfig selects level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ClassifierConfig tunes the filename rule table.
type ClassifierConfig struct {
	NFSTomadosRequiresNFSe bool   `mapstructure:"nfs_tomados_requires_nfse" yaml:"nfs_tomados_requires_nfse"`
	RulesFile              string `mapstructure:"rules_file" yaml:"rules_file"`
}

// OrganizerConfig controls output layout and scratch space.
type OrganizerConfig struct {
	CollisionPolicy string `mapstructure:"collision_policy" yaml:"collision_policy"`
	WorkspaceDir    string `mapstructure:"workspace_dir" yaml:"workspace_dir"`
}

// CompaniesConfig points at the company name -> CNPJ directory.
type CompaniesConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Database string `mapstructure:"database" yaml:"database"`
}

// ServerConfig controls the HTTP front-end.
type ServerConfig struct {
	Address     string `mapstructure:"address" yaml:"address"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// MaxUploadBytes converts the configured upload limit.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.fiscal-organizer")
	v.AddConfigPath(".fiscal-organizer")
	v.AddConfigPath(".")

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("classifier.nfs_tomados_requires_nfse", false)
	v.SetDefault("classifier.rules_file", "")

	v.SetDefault("organizer.collision_policy", string(organizer.CollisionOverwrite))
	v.SetDefault("organizer.workspace_dir", "")

	v.SetDefault("companies.file", "")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.database", "fiscal-organizer.db")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.max_upload_mb", 64)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if _, err := organizer.ParseCollisionPolicy(config.Organizer.CollisionPolicy); err != nil {
		return fmt.Errorf("organizer.collision_policy: %w", err)
	}

	if config.History.Enabled && strings.TrimSpace(config.History.Database) == "" {
		return fmt.Errorf("history.database is required when history is enabled")
	}

	if config.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be positive, got: %d", config.Server.MaxUploadMB)
	}

	return nil
}

// ConfigureLoggingFromConfig configures logging based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
