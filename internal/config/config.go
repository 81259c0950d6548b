package config

import (
	"os"
	"path/filepath"

	"fjacquet/fiscal-organizer/internal/logging"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from .env in the working directory or its
// parent. A missing file is not an error; existing variables win.
func LoadEnv(logger logging.Logger) string {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	for _, envFile := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			logger.WithError(err).Warn("Error loading .env file", logging.F(logging.FieldPath, envFile))
			return ""
		}
		logger.Debug("Loaded environment variables", logging.F(logging.FieldPath, envFile))
		return envFile
	}
	return ""
}

// NewLogger builds the application logger from the configuration.
func NewLogger(config *Config) logging.Logger {
	return logging.NewLogrusAdapterFromLogger(ConfigureLoggingFromConfig(config))
}
