package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/fiscal-organizer/cmd/classify"
	"fjacquet/fiscal-organizer/cmd/history"
	"fjacquet/fiscal-organizer/cmd/organize"
	"fjacquet/fiscal-organizer/cmd/root"
	"fjacquet/fiscal-organizer/cmd/serve"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func init() {
	// Load .env silently before any logger exists
	loadEnvSilently()

	// The global logrus level applies to loggers created before the config is read
	configureLogLevelDirectly()

	root.Init()

	root.Cmd.AddCommand(classify.Cmd)
	root.Cmd.AddCommand(organize.Cmd)
	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(history.Cmd)
}

// loadEnvSilently loads environment variables without logging anything
func loadEnvSilently() {
	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		envFile = filepath.Join("..", ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return
		}
	}
	_ = godotenv.Load(envFile)
}

// configureLogLevelDirectly sets the global logrus level from FISCAL_LOG_LEVEL
// and returns it
func configureLogLevelDirectly() logrus.Level {
	logLevelStr := os.Getenv("FISCAL_LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}

	logLevel, err := logrus.ParseLevel(strings.ToLower(logLevelStr))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)

	return logLevel
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
