// Package container provides dependency injection for the fiscal-organizer
// application. It centralizes the creation and wiring of all application
// dependencies, making them explicit and testable.
package container

import (
	"context"
	"fmt"

	"fjacquet/fiscal-organizer/internal/classifier"
	"fjacquet/fiscal-organizer/internal/config"
	"fjacquet/fiscal-organizer/internal/history"
	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/metrics"
	"fjacquet/fiscal-organizer/internal/organizer"
	"fjacquet/fiscal-organizer/internal/report"
	"fjacquet/fiscal-organizer/internal/store"
)

// ServiceName labels metrics and logs.
const ServiceName = "fiscal-organizer"

// Container holds all application dependencies. It is immutable after
// creation; fields are reachable only through getters.
type Container struct {
	logger     logging.Logger
	config     *config.Config
	directory  *store.CompanyDirectory
	classifier *classifier.Classifier
	history    history.Store
	metrics    *metrics.Metrics
	reports    *report.Generator
	policy     organizer.CollisionPolicy
}

// NewContainer creates and wires all application dependencies.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	return NewContainerWithLogger(cfg, logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format))
}

// NewContainerWithLogger wires the dependencies around an existing logger.
func NewContainerWithLogger(cfg *config.Config, logger logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return newContainer(cfg, logger, store.NewRuleStore(cfg.Classifier.RulesFile, logger))
}

// newContainer wires the dependencies with rules taken from loader.
func newContainer(cfg *config.Config, logger logging.Logger, loader store.RuleLoader) (*Container, error) {
	policy, err := organizer.ParseCollisionPolicy(cfg.Organizer.CollisionPolicy)
	if err != nil {
		return nil, err
	}

	rules, err := loader.LoadRules()
	if err != nil {
		return nil, fmt.Errorf("failed to load classification rules: %w", err)
	}

	directory := store.NewCompanyDirectory(cfg.Companies.File, logger)
	if err := directory.Load(); err != nil {
		return nil, fmt.Errorf("failed to load company directory: %w", err)
	}

	cls := classifier.New(classifier.Options{
		NFSTomadosRequiresNFSe: cfg.Classifier.NFSTomadosRequiresNFSe,
		Rules:                  rules,
	}, logger)

	var runs history.Store
	if cfg.History.Enabled {
		runs, err = history.NewSQLiteStore(context.Background(), cfg.History.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
	}

	logger.Debug("Container initialized",
		logging.F("custom_rules", len(rules)),
		logging.F("companies", len(directory.Names())),
		logging.F("history_enabled", cfg.History.Enabled),
		logging.F(logging.FieldPolicy, policy))

	return &Container{
		logger:     logger,
		config:     cfg,
		directory:  directory,
		classifier: cls,
		history:    runs,
		metrics:    metrics.New(ServiceName),
		reports:    report.NewGenerator(logger),
		policy:     policy,
	}, nil
}

// NewOrganizer returns an Organizer wired to the shared classifier, company
// directory, history and metrics, plus any extra observers.
func (c *Container) NewOrganizer(extra ...organizer.Observer) *organizer.Organizer {
	var recorder history.Recorder = history.NopRecorder{}
	if c.history != nil {
		recorder = c.history
	}
	observers := append([]organizer.Observer{c.metrics}, extra...)
	return organizer.New(c.classifier, c.logger, organizer.Options{
		Policy:       c.policy,
		WorkspaceDir: c.config.Organizer.WorkspaceDir,
		Recorder:     recorder,
		Directory:    c.directory,
		Observers:    observers,
	})
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetClassifier returns the shared, immutable classifier.
func (c *Container) GetClassifier() *classifier.Classifier {
	return c.classifier
}

// GetDirectory returns the company directory.
func (c *Container) GetDirectory() *store.CompanyDirectory {
	return c.directory
}

// GetHistory returns the run history store, or nil when history is disabled.
func (c *Container) GetHistory() history.Store {
	return c.history
}

// GetMetrics returns the Prometheus instrumentation.
func (c *Container) GetMetrics() *metrics.Metrics {
	return c.metrics
}

// GetReportGenerator returns the history report generator.
func (c *Container) GetReportGenerator() *report.Generator {
	return c.reports
}

// Close releases the history database.
func (c *Container) Close() error {
	if c.history == nil {
		return nil
	}
	if err := c.history.Close(); err != nil {
		return fmt.Errorf("failed to close history: %w", err)
	}
	c.logger.Debug("Container closed")
	return nil
}
