// Package common provides shared utilities for command implementations.
package common

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/metrics"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/resultstore"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// GlobalFlags holds the persistent flags of the root command.
type GlobalFlags struct {
	ConfigPath string
	Debug      bool
}

// Flags is bound by the root command.
var Flags GlobalFlags

// CommandDeps holds common dependencies for all commands.
type CommandDeps struct {
	Config *config.Config
	Logger logger.Logger
	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Store    *resultstore.Store
}

// Validate ensures all required dependencies are present.
func (d *CommandDeps) Validate() error {
	if d.Config == nil {
		return ErrConfigRequired
	}
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	return nil
}

// NewCommandDeps loads configuration and builds the logger, metrics and store.
// override, when non-nil, is applied to the loaded config before validation
// is repeated, so command flags get the same checks as the file.
func NewCommandDeps(override func(*config.Config)) (*CommandDeps, error) {
	cfg, err := config.Load(config.GetConfigPath(Flags.ConfigPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if Flags.Debug {
		cfg.App.Debug = true
		cfg.Logger.Level = "debug"
	}
	if override != nil {
		override(cfg)
		if validateErr := cfg.Validate(); validateErr != nil {
			return nil, fmt.Errorf("invalid flags: %w", validateErr)
		}
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	log = log.With(logger.String("service", cfg.App.Name))

	deps := &CommandDeps{Config: cfg, Logger: log}
	if cfg.Metrics.Enabled {
		deps.Registry = prometheus.NewRegistry()
		deps.Metrics = metrics.New(deps.Registry)
	}
	deps.Store = resultstore.New(cfg.Store, log, resultstore.WithMetrics(deps.Metrics))

	if validateErr := deps.Validate(); validateErr != nil {
		return nil, validateErr
	}
	return deps, nil
}

// Gatherer returns the metrics registry, or nil when metrics are disabled.
func (d *CommandDeps) Gatherer() prometheus.Gatherer {
	if d.Registry == nil {
		return nil
	}
	return d.Registry
}
