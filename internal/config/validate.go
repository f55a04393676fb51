package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Message)
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	var errs []error

	switch c.Logger.Level {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		errs = append(errs, &ValidationError{Field: "logger.level", Message: "must be one of: debug, info, warn, error, fatal"})
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		errs = append(errs, &ValidationError{Field: "logger.format", Message: "must be one of: json, console"})
	}

	if strings.TrimSpace(c.Input.Path) == "" {
		errs = append(errs, &ValidationError{Field: "input.path", Message: "is required"})
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, &ValidationError{Field: "store.path", Message: "is required"})
	}
	if c.Store.Mode != StoreModeOptimistic && c.Store.Mode != StoreModeSingleWriter {
		errs = append(errs, &ValidationError{Field: "store.mode", Message: "must be optimistic or single_writer"})
	}
	if c.Store.LoadAttempts < 1 || c.Store.SaveAttempts < 1 {
		errs = append(errs, &ValidationError{Field: "store", Message: "attempt counts must be at least 1"})
	}

	if c.Sessions.Max < 1 {
		errs = append(errs, &ValidationError{Field: "sessions.max", Message: "must be at least 1"})
	}
	if c.Sessions.RequestsPerSecond < 0 {
		errs = append(errs, &ValidationError{Field: "sessions.requests_per_second", Message: "must not be negative"})
	}

	errs = append(errs, c.Checker.validate()...)

	if c.Coordination.Enabled && c.Coordination.RedisAddr == "" {
		errs = append(errs, &ValidationError{Field: "coordination.redis_addr", Message: "is required when coordination is enabled"})
	}
	if c.Metrics.PushgatewayURL != "" {
		if _, err := url.ParseRequestURI(c.Metrics.PushgatewayURL); err != nil {
			errs = append(errs, &ValidationError{Field: "metrics.pushgateway_url", Message: err.Error()})
		}
	}

	return errors.Join(errs...)
}

func (c *CheckerConfig) validate() []error {
	var errs []error
	if len(c.Strategies) == 0 {
		errs = append(errs, &ValidationError{Field: "checker.strategies", Message: "at least one strategy is required"})
	}
	seen := make(map[string]bool, len(c.Strategies))
	for i, s := range c.Strategies {
		field := fmt.Sprintf("checker.strategies[%d]", i)
		if s.Name == "" {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: "is required"})
		} else if seen[s.Name] {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: "duplicate strategy " + s.Name})
		}
		seen[s.Name] = true
		if !strings.Contains(s.URL, DomainPlaceholder) {
			errs = append(errs, &ValidationError{Field: field + ".url", Message: "must contain " + DomainPlaceholder})
		}
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, &ValidationError{Field: "checker.max_attempts", Message: "must be at least 1"})
	}
	if c.BaseDelay < 0 {
		errs = append(errs, &ValidationError{Field: "checker.base_delay", Message: "must not be negative"})
	}
	return errs
}
