// Package config loads domain-checker configuration from YAML, .env files and
// environment variables.
//
// Precedence, lowest first: built-in defaults, config file, environment.
//
// Example config.yml:
//
//	input:
//	  path: domains.txt
//	store:
//	  path: results.json
//	sessions:
//	  max: 3
//	checker:
//	  strategies:
//	    - name: search
//	      url: https://registrar.example/search?domain={domain}
package config

import (
	"time"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/circuitbreaker"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "config.yml"

// Store modes.
const (
	StoreModeOptimistic   = "optimistic"
	StoreModeSingleWriter = "single_writer"
)

// DomainPlaceholder is replaced by the domain in strategy URL templates.
const DomainPlaceholder = "{domain}"

// Defaults.
const (
	defaultAppName         = "domain-checker"
	defaultInputPath       = "domains.txt"
	defaultStorePath       = "results.json"
	defaultLoadAttempts    = 3
	defaultLoadDelay       = 100 * time.Millisecond
	defaultSaveAttempts    = 5
	defaultSaveDelay       = 200 * time.Millisecond
	defaultMaxSessions     = 3
	defaultSessionTimeout  = 30 * time.Second
	defaultTeardownTimeout = 10 * time.Second
	defaultRequestsPerSec  = 1.0
	defaultBurst           = 1
	defaultUserAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultMaxAttempts     = 3
	defaultBaseDelay       = 2 * time.Second
	defaultClaimPrefix     = "domain-checker:claim:"
	defaultClaimTTL        = 5 * time.Minute
	defaultRedisAddr       = "localhost:6379"
	defaultMetricsJob      = "domain_checker"
	defaultServerAddress   = ":8080"
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultBreakerOpen     = 2 * time.Minute
)

// Config is the root configuration.
type Config struct {
	App          AppConfig          `yaml:"app"`
	Logger       logger.Config      `yaml:"logger"`
	Input        InputConfig        `yaml:"input"`
	Store        StoreConfig        `yaml:"store"`
	Sessions     SessionsConfig     `yaml:"sessions"`
	Checker      CheckerConfig      `yaml:"checker"`
	Coordination CoordinationConfig `yaml:"coordination"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Server       ServerConfig       `yaml:"server"`
	Schedule     ScheduleConfig     `yaml:"schedule"`
}

// AppConfig holds process identity.
type AppConfig struct {
	Name        string `yaml:"name"        env:"APP_NAME"`
	Environment string `yaml:"environment" env:"APP_ENV"`
	Debug       bool   `yaml:"debug"       env:"APP_DEBUG"`
}

// InputConfig locates the candidate list.
type InputConfig struct {
	Path string `yaml:"path" env:"INPUT_PATH"`
}

// StoreConfig configures the result file.
type StoreConfig struct {
	Path         string        `yaml:"path"          env:"STORE_PATH"`
	Mode         string        `yaml:"mode"          env:"STORE_MODE"`
	LoadAttempts int           `yaml:"load_attempts" env:"STORE_LOAD_ATTEMPTS"`
	LoadDelay    time.Duration `yaml:"load_delay"    env:"STORE_LOAD_DELAY"`
	SaveAttempts int           `yaml:"save_attempts" env:"STORE_SAVE_ATTEMPTS"`
	SaveDelay    time.Duration `yaml:"save_delay"    env:"STORE_SAVE_DELAY"`
}

// SessionsConfig configures the session pool.
type SessionsConfig struct {
	Max               int           `yaml:"max"                 env:"MAX_SESSIONS"`
	Timeout           time.Duration `yaml:"timeout"             env:"SESSION_TIMEOUT"`
	TeardownTimeout   time.Duration `yaml:"teardown_timeout"    env:"SESSION_TEARDOWN_TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"SESSION_RPS"`
	Burst             int           `yaml:"burst"`
	UserAgent         string        `yaml:"user_agent"          env:"SESSION_USER_AGENT"`
	WarmupURL         string        `yaml:"warmup_url"          env:"SESSION_WARMUP_URL"`
}

// Strategy is one entry path into the registrar.
type Strategy struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// CheckerConfig configures registrar lookups and extraction.
type CheckerConfig struct {
	Strategies          []Strategy            `yaml:"strategies"`
	MaxAttempts         int                   `yaml:"max_attempts"         env:"CHECKER_MAX_ATTEMPTS"`
	BaseDelay           time.Duration         `yaml:"base_delay"           env:"CHECKER_BASE_DELAY"`
	ReadySelector       string                `yaml:"ready_selector"`
	AvailableSelector   string                `yaml:"available_selector"`
	UnavailableSelector string                `yaml:"unavailable_selector"`
	AvailablePhrases    []string              `yaml:"available_phrases"`
	UnavailablePhrases  []string              `yaml:"unavailable_phrases"`
	Breaker             circuitbreaker.Config `yaml:"breaker"`
}

// CoordinationConfig configures the optional Redis claim step.
type CoordinationConfig struct {
	Enabled       bool          `yaml:"enabled"        env:"COORDINATION_ENABLED"`
	RedisAddr     string        `yaml:"redis_addr"     env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"       env:"REDIS_DB"`
	KeyPrefix     string        `yaml:"key_prefix"`
	TTL           time.Duration `yaml:"ttl"            env:"COORDINATION_TTL"`
}

// MetricsConfig configures Prometheus export.
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"         env:"METRICS_ENABLED"`
	PushgatewayURL string `yaml:"pushgateway_url" env:"METRICS_PUSHGATEWAY_URL"`
	Job            string `yaml:"job"`
}

// ServerConfig configures the read-only API.
type ServerConfig struct {
	Address      string        `yaml:"address"       env:"SERVER_ADDRESS"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ScheduleConfig configures recurring runs.
type ScheduleConfig struct {
	Cron string `yaml:"cron" env:"CHECK_SCHEDULE"`
}

// Load reads path (tolerating its absence when it is DefaultPath), applies
// defaults and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	required := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	if err := readYAML(path, required, cfg); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration holding only defaults.
func Default() *Config {
	cfg := &Config{}
	SetDefaults(cfg)
	return cfg
}

// SetDefaults fills every zero value with its default.
func SetDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = defaultAppName
	}
	if cfg.App.Debug && cfg.Logger.Level == "" {
		cfg.Logger.Level = "debug"
	}
	cfg.Logger.SetDefaults()

	if cfg.Input.Path == "" {
		cfg.Input.Path = defaultInputPath
	}

	setStoreDefaults(&cfg.Store)
	setSessionDefaults(&cfg.Sessions)
	setCheckerDefaults(&cfg.Checker)

	if cfg.Coordination.RedisAddr == "" {
		cfg.Coordination.RedisAddr = defaultRedisAddr
	}
	if cfg.Coordination.KeyPrefix == "" {
		cfg.Coordination.KeyPrefix = defaultClaimPrefix
	}
	if cfg.Coordination.TTL == 0 {
		cfg.Coordination.TTL = defaultClaimTTL
	}

	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = defaultMetricsJob
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
}

func setStoreDefaults(s *StoreConfig) {
	if s.Path == "" {
		s.Path = defaultStorePath
	}
	if s.Mode == "" {
		s.Mode = StoreModeOptimistic
	}
	if s.LoadAttempts == 0 {
		s.LoadAttempts = defaultLoadAttempts
	}
	if s.LoadDelay == 0 {
		s.LoadDelay = defaultLoadDelay
	}
	if s.SaveAttempts == 0 {
		s.SaveAttempts = defaultSaveAttempts
	}
	if s.SaveDelay == 0 {
		s.SaveDelay = defaultSaveDelay
	}
}

func setSessionDefaults(s *SessionsConfig) {
	if s.Max == 0 {
		s.Max = defaultMaxSessions
	}
	if s.Timeout == 0 {
		s.Timeout = defaultSessionTimeout
	}
	if s.TeardownTimeout == 0 {
		s.TeardownTimeout = defaultTeardownTimeout
	}
	if s.RequestsPerSecond == 0 {
		s.RequestsPerSecond = defaultRequestsPerSec
	}
	if s.Burst == 0 {
		s.Burst = defaultBurst
	}
	if s.UserAgent == "" {
		s.UserAgent = defaultUserAgent
	}
}

func setCheckerDefaults(c *CheckerConfig) {
	if len(c.Strategies) == 0 {
		c.Strategies = []Strategy{
			{Name: "search", URL: "https://www.namecheap.com/domains/registration/results/?domain={domain}"},
			{Name: "beast", URL: "https://www.namecheap.com/domains/domain-name-search/results/?type=beast&domain={domain}"},
		}
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if len(c.AvailablePhrases) == 0 {
		c.AvailablePhrases = []string{"is available", "available to register", "add to cart"}
	}
	if len(c.UnavailablePhrases) == 0 {
		c.UnavailablePhrases = []string{"is taken", "already registered", "make offer", "not available"}
	}
	// A zero failure threshold leaves the breaker off.
	if c.Breaker.FailureThreshold > 0 {
		if c.Breaker.OpenTimeout == 0 {
			c.Breaker.OpenTimeout = defaultBreakerOpen
		}
		c.Breaker.SetDefaults()
	}
}
