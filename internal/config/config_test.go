package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "domains.txt", cfg.Input.Path)
	assert.Equal(t, "results.json", cfg.Store.Path)
	assert.Equal(t, config.StoreModeOptimistic, cfg.Store.Mode)
	assert.Equal(t, 3, cfg.Store.LoadAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Store.LoadDelay)
	assert.Equal(t, 5, cfg.Store.SaveAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Store.SaveDelay)
	assert.Equal(t, 3, cfg.Sessions.Max)
	assert.Equal(t, 30*time.Second, cfg.Sessions.Timeout)
	assert.Equal(t, 3, cfg.Checker.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Checker.BaseDelay)
	assert.NotEmpty(t, cfg.Checker.Strategies)
	assert.False(t, cfg.Coordination.Enabled)
	assert.Zero(t, cfg.Checker.Breaker.FailureThreshold, "breaker is opt-in")
	require.NoError(t, cfg.Validate())
}

func TestLoad_BreakerThresholdEnablesDefaults(t *testing.T) {
	path := writeConfig(t, `
checker:
  breaker:
    failure_threshold: 4
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Checker.Breaker.FailureThreshold)
	assert.Equal(t, 2*time.Minute, cfg.Checker.Breaker.OpenTimeout)
	assert.Equal(t, 1, cfg.Checker.Breaker.SuccessThreshold)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
input:
  path: list.txt
store:
  path: out/results.json
  mode: single_writer
sessions:
  max: 5
checker:
  max_attempts: 2
  strategies:
    - name: primary
      url: http://registrar.test/search?q={domain}
`)
	t.Setenv("MAX_SESSIONS", "7")
	t.Setenv("CHECKER_BASE_DELAY", "250ms")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "list.txt", cfg.Input.Path)
	assert.Equal(t, "out/results.json", cfg.Store.Path)
	assert.Equal(t, config.StoreModeSingleWriter, cfg.Store.Mode)
	assert.Equal(t, 7, cfg.Sessions.Max)
	assert.Equal(t, 2, cfg.Checker.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Checker.BaseDelay)
	require.Len(t, cfg.Checker.Strategies, 1)
	assert.Equal(t, "primary", cfg.Checker.Strategies[0].Name)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_DefaultPathMayBeAbsent(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load(config.DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Sessions.Max)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("STORE_PATH=from-env.json\n"), 0o600))
	t.Setenv("ENV_FILE", envPath)
	require.NoError(t, os.Unsetenv("STORE_PATH"))
	t.Cleanup(func() { _ = os.Unsetenv("STORE_PATH") })

	cfg, err := config.Load(writeConfig(t, "store:\n  path: from-file.json\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env.json", cfg.Store.Path)
}

func TestLoad_UnparseableEnvValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MAX_SESSIONS", "three")
	t.Setenv("CHECKER_BASE_DELAY", "2 seconds")

	_, err := config.Load(config.DefaultPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_SESSIONS")
	assert.Contains(t, err.Error(), "CHECKER_BASE_DELAY")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"bad store mode", func(c *config.Config) { c.Store.Mode = "locking" }, "store.mode"},
		{"zero sessions", func(c *config.Config) { c.Sessions.Max = 0 }, "sessions.max"},
		{"missing placeholder", func(c *config.Config) {
			c.Checker.Strategies = []config.Strategy{{Name: "x", URL: "http://x.test/"}}
		}, "checker.strategies[0].url"},
		{"duplicate strategy", func(c *config.Config) {
			c.Checker.Strategies = []config.Strategy{
				{Name: "x", URL: "http://x.test/{domain}"},
				{Name: "x", URL: "http://y.test/{domain}"},
			}
		}, "checker.strategies[1].name"},
		{"bad log level", func(c *config.Config) { c.Logger.Level = "loud" }, "logger.level"},
		{"coordination without redis", func(c *config.Config) {
			c.Coordination.Enabled = true
			c.Coordination.RedisAddr = ""
		}, "coordination.redis_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var vErr *config.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
