// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/tapsolver/internal/speed"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "tapsolver", cfg.Logger.ServiceName)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 60*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, `button[data-test$="-challenge-tap-token"]`, cfg.Browser.Selectors.Tokens)
	assert.Equal(t, `[data-test="hint-token"]`, cfg.Browser.Selectors.HintTokens)
	assert.Equal(t, 60.0, cfg.Browser.Humanoid.ClickHoldMeanMs)
	assert.Zero(t, cfg.Browser.Humanoid.PauseJitter)
	assert.Equal(t, "/sessions", cfg.Capture.URLPattern)
	assert.Equal(t, 1000, cfg.Capture.MinBytes)
	assert.Equal(t, speed.Default(), cfg.Speeds)
	assert.False(t, cfg.Auto.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Auto.Interval)
	assert.Empty(t, cfg.Database.URL)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero speed", func(c *Config) { c.Speeds.MatchSecond = 0 }, "speeds"},
		{"hold range", func(c *Config) { c.Browser.Humanoid.ClickHoldMinMs = 500 }, "browser.humanoid"},
		{"jitter", func(c *Config) { c.Browser.Humanoid.PauseJitter = 1.5 }, "browser.humanoid"},
		{"selectors", func(c *Config) { c.Browser.Selectors.Tokens = "" }, "browser.selectors"},
		{"min bytes", func(c *Config) { c.Capture.MinBytes = -1 }, "capture.min_bytes"},
		{"body timeout", func(c *Config) { c.Capture.BodyTimeout = 0 }, "capture.body_timeout"},
		{"auto interval", func(c *Config) { c.Auto.Enabled = true; c.Auto.Interval = 0 }, "auto.interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("yaml overrides defaults", func(t *testing.T) {
		yamlBytes := []byte(`
browser:
  headless: true
  args: ["--lang=fr", "mute-audio"]
  humanoid:
    pause_jitter: 0.2
capture:
  min_bytes: 2048
speeds:
  translate_word: 250
auto:
  enabled: true
  interval: 500ms
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.True(t, cfg.Browser.Headless)
		assert.Equal(t, []string{"--lang=fr", "mute-audio"}, cfg.Browser.Args)
		assert.Equal(t, 0.2, cfg.Browser.Humanoid.PauseJitter)
		assert.Equal(t, 150, cfg.Browser.Humanoid.ClickHoldMaxMs)
		assert.Equal(t, 2048, cfg.Capture.MinBytes)
		assert.Equal(t, 250, cfg.Speeds.TranslateWord)
		assert.Equal(t, 400, cfg.Speeds.MatchFirst)
		assert.Equal(t, 500*time.Millisecond, cfg.Auto.Interval)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("TAPSOLVER_SPEEDS_MATCH_FIRST", "700")
		t.Setenv("TAPSOLVER_DATABASE_URL", "postgres://u:p@localhost/tapsolver")

		v := viper.New()
		SetDefaults(v)
		require.NoError(t, BindEnv(v))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 700, cfg.Speeds.MatchFirst)
		assert.Equal(t, "postgres://u:p@localhost/tapsolver", cfg.Database.URL)
	})

	t.Run("conventional DATABASE_URL is accepted", func(t *testing.T) {
		t.Setenv("TAPSOLVER_DATABASE_URL", "")
		t.Setenv("DATABASE_URL", "postgres://other/db")

		v := viper.New()
		SetDefaults(v)
		require.NoError(t, BindEnv(v))
		assert.Equal(t, "postgres://other/db", v.GetString("database.url"))
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("speeds.select_option", -5)

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}
