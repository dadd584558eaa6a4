// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/tapsolver/internal/humanoid"
	"github.com/xkilldash9x/tapsolver/internal/speed"
)

// EnvPrefix is prepended to every environment override, e.g.
// TAPSOLVER_SPEEDS_TRANSLATE_WORD.
const EnvPrefix = "TAPSOLVER"

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Speeds   speed.Profile  `mapstructure:"speeds" yaml:"speeds"`
	Auto     AutoConfig     `mapstructure:"auto" yaml:"auto"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the Chrome instance and how the lesson page is read.
type BrowserConfig struct {
	Headless          bool            `mapstructure:"headless" yaml:"headless"`
	ExecPath          string          `mapstructure:"exec_path" yaml:"exec_path"`
	UserDataDir       string          `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	StartURL          string          `mapstructure:"start_url" yaml:"start_url"`
	Args              []string        `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration   `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Humanoid          humanoid.Config `mapstructure:"humanoid" yaml:"humanoid"`
	Selectors         SelectorConfig  `mapstructure:"selectors" yaml:"selectors"`
}

// SelectorConfig holds the CSS selectors for the challenge widgets.
type SelectorConfig struct {
	Tokens     string `mapstructure:"tokens" yaml:"tokens"`
	Choices    string `mapstructure:"choices" yaml:"choices"`
	Header     string `mapstructure:"header" yaml:"header"`
	HintTokens string `mapstructure:"hint_tokens" yaml:"hint_tokens"`
}

// CaptureConfig decides which network responses become answer batches.
type CaptureConfig struct {
	URLPattern  string        `mapstructure:"url_pattern" yaml:"url_pattern"`
	MinBytes    int           `mapstructure:"min_bytes" yaml:"min_bytes"`
	BodyTimeout time.Duration `mapstructure:"body_timeout" yaml:"body_timeout"`
}

// AutoConfig enables periodic solving.
type AutoConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// DatabaseConfig holds the database connection details. An empty URL
// disables solve history.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig returns a Config populated from SetDefaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tapsolver")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.start_url", "https://www.duolingo.com/learn")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.selectors.tokens", `button[data-test$="-challenge-tap-token"]`)
	v.SetDefault("browser.selectors.choices", `[data-test="challenge-choice"]`)
	v.SetDefault("browser.selectors.header", `[data-test="challenge-header"]`)
	v.SetDefault("browser.selectors.hint_tokens", `[data-test="hint-token"]`)
	setHumanoidDefaults(v)

	// -- Capture --
	v.SetDefault("capture.url_pattern", "/sessions")
	v.SetDefault("capture.min_bytes", 1000)
	v.SetDefault("capture.body_timeout", "15s")

	// -- Speeds --
	def := speed.Default()
	v.SetDefault("speeds.translate_word", def.TranslateWord)
	v.SetDefault("speeds.match_first", def.MatchFirst)
	v.SetDefault("speeds.match_second", def.MatchSecond)
	v.SetDefault("speeds.select_option", def.SelectOption)

	// -- Auto --
	v.SetDefault("auto.enabled", false)
	v.SetDefault("auto.interval", "2s")

	// -- Database --
	v.SetDefault("database.url", "")
}

// BindEnv wires TAPSOLVER_* environment overrides into v.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The conventional DATABASE_URL is accepted as well.
	if err := v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return fmt.Errorf("failed to bind database.url to the environment: %w", err)
	}
	return nil
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Speeds.Validate(); err != nil {
		return fmt.Errorf("speeds: %w", err)
	}
	if err := c.Browser.Humanoid.Validate(); err != nil {
		return fmt.Errorf("browser.humanoid: %w", err)
	}
	if c.Browser.Selectors.Tokens == "" || c.Browser.Selectors.Choices == "" {
		return fmt.Errorf("browser.selectors.tokens and browser.selectors.choices are required")
	}
	if c.Capture.MinBytes < 0 {
		return fmt.Errorf("capture.min_bytes must not be negative")
	}
	if c.Capture.BodyTimeout <= 0 {
		return fmt.Errorf("capture.body_timeout must be positive")
	}
	if c.Auto.Enabled && c.Auto.Interval <= 0 {
		return fmt.Errorf("auto.interval must be positive when auto.enabled is set")
	}
	return nil
}
