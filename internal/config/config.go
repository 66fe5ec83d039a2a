// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Network    NetworkConfig    `mapstructure:"network" yaml:"network"`
	Automation AutomationConfig `mapstructure:"automation" yaml:"automation"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Detect     DetectConfig     `mapstructure:"detect" yaml:"detect"`
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

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Debug           bool     `mapstructure:"debug" yaml:"debug"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	Args            []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig tunes navigation behavior for every tab.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// AutomationConfig tunes the step driver and search injector timings.
// The defaults mirror the behavior of the click flows these settings drive:
// a 10s ceiling per selector, a 100ms poll, and short settle delays around
// search fills and the return-to-article navigation.
type AutomationConfig struct {
	StepTimeout       time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SearchSettleDelay time.Duration `mapstructure:"search_settle_delay" yaml:"search_settle_delay"`
	ReturnSettleDelay time.Duration `mapstructure:"return_settle_delay" yaml:"return_settle_delay"`
	NavigationGrace   time.Duration `mapstructure:"navigation_grace" yaml:"navigation_grace"`
}

// StorageConfig locates the local sqlite database holding the library
// profile and automation session records.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DetectConfig tunes the paywall detector.
type DetectConfig struct {
	WatchInterval time.Duration `mapstructure:"watch_interval" yaml:"watch_interval"`
}

// NewDefaultConfig returns a Config populated with the application defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Defaults are static; failing to unmarshal them is a programming error.
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return cfg
}

// SetDefaults registers every configuration default on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "libpass")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.colors.debug", "magenta")
	v.SetDefault("logger.colors.info", "blue")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "red")
	v.SetDefault("logger.colors.panic", "red")
	v.SetDefault("logger.colors.fatal", "red")

	// Browser
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.args", []string{})

	// Network
	v.SetDefault("network.navigation_timeout", 90*time.Second)
	v.SetDefault("network.post_load_wait", 1500*time.Millisecond)

	// Automation
	v.SetDefault("automation.step_timeout", 10*time.Second)
	v.SetDefault("automation.poll_interval", 100*time.Millisecond)
	v.SetDefault("automation.search_settle_delay", 1500*time.Millisecond)
	v.SetDefault("automation.return_settle_delay", 2000*time.Millisecond)
	v.SetDefault("automation.navigation_grace", 1500*time.Millisecond)

	// Storage
	v.SetDefault("storage.path", "libpass.db")

	// Detect
	v.SetDefault("detect.watch_interval", 1*time.Second)
}

// NewConfigFromViper unmarshals a viper instance into a validated Config.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Automation.StepTimeout <= 0 {
		return fmt.Errorf("automation.step_timeout must be a positive duration")
	}
	if c.Automation.PollInterval <= 0 {
		return fmt.Errorf("automation.poll_interval must be a positive duration")
	}
	if c.Automation.PollInterval > c.Automation.StepTimeout {
		return fmt.Errorf("automation.poll_interval must not exceed automation.step_timeout")
	}
	if c.Automation.SearchSettleDelay < 0 || c.Automation.ReturnSettleDelay < 0 {
		return fmt.Errorf("automation settle delays must not be negative")
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	if c.Detect.WatchInterval <= 0 {
		return fmt.Errorf("detect.watch_interval must be a positive duration")
	}
	return nil
}
