// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is loaded once at
// startup and passed explicitly into component constructors; components never
// reach for ambient global state.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Acquirer AcquirerConfig `mapstructure:"acquirer" yaml:"acquirer"`
	Webstore WebstoreConfig `mapstructure:"webstore" yaml:"webstore"`
	Sast     SastConfig     `mapstructure:"sast" yaml:"sast"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`

	// Analyze is populated from CLI flags, not the config file.
	Analyze AnalyzeConfig `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// AcquirerConfig tunes the package downloader/extractor.
type AcquirerConfig struct {
	// ChromeVersion is advertised to the update CDN when requesting a CRX.
	ChromeVersion string        `mapstructure:"chrome_version" yaml:"chrome_version"`
	StorageDir    string        `mapstructure:"storage_dir" yaml:"storage_dir"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// WebstoreConfig tunes the listing metadata fetcher.
type WebstoreConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// ExclusionConfig lists the patterns that exclude files from scanning. The
// rules are evaluated in a fixed order: path segments, then file patterns,
// then library names, then size.
type ExclusionConfig struct {
	PathSegments []string `mapstructure:"path_segments" yaml:"path_segments"`
	FilePatterns []string `mapstructure:"file_patterns" yaml:"file_patterns"`
	LibraryNames []string `mapstructure:"library_names" yaml:"library_names"`
}

// SastConfig configures the static-analysis scanning subsystem.
type SastConfig struct {
	Enabled       bool            `mapstructure:"enabled" yaml:"enabled"`
	RuleSet       string          `mapstructure:"rule_set" yaml:"rule_set"`
	Exclusions    ExclusionConfig `mapstructure:"exclusions" yaml:"exclusions"`
	MaxFileSizeKB int64           `mapstructure:"max_file_size_kb" yaml:"max_file_size_kb"`

	// Workers caps how many scanner processes run concurrently.
	Workers int `mapstructure:"workers" yaml:"workers"`
	// TimeoutPerFile is multiplied by batch size to compute each batch's
	// allotted timeout; Overhead absorbs process startup cost.
	TimeoutPerFile time.Duration `mapstructure:"timeout_per_file" yaml:"timeout_per_file"`
	Overhead       time.Duration `mapstructure:"overhead" yaml:"overhead"`

	// BatchEnabled and ParallelEnabled select the scanning strategy. With
	// both off the scanner runs one file at a time. The output shape is
	// identical for every strategy.
	BatchEnabled    bool `mapstructure:"batch_enabled" yaml:"batch_enabled"`
	ParallelEnabled bool `mapstructure:"parallel_enabled" yaml:"parallel_enabled"`

	// TopFindings bounds the finding detail handed to the risk scorer.
	TopFindings int `mapstructure:"top_findings" yaml:"top_findings"`
}

// LLMConfig defines the connection to the risk-scoring model endpoint.
type LLMConfig struct {
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// RateLimit throttles permission queries, in requests per second.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
}

// AnalyzeConfig holds settings populated from CLI flags for one analyze run.
type AnalyzeConfig struct {
	Input     string
	StateDump string
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "crxtriage")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Acquirer --
	v.SetDefault("acquirer.chrome_version", "118.0")
	v.SetDefault("acquirer.storage_dir", "")
	v.SetDefault("acquirer.timeout", "2m")

	// -- Webstore --
	v.SetDefault("webstore.timeout", "30s")
	v.SetDefault("webstore.user_agent", "crxtriage/1.0")

	// -- SAST --
	v.SetDefault("sast.enabled", true)
	v.SetDefault("sast.rule_set", "p/javascript")
	v.SetDefault("sast.exclusions.path_segments", []string{"node_modules/", "vendor/", "lib/", "libs/", "dist/"})
	v.SetDefault("sast.exclusions.file_patterns", []string{"*.min.js", "*.bundle.js", "chunk-*.js"})
	v.SetDefault("sast.exclusions.library_names", []string{"jquery", "bootstrap", "angular", "react", "lodash"})
	v.SetDefault("sast.max_file_size_kb", 500)
	v.SetDefault("sast.workers", 4)
	v.SetDefault("sast.timeout_per_file", "10s")
	v.SetDefault("sast.overhead", "60s")
	v.SetDefault("sast.batch_enabled", true)
	v.SetDefault("sast.parallel_enabled", true)
	v.SetDefault("sast.top_findings", 10)

	// -- LLM --
	v.SetDefault("llm.endpoint", "https://generativelanguage.googleapis.com/v1beta/models")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.temperature", 0.05)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.rate_limit", 2.0)
	v.SetDefault("llm.burst", 4)
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// The API key only ever comes from the environment.
	v.BindEnv("llm.api_key", "CRXTRIAGE_LLM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig returns a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; failing here is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Sast.Workers <= 0 {
		return fmt.Errorf("sast.workers must be a positive integer")
	}
	if c.Sast.TimeoutPerFile <= 0 {
		return fmt.Errorf("sast.timeout_per_file must be a positive duration")
	}
	if c.Sast.MaxFileSizeKB <= 0 {
		return fmt.Errorf("sast.max_file_size_kb must be a positive integer")
	}
	if c.Sast.TopFindings < 0 {
		return fmt.Errorf("sast.top_findings must not be negative")
	}
	if c.LLM.RateLimit <= 0 {
		return fmt.Errorf("llm.rate_limit must be a positive number")
	}
	return nil
}
