package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Extraction provider names
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Rates      RatesConfig      `mapstructure:"rates"`
	Refund     RefundConfig     `mapstructure:"refund"`
	Directory  DirectoryConfig  `mapstructure:"directory"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Report     ReportConfig     `mapstructure:"report"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// ExtractionConfig holds receipt-extraction service configuration
type ExtractionConfig struct {
	Provider       string        `mapstructure:"provider"`
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	InterCallDelay time.Duration `mapstructure:"inter_call_delay"`
}

// OpenAIConfig holds OpenAI API configuration for the vision extractor
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RatesConfig holds exchange-rate service configuration
type RatesConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RefundConfig holds refund submission service configuration
type RefundConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DirectoryConfig holds team-directory service configuration
type DirectoryConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PipelineConfig holds wizard and batch limits
type PipelineConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// ReportConfig holds batch report configuration
type ReportConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/refunds.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Extraction defaults
	viper.SetDefault("extraction.provider", ProviderHTTP)
	viper.SetDefault("extraction.timeout", 60*time.Second)
	viper.SetDefault("extraction.inter_call_delay", 500*time.Millisecond)

	// OpenAI defaults
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("openai.temperature", 0.3)
	viper.SetDefault("openai.max_tokens", 1000)
	viper.SetDefault("openai.timeout", 60*time.Second)

	// Rates defaults
	viper.SetDefault("rates.timeout", 10*time.Second)

	// Refund defaults
	viper.SetDefault("refund.timeout", 30*time.Second)

	// Directory defaults
	viper.SetDefault("directory.timeout", 10*time.Second)

	// Pipeline defaults
	viper.SetDefault("pipeline.session_ttl", time.Hour)

	// Report defaults
	viper.SetDefault("report.enabled", true)
	viper.SetDefault("report.output_dir", "reports")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("extraction.api_key", "EXTRACTION_API_KEY")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("refund.api_key", "REFUND_API_KEY")
	viper.BindEnv("directory.api_key", "DIRECTORY_API_KEY")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Extraction.Provider {
	case ProviderHTTP:
		if c.Extraction.Endpoint == "" {
			return fmt.Errorf("extraction.endpoint is required for the http provider")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("extraction.provider must be %q or %q", ProviderHTTP, ProviderOpenAI)
	}

	if c.Refund.Endpoint == "" {
		return fmt.Errorf("refund.endpoint is required")
	}
	if c.Rates.Endpoint == "" {
		return fmt.Errorf("rates.endpoint is required")
	}

	if c.Pipeline.SessionTTL <= 0 {
		return fmt.Errorf("pipeline.session_ttl must be positive")
	}

	return nil
}
