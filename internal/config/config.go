// Package config provides centralized configuration management for the trades ETL pipeline.
// This module handles configuration loading from multiple sources (JSON file,
// environment variables, .env files), validation, and provides typed
// configuration structures for each pipeline component.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	// Application metadata
	AppName    string `json:"app_name" env:"APP_NAME"`
	Version    string `json:"version" env:"VERSION"`
	ConfigPath string `json:"-" env:"CONFIG_PATH"`

	// API configuration (fetch step)
	API APIConfig `json:"api"`

	// CSV configuration (write step)
	CSV CSVConfig `json:"csv"`

	// Storage configuration (upload step)
	Storage StorageConfig `json:"storage"`

	// Retry configuration for the two network boundaries
	Retry RetryConfig `json:"retry"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`
}

// APIConfig configures the exchange trades endpoint
type APIConfig struct {
	BaseURL   string `json:"base_url" env:"API_BASE_URL"`     // Exchange API base URL
	Symbol    string `json:"symbol" env:"API_SYMBOL"`         // Trading pair symbol, e.g. BTC-BRL
	Timeout   string `json:"timeout" env:"API_TIMEOUT"`       // HTTP request timeout
	RateLimit int    `json:"rate_limit" env:"API_RATE_LIMIT"` // Requests per second
}

// CSVConfig configures the local CSV artifact
type CSVConfig struct {
	OutputDir string `json:"output_dir" env:"CSV_OUTPUT_DIR"` // Directory for the CSV artifact
	Filename  string `json:"filename" env:"CSV_FILENAME"`     // Overrides the date-stamped default when set
}

// StorageConfig configures the S3 upload target
type StorageConfig struct {
	Bucket          string `json:"bucket" env:"S3_BUCKET"`         // Destination bucket name
	KeyPrefix       string `json:"key_prefix" env:"S3_KEY_PREFIX"` // Folder segment under which objects are stored
	Region          string `json:"region" env:"AWS_REGION"`        // Bucket region
	Endpoint        string `json:"endpoint" env:"S3_ENDPOINT"`     // Custom endpoint for S3-compatible stores, empty for AWS
	AccessKeyID     string `json:"-" env:"AWS_ACCESS_KEY_ID"`      // Never serialized
	SecretAccessKey string `json:"-" env:"AWS_SECRET_ACCESS_KEY"`  // Never serialized
}

// RetryConfig configures retry behavior at the fetch and upload boundaries.
// MaxAttempts of 1 disables retries entirely.
type RetryConfig struct {
	MaxAttempts  int    `json:"max_attempts" env:"RETRY_MAX_ATTEMPTS"`
	InitialDelay string `json:"initial_delay" env:"RETRY_INITIAL_DELAY"`
	MaxDelay     string `json:"max_delay" env:"RETRY_MAX_DELAY"`
	Jitter       bool   `json:"jitter" env:"RETRY_JITTER"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL"`             // Log level: debug, info, warn, error
	Format     string `json:"format" env:"LOG_FORMAT"`           // Log format: json, text
	Output     string `json:"output" env:"LOG_OUTPUT"`           // Output: stdout, stderr, file
	FilePath   string `json:"file_path" env:"LOG_FILE_PATH"`     // Log file path when output is file
	MaxSize    int    `json:"max_size" env:"LOG_MAX_SIZE"`       // Maximum log file size in MB
	MaxBackups int    `json:"max_backups" env:"LOG_MAX_BACKUPS"` // Maximum log file backups
	MaxAge     int    `json:"max_age" env:"LOG_MAX_AGE"`         // Maximum log file age in days
	Compress   bool   `json:"compress" env:"LOG_COMPRESS"`       // Compress rotated log files
}

// Manager handles configuration loading and validation
type Manager struct {
	config     *AppConfig
	configPath string
	logger     *slog.Logger
}

// NewManager creates a new configuration manager
func NewManager(configPath string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		configPath: configPath,
		logger:     logger,
	}
}

// Load loads configuration with priority order:
// 1. Environment variables (highest priority)
// 2. Configuration file
// 3. Default values (lowest priority)
//
// A .env file in the working directory is loaded into the environment first,
// so locally stored credentials behave like exported variables.
func (m *Manager) Load() (*AppConfig, error) {
	// Missing .env is fine; exported variables still apply.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		m.logger.Debug("no .env file loaded", "error", err)
	}

	config := DefaultConfig()

	if m.configPath != "" {
		if err := m.loadFromFile(config); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	m.loadFromEnv(config)

	if err := m.validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	m.config = config
	m.logger.Info("configuration loaded",
		"config_path", m.configPath,
		"symbol", config.API.Symbol,
		"bucket", config.Storage.Bucket,
		"log_level", config.Logging.Level)

	return config, nil
}

// loadFromFile loads configuration from a JSON file
func (m *Manager) loadFromFile(config *AppConfig) error {
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.logger.Debug("config file does not exist, using defaults", "path", m.configPath)
		return nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", m.configPath, err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", m.configPath, err)
	}

	m.logger.Debug("loaded configuration from file", "path", m.configPath)
	return nil
}

// loadFromEnv overrides configuration from environment variables
func (m *Manager) loadFromEnv(config *AppConfig) {
	if val := os.Getenv("APP_NAME"); val != "" {
		config.AppName = val
	}
	if val := os.Getenv("VERSION"); val != "" {
		config.Version = val
	}

	// API config
	if val := os.Getenv("API_BASE_URL"); val != "" {
		config.API.BaseURL = val
	}
	if val := os.Getenv("API_SYMBOL"); val != "" {
		config.API.Symbol = val
	}
	if val := os.Getenv("API_TIMEOUT"); val != "" {
		config.API.Timeout = val
	}
	if val := os.Getenv("API_RATE_LIMIT"); val != "" {
		if rateLimit, err := strconv.Atoi(val); err == nil {
			config.API.RateLimit = rateLimit
		}
	}

	// CSV config
	if val := os.Getenv("CSV_OUTPUT_DIR"); val != "" {
		config.CSV.OutputDir = val
	}
	if val := os.Getenv("CSV_FILENAME"); val != "" {
		config.CSV.Filename = val
	}

	// Storage config
	if val := os.Getenv("S3_BUCKET"); val != "" {
		config.Storage.Bucket = val
	}
	if val := os.Getenv("S3_KEY_PREFIX"); val != "" {
		config.Storage.KeyPrefix = val
	}
	if val := os.Getenv("AWS_REGION"); val != "" {
		config.Storage.Region = val
	}
	if val := os.Getenv("S3_ENDPOINT"); val != "" {
		config.Storage.Endpoint = val
	}
	if val := os.Getenv("AWS_ACCESS_KEY_ID"); val != "" {
		config.Storage.AccessKeyID = val
	}
	if val := os.Getenv("AWS_SECRET_ACCESS_KEY"); val != "" {
		config.Storage.SecretAccessKey = val
	}

	// Retry config
	if val := os.Getenv("RETRY_MAX_ATTEMPTS"); val != "" {
		if attempts, err := strconv.Atoi(val); err == nil {
			config.Retry.MaxAttempts = attempts
		}
	}
	if val := os.Getenv("RETRY_INITIAL_DELAY"); val != "" {
		config.Retry.InitialDelay = val
	}
	if val := os.Getenv("RETRY_MAX_DELAY"); val != "" {
		config.Retry.MaxDelay = val
	}
	if val := os.Getenv("RETRY_JITTER"); val != "" {
		config.Retry.Jitter = val == "true"
	}

	// Logging config
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("LOG_OUTPUT"); val != "" {
		config.Logging.Output = val
	}
	if val := os.Getenv("LOG_FILE_PATH"); val != "" {
		config.Logging.FilePath = val
	}

	m.logger.Debug("loaded configuration from environment variables")
}

// validate checks the configuration for consistency and required fields
func (m *Manager) validate(config *AppConfig) error {
	var errs []string

	if config.API.BaseURL == "" {
		errs = append(errs, "api.base_url is required")
	}
	if config.API.Symbol == "" {
		errs = append(errs, "api.symbol is required")
	}
	if config.API.RateLimit <= 0 {
		errs = append(errs, "api.rate_limit must be greater than 0")
	}
	if config.API.Timeout != "" {
		if _, err := time.ParseDuration(config.API.Timeout); err != nil {
			errs = append(errs, fmt.Sprintf("api.timeout is not a valid duration: %v", err))
		}
	}

	if config.CSV.OutputDir == "" {
		errs = append(errs, "csv.output_dir is required")
	}

	if config.Storage.Bucket == "" {
		errs = append(errs, "storage.bucket is required")
	}
	if config.Storage.Region == "" {
		errs = append(errs, "storage.region is required")
	}

	if config.Retry.MaxAttempts <= 0 {
		errs = append(errs, "retry.max_attempts must be greater than 0")
	}
	if config.Retry.InitialDelay != "" {
		if _, err := time.ParseDuration(config.Retry.InitialDelay); err != nil {
			errs = append(errs, fmt.Sprintf("retry.initial_delay is not a valid duration: %v", err))
		}
	}
	if config.Retry.MaxDelay != "" {
		if _, err := time.ParseDuration(config.Retry.MaxDelay); err != nil {
			errs = append(errs, fmt.Sprintf("retry.max_delay is not a valid duration: %v", err))
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[config.Logging.Level] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[config.Logging.Format] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if config.Logging.Output == "file" && config.Logging.FilePath == "" {
		errs = append(errs, "logging.file_path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation errors:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *AppConfig {
	return m.config
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		AppName: "trades-etl",
		Version: "1.0.0",
		API: APIConfig{
			BaseURL:   "https://api.mercadobitcoin.net/api/v4",
			Symbol:    "BTC-BRL",
			Timeout:   "30s",
			RateLimit: 10,
		},
		CSV: CSVConfig{
			OutputDir: "./data",
		},
		Storage: StorageConfig{
			KeyPrefix: "trades",
			Region:    "us-east-1",
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: "500ms",
			MaxDelay:     "30s",
			Jitter:       true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// HTTPTimeout returns the parsed API timeout, falling back to 30s.
func (c *APIConfig) HTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// InitialDelayDuration returns the parsed initial retry delay, falling back to 500ms.
func (c *RetryConfig) InitialDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.InitialDelay)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// MaxDelayDuration returns the parsed maximum retry delay, falling back to 30s.
func (c *RetryConfig) MaxDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.MaxDelay)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// String returns a string representation of the configuration (excluding sensitive data)
func (c *AppConfig) String() string {
	sanitized := *c
	sanitized.Storage.AccessKeyID = "[REDACTED]"
	sanitized.Storage.SecretAccessKey = "[REDACTED]"

	data, _ := json.MarshalIndent(&sanitized, "", "  ")
	return string(data)
}
