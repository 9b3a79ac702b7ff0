package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "trades-etl", config.AppName)
	assert.Equal(t, "https://api.mercadobitcoin.net/api/v4", config.API.BaseURL)
	assert.Equal(t, "BTC-BRL", config.API.Symbol)
	assert.Equal(t, 10, config.API.RateLimit)
	assert.Equal(t, "./data", config.CSV.OutputDir)
	assert.Equal(t, "trades", config.Storage.KeyPrefix)
	assert.Equal(t, "us-east-1", config.Storage.Region)
	assert.Equal(t, 3, config.Retry.MaxAttempts)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
}

func TestLoad(t *testing.T) {
	t.Run("defaults fail validation without a bucket", func(t *testing.T) {
		manager := NewManager("", nil)

		_, err := manager.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket is required")
	})

	t.Run("loads from file then overrides from environment", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		configJSON := `{
			"api": {"base_url": "https://example.test/api/v4", "symbol": "ETH-BRL", "timeout": "10s", "rate_limit": 5},
			"csv": {"output_dir": "/tmp/trades"},
			"storage": {"bucket": "file-bucket", "key_prefix": "exports", "region": "sa-east-1"}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(configJSON), 0644))

		t.Setenv("S3_BUCKET", "env-bucket")
		t.Setenv("API_SYMBOL", "LTC-BRL")

		manager := NewManager(configPath, nil)
		config, err := manager.Load()
		require.NoError(t, err)

		// File values survive where no env override exists.
		assert.Equal(t, "https://example.test/api/v4", config.API.BaseURL)
		assert.Equal(t, "exports", config.Storage.KeyPrefix)
		assert.Equal(t, "sa-east-1", config.Storage.Region)

		// Environment wins over the file.
		assert.Equal(t, "env-bucket", config.Storage.Bucket)
		assert.Equal(t, "LTC-BRL", config.API.Symbol)

		assert.Same(t, config, manager.Get())
	})

	t.Run("missing config file falls back to defaults", func(t *testing.T) {
		t.Setenv("S3_BUCKET", "env-bucket")

		manager := NewManager(filepath.Join(t.TempDir(), "missing.json"), nil)
		config, err := manager.Load()
		require.NoError(t, err)
		assert.Equal(t, "BTC-BRL", config.API.Symbol)
	})

	t.Run("malformed config file fails", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0644))

		manager := NewManager(configPath, nil)
		_, err := manager.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("credentials come from the environment and never serialize", func(t *testing.T) {
		t.Setenv("S3_BUCKET", "env-bucket")
		t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

		manager := NewManager("", nil)
		config, err := manager.Load()
		require.NoError(t, err)

		assert.Equal(t, "AKIATEST", config.Storage.AccessKeyID)
		assert.Equal(t, "secret", config.Storage.SecretAccessKey)
		assert.NotContains(t, config.String(), "AKIATEST")
		assert.NotContains(t, config.String(), "secret")
	})
}

func TestValidate(t *testing.T) {
	base := func() *AppConfig {
		config := DefaultConfig()
		config.Storage.Bucket = "bucket"
		return config
	}

	manager := NewManager("", nil)

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, manager.validate(base()))
	})

	t.Run("rejects invalid timeout duration", func(t *testing.T) {
		config := base()
		config.API.Timeout = "soon"

		err := manager.validate(config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api.timeout")
	})

	t.Run("rejects non-positive retry attempts", func(t *testing.T) {
		config := base()
		config.Retry.MaxAttempts = 0

		err := manager.validate(config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retry.max_attempts")
	})

	t.Run("rejects unknown log level", func(t *testing.T) {
		config := base()
		config.Logging.Level = "verbose"

		err := manager.validate(config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logging.level")
	})

	t.Run("requires file path for file output", func(t *testing.T) {
		config := base()
		config.Logging.Output = "file"

		err := manager.validate(config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logging.file_path")
	})

	t.Run("aggregates multiple validation errors", func(t *testing.T) {
		config := base()
		config.API.BaseURL = ""
		config.API.Symbol = ""

		err := manager.validate(config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api.base_url is required")
		assert.Contains(t, err.Error(), "api.symbol is required")
	})
}

func TestDurationHelpers(t *testing.T) {
	t.Run("parses configured durations", func(t *testing.T) {
		api := APIConfig{Timeout: "15s"}
		assert.Equal(t, 15*time.Second, api.HTTPTimeout())

		retry := RetryConfig{InitialDelay: "1s", MaxDelay: "2m"}
		assert.Equal(t, time.Second, retry.InitialDelayDuration())
		assert.Equal(t, 2*time.Minute, retry.MaxDelayDuration())
	})

	t.Run("falls back on malformed durations", func(t *testing.T) {
		api := APIConfig{Timeout: "never"}
		assert.Equal(t, 30*time.Second, api.HTTPTimeout())

		retry := RetryConfig{InitialDelay: "", MaxDelay: "bogus"}
		assert.Equal(t, 500*time.Millisecond, retry.InitialDelayDuration())
		assert.Equal(t, 30*time.Second, retry.MaxDelayDuration())
	})
}
