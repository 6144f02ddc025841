package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10, cfg.Share.MaxBatches)
	assert.Equal(t, 20, cfg.Share.MaxTexts)
	assert.Equal(t, "@hourly", cfg.Received.CleanupSchedule)
	assert.Equal(t, 0, cfg.Received.MaxAgeHours)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.Validate()
		assert.NoError(t, err)
	})

	t.Run("invalid port", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.Port = 0

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "port")
	})

	t.Run("port above range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.Port = 70000

		err := cfg.Validate()
		assert.Error(t, err)
	})

	t.Run("non-positive batch cap", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Share.MaxBatches = 0

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_batches")
	})

	t.Run("non-positive text cap", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Share.MaxTexts = -1

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_texts")
	})

	t.Run("negative received age", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Received.MaxAgeHours = -2

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_age_hours")
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Level = "loud"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "log level")
	})
}
