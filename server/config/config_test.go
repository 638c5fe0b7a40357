package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("default config", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, ValidateConfig(DefaultConfig()))
	})

	t.Run("invalid listen address", func(t *testing.T) {
		t.Parallel()

		testTable := []struct {
			name    string
			address string
		}{
			{
				name:    "empty address",
				address: "",
			},
			{
				name:    "missing port",
				address: "0.0.0.0",
			},
			{
				name:    "hostname address",
				address: "localhost:8645",
			},
		}

		for _, testCase := range testTable {
			t.Run(testCase.name, func(t *testing.T) {
				t.Parallel()

				cfg := DefaultConfig()
				cfg.ListenAddress = testCase.address

				assert.ErrorIs(t, ValidateConfig(cfg), ErrInvalidListenAddress)
			})
		}
	})
}

func TestConfig_Read(t *testing.T) {
	t.Parallel()

	t.Run("valid TOML config", func(t *testing.T) {
		t.Parallel()

		content := `
listen_address = "127.0.0.1:9000"

[cors_config]
allowed_origins = ["https://example.com"]
allowed_methods = ["GET"]
allowed_headers = ["Content-Type"]
`

		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Read(path)
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)

		require.NotNil(t, cfg.CORSConfig)
		assert.Equal(t, []string{"https://example.com"}, cfg.CORSConfig.AllowedOrigins)
		assert.Equal(t, []string{"GET"}, cfg.CORSConfig.AllowedMethods)
	})

	t.Run("missing config file", func(t *testing.T) {
		t.Parallel()

		cfg, err := Read(filepath.Join(t.TempDir(), "missing.toml"))

		assert.Nil(t, cfg)
		assert.Error(t, err)
	})
}
