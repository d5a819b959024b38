package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJSON = `{
	"server_address": ":3000",
	"env": "test",
	"database_url": "json-dsn",
	"twitter_api_url": "http://json-twitter.example.com/2",
	"db_connection_timeout": "3s"
}`

const testYAML = `
server_address: ":3001"
env: test
sqlite_path: yaml.db
embedding_provider: http
embedding_api_url: http://embeddings.example.com/v1
`

func writeTempConfig(t *testing.T, pattern, content string) string {
	t.Helper()
	file, err := os.CreateTemp(t.TempDir(), pattern)
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	return file.Name()
}

func newTestConfig(t *testing.T, optionsProto ...InitOption) (*Config, error) {
	t.Helper()
	options := append([]InitOption{WithDisableDotEnv(true)}, optionsProto...)
	return New(options...)
}

func TestDefaults(t *testing.T) {
	t.Setenv("ENV", EnvironmentTest)

	cfg, err := newTestConfig(t, WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, "https://api.twitter.com/2", cfg.TwitterAPIURL)
	assert.Equal(t, EmbeddingProviderGemini, cfg.EmbeddingProvider)
	assert.False(t, cfg.IsProduction())
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config*.json", testJSON))

	cfg, err := newTestConfig(t, WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, "http://json-twitter.example.com/2", cfg.TwitterAPIURL)
	assert.Equal(t, 3*time.Second, cfg.DBConnectionTimeout)
}

func TestConfigYAMLFile(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config*.yaml", testYAML))

	cfg, err := newTestConfig(t, WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.RunAddr)
	assert.Equal(t, "yaml.db", cfg.SQLitePath)
	assert.Equal(t, EmbeddingProviderHTTP, cfg.EmbeddingProvider)
	assert.Equal(t, "http://embeddings.example.com/v1", cfg.EmbeddingAPIURL)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config*.json", testJSON))
	t.Setenv("SERVER_ADDRESS", ":4000")

	cfg, err := newTestConfig(t, WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
}

func TestConfigPriorityAllSources(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config*.json", testJSON))
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := newTestConfig(t, WithArgs([]string{"-a", ":6000", "-l", "debug"}))
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr) // CLI > ENV > JSON
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad log level", env: map[string]string{"ENV": "test", "LOG_LEVEL": "loud"}},
		{name: "bad environment", env: map[string]string{"ENV": "staging"}},
		{name: "bad server address", env: map[string]string{"ENV": "test", "SERVER_ADDRESS": "nowhere"}},
		{name: "bad embedding provider", env: map[string]string{"ENV": "test", "EMBEDDING_PROVIDER": "basilica"}},
		{name: "sqlite path is a directory", env: map[string]string{"ENV": "test", "SQLITE_PATH": os.TempDir()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := newTestConfig(t, WithDisableFlagsParsing(true))
			assert.Error(t, err)
		})
	}
}

func TestConfigCredentials(t *testing.T) {
	t.Run("development requires a twitter token", func(t *testing.T) {
		t.Setenv("ENV", EnvironmentDevelopment)

		_, err := newTestConfig(t, WithDisableFlagsParsing(true))
		assert.ErrorIs(t, err, ErrMissingCredential)
	})

	t.Run("gemini provider requires a key", func(t *testing.T) {
		t.Setenv("ENV", EnvironmentProduction)
		t.Setenv("TWITTER_BEARER_TOKEN", "token")

		_, err := newTestConfig(t, WithDisableFlagsParsing(true))
		assert.ErrorIs(t, err, ErrMissingCredential)
	})

	t.Run("complete production configuration", func(t *testing.T) {
		t.Setenv("ENV", EnvironmentProduction)
		t.Setenv("TWITTER_BEARER_TOKEN", "token")
		t.Setenv("GEMINI_API_KEY", "key")
		t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "twitoff.db"))

		cfg, err := newTestConfig(t, WithDisableFlagsParsing(true))
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestConfigSeedUsers(t *testing.T) {
	t.Setenv("ENV", EnvironmentTest)
	t.Setenv("SEED_USERS", "elonmusk,nasa")

	cfg, err := newTestConfig(t, WithDisableFlagsParsing(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"elonmusk", "nasa"}, cfg.SeedUsers)

	cfg, err = newTestConfig(t, WithArgs([]string{"-seed", " jack , ,billgates"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"jack", "billgates"}, cfg.SeedUsers)
}
