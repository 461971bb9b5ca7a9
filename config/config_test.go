package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, "artifex.db", cfg.Storage.Path)
	assert.Equal(t, "default", cfg.Storage.Namespace)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedding.Host)
	assert.Equal(t, "embeddinggemma", cfg.Embedding.Model)
	require.NotNil(t, cfg.Embedding.CacheSize)
	assert.Equal(t, 1024, *cfg.Embedding.CacheSize)
	assert.Equal(t, 64, cfg.Embedding.BatchSize)
	assert.Equal(t, time.Minute, cfg.Embedding.RequestTimeout)
	assert.Equal(t, ",", cfg.Loader.Delimiter)
	assert.Equal(t, "utf-8", cfg.Loader.Encoding)
	assert.Equal(t, "strict", cfg.Loader.EncodingErrors)
	assert.GreaterOrEqual(t, cfg.Loader.PoolSize, 1)
	assert.Equal(t, 30, cfg.Loader.HTTPTimeoutSec)
	assert.Equal(t, 5, cfg.Search.Count)
	assert.Nil(t, cfg.Search.MinScore)
	assert.Equal(t, 100, cfg.Reembed.BatchSize)
	assert.Equal(t, 3, cfg.Reembed.MaxRetries)
	assert.Equal(t, time.Second, cfg.Reembed.RetryDelay)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestParse_File(t *testing.T) {
	data := []byte(`
storage:
  path: /var/lib/artifex
  namespace: docs
embedding:
  host: http://embed:8080/v1
  model: nomic-embed-text
  cache_size: 0
  batch_size: 16
  request_timeout: 2m
loader:
  pool_size: 3
  delimiter: "|"
  encoding: latin-1
  encoding_errors: replace
search:
  count: 10
  min_score: 0.2
  verbatim_boost: 0.5
reembed:
  batch_size: 25
  retry_delay: 250ms
  skip_normalize: true
logging:
  level: debug
metrics:
  addr: ":9090"
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/artifex", cfg.Storage.Path)
	assert.Equal(t, "docs", cfg.Storage.Namespace)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	require.NotNil(t, cfg.Embedding.CacheSize)
	assert.Equal(t, 0, *cfg.Embedding.CacheSize)
	assert.Equal(t, 3, cfg.Loader.PoolSize)
	assert.Equal(t, "|", cfg.Loader.Delimiter)
	assert.Equal(t, 10, cfg.Search.Count)
	require.NotNil(t, cfg.Search.MinScore)
	assert.InDelta(t, 0.2, *cfg.Search.MinScore, 1e-6)
	require.NotNil(t, cfg.Search.VerbatimBoost)
	assert.InDelta(t, 0.5, *cfg.Search.VerbatimBoost, 1e-6)
	assert.Equal(t, 25, cfg.Reembed.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Reembed.RetryDelay)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)

	rc := cfg.ReembedConfig()
	assert.Equal(t, 25, rc.BatchSize)
	assert.False(t, rc.Normalize)

	ac := cfg.AIConfig()
	assert.Equal(t, "http://embed:8080/v1", ac.EmbeddingHost)
	assert.Equal(t, 0, ac.CacheSize)
	assert.Equal(t, 16, ac.BatchSize)
	assert.Equal(t, 2*time.Minute, ac.RequestTimeout)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("ARTIFEX_TEST_TOKEN", "secret")

	data := []byte(`
embedding:
  api_token: ${ARTIFEX_TEST_TOKEN}
  model: ${ARTIFEX_TEST_UNSET:-fallback-model}
s3:
  endpoint: ${ARTIFEX_TEST_UNSET}
`)
	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Embedding.APIToken)
	assert.Equal(t, "fallback-model", cfg.Embedding.Model)
	assert.Empty(t, cfg.S3.Endpoint)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDB, "/tmp/override.db")
	t.Setenv(EnvEmbeddingModel, "env-model")
	t.Setenv(EnvPoolSize, "7")
	t.Setenv(EnvSQLDSN, "postgres://localhost/db")

	cfg, err := Parse([]byte("storage:\n  path: file.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.Path)
	assert.Equal(t, "env-model", cfg.Embedding.Model)
	assert.Equal(t, 7, cfg.Loader.PoolSize)
	assert.Equal(t, "postgres://localhost/db", cfg.SQL.DSN)
}

func TestParse_BadPoolSizeEnv(t *testing.T) {
	t.Setenv(EnvPoolSize, "many")
	_, err := Parse(nil)
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"namespace with colon", "storage:\n  namespace: a:b\n"},
		{"negative cache", "embedding:\n  cache_size: -1\n"},
		{"bad encoding errors", "loader:\n  encoding_errors: lenient\n"},
		{"long delimiter", "loader:\n  delimiter: ';;'\n"},
		{"min score out of range", "search:\n  min_score: 2\n"},
		{"negative boost", "search:\n  verbatim_boost: -0.1\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"malformed yaml", "storage: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  in_memory: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Storage.InMemory)
	assert.Empty(t, cfg.Storage.Path)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ARTIFEX_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("ARTIFEX_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("ARTIFEX_TEST_DOTENV"))

	require.NoError(t, LoadEnvFiles(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("ARTIFEX_TEST_DOTENV"))
}

func TestLoadOptionsAndFetcher(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.LoadOptions(), 3)

	cfg.Loader.UserAgent = "artifex-test"
	f := cfg.HTTPFetcher()
	require.NotNil(t, f.Client)
	assert.Equal(t, 30*time.Second, f.Client.Timeout)
	assert.Equal(t, "artifex-test", f.UserAgent)

	cfg.S3.Endpoint = "localhost:9000"
	assert.Equal(t, "localhost:9000", cfg.ObjectStore().Endpoint)
}
