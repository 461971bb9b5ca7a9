// Package config loads the artifex application configuration from a YAML
// file, optional .env files and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/artifex/ai"
	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/loader"
	"github.com/poiesic/artifex/reembed"
	"gopkg.in/yaml.v3"
)

// Config holds the artifex configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Loader    LoaderConfig    `yaml:"loader"`
	S3        S3Config        `yaml:"s3"`
	SQL       SQLConfig       `yaml:"sql"`
	Search    SearchConfig    `yaml:"search"`
	Reembed   ReembedConfig   `yaml:"reembed"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StorageConfig holds vector store settings.
type StorageConfig struct {
	Path      string `yaml:"path"`
	InMemory  bool   `yaml:"in_memory"`
	Namespace string `yaml:"namespace"` // default: "default"
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	Host           string        `yaml:"host"`
	Model          string        `yaml:"model"`
	APIToken       string        `yaml:"api_token"`
	CacheSize      *int          `yaml:"cache_size"` // nil means the ai default; 0 disables the cache
	BatchSize      int           `yaml:"batch_size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LoaderConfig holds loader and worker pool settings.
type LoaderConfig struct {
	PoolSize       int    `yaml:"pool_size"` // default: NumCPU/2, at least 1
	Delimiter      string `yaml:"delimiter"`
	Encoding       string `yaml:"encoding"`
	EncodingErrors string `yaml:"encoding_errors"` // strict, replace, ignore
	HTTPTimeoutSec int    `yaml:"http_timeout_sec"`
	UserAgent      string `yaml:"user_agent"`
}

// S3Config holds object store settings for s3:// sources.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// SQLConfig holds the connection string for SQL sources.
type SQLConfig struct {
	DSN string `yaml:"dsn"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	Count         int      `yaml:"count"`
	MinScore      *float32 `yaml:"min_score"`
	VerbatimBoost *float32 `yaml:"verbatim_boost"`
}

// ReembedConfig holds reembedding settings.
type ReembedConfig struct {
	BatchSize      int           `yaml:"batch_size"`
	ReportInterval int           `yaml:"report_interval"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	SkipNormalize  bool          `yaml:"skip_normalize"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: info)
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// Environment variables that override file settings.
const (
	EnvDB             = "ARTIFEX_DB"
	EnvEmbeddingHost  = "ARTIFEX_EMBEDDING_HOST"
	EnvEmbeddingModel = "ARTIFEX_EMBEDDING_MODEL"
	EnvAPIToken       = "ARTIFEX_API_TOKEN"
	EnvPoolSize       = "ARTIFEX_POOL_SIZE"
	EnvLogLevel       = "ARTIFEX_LOG_LEVEL"
	EnvMetricsAddr    = "ARTIFEX_METRICS_ADDR"
	EnvSQLDSN         = "ARTIFEX_SQL_DSN"
)

// Default returns a configuration with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// Load reads the YAML file at path, overlays environment overrides, applies
// defaults and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return Parse(data)
}

// Parse decodes YAML configuration. ${VAR} and ${VAR:-default} references
// are expanded from the environment before decoding.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadEnvFiles loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
// With no arguments ".env" in the working directory is tried.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	aiDefaults := ai.DefaultConfig()
	if c.Storage.Path == "" && !c.Storage.InMemory {
		c.Storage.Path = "artifex.db"
	}
	if c.Storage.Namespace == "" {
		c.Storage.Namespace = "default"
	}
	if c.Embedding.Host == "" {
		c.Embedding.Host = aiDefaults.EmbeddingHost
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = aiDefaults.EmbeddingModel
	}
	if c.Embedding.APIToken == "" {
		c.Embedding.APIToken = aiDefaults.APIToken
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = aiDefaults.BatchSize
	}
	if c.Embedding.RequestTimeout <= 0 {
		c.Embedding.RequestTimeout = aiDefaults.RequestTimeout
	}
	if c.Embedding.CacheSize == nil {
		size := aiDefaults.CacheSize
		c.Embedding.CacheSize = &size
	}
	if c.Loader.PoolSize <= 0 {
		c.Loader.PoolSize = loader.DefaultPoolSize()
	}
	if c.Loader.Delimiter == "" {
		c.Loader.Delimiter = artifact.DefaultDelimiter
	}
	if c.Loader.Encoding == "" {
		c.Loader.Encoding = artifact.DefaultEncoding
	}
	if c.Loader.EncodingErrors == "" {
		c.Loader.EncodingErrors = artifact.EncodingErrorsStrict
	}
	if c.Loader.HTTPTimeoutSec <= 0 {
		c.Loader.HTTPTimeoutSec = int(loader.DefaultHTTPTimeout / time.Second)
	}
	if c.Search.Count <= 0 {
		c.Search.Count = 5
	}
	reembedDefaults := reembed.DefaultConfig()
	if c.Reembed.BatchSize <= 0 {
		c.Reembed.BatchSize = reembedDefaults.BatchSize
	}
	if c.Reembed.ReportInterval <= 0 {
		c.Reembed.ReportInterval = reembedDefaults.ReportInterval
	}
	if c.Reembed.MaxRetries <= 0 {
		c.Reembed.MaxRetries = reembedDefaults.MaxRetries
	}
	if c.Reembed.RetryDelay <= 0 {
		c.Reembed.RetryDelay = reembedDefaults.RetryDelay
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if strings.Contains(c.Storage.Namespace, ":") {
		return fmt.Errorf("storage.namespace must not contain ':', got %q", c.Storage.Namespace)
	}
	if c.Embedding.CacheSize != nil && *c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding.cache_size cannot be negative, got %d", *c.Embedding.CacheSize)
	}
	switch c.Loader.EncodingErrors {
	case artifact.EncodingErrorsStrict, artifact.EncodingErrorsReplace, artifact.EncodingErrorsIgnore:
	default:
		return fmt.Errorf("loader.encoding_errors must be strict, replace or ignore, got %q", c.Loader.EncodingErrors)
	}
	if n := len([]rune(c.Loader.Delimiter)); n != 1 {
		return fmt.Errorf("loader.delimiter must be a single character, got %q", c.Loader.Delimiter)
	}
	if m := c.Search.MinScore; m != nil && (*m < -1 || *m > 1) {
		return fmt.Errorf("search.min_score must be within [-1, 1], got %v", *m)
	}
	if c.Search.VerbatimBoost != nil && *c.Search.VerbatimBoost < 0 {
		return fmt.Errorf("search.verbatim_boost cannot be negative, got %v", *c.Search.VerbatimBoost)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// AIConfig returns the embedding settings as an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIToken(c.Embedding.APIToken),
		ai.WithBatchSize(c.Embedding.BatchSize),
		ai.WithRequestTimeout(c.Embedding.RequestTimeout),
	}
	if c.Embedding.CacheSize != nil {
		opts = append(opts, ai.WithCacheSize(*c.Embedding.CacheSize))
	}
	return ai.NewConfig(opts...)
}

// ReembedConfig returns the reembedding settings as a reembed.Config.
func (c *Config) ReembedConfig() *reembed.Config {
	return &reembed.Config{
		BatchSize:      c.Reembed.BatchSize,
		ReportInterval: c.Reembed.ReportInterval,
		MaxRetries:     c.Reembed.MaxRetries,
		RetryDelay:     c.Reembed.RetryDelay,
		Normalize:      !c.Reembed.SkipNormalize,
	}
}

// LoadOptions returns the loader defaults as load options.
func (c *Config) LoadOptions() []loader.LoadOption {
	return []loader.LoadOption{
		loader.WithDelimiter(c.Loader.Delimiter),
		loader.WithEncoding(c.Loader.Encoding),
		loader.WithEncodingErrors(c.Loader.EncodingErrors),
	}
}

// ObjectStore returns the S3 settings as a loader.S3Config.
func (c *Config) ObjectStore() loader.S3Config {
	return loader.S3Config{
		Endpoint:  c.S3.Endpoint,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
		Region:    c.S3.Region,
		UseSSL:    c.S3.UseSSL,
	}
}

// HTTPFetcher returns an HTTP fetcher using the loader timeout and user agent.
func (c *Config) HTTPFetcher() loader.HTTPFetcher {
	return loader.HTTPFetcher{
		Client:    &http.Client{Timeout: time.Duration(c.Loader.HTTPTimeoutSec) * time.Second},
		UserAgent: c.Loader.UserAgent,
	}
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setString(&c.Storage.Path, EnvDB)
	setString(&c.Embedding.Host, EnvEmbeddingHost)
	setString(&c.Embedding.Model, EnvEmbeddingModel)
	setString(&c.Embedding.APIToken, EnvAPIToken)
	setString(&c.Logging.Level, EnvLogLevel)
	setString(&c.Metrics.Addr, EnvMetricsAddr)
	setString(&c.SQL.DSN, EnvSQLDSN)

	if v := os.Getenv(EnvPoolSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPoolSize, err)
		}
		c.Loader.PoolSize = n
	}
	return nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
