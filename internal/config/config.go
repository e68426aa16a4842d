// Package config loads the pipeline configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

const (
	CacheBackendFile  = "file"
	CacheBackendMinIO = "minio"

	PriceProviderStatic    = "static"
	PriceProviderCoinGecko = "coingecko"
)

type Config struct {
	Log        LogConfig        `yaml:"log"`
	FCD        FCDConfig        `yaml:"fcd"`
	Loader     LoaderConfig     `yaml:"loader"`
	Cache      CacheConfig      `yaml:"cache"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Price      PriceConfig      `yaml:"price"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Output     OutputConfig     `yaml:"output"`
	API        APIConfig        `yaml:"api"`
	Registry   RegistryConfig   `yaml:"registry"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type FCDConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LoaderConfig struct {
	PageSize    int           `yaml:"page_size"`
	PageDelay   time.Duration `yaml:"page_delay"`
	Concurrency int           `yaml:"concurrency"`
}

// CacheConfig selects where the transaction capture is kept. For the file
// backend Path is a directory, for MinIO the bucket comes from MinIOConfig.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Object  string `yaml:"object"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type PriceConfig struct {
	Provider     string `yaml:"provider"`
	StaticPrice  string `yaml:"static_price"`
	CoinGeckoURL string `yaml:"coingecko_url"`
}

type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// OutputConfig controls where the report goes. Archive uploads a copy of
// every report to MinIO.
type OutputConfig struct {
	Path    string `yaml:"path"`
	Archive bool   `yaml:"archive"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

type RegistryConfig struct {
	Bots        []string          `yaml:"bots"`
	Others      []string          `yaml:"others"`
	Collections map[string]string `yaml:"collections"`
}

// Load reads the YAML file at path, fills defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.setDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.FCD.URL == "" {
		c.FCD.URL = "https://fcd.terra.dev"
	}
	if c.FCD.Timeout == 0 {
		c.FCD.Timeout = 30 * time.Second
	}
	if c.Loader.PageSize == 0 {
		c.Loader.PageSize = 100
	}
	if c.Loader.Concurrency == 0 {
		c.Loader.Concurrency = 2
	}
	// Zero falls back to the delay FCD tolerates.
	if c.Loader.PageDelay == 0 {
		c.Loader.PageDelay = 700 * time.Millisecond
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheBackendFile
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "."
	}
	if c.Cache.Object == "" {
		c.Cache.Object = "all-transactions.json"
	}
	if c.Price.Provider == "" {
		c.Price.Provider = PriceProviderStatic
	}
	if c.Price.StaticPrice == "" {
		c.Price.StaticPrice = "100"
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "default"
	}
	if c.Output.Path == "" {
		c.Output.Path = "report.json"
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
}

func (c *Config) applyEnv() {
	c.FCD.URL = getEnv("FCD_URL", c.FCD.URL)
	c.Cache.Backend = getEnv("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.Path = getEnv("CACHE_PATH", c.Cache.Path)
	c.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", c.MinIO.Endpoint)
	c.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", c.MinIO.AccessKey)
	c.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", c.MinIO.SecretKey)
	c.MinIO.UseSSL = getEnvAsBool("MINIO_USE_SSL", c.MinIO.UseSSL)
	c.Price.Provider = getEnv("PRICE_PROVIDER", c.Price.Provider)
	c.ClickHouse.Addr = getEnv("CLICKHOUSE_ADDR", c.ClickHouse.Addr)
	c.ClickHouse.Enabled = getEnvAsBool("CLICKHOUSE_ENABLED", c.ClickHouse.Enabled)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Output.Path = getEnv("OUTPUT_PATH", c.Output.Path)
	c.Loader.Concurrency = getEnvAsInt("LOADER_CONCURRENCY", c.Loader.Concurrency)
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Loader.PageSize < 1 || c.Loader.PageSize > 100 {
		errs = append(errs, fmt.Errorf("loader.page_size must be between 1 and 100, got %d", c.Loader.PageSize))
	}
	if c.Loader.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("loader.concurrency must be at least 1, got %d", c.Loader.Concurrency))
	}
	if c.Loader.PageDelay < 0 {
		errs = append(errs, fmt.Errorf("loader.page_delay must not be negative, got %s", c.Loader.PageDelay))
	}

	switch c.Cache.Backend {
	case CacheBackendFile:
	case CacheBackendMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			errs = append(errs, errors.New("minio.endpoint and minio.bucket are required for the minio cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", c.Cache.Backend))
	}
	if c.Output.Archive && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		errs = append(errs, errors.New("minio.endpoint and minio.bucket are required when output.archive is set"))
	}

	switch c.Price.Provider {
	case PriceProviderStatic:
		if _, err := decimal.NewFromString(c.Price.StaticPrice); err != nil {
			errs = append(errs, fmt.Errorf("price.static_price %q is not a number", c.Price.StaticPrice))
		}
	case PriceProviderCoinGecko:
	default:
		errs = append(errs, fmt.Errorf("unknown price.provider %q", c.Price.Provider))
	}

	if c.ClickHouse.Enabled && c.ClickHouse.Addr == "" {
		errs = append(errs, errors.New("clickhouse.addr is required when clickhouse is enabled"))
	}

	if len(c.Registry.Bots) == 0 {
		errs = append(errs, errors.New("registry.bots must not be empty"))
	}
	if len(c.Registry.Collections) == 0 {
		errs = append(errs, errors.New("registry.collections must not be empty"))
	}

	return errors.Join(errs...)
}

// StaticPrice returns the configured fixed unit price.
func (c *Config) StaticPrice() decimal.Decimal {
	return decimal.RequireFromString(c.Price.StaticPrice)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
