// Package config loads the vehicle-search configuration.
//
// Order: defaults -> YAML file (optional) -> environment overrides ->
// ApplyDefaults -> Validate.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/vehicle-search/internal/notify"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Source    SourceConfig    `yaml:"source"`
	Index     IndexConfig     `yaml:"index"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Reindex   ReindexConfig   `yaml:"reindex"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit         int           `yaml:"rate_limit"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, also writes logs to a rotated file.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type TransportConfig struct {
	// Kind is redis, nats or memory. memory is in-process: notifications
	// only arrive through POST /v1/notifications/{topic}.
	Kind   string        `yaml:"kind"`
	Topics notify.Topics `yaml:"topics"`
	Redis  RedisConfig   `yaml:"redis"`
	NATS   NATSConfig    `yaml:"nats"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NATSConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type SourceConfig struct {
	Kind string           `yaml:"kind"` // http | sql
	HTTP CatalogAPIConfig `yaml:"http"`
	SQL  CatalogDBConfig  `yaml:"sql"`
}

type CatalogAPIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

type CatalogDBConfig struct {
	Driver string `yaml:"driver"` // pgx | sqlite
	DSN    string `yaml:"dsn"`
}

type IndexConfig struct {
	Kind string `yaml:"kind"` // meilisearch | elasticsearch | memory
	Name string `yaml:"name"`
	// Configure applies searchable/filterable settings at startup.
	Configure   bool              `yaml:"configure"`
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
	Elastic     ElasticConfig     `yaml:"elasticsearch"`
}

type MeilisearchConfig struct {
	URL      string        `yaml:"url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

type ElasticConfig struct {
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
}

type IndexerConfig struct {
	Workers         int           `yaml:"workers"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ReindexConfig struct {
	// Enabled turns on the periodic sweep inside the service. The sweep is
	// always available from the reindex command and the admin route.
	Enabled        bool          `yaml:"enabled"`
	Interval       time.Duration `yaml:"interval"`
	PageSize       int           `yaml:"page_size"`
	Rate           float64       `yaml:"rate"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: ":4002", RateLimit: 100, ReadHeaderTimeout: 5 * time.Second},
		Log:  LogConfig{Level: "info", Format: "text", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 14},
		Transport: TransportConfig{
			Kind:   "redis",
			Topics: notify.DefaultTopics(),
			Redis:  RedisConfig{Addr: "redis:6379"},
			NATS:   NATSConfig{URL: "nats://nats:4222", Name: "vehicle-search"},
		},
		Source: SourceConfig{
			Kind: "http",
			HTTP: CatalogAPIConfig{BaseURL: "http://catalog.api:8080", Timeout: 6 * time.Second},
			SQL:  CatalogDBConfig{Driver: "sqlite"},
		},
		Index: IndexConfig{
			Kind:        "meilisearch",
			Name:        "vehicles",
			Configure:   true,
			Meilisearch: MeilisearchConfig{URL: "http://meilisearch:7700", Timeout: 6 * time.Second},
			Elastic:     ElasticConfig{Addresses: []string{"http://elasticsearch:9200"}},
		},
		Indexer: IndexerConfig{Workers: 8, HandlerTimeout: 15 * time.Second, ShutdownTimeout: 10 * time.Second},
		Reindex: ReindexConfig{Interval: 6 * time.Hour, PageSize: 100, Rate: 20, RequestTimeout: 10 * time.Second},
	}
}

// Load reads path (if it exists) over the defaults and applies environment
// overrides. An empty path or a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnvOverrides()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnvOverrides() {
	if port := GetInt("PORT", 0); port > 0 {
		c.HTTP.Addr = fmt.Sprintf(":%d", port)
	}
	c.HTTP.Addr = Get("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.RateLimit = GetInt("HTTP_RATE_LIMIT", c.HTTP.RateLimit)

	c.Log.Level = Get("LOG_LEVEL", c.Log.Level)
	c.Log.Format = Get("LOG_FORMAT", c.Log.Format)
	c.Log.File = Get("LOG_FILE", c.Log.File)

	c.Transport.Kind = Get("TRANSPORT", c.Transport.Kind)
	c.Transport.Topics.Upserted = Get("TOPIC_UPSERTED", c.Transport.Topics.Upserted)
	c.Transport.Topics.Deleted = Get("TOPIC_DELETED", c.Transport.Topics.Deleted)
	c.Transport.Redis.Addr = Get("REDIS_ADDR", c.Transport.Redis.Addr)
	c.Transport.Redis.Password = Get("REDIS_PASSWORD", c.Transport.Redis.Password)
	c.Transport.Redis.DB = GetInt("REDIS_DB", c.Transport.Redis.DB)
	c.Transport.NATS.URL = Get("NATS_URL", c.Transport.NATS.URL)

	c.Source.Kind = Get("SOURCE", c.Source.Kind)
	c.Source.HTTP.BaseURL = Get("CATALOG_URL", c.Source.HTTP.BaseURL)
	c.Source.HTTP.Timeout = GetDuration("CATALOG_TIMEOUT", c.Source.HTTP.Timeout)
	c.Source.HTTP.RetryMax = GetInt("CATALOG_RETRY_MAX", c.Source.HTTP.RetryMax)
	c.Source.SQL.Driver = Get("CATALOG_DB_DRIVER", c.Source.SQL.Driver)
	c.Source.SQL.DSN = Get("CATALOG_DB_DSN", c.Source.SQL.DSN)

	c.Index.Kind = Get("INDEX", c.Index.Kind)
	c.Index.Name = Get("INDEX_NAME", c.Index.Name)
	c.Index.Configure = GetBool("INDEX_CONFIGURE", c.Index.Configure)
	c.Index.Meilisearch.URL = Get("MEILI_URL", c.Index.Meilisearch.URL)
	c.Index.Meilisearch.APIKey = Get("MEILI_API_KEY", c.Index.Meilisearch.APIKey)
	c.Index.Elastic.Addresses = GetList("ES_ADDRESSES", c.Index.Elastic.Addresses)
	c.Index.Elastic.Username = Get("ES_USERNAME", c.Index.Elastic.Username)
	c.Index.Elastic.Password = Get("ES_PASSWORD", c.Index.Elastic.Password)

	c.Indexer.Workers = GetInt("INDEXER_WORKERS", c.Indexer.Workers)
	c.Indexer.HandlerTimeout = GetDuration("INDEXER_HANDLER_TIMEOUT", c.Indexer.HandlerTimeout)
	c.Indexer.ShutdownTimeout = GetDuration("INDEXER_SHUTDOWN_TIMEOUT", c.Indexer.ShutdownTimeout)

	c.Reindex.Enabled = GetBool("REINDEX_ENABLED", c.Reindex.Enabled)
	c.Reindex.Interval = GetDuration("REINDEX_INTERVAL", c.Reindex.Interval)
	c.Reindex.PageSize = GetInt("REINDEX_PAGE_SIZE", c.Reindex.PageSize)
	c.Reindex.Rate = GetFloat("REINDEX_RATE", c.Reindex.Rate)
}

// ApplyDefaults fills zero values left by a sparse file or environment.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = d.HTTP.Addr
	}
	if c.HTTP.RateLimit < 0 {
		c.HTTP.RateLimit = d.HTTP.RateLimit
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		c.HTTP.ReadHeaderTimeout = d.HTTP.ReadHeaderTimeout
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	c.Transport.Kind = strings.ToLower(c.Transport.Kind)
	if c.Transport.Topics.Upserted == "" {
		c.Transport.Topics.Upserted = d.Transport.Topics.Upserted
	}
	if c.Transport.Topics.Deleted == "" {
		c.Transport.Topics.Deleted = d.Transport.Topics.Deleted
	}
	c.Source.Kind = strings.ToLower(c.Source.Kind)
	c.Index.Kind = strings.ToLower(c.Index.Kind)
	if c.Index.Name == "" {
		c.Index.Name = d.Index.Name
	}
	if c.Indexer.Workers <= 0 {
		c.Indexer.Workers = d.Indexer.Workers
	}
	if c.Indexer.HandlerTimeout <= 0 {
		c.Indexer.HandlerTimeout = d.Indexer.HandlerTimeout
	}
	if c.Indexer.ShutdownTimeout <= 0 {
		c.Indexer.ShutdownTimeout = d.Indexer.ShutdownTimeout
	}
	if c.Reindex.PageSize <= 0 {
		c.Reindex.PageSize = d.Reindex.PageSize
	}
	if c.Reindex.RequestTimeout <= 0 {
		c.Reindex.RequestTimeout = d.Reindex.RequestTimeout
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Transport.Kind {
	case "redis":
		if c.Transport.Redis.Addr == "" {
			errs = append(errs, errors.New("transport.redis.addr is required"))
		}
	case "nats":
		if c.Transport.NATS.URL == "" {
			errs = append(errs, errors.New("transport.nats.url is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("transport.kind %q: want redis, nats or memory", c.Transport.Kind))
	}
	if err := c.Transport.Topics.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Source.Kind {
	case "http":
		if c.Source.HTTP.BaseURL == "" {
			errs = append(errs, errors.New("source.http.base_url is required"))
		}
	case "sql":
		if c.Source.SQL.Driver != "pgx" && c.Source.SQL.Driver != "sqlite" {
			errs = append(errs, fmt.Errorf("source.sql.driver %q: want pgx or sqlite", c.Source.SQL.Driver))
		}
		if c.Source.SQL.DSN == "" {
			errs = append(errs, errors.New("source.sql.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.kind %q: want http or sql", c.Source.Kind))
	}

	switch c.Index.Kind {
	case "meilisearch":
		if c.Index.Meilisearch.URL == "" {
			errs = append(errs, errors.New("index.meilisearch.url is required"))
		}
	case "elasticsearch":
		if len(c.Index.Elastic.Addresses) == 0 {
			errs = append(errs, errors.New("index.elasticsearch.addresses is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("index.kind %q: want meilisearch, elasticsearch or memory", c.Index.Kind))
	}

	if c.Reindex.Enabled && c.Reindex.Interval <= 0 {
		errs = append(errs, errors.New("reindex.interval must be positive when reindex is enabled"))
	}
	if c.Reindex.Rate < 0 {
		errs = append(errs, errors.New("reindex.rate must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
