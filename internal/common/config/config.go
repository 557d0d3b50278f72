// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Embedding EmbeddingConfig         `mapstructure:"embedding"`
	Knowledge KnowledgeConfig         `mapstructure:"knowledge"`
	Cache     CacheConfig             `mapstructure:"cache"`
	Geo       GeoConfig               `mapstructure:"geo"`
	Audit     AuditConfig             `mapstructure:"audit"`
	Query     QueryConfig             `mapstructure:"query"`
	HTTP      HTTPConfig              `mapstructure:"http"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
	ClickHouse    ClickHouseConfig    `mapstructure:"clickhouse"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// GetAddresses returns the configured node list, falling back to URL.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ClickHouseConfig is only used by the clickhouse audit sink.
type ClickHouseConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// --- Query engine sections ---

// EmbeddingConfig points at an OpenAI-compatible embeddings endpoint.
type EmbeddingConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// KnowledgeConfig selects and tunes the knowledge-base similarity search.
type KnowledgeConfig struct {
	Backend   string  `mapstructure:"backend"` // postgres | elasticsearch
	Index     string  `mapstructure:"index"`
	Threshold float64 `mapstructure:"threshold"`
	Limit     int     `mapstructure:"limit"`
	Timeout   int     `mapstructure:"timeout"` // milliseconds
}

type CacheConfig struct {
	Size        int  `mapstructure:"size"`
	RedisTier   bool `mapstructure:"redis_tier"`
	RedisTTLSec int  `mapstructure:"redis_ttl_seconds"`
}

type GeoConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	RadiusKm float64 `mapstructure:"radius_km"`
	Limit    int     `mapstructure:"limit"`
	Timeout  int     `mapstructure:"timeout"` // milliseconds
}

// AuditConfig controls the background audit drain.
type AuditConfig struct {
	Sink          string `mapstructure:"sink"` // log | postgres | clickhouse
	BufferSize    int    `mapstructure:"buffer_size"`
	FlushInterval int    `mapstructure:"flush_interval"` // milliseconds
	BatchSize     int    `mapstructure:"batch_size"`
	DrainTimeout  int    `mapstructure:"drain_timeout"` // milliseconds
}

type QueryConfig struct {
	Timeout           int `mapstructure:"timeout"` // milliseconds
	LiveFallbackLimit int `mapstructure:"live_fallback_limit"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RedisTTL returns the embedding TTL in the Redis tier.
func (c CacheConfig) RedisTTL() time.Duration {
	return time.Duration(c.RedisTTLSec) * time.Second
}
