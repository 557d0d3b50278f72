// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// EMBEDDING_API_KEY overrides embedding.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional per-environment overlay

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly provided only as env vars.
func overrideEmptyConfig(cfg *Config) {
	envFallbacks := []struct {
		target *string
		keys   []string
	}{
		{&cfg.Embedding.APIKey, []string{"EMBEDDING_API_KEY", "OPENAI_API_KEY"}},
		{&cfg.Embedding.BaseURL, []string{"EMBEDDING_BASE_URL"}},
		{&cfg.Database.Postgres.User, []string{"DB_USER"}},
		{&cfg.Database.Postgres.Password, []string{"DB_PASSWORD"}},
		{&cfg.Database.ClickHouse.DSN, []string{"CLICKHOUSE_DSN"}},
	}

	for _, f := range envFallbacks {
		if *f.target != "" {
			continue
		}
		for _, key := range f.keys {
			if val := os.Getenv(key); val != "" {
				*f.target = val
				break
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "agriserve-query"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.ClickHouse.Table == "" {
		cfg.Database.ClickHouse.Table = "ai_audit_logs"
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 10000
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 2
	}

	if cfg.Knowledge.Backend == "" {
		cfg.Knowledge.Backend = "postgres"
	}
	if cfg.Knowledge.Index == "" {
		cfg.Knowledge.Index = "knowledge_embeddings"
	}
	if cfg.Knowledge.Threshold == 0 {
		cfg.Knowledge.Threshold = 0.3
	}
	if cfg.Knowledge.Limit == 0 {
		cfg.Knowledge.Limit = 10
	}
	if cfg.Knowledge.Timeout == 0 {
		cfg.Knowledge.Timeout = 5000
	}

	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 1000
	}
	if cfg.Cache.RedisTTLSec == 0 {
		cfg.Cache.RedisTTLSec = 86400
	}

	if cfg.Geo.RadiusKm == 0 {
		cfg.Geo.RadiusKm = 50
	}
	if cfg.Geo.Limit == 0 {
		cfg.Geo.Limit = 10
	}
	if cfg.Geo.Timeout == 0 {
		cfg.Geo.Timeout = 3000
	}

	if cfg.Audit.Sink == "" {
		cfg.Audit.Sink = "log"
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = 10000
	}
	if cfg.Audit.FlushInterval == 0 {
		cfg.Audit.FlushInterval = 100
	}
	if cfg.Audit.BatchSize == 0 {
		cfg.Audit.BatchSize = 1000
	}
	if cfg.Audit.DrainTimeout == 0 {
		cfg.Audit.DrainTimeout = 2000
	}

	if cfg.Query.Timeout == 0 {
		cfg.Query.Timeout = 15000
	}
	if cfg.Query.LiveFallbackLimit == 0 {
		cfg.Query.LiveFallbackLimit = 5
	}

	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	switch cfg.Knowledge.Backend {
	case "postgres":
	case "elasticsearch":
		if len(cfg.Database.Elasticsearch.GetAddresses()) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch knowledge backend")
		}
	default:
		return fmt.Errorf("knowledge.backend must be postgres or elasticsearch, got %q", cfg.Knowledge.Backend)
	}

	if cfg.Knowledge.Threshold < 0 || cfg.Knowledge.Threshold > 1 {
		return fmt.Errorf("knowledge.threshold must be within [0,1]")
	}

	if cfg.Cache.RedisTier && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when cache.redis_tier is set")
	}

	switch cfg.Audit.Sink {
	case "log", "postgres":
	case "clickhouse":
		if cfg.Database.ClickHouse.DSN == "" {
			return fmt.Errorf("database.clickhouse.dsn is required for the clickhouse audit sink")
		}
	default:
		return fmt.Errorf("audit.sink must be log, postgres or clickhouse, got %q", cfg.Audit.Sink)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
