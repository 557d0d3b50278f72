package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  postgres:
    host: localhost
    database: agriserve
    user: agri
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "agriserve-query", cfg.App.Name)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "postgres", cfg.Knowledge.Backend)
	assert.InDelta(t, 0.3, cfg.Knowledge.Threshold, 1e-9)
	assert.Equal(t, 10, cfg.Knowledge.Limit)
	assert.Equal(t, 1000, cfg.Cache.Size)
	assert.Equal(t, "log", cfg.Audit.Sink)
	assert.Equal(t, 5, cfg.Query.LiveFallbackLimit)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 24*time.Hour, cfg.Cache.RedisTTL())
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	path := writeConfig(t, `
database:
  postgres:
    host: ${TEST_DB_HOST}
    database: agriserve
    user: agri
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing postgres host",
			body:    "database:\n  postgres:\n    database: x\n    user: y\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name: "unknown knowledge backend",
			body: "database:\n  postgres:\n    host: h\n    database: x\n    user: y\nknowledge:\n  backend: milvus\n",
			wantErr: "knowledge.backend must be postgres or elasticsearch",
		},
		{
			name: "elasticsearch backend without addresses",
			body: "database:\n  postgres:\n    host: h\n    database: x\n    user: y\nknowledge:\n  backend: elasticsearch\n",
			wantErr: "database.elasticsearch.addresses or url is required",
		},
		{
			name: "clickhouse sink without dsn",
			body: "database:\n  postgres:\n    host: h\n    database: x\n    user: y\naudit:\n  sink: clickhouse\n",
			wantErr: "database.clickhouse.dsn is required",
		},
		{
			name: "camunda enabled without broker",
			body: "camunda:\n  enabled: true\ndatabase:\n  postgres:\n    host: h\n    database: x\n    user: y\n",
			wantErr: "camunda.broker_address is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLICKHOUSE_DSN", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_FallsBackToDefaults(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"smart-query": {Enabled: false, MaxJobsActive: 2, Timeout: 1000, MaxRetries: 1},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "smart-query").MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "smart-query"))

	def := GetWorkerConfig(cfg, "unknown")
	assert.True(t, def.Enabled)
	assert.Equal(t, 30000, def.Timeout)
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
}

func TestElasticsearchConfig_Addresses(t *testing.T) {
	assert.Equal(t, []string{"http://a:9200"}, ElasticsearchConfig{URL: "http://a:9200"}.GetAddresses())
	assert.Equal(t, "http://b:9200", ElasticsearchConfig{Addresses: []string{"http://b:9200"}}.GetURL())
	assert.Nil(t, ElasticsearchConfig{}.GetAddresses())
}
