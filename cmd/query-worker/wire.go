package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"agriserve-query/internal/api"
	"agriserve-query/internal/audit"
	"agriserve-query/internal/common/camunda"
	"agriserve-query/internal/common/config"
	"agriserve-query/internal/common/database"
	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/query/embedding"
	"agriserve-query/internal/query/engine"
	"agriserve-query/internal/query/geo"
	"agriserve-query/internal/query/handlers"
	"agriserve-query/internal/query/knowledge"
	"agriserve-query/internal/query/store"
)

// dependencies holds every external connection. Optional ones stay nil.
type dependencies struct {
	zeebe      *camunda.Client
	pg         *database.PostgresClient
	es         *database.ElasticsearchClient
	redis      *database.RedisClient
	clickhouse driver.Conn
	audit      *audit.Logger
}

func connect(cfg *config.Config, zapLog *zap.Logger, log logger.Logger) (*dependencies, error) {
	ctx := context.Background()
	d := &dependencies{}

	// --- Init Zeebe Client (retries internally) ---
	if cfg.Camunda.Enabled {
		zc, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			RetryConfig:            &camunda.RetryConfig{MaxRetries: 10, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second},
		})
		if err != nil {
			return nil, err
		}
		d.zeebe = zc
		zapLog.Info("Zeebe client connected successfully")
	}

	// --- Init PostgreSQL with retry ---
	err := retryWithBackoff(func() error {
		var err error
		d.pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return d.pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		d.close(zapLog)
		return nil, err
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry (knowledge backend only) ---
	if cfg.Knowledge.Backend == "elasticsearch" {
		err = retryWithBackoff(func() error {
			var err error
			d.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return d.es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			d.close(zapLog)
			return nil, err
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init Redis with retry (shared embedding tier only) ---
	if cfg.Cache.RedisTier {
		err = retryWithBackoff(func() error {
			var err error
			d.redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return d.redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			d.close(zapLog)
			return nil, err
		}
		zapLog.Info("Redis connected successfully")
	}

	// --- Init ClickHouse with retry (audit sink only) ---
	if cfg.Audit.Sink == "clickhouse" {
		err = retryWithBackoff(func() error {
			var err error
			d.clickhouse, err = database.NewClickHouse(ctx, cfg.Database.ClickHouse)
			return err
		}, 10, 2*time.Second, zapLog, "ClickHouse connection")
		if err != nil {
			d.close(zapLog)
			return nil, err
		}
		zapLog.Info("ClickHouse connected successfully")
	}

	d.audit = audit.NewLogger(d.auditSink(cfg, log), audit.Options{
		BufferSize:    cfg.Audit.BufferSize,
		FlushInterval: config.GetDuration(cfg.Audit.FlushInterval),
		BatchSize:     cfg.Audit.BatchSize,
		DrainTimeout:  config.GetDuration(cfg.Audit.DrainTimeout),
	}, log)
	return d, nil
}

func (d *dependencies) auditSink(cfg *config.Config, log logger.Logger) audit.Sink {
	switch cfg.Audit.Sink {
	case "postgres":
		return audit.NewPostgresSink(d.pg.DB)
	case "clickhouse":
		return audit.NewClickHouseSink(d.clickhouse, cfg.Database.ClickHouse.Table)
	default:
		return audit.NewLogSink(log)
	}
}

func (d *dependencies) checks() map[string]api.Check {
	checks := map[string]api.Check{
		"postgres": d.pg.Ping,
	}
	if d.zeebe != nil {
		checks["zeebe"] = d.zeebe.HealthCheck
	}
	if d.es != nil {
		checks["elasticsearch"] = d.es.Ping
	}
	if d.redis != nil {
		checks["redis"] = d.redis.Ping
	}
	if d.clickhouse != nil {
		checks["clickhouse"] = d.clickhouse.Ping
	}
	return checks
}

func (d *dependencies) close(zapLog *zap.Logger) {
	closers := []struct {
		name  string
		close func() error
	}{
		{"zeebe", func() error { return closeIf(d.zeebe != nil, func() error { return d.zeebe.Close() }) }},
		{"postgres", func() error { return closeIf(d.pg != nil, func() error { return d.pg.Close() }) }},
		{"redis", func() error { return closeIf(d.redis != nil, func() error { return d.redis.Close() }) }},
		{"clickhouse", func() error { return closeIf(d.clickhouse != nil, func() error { return d.clickhouse.Close() }) }},
	}
	for _, c := range closers {
		if err := c.close(); err != nil {
			zapLog.Warn(fmt.Sprintf("closing %s failed", c.name), zap.Error(err))
		}
	}
}

func closeIf(ok bool, fn func() error) error {
	if !ok {
		return nil
	}
	return fn()
}

func buildEngine(cfg *config.Config, d *dependencies, rec engine.Recorder, log logger.Logger) *engine.Engine {
	st := store.NewPostgres(d.pg.DB)

	var embedder handlers.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = embedding.NewService(buildCache(cfg, d, log), embedding.NewOpenAIProvider(cfg.Embedding, log),
			embedding.NewScrubber(), log)
	} else {
		log.Warn("embedding api key not set, vector search answers from live data only", nil)
	}

	var searcher knowledge.Searcher
	switch cfg.Knowledge.Backend {
	case "elasticsearch":
		searcher = knowledge.NewElasticsearchSearcher(d.es.Client, cfg.Knowledge.Index)
	default:
		searcher = knowledge.NewPostgresSearcher(d.pg.DB)
	}

	var enricher *geo.Enricher
	if cfg.Geo.Enabled {
		enricher = geo.NewEnricher(st, geo.Config{
			RadiusKm: cfg.Geo.RadiusKm,
			Limit:    cfg.Geo.Limit,
			Timeout:  config.GetDuration(cfg.Geo.Timeout),
		}, log)
	}

	return engine.New(engine.Deps{
		Store:    st,
		Embedder: embedder,
		Searcher: searcher,
		Geo:      enricher,
		Audit:    d.audit,
		Recorder: rec,
		Log:      log,
	}, engine.Options{
		Timeout: config.GetDuration(cfg.Query.Timeout),
		Handlers: handlers.Options{
			Knowledge: knowledge.Options{
				Threshold: cfg.Knowledge.Threshold,
				Limit:     cfg.Knowledge.Limit,
			},
			KnowledgeTimeout:  config.GetDuration(cfg.Knowledge.Timeout),
			LiveFallbackLimit: cfg.Query.LiveFallbackLimit,
		},
	})
}

// buildCache returns the in-process LRU, fronting Redis when the shared tier
// is enabled.
func buildCache(cfg *config.Config, d *dependencies, log logger.Logger) embedding.Cache {
	local, err := embedding.NewLRUCache(cfg.Cache.Size, time.Now)
	if err != nil {
		log.Warn("invalid cache size, using default", map[string]interface{}{"size": cfg.Cache.Size})
		local, _ = embedding.NewLRUCache(1000, time.Now)
	}
	if d.redis == nil {
		return local
	}
	remote := embedding.NewRedisCache(d.redis.Client, time.Duration(cfg.Cache.RedisTTLSec)*time.Second, log)
	return embedding.NewTieredCache(local, remote)
}
