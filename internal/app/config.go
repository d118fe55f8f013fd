package app

import (
	"github.com/yungbote/adaptive-engine/internal/bkt"
	"github.com/yungbote/adaptive-engine/internal/clients/gcs"
	"github.com/yungbote/adaptive-engine/internal/clients/redis"
	"github.com/yungbote/adaptive-engine/internal/data/db"
	"github.com/yungbote/adaptive-engine/internal/observability"
	"github.com/yungbote/adaptive-engine/internal/platform/envutil"
	"github.com/yungbote/adaptive-engine/internal/platform/neo4jdb"
	"github.com/yungbote/adaptive-engine/internal/temporalx"
)

type Config struct {
	LogMode string

	DB       db.Config
	Redis    redis.Config
	Temporal temporalx.Config
	Neo4j    neo4jdb.Config
	GCS      gcs.Config
	Otel     observability.OtelConfig
	BKT      bkt.Config

	MetricsAddr string
	// DefaultSettings is the profile assigned to learners created on first contact.
	DefaultSettings string
	// BulkParams swaps parameters through pgx COPY instead of gorm batches.
	BulkParams bool
	Seed       int64
}

func LoadConfig() Config {
	return Config{
		LogMode: envutil.String("LOG_MODE", "development"),
		DB: db.Config{
			Driver:        envutil.String("DATABASE_DRIVER", db.DriverPostgres),
			Host:          envutil.String("POSTGRES_HOST", "localhost"),
			Port:          envutil.String("POSTGRES_PORT", "5432"),
			User:          envutil.String("POSTGRES_USER", "postgres"),
			Password:      envutil.String("POSTGRES_PASSWORD", ""),
			Name:          envutil.String("POSTGRES_NAME", "adaptive_engine"),
			SSLMode:       envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:    envutil.String("SQLITE_PATH", "adaptive-engine.db"),
			MaxOpenConns:  envutil.Int("DB_MAX_OPEN_CONNS", 20),
			SlowThreshold: envutil.Millis("DB_SLOW_THRESHOLD_MS", 1000),
		},
		Redis:    redis.ConfigFromEnv(),
		Temporal: temporalx.LoadConfig(),
		Neo4j:    neo4jdb.ConfigFromEnv(),
		GCS:      gcs.ConfigFromEnv(),
		Otel:     observability.OtelConfigFromEnv(),
		BKT:      bkt.ConfigFromEnv(),

		MetricsAddr:     envutil.String("METRICS_ADDR", ":9090"),
		DefaultSettings: envutil.String("ENGINE_DEFAULT_SETTINGS", ""),
		BulkParams:      envutil.Bool("ENGINE_BULK_PARAMS", false),
		Seed:            int64(envutil.Int("ENGINE_SEED", 0)),
	}
}
