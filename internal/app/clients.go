package app

import (
	"context"
	"fmt"

	"github.com/yungbote/adaptive-engine/internal/clients/gcs"
	"github.com/yungbote/adaptive-engine/internal/clients/redis"
	"github.com/yungbote/adaptive-engine/internal/data/bulk"
	"github.com/yungbote/adaptive-engine/internal/data/db"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
	"github.com/yungbote/adaptive-engine/internal/platform/neo4jdb"
)

type Clients struct {
	Locker   *redis.Locker
	Exporter *gcs.Exporter
	Neo4j    *neo4jdb.Client
	Bulk     *bulk.ParamWriter
}

func wireClients(ctx context.Context, cfg Config, driver string, log *logger.Logger) (c Clients, err error) {
	log.Info("Wiring clients...")
	defer func() {
		if err != nil {
			c.Close(ctx)
		}
	}()

	if cfg.Redis.Addr != "" {
		if c.Locker, err = redis.NewLocker(cfg.Redis, log); err != nil {
			return c, fmt.Errorf("init redis locker: %w", err)
		}
	}
	if cfg.GCS.Bucket != "" {
		if c.Exporter, err = gcs.New(ctx, cfg.GCS, log); err != nil {
			return c, fmt.Errorf("init gcs exporter: %w", err)
		}
	}
	if c.Neo4j, err = neo4jdb.New(cfg.Neo4j, log); err != nil {
		return c, fmt.Errorf("init neo4j: %w", err)
	}
	if cfg.BulkParams {
		if driver != db.DriverPostgres {
			log.Warn("bulk parameter writes need postgres; using gorm batches", "driver", driver)
		} else if c.Bulk, err = bulk.NewParamWriter(ctx, cfg.DB.DSN(), log); err != nil {
			return c, fmt.Errorf("init bulk writer: %w", err)
		}
	}
	return c, nil
}

func (c *Clients) Close(ctx context.Context) {
	if c == nil {
		return
	}
	if c.Locker != nil {
		_ = c.Locker.Close()
	}
	if c.Exporter != nil {
		_ = c.Exporter.Close()
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(ctx)
	}
	if c.Bulk != nil {
		c.Bulk.Close()
	}
}
