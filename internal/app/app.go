package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/adaptive-engine/internal/data/db"
	"github.com/yungbote/adaptive-engine/internal/data/graph"
	"github.com/yungbote/adaptive-engine/internal/data/repos"
	"github.com/yungbote/adaptive-engine/internal/data/store"
	"github.com/yungbote/adaptive-engine/internal/engine"
	"github.com/yungbote/adaptive-engine/internal/observability"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
	"github.com/yungbote/adaptive-engine/internal/temporalx"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Repos    *repos.Set
	Store    *store.Store
	Engine   *engine.Engine
	Clients  Clients
	Temporal temporalsdkclient.Client

	shutdownOtel func(context.Context) error
}

// New connects every configured backend and wires the engine. Optional backends
// (Redis, Neo4j, GCS, Temporal) are skipped when their address is unset.
func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg}
	a.shutdownOtel = observability.InitOTel(ctx, log, cfg.Otel)

	dbs, err := db.NewService(cfg.DB, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = dbs
	if err := observability.RegisterDBStats(dbs.DB(), "engine"); err != nil {
		log.Warn("db stats collector not registered", "error", err)
	}
	a.Repos = repos.NewSet(dbs.DB(), log)

	a.Clients, err = wireClients(ctx, cfg, dbs.Driver(), log)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []store.Option{store.WithDefaultSettings(cfg.DefaultSettings)}
	if a.Clients.Neo4j != nil {
		opts = append(opts, store.WithPrereqSource(graph.NewPrerequisiteGraph(a.Clients.Neo4j, log)))
	}
	if a.Clients.Bulk != nil {
		opts = append(opts, store.WithParamWriter(a.Clients.Bulk))
	}
	a.Store = store.New(dbs.DB(), a.Repos, cfg.BKT, log, opts...)

	engOpts := []engine.Option{engine.WithSeed(cfg.Seed)}
	if a.Clients.Locker != nil {
		engOpts = append(engOpts, engine.WithLocker(a.Clients.Locker))
	}
	if a.Clients.Exporter != nil {
		engOpts = append(engOpts, engine.WithExporter(a.Clients.Exporter))
	}
	a.Engine, err = engine.New(a.Store, cfg.BKT, log, engOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init engine: %w", err)
	}
	return a, nil
}

func (a *App) Migrate() error {
	if err := db.AutoMigrateAll(a.DB.DB()); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	a.Log.Info("schema migrated", "driver", a.DB.Driver())
	return nil
}

// ConnectTemporal dials Temporal on first use. It returns nil when Temporal is disabled.
func (a *App) ConnectTemporal() (temporalsdkclient.Client, error) {
	if a.Temporal != nil {
		return a.Temporal, nil
	}
	c, err := temporalx.NewClient(a.Cfg.Temporal, a.Log)
	if err != nil {
		return nil, err
	}
	a.Temporal = c
	return c, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx := context.Background()
	if a.Temporal != nil {
		a.Temporal.Close()
	}
	a.Clients.Close(ctx)
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
