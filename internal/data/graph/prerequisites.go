package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/adaptive-engine/internal/data/store"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
	"github.com/yungbote/adaptive-engine/internal/platform/neo4jdb"
)

// PrerequisiteGraph reads and writes KC prerequisite edges stored as
// (:KC)-[:PREREQUISITE_OF {value}]->(:KC).
type PrerequisiteGraph struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

var _ store.PrereqSource = (*PrerequisiteGraph)(nil)

func NewPrerequisiteGraph(client *neo4jdb.Client, baseLog *logger.Logger) *PrerequisiteGraph {
	return &PrerequisiteGraph{client: client, log: baseLog.With("graph", "PrerequisiteGraph")}
}

func (g *PrerequisiteGraph) Prerequisites(ctx context.Context) ([]store.Edge, error) {
	if g.client == nil || g.client.Driver == nil {
		return nil, fmt.Errorf("neo4j client not configured")
	}
	session := g.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: g.client.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (p:KC)-[r:PREREQUISITE_OF]->(k:KC)
RETURN p.id AS prerequisite, k.id AS dependent, r.value AS value
`, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		edges := make([]store.Edge, 0, len(records))
		skipped := 0
		for _, rec := range records {
			pre, _ := rec.Get("prerequisite")
			dep, _ := rec.Get("dependent")
			val, _ := rec.Get("value")
			e, ok := parseEdge(pre, dep, val)
			if !ok {
				skipped++
				continue
			}
			edges = append(edges, e)
		}
		if skipped > 0 {
			g.log.Warn("malformed prerequisite edges ignored", "count", skipped)
		}
		return edges, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read prerequisite graph: %w", err)
	}
	return out.([]store.Edge), nil
}

// Sync replaces every PREREQUISITE_OF edge with edges.
func (g *PrerequisiteGraph) Sync(ctx context.Context, edges []store.Edge) error {
	if g.client == nil || g.client.Driver == nil {
		return fmt.Errorf("neo4j client not configured")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, map[string]any{
			"prerequisite": e.Prerequisite.String(),
			"dependent":    e.Dependent.String(),
			"value":        e.Value,
		})
	}

	session := g.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: g.client.Database,
	})
	defer session.Close(ctx)

	if res, err := session.Run(ctx, `CREATE CONSTRAINT kc_id_unique IF NOT EXISTS FOR (k:KC) REQUIRE k.id IS UNIQUE`, nil); err != nil {
		g.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (:KC)-[r:PREREQUISITE_OF]->(:KC) DELETE r`, nil)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		res, err = tx.Run(ctx, `
UNWIND $rows AS r
MERGE (p:KC {id: r.prerequisite})
MERGE (k:KC {id: r.dependent})
MERGE (p)-[e:PREREQUISITE_OF]->(k)
SET e.value = r.value, e.synced_at = $synced_at
`, map[string]any{"rows": rows, "synced_at": now})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("sync prerequisite graph: %w", err)
	}
	g.log.Info("prerequisite graph synced", "edges", len(rows))
	return nil
}

func parseEdge(pre, dep, val any) (store.Edge, bool) {
	ps, ok1 := pre.(string)
	ds, ok2 := dep.(string)
	if !ok1 || !ok2 {
		return store.Edge{}, false
	}
	p, err := uuid.Parse(ps)
	if err != nil {
		return store.Edge{}, false
	}
	d, err := uuid.Parse(ds)
	if err != nil || p == d {
		return store.Edge{}, false
	}
	var v float64
	switch t := val.(type) {
	case float64:
		v = t
	case int64:
		v = float64(t)
	default:
		return store.Edge{}, false
	}
	if v < 0 || v > 1 {
		return store.Edge{}, false
	}
	return store.Edge{Prerequisite: p, Dependent: d, Value: v}, true
}
