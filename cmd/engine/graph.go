package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/adaptive-engine/internal/data/graph"
	"github.com/yungbote/adaptive-engine/internal/data/store"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
)

func init() {
	graphCmd.AddCommand(graphSyncCmd)
	rootCmd.AddCommand(graphCmd)
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Manage the Neo4j prerequisite graph",
}

var graphSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replace the Neo4j prerequisite edges with the database table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.Clients.Neo4j == nil {
			return fmt.Errorf("graph sync needs NEO4J_URI")
		}
		rows, err := a.Repos.Prerequisites.ListAll(dbctx.Context{Ctx: ctx})
		if err != nil {
			return err
		}
		edges := make([]store.Edge, len(rows))
		for i, r := range rows {
			edges[i] = store.Edge{Prerequisite: r.PrerequisiteID, Dependent: r.KnowledgeComponentID, Value: r.Value}
		}
		if err := graph.NewPrerequisiteGraph(a.Clients.Neo4j, a.Log).Sync(ctx, edges); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "synced %d edges\n", len(edges))
		return nil
	},
}
