// Package main implements the engine CLI: schema migration, the Temporal worker and
// one-off engine operations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/adaptive-engine/internal/app"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Adaptive activity recommendation engine",
	Long: `engine recommends the next learning activity from Bayesian knowledge tracing
estimates, folds submitted scores into learner mastery and re-estimates the model
parameters from the score log.

Configuration is read from the environment (POSTGRES_*, DATABASE_DRIVER, REDIS_ADDR,
TEMPORAL_*, NEO4J_*, GCS_*, OTEL_*, BKT_*).`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Migrate()
	},
}

func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, app.LoadConfig())
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
