package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/adaptive-engine/internal/observability"
	"github.com/yungbote/adaptive-engine/internal/temporalx/temporalworker"
)

var workerMigrate bool

func init() {
	workerCmd.Flags().BoolVar(&workerMigrate, "migrate", false, "Migrate the schema before starting")
	rootCmd.AddCommand(workerCmd)
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker for batch estimation",
	Long: `Run the Temporal worker that executes batch estimation workflows. When
ESTIMATION_INTERVAL_SECONDS is set the recurring schedule is created on start.
Prometheus metrics are served on METRICS_ADDR.`,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if workerMigrate {
		if err := a.Migrate(); err != nil {
			return err
		}
	}

	tc, err := a.ConnectTemporal()
	if err != nil {
		return err
	}
	if tc == nil {
		return fmt.Errorf("worker needs TEMPORAL_ADDRESS")
	}
	runner, err := temporalworker.NewRunner(a.Log, tc, a.Cfg.Temporal, a.Engine)
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Addr: a.Cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Error("metrics server failed", "error", err)
		}
	}()
	a.Log.Info("worker running", "metrics_addr", a.Cfg.MetricsAddr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	a.Log.Info("worker stopped")
	return nil
}
