package main

import (
	"context"
	"net/http"
	"time"

	"drbackup/internal/health"
	"drbackup/internal/metrics"
	"drbackup/internal/temporal/activities"
	"drbackup/internal/temporal/workflows"
	"drbackup/pkg/log"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/contrib/envconfig"
	"go.temporal.io/sdk/worker"
)

// dialTemporal connects using the standard TEMPORAL_* environment.
func dialTemporal(ctx context.Context, logger zerolog.Logger) (temporalclient.Client, error) {
	clientOptions := envconfig.MustLoadDefaultClientOptions()
	clientOptions.Logger = log.NewTemporalAdapter(logger)
	return temporalclient.DialContext(ctx, clientOptions)
}

func newWorkerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker and the metrics/health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := dialTemporal(ctx, a.logger)
			if err != nil {
				return err
			}
			defer c.Close()

			srv := metrics.NewServer(a.cfg.Metrics.Addr, a.registry, health.Handler(a.health, a.cfg.Projects, a.metrics))
			go func() {
				a.logger.Info().Str("addr", srv.Addr).Msg("Metrics server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error().Err(err).Msg("Metrics server stopped")
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			w := worker.New(c, a.cfg.Temporal.Queue, worker.Options{})
			workflows.Register(w, activities.NewActivities(a.cfg.Projects, a.orchestrator, a.health))

			a.logger.Info().Str("queue", a.cfg.Temporal.Queue).Int("projects", len(a.cfg.Projects)).Msg("Worker started")
			return w.Run(worker.InterruptCh())
		},
	}
}
