package main

import (
	"fmt"
	"net/http"
	"time"

	"drbackup/internal/health"
	"drbackup/internal/record/badgerstore"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func newHealthCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report backup health of every enabled project",
		Long:  "Reads the record store directly. When a running worker holds the store, its /health endpoint is asked instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadConfig(ctx, *configPath)
			if err != nil {
				return err
			}

			var body *health.Response
			store, err := openStore(ctx, cfg.Store, logger, true)
			switch {
			case err == nil:
				defer store.Close()
				reports := health.NewEvaluator(store, hours(cfg.Health.MaxAgeHours)).Evaluate(ctx, cfg.Projects)
				body = health.NewResponse(reports)
			case errors.Is(err, badgerstore.ErrLocked):
				url := workerHealthURL(cfg)
				logger.Debug().Str("url", url).Msg("Record store in use, asking the worker")
				client := &http.Client{Timeout: 30 * time.Second}
				body, err = health.Fetch(ctx, client, url)
				if err != nil {
					return errors.Wrapf(err, "record store is locked and the worker at %s did not answer", url)
				}
			default:
				return err
			}

			out, err := json.MarshalIndent(body, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if body.Summary.Worst == health.StatusCritical {
				return errFailures
			}
			return nil
		},
	}
}
