package main

import (
	"drbackup/internal/orchestrator"

	"github.com/spf13/cobra"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run [project...]",
		Short: "Back up all enabled projects, or only the named ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			configs, err := selectProjects(a.cfg.Projects, args)
			if err != nil {
				return err
			}

			results := a.orchestrator.RunAll(ctx, configs)
			for name, rec := range results {
				a.logger.Info().
					Str("project", name).
					Str("status", string(rec.Status)).
					Bool("stored_local", rec.StoredLocal).
					Bool("stored_offsite", rec.StoredOffsite).
					Msg("Run result")
			}

			if orchestrator.Failed(results) {
				return errFailures
			}
			return nil
		},
	}
}
