package main

import (
	"fmt"
	"time"

	"drbackup/internal/temporal/workflows"
	"drbackup/pkg/names"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"
)

func newTriggerCmd(configPath *string) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "trigger [project...]",
		Short: "Start a backup-all workflow on the Temporal cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadConfig(ctx, *configPath)
			if err != nil {
				return err
			}

			if _, err := selectProjects(cfg.Projects, args); err != nil {
				return err
			}

			c, err := dialTemporal(ctx, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			options := temporalclient.StartWorkflowOptions{
				ID:        fmt.Sprintf("%s-%s-%s", names.WorkflowNameBackupAll, time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8]),
				TaskQueue: cfg.Temporal.Queue,
			}
			run, err := c.ExecuteWorkflow(ctx, options, names.WorkflowNameBackupAll, workflows.BackupAllWorkflowInput{
				Projects:        args,
				ActivityTimeout: cfg.Temporal.ActivityTimeout,
			})
			if err != nil {
				return fmt.Errorf("start workflow: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started %s (run %s)\n", run.GetID(), run.GetRunID())

			if !wait {
				return nil
			}

			var out workflows.BackupAllWorkflowOutput
			if err := run.Get(ctx, &out); err != nil {
				return fmt.Errorf("workflow failed: %w", err)
			}
			if len(out.Failed) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "failed projects: %v\n", out.Failed)
				return errFailures
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for the workflow to finish")
	return cmd
}
