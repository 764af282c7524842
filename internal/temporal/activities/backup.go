package activities

import (
	"context"
	"fmt"

	"drbackup/internal/record"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

type BackupProjectActivityInput struct {
	Project string `json:"project"`
}

type BackupProjectActivityOutput struct {
	Record *record.Record `json:"record"`
}

// BackupProjectActivity runs one project through the pipeline. A failed
// backup is not an activity error: it comes back as a failed record so the
// workflow moves on to the next project.
func (a *Activities) BackupProjectActivity(ctx context.Context, input BackupProjectActivityInput) (*BackupProjectActivityOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("BackupProjectActivity started", "project", input.Project)

	cfg, ok := a.project(input.Project)
	if !ok {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("project %q is not configured", input.Project), "UnknownProject", nil)
	}
	if !cfg.IsEnabled() {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("project %q is disabled", input.Project), "DisabledProject", nil)
	}

	rec, err := a.Orchestrator.RunIsolated(ctx, cfg)
	if err != nil {
		logger.Error("Backup failed", "project", input.Project, "error", err)
	}

	logger.Info("BackupProjectActivity completed", "project", input.Project, "status", rec.Status)
	return &BackupProjectActivityOutput{Record: rec}, nil
}
