package workflows

import (
	"slices"
	"time"

	"drbackup/internal/health"
	"drbackup/internal/record"
	"drbackup/internal/temporal/activities"
	"drbackup/pkg/names"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

type BackupAllWorkflowOutput struct {
	Records map[string]*record.Record `json:"records"`
	Failed  []string                  `json:"failed"`
	Health  *health.Summary           `json:"health,omitempty"`
}

// backupOptions never retries: a backup run is not idempotent and its
// failures are already captured as records.
func backupOptions(timeout time.Duration) workflow.ActivityOptions {
	if timeout <= 0 {
		timeout = defaultActivityTimeout
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
}

func queryOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
}

// BackupAllWorkflow backs up projects one after another and then evaluates
// health. A failing project never stops the rest.
func BackupAllWorkflow(ctx workflow.Context, input BackupAllWorkflowInput) (*BackupAllWorkflowOutput, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("BackupAllWorkflow started", "projects", input.Projects)

	result := &BackupAllWorkflowOutput{Records: make(map[string]*record.Record), Failed: []string{}}

	////////////////////////////////////////
	// 1. Resolve the enabled projects
	////////////////////////////////////////
	queryCtx := workflow.WithActivityOptions(ctx, queryOptions())

	ListProjectsActivityOutput := new(activities.ListProjectsActivityOutput)
	err := workflow.ExecuteActivity(
		queryCtx,
		names.ActivityNameListProjects,
		activities.ListProjectsActivityInput{},
	).Get(queryCtx, ListProjectsActivityOutput)
	if err != nil {
		logger.Error("Failed to list projects", "error", err)
		return nil, err
	}

	projects := ListProjectsActivityOutput.Projects
	if len(input.Projects) > 0 {
		projects = slices.DeleteFunc(projects, func(p string) bool {
			return !slices.Contains(input.Projects, p)
		})
	}

	////////////////////////////////////////
	// 2. Back up each project in order
	////////////////////////////////////////
	backupCtx := workflow.WithActivityOptions(ctx, backupOptions(input.ActivityTimeout))
	for _, p := range projects {
		BackupProjectActivityOutput := new(activities.BackupProjectActivityOutput)
		err := workflow.ExecuteActivity(
			backupCtx,
			names.ActivityNameBackupProject,
			activities.BackupProjectActivityInput{Project: p},
		).Get(backupCtx, BackupProjectActivityOutput)
		if err != nil {
			logger.Error("Backup activity failed", "project", p, "error", err)
			result.Failed = append(result.Failed, p)
			continue
		}

		rec := BackupProjectActivityOutput.Record
		result.Records[p] = rec
		if rec == nil || !rec.Succeeded() {
			result.Failed = append(result.Failed, p)
		}
	}

	////////////////////////////////////////
	// 3. Evaluate health
	////////////////////////////////////////
	EvaluateHealthActivityOutput := new(activities.EvaluateHealthActivityOutput)
	err = workflow.ExecuteActivity(
		queryCtx,
		names.ActivityNameEvaluateHealth,
		activities.EvaluateHealthActivityInput{},
	).Get(queryCtx, EvaluateHealthActivityOutput)
	if err != nil {
		logger.Warn("Failed to evaluate health", "error", err)
	} else {
		result.Health = &EvaluateHealthActivityOutput.Summary
	}

	logger.Info("BackupAllWorkflow completed", "projects", len(projects), "failed", len(result.Failed))
	return result, nil
}

// BackupProjectWorkflow backs up a single project on demand.
func BackupProjectWorkflow(ctx workflow.Context, input BackupProjectWorkflowInput) (*record.Record, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("BackupProjectWorkflow started", "project", input.Project)

	ctx = workflow.WithActivityOptions(ctx, backupOptions(input.ActivityTimeout))

	BackupProjectActivityOutput := new(activities.BackupProjectActivityOutput)
	err := workflow.ExecuteActivity(
		ctx,
		names.ActivityNameBackupProject,
		activities.BackupProjectActivityInput{Project: input.Project},
	).Get(ctx, BackupProjectActivityOutput)
	if err != nil {
		logger.Error("Backup activity failed", "project", input.Project, "error", err)
		return nil, err
	}
	return BackupProjectActivityOutput.Record, nil
}
