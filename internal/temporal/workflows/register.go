package workflows

import (
	"drbackup/internal/temporal/activities"
	"drbackup/pkg/names"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// Register adds the backup workflows and activities to a worker under
// their public names.
func Register(w worker.Registry, acts *activities.Activities) {
	w.RegisterWorkflowWithOptions(BackupAllWorkflow, workflow.RegisterOptions{Name: names.WorkflowNameBackupAll})
	w.RegisterWorkflowWithOptions(BackupProjectWorkflow, workflow.RegisterOptions{Name: names.WorkflowNameBackupProject})

	w.RegisterActivityWithOptions(acts.ListProjectsActivity, activity.RegisterOptions{Name: names.ActivityNameListProjects})
	w.RegisterActivityWithOptions(acts.BackupProjectActivity, activity.RegisterOptions{Name: names.ActivityNameBackupProject})
	w.RegisterActivityWithOptions(acts.EvaluateHealthActivity, activity.RegisterOptions{Name: names.ActivityNameEvaluateHealth})
}
