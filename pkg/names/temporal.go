package names

const (
	// Workflows
	WorkflowNameBackupAll     = "backup-all"
	WorkflowNameBackupProject = "backup-project"

	// Activity Names
	ActivityNameListProjects   = "ListProjectsActivity"
	ActivityNameBackupProject  = "BackupProjectActivity"
	ActivityNameEvaluateHealth = "EvaluateHealthActivity"
)
