package workflows

import "time"

// BackupAllWorkflowInput is sent by the schedule or operator starting a run.
// An empty Projects list means every enabled project.
type BackupAllWorkflowInput struct {
	Projects        []string      `json:"projects,omitempty"`
	ActivityTimeout time.Duration `json:"activity_timeout,omitempty"`
}

type BackupProjectWorkflowInput struct {
	Project         string        `json:"project"`
	ActivityTimeout time.Duration `json:"activity_timeout,omitempty"`
}

const defaultActivityTimeout = 2 * time.Hour
