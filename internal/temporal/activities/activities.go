package activities

import (
	"drbackup/internal/health"
	"drbackup/internal/orchestrator"
	"drbackup/internal/project"
)

// Activities exposes the backup pipeline to Temporal workers.
type Activities struct {
	Projects     []project.Config
	Orchestrator *orchestrator.Orchestrator
	Health       *health.Evaluator
}

func NewActivities(projects []project.Config, o *orchestrator.Orchestrator, evaluator *health.Evaluator) *Activities {
	return &Activities{
		Projects:     projects,
		Orchestrator: o,
		Health:       evaluator,
	}
}

func (a *Activities) project(name string) (*project.Config, bool) {
	for i := range a.Projects {
		if a.Projects[i].Name == name {
			return &a.Projects[i], true
		}
	}
	return nil, false
}
