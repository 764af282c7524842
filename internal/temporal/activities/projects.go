package activities

import (
	"context"

	"drbackup/internal/project"

	"go.temporal.io/sdk/activity"
)

type ListProjectsActivityInput struct{}

type ListProjectsActivityOutput struct {
	Projects []string `json:"projects"`
}

// ListProjectsActivity returns the enabled projects in configuration order.
func (a *Activities) ListProjectsActivity(ctx context.Context, input ListProjectsActivityInput) (*ListProjectsActivityOutput, error) {
	logger := activity.GetLogger(ctx)

	output := &ListProjectsActivityOutput{Projects: []string{}}
	for _, cfg := range project.Enabled(a.Projects) {
		output.Projects = append(output.Projects, cfg.Name)
	}

	logger.Info("ListProjectsActivity completed", "enabled", len(output.Projects), "configured", len(a.Projects))
	return output, nil
}
