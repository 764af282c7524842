package activities

import (
	"context"

	"drbackup/internal/health"

	"go.temporal.io/sdk/activity"
)

type EvaluateHealthActivityInput struct{}

type EvaluateHealthActivityOutput struct {
	Summary health.Summary   `json:"summary"`
	Reports []*health.Report `json:"reports"`
}

func (a *Activities) EvaluateHealthActivity(ctx context.Context, input EvaluateHealthActivityInput) (*EvaluateHealthActivityOutput, error) {
	logger := activity.GetLogger(ctx)

	reports := a.Health.Evaluate(ctx, a.Projects)
	output := &EvaluateHealthActivityOutput{
		Summary: health.Summarize(reports),
		Reports: health.Sorted(reports),
	}

	logger.Info("EvaluateHealthActivity completed", "worst", output.Summary.Worst, "critical", output.Summary.Critical)
	return output, nil
}
