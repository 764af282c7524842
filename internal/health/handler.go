package health

import (
	"context"
	"fmt"
	"net/http"

	"drbackup/internal/metrics"
	"drbackup/internal/project"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
)

// Response is the body served on /health.
type Response struct {
	Summary  Summary   `json:"summary"`
	Projects []*Report `json:"projects"`
}

// NewResponse summarizes reports and lists them by project name.
func NewResponse(reports map[string]*Report) *Response {
	return &Response{Summary: Summarize(reports), Projects: Sorted(reports)}
}

// Handler serves the current health of configs as JSON. It answers 503 when
// any project is critical and mirrors each status into m.
func Handler(e *Evaluator, configs []project.Config, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reports := e.Evaluate(r.Context(), configs)
		for name, report := range reports {
			m.SetHealth(name, string(report.Status))
		}

		body := NewResponse(reports)
		status := http.StatusOK
		if body.Summary.Worst == StatusCritical {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

// Fetch reads the health served by Handler at url. A 503 still carries a
// report, so only other statuses are errors.
func Fetch(ctx context.Context, client *http.Client, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch health")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("fetch health: unexpected status %s", resp.Status)
	}

	body := new(Response)
	if err := json.NewDecoder(resp.Body).Decode(body); err != nil {
		return nil, errors.Wrap(err, "decode health")
	}
	return body, nil
}
