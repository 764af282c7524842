// Package health classifies each project's backup state from its latest
// record.
package health

import (
	"cmp"
	"context"
	"slices"
	"time"

	"drbackup/internal/project"
	"drbackup/internal/record"

	"github.com/cockroachdb/errors"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// DefaultMaxAge is one daily run plus an hour of grace.
const DefaultMaxAge = 25 * time.Hour

func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusWarning:
		return 1
	default:
		return 2
	}
}

type Report struct {
	Project        string           `json:"project"`
	Priority       project.Priority `json:"priority,omitempty"`
	LastBackupDate *time.Time       `json:"last_backup_date,omitempty"`
	AgeHours       *float64         `json:"age_hours,omitempty"`
	LastSize       *int64           `json:"last_size,omitempty"`
	TooOld         bool             `json:"too_old"`
	Status         Status           `json:"status"`
	ErrorMessage   string           `json:"error_message,omitempty"`
}

type Evaluator struct {
	store  record.Store
	maxAge time.Duration
	Now    func() time.Time
}

func NewEvaluator(store record.Store, maxAge time.Duration) *Evaluator {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Evaluator{store: store, maxAge: maxAge, Now: time.Now}
}

// Evaluate reports on every enabled project. A project whose record cannot
// be read is critical.
func (e *Evaluator) Evaluate(ctx context.Context, configs []project.Config) map[string]*Report {
	reports := make(map[string]*Report)
	now := e.Now()

	for _, cfg := range project.Enabled(configs) {
		report := &Report{Project: cfg.Name, Priority: cfg.Priority}
		reports[cfg.Name] = report

		latest, err := e.store.Latest(ctx, cfg.Name)
		if errors.Is(err, record.ErrNotFound) {
			report.Status = StatusCritical
			continue
		}
		if err != nil {
			report.Status = StatusCritical
			report.ErrorMessage = err.Error()
			continue
		}

		date := latest.BackupDate
		age := latest.Age(now).Hours()
		size := latest.SizeBytes
		report.LastBackupDate = &date
		report.AgeHours = &age
		report.LastSize = &size
		report.TooOld = latest.Age(now) > e.maxAge
		report.ErrorMessage = latest.ErrorMessage
		report.Status = classify(latest, report.TooOld)
	}
	return reports
}

// classify applies the precedence: failure, then staleness, then missing
// offsite copy.
func classify(latest *record.Record, tooOld bool) Status {
	switch {
	case !latest.Succeeded():
		return StatusCritical
	case tooOld:
		return StatusWarning
	case !latest.StoredOffsite:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

type Summary struct {
	Total    int    `json:"total"`
	Healthy  int    `json:"healthy"`
	Warning  int    `json:"warning"`
	Critical int    `json:"critical"`
	Worst    Status `json:"worst"`
}

func Summarize(reports map[string]*Report) Summary {
	s := Summary{Worst: StatusHealthy}
	for _, r := range reports {
		s.Total++
		switch r.Status {
		case StatusHealthy:
			s.Healthy++
		case StatusWarning:
			s.Warning++
		default:
			s.Critical++
		}
		if r.Status.severity() > s.Worst.severity() {
			s.Worst = r.Status
		}
	}
	return s
}

// Sorted returns reports ordered by project name.
func Sorted(reports map[string]*Report) []*Report {
	out := make([]*Report, 0, len(reports))
	for _, r := range reports {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *Report) int {
		return cmp.Compare(a.Project, b.Project)
	})
	return out
}
