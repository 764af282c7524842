// Package record defines the append-only log of backup runs and the store
// interface backing it.
package record

import (
	"context"
	"time"

	"drbackup/internal/project"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// StatusPartial is part of the schema but no run currently produces it;
	// replication completeness is tracked by the stored flags.
	StatusPartial Status = "partial"
)

// ErrNotFound is returned by Latest when a project has no records.
var ErrNotFound = errors.New("no backup record")

// Record describes one pipeline run. Records are never modified once
// appended.
type Record struct {
	ID              uuid.UUID `json:"id"`
	Project         string    `json:"project"`
	ProjectType     string    `json:"project_type"`
	BackupName      string    `json:"backup_name"`
	BackupDate      time.Time `json:"backup_date"`
	SizeBytes       int64     `json:"size_bytes"`
	ChecksumSHA256  string    `json:"checksum_sha256"`
	StoredLocal     bool      `json:"stored_local"`
	StoredOffsite   bool      `json:"stored_offsite"`
	OffsitePath     string    `json:"offsite_path,omitempty"`
	Status          Status    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`
	IsEncrypted     bool      `json:"is_encrypted"`
	RetentionYears  int       `json:"retention_years"`
	CanAutoDelete   bool      `json:"can_auto_delete"`
}

// New returns a record prefilled from the project configuration.
func New(cfg *project.Config, backupName string, at time.Time) *Record {
	return &Record{
		ID:             uuid.New(),
		Project:        cfg.Name,
		ProjectType:    cfg.Type.String(),
		BackupName:     backupName,
		BackupDate:     at.UTC(),
		IsEncrypted:    cfg.EncryptionActive(),
		RetentionYears: cfg.Retention.ArchiveYears,
		CanAutoDelete:  cfg.Retention.AutoCleanupArchive,
	}
}

// Failed is the minimal record of a run that did not produce an artifact.
func Failed(cfg *project.Config, backupName string, at time.Time, duration time.Duration, cause error) *Record {
	r := New(cfg, backupName, at)
	r.Status = StatusFailed
	r.DurationSeconds = duration.Seconds()
	if cause != nil {
		r.ErrorMessage = cause.Error()
	}
	return r
}

func (r *Record) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Age is the time elapsed between the backup and now.
func (r *Record) Age(now time.Time) time.Duration {
	return now.Sub(r.BackupDate)
}

type Store interface {
	Append(ctx context.Context, r *Record) error
	// Latest returns the record with the greatest backup date for a project.
	Latest(ctx context.Context, projectName string) (*Record, error)
	// List returns up to limit records for a project, newest first. A limit
	// <= 0 returns all of them.
	List(ctx context.Context, projectName string, limit int) ([]*Record, error)
	Close() error
}
