// Package pgstore keeps backup records in PostgreSQL. The schema ships with
// the binary and is applied with goose.
package pgstore

import (
	"context"
	"embed"
	"fmt"

	"drbackup/internal/record"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	pool *pgxpool.Pool
}

var _ record.Store = (*Store)(nil)

// Open connects to databaseURL and, when migrate is set, applies pending
// migrations.
func Open(ctx context.Context, databaseURL string, migrate bool) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse record db config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create record db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping record db: %w", err)
	}

	if migrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Store{pool: pool}, nil
}

// Migrate applies all pending schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

const insertRecord = `
INSERT INTO backup_records (
    id, project, project_type, backup_name, backup_date, size_bytes, checksum_sha256,
    stored_local, stored_offsite, offsite_path, status, error_message, duration_seconds,
    is_encrypted, retention_years, can_auto_delete
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const selectRecords = `
SELECT id, project, project_type, backup_name, backup_date, size_bytes, checksum_sha256,
       stored_local, stored_offsite, COALESCE(offsite_path, ''), status, COALESCE(error_message, ''),
       duration_seconds, is_encrypted, retention_years, can_auto_delete
FROM backup_records
WHERE project = $1
ORDER BY backup_date DESC, id`

func (s *Store) Append(ctx context.Context, r *record.Record) error {
	_, err := s.pool.Exec(ctx, insertRecord,
		r.ID, r.Project, r.ProjectType, r.BackupName, r.BackupDate, r.SizeBytes, r.ChecksumSHA256,
		r.StoredLocal, r.StoredOffsite, nullable(r.OffsitePath), string(r.Status), nullable(r.ErrorMessage),
		r.DurationSeconds, r.IsEncrypted, r.RetentionYears, r.CanAutoDelete,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context, projectName string) (*record.Record, error) {
	records, err := s.List(ctx, projectName, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(record.ErrNotFound, "project %q", projectName)
	}
	return records[0], nil
}

func (s *Store) List(ctx context.Context, projectName string, limit int) ([]*record.Record, error) {
	query, args := selectRecords, []any{projectName}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*record.Record, error) {
		var (
			r      record.Record
			status string
		)
		err := row.Scan(
			&r.ID, &r.Project, &r.ProjectType, &r.BackupName, &r.BackupDate, &r.SizeBytes, &r.ChecksumSHA256,
			&r.StoredLocal, &r.StoredOffsite, &r.OffsitePath, &status, &r.ErrorMessage,
			&r.DurationSeconds, &r.IsEncrypted, &r.RetentionYears, &r.CanAutoDelete,
		)
		r.Status = record.Status(status)
		r.BackupDate = r.BackupDate.UTC()
		return &r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	return records, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
