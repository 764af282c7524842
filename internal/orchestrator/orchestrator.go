// Package orchestrator drives a project through build, digest, replication,
// record and retention, and isolates projects from each other's failures.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"drbackup/internal/archive"
	"drbackup/internal/integrity"
	"drbackup/internal/metrics"
	"drbackup/internal/project"
	"drbackup/internal/record"
	"drbackup/internal/replication"
	"drbackup/internal/retention"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

type Orchestrator struct {
	registry   *archive.Registry
	replicator *replication.Manager
	retention  *retention.Manager
	store      record.Store
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	locks      keyedMutex

	Now func() time.Time
}

func New(
	registry *archive.Registry,
	replicator *replication.Manager,
	retention *retention.Manager,
	store record.Store,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		replicator: replicator,
		retention:  retention,
		store:      store,
		metrics:    m,
		logger:     logger,
		Now:        time.Now,
	}
}

func (o *Orchestrator) now() time.Time {
	return o.Now().UTC()
}

// RunOne backs up a single project and returns the persisted record. Once
// an artifact exists the run is a success, whatever replication achieved.
// Concurrent calls for the same project are serialized.
func (o *Orchestrator) RunOne(ctx context.Context, cfg *project.Config) (*record.Record, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	unlock := o.locks.Lock(cfg.Name)
	defer unlock()

	start := o.now()
	logger := o.logger.With().Str("project", cfg.Name).Str("type", cfg.Type.String()).Logger()
	logger.Info().Msg("Backup started")

	builder, err := o.registry.Lookup(cfg.Type)
	if err != nil {
		return nil, err
	}

	artifact, err := builder.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	removeWorkingFiles := o.workingFilesRemover(artifact, logger)
	defer removeWorkingFiles()

	info, err := os.Stat(artifact)
	if err != nil {
		return nil, archive.NewBuildError(cfg.Name, "artifact missing after build", err)
	}
	if !info.Mode().IsRegular() {
		return nil, archive.NewBuildError(cfg.Name, "artifact is not a regular file", nil)
	}

	digest, err := integrity.Digest(artifact)
	if err != nil {
		return nil, errors.Wrap(err, "digest artifact")
	}
	o.metrics.ObserveArtifact(cfg.Name, digest.Size)

	replicated := o.replicator.Replicate(ctx, artifact, digest.SidecarPath, cfg.Name, start)
	for _, t := range replicated.Tiers {
		o.metrics.ObserveTier(t.Tier, t.Stored(), t.Duration)
	}
	removeWorkingFiles()

	rec := record.New(cfg, archive.NameFromArtifact(artifact), start)
	rec.Status = record.StatusSuccess
	rec.SizeBytes = digest.Size
	rec.ChecksumSHA256 = digest.Checksum
	rec.StoredLocal = replicated.Stored(replication.TierLocal)
	rec.StoredOffsite = replicated.Stored(replication.TierOffsite)
	rec.OffsitePath = replicated.Ref(replication.TierOffsite)
	rec.DurationSeconds = o.now().Sub(start).Seconds()

	if err := o.store.Append(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "persist backup record")
	}

	if o.retention != nil {
		deleted, err := o.retention.CleanupHot(ctx, cfg.Name, cfg.Retention.HotDays)
		if err != nil {
			logger.Warn().Err(err).Msg("Hot tier cleanup incomplete")
		}
		o.metrics.ObserveCleanup(cfg.Name, deleted, err)
	}

	o.metrics.ObserveRun(cfg.Name, string(rec.Status), o.now().Sub(start), start)
	logger.Info().
		Str("backup", rec.BackupName).
		Int64("size", rec.SizeBytes).
		Bool("stored_local", rec.StoredLocal).
		Bool("stored_offsite", rec.StoredOffsite).
		Float64("duration", rec.DurationSeconds).
		Msg("Backup completed")

	return rec, nil
}

// workingFilesRemover returns an idempotent func deleting the artifact and
// its checksum sidecar.
func (o *Orchestrator) workingFilesRemover(artifact string, logger zerolog.Logger) func() {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		for _, p := range []string{artifact, artifact + integrity.SidecarExt} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				logger.Warn().Err(err).Str("path", p).Msg("Failed to remove working file")
			}
		}
	}
}

// RunIsolated runs a project inside a failure boundary. Any error or panic
// becomes a failed record, which is persisted on a best-effort basis and
// returned along with the error.
func (o *Orchestrator) RunIsolated(ctx context.Context, cfg *project.Config) (rec *record.Record, err error) {
	start := o.now()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic during backup: %v", r)
			rec = o.fail(ctx, cfg, start, err)
		}
	}()

	rec, err = o.RunOne(ctx, cfg)
	if err != nil {
		return o.fail(ctx, cfg, start, err), err
	}
	return rec, nil
}

func (o *Orchestrator) fail(ctx context.Context, cfg *project.Config, start time.Time, cause error) *record.Record {
	duration := o.now().Sub(start)
	logger := o.logger.With().Str("project", cfg.Name).Logger()
	logger.Error().Err(cause).Str("stack", fmt.Sprintf("%+v", cause)).Msg("Backup failed")

	rec := record.Failed(cfg, archive.BackupName(start, cfg.Name), start, duration, cause)
	if err := o.store.Append(ctx, rec); err != nil {
		logger.Error().Err(err).Msg("Failed to persist failed backup record")
	}
	o.metrics.ObserveRun(cfg.Name, string(rec.Status), duration, start)
	return rec
}

// RunAll backs up every enabled project in order. Disabled projects are
// skipped without side effects.
func (o *Orchestrator) RunAll(ctx context.Context, configs []project.Config) map[string]*record.Record {
	results := make(map[string]*record.Record, len(configs))
	for i := range configs {
		cfg := &configs[i]
		if !cfg.IsEnabled() {
			o.logger.Debug().Str("project", cfg.Name).Msg("Project disabled, skipping")
			continue
		}
		rec, _ := o.RunIsolated(ctx, cfg)
		results[cfg.Name] = rec
	}
	return results
}

// Failed reports whether any run in results failed.
func Failed(results map[string]*record.Record) bool {
	for _, r := range results {
		if r == nil || !r.Succeeded() {
			return true
		}
	}
	return false
}
