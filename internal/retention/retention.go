// Package retention prunes the hot tier. The archive tier is never touched,
// whatever a project's auto_cleanup_archive flag says.
package retention

import (
	"context"
	"time"

	"drbackup/internal/replication"
	"drbackup/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

type Manager struct {
	disk   storage.Disk
	logger zerolog.Logger
	Now    func() time.Time
}

// NewManager prunes hot-tier objects on disk.
func NewManager(disk storage.Disk, logger zerolog.Logger) *Manager {
	return &Manager{disk: disk, logger: logger, Now: time.Now}
}

// CleanupHot deletes hot-tier objects of a project last modified before
// now - days. days <= 0 disables cleanup. Failing objects are logged and
// skipped; the first such error is returned after the scan.
func (m *Manager) CleanupHot(ctx context.Context, projectName string, days int) (int, error) {
	if days <= 0 {
		return 0, nil
	}

	logger := m.logger.With().Str("project", projectName).Int("hot_days", days).Logger()
	cutoff := m.Now().Add(-time.Duration(days) * 24 * time.Hour)

	files, err := m.disk.Files(ctx, replication.HotDir(projectName))
	if err != nil {
		return 0, errors.Wrapf(err, "list hot tier of %s", projectName)
	}

	var (
		deleted  int
		firstErr error
	)
	for _, key := range files {
		modified, err := m.disk.LastModified(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to read modification time")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !modified.Before(cutoff) {
			continue
		}
		if err := m.disk.Delete(ctx, key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to delete expired backup")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted++
	}

	logger.Info().Int("deleted", deleted).Int("scanned", len(files)).Msg("Hot tier cleanup completed")
	return deleted, firstErr
}
