// Package replication copies a built artifact and its checksum sidecar to
// every configured storage tier. Tiers are independent: one failing never
// stops or taints another.
package replication

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"drbackup/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	TierLocal   = "local"
	TierOffsite = "offsite"
)

// Layout maps a project and file name to a key on a tier. at is the time of
// the backup run.
type Layout func(projectName, file string, at time.Time) string

// HotDir is the directory holding a project's hot-tier artifacts.
func HotDir(projectName string) string {
	return path.Join(projectName, "hot")
}

func HotLayout(projectName, file string, _ time.Time) string {
	return path.Join(HotDir(projectName), file)
}

// ArchiveLayout files artifacts by the calendar month of the run.
func ArchiveLayout(projectName, file string, at time.Time) string {
	at = at.UTC()
	return path.Join(projectName, "archive", at.Format("2006"), at.Format("01"), file)
}

type Tier struct {
	Name   string
	Disk   storage.Disk
	Layout Layout
}

// DefaultTiers returns the hot local tier followed by the offsite archive
// tier. A nil disk leaves its tier out.
func DefaultTiers(local, offsite storage.Disk) []Tier {
	var tiers []Tier
	if local != nil {
		tiers = append(tiers, Tier{Name: TierLocal, Disk: local, Layout: HotLayout})
	}
	if offsite != nil {
		tiers = append(tiers, Tier{Name: TierOffsite, Disk: offsite, Layout: ArchiveLayout})
	}
	return tiers
}

// TierResult is the outcome of one tier. Ref is the artifact key and is only
// set when both the artifact and its sidecar were stored.
type TierResult struct {
	Tier     string
	Ref      string
	Err      error
	Duration time.Duration
}

func (r TierResult) Stored() bool {
	return r.Err == nil && r.Ref != ""
}

type Result struct {
	Tiers []TierResult
}

// Ref returns the stored key for a tier, or "" when the tier failed or is
// not configured.
func (r *Result) Ref(tier string) string {
	for _, t := range r.Tiers {
		if t.Tier == tier && t.Stored() {
			return t.Ref
		}
	}
	return ""
}

func (r *Result) Stored(tier string) bool {
	return r.Ref(tier) != ""
}

type Manager struct {
	tiers  []Tier
	logger zerolog.Logger
}

func NewManager(logger zerolog.Logger, tiers ...Tier) *Manager {
	return &Manager{tiers: tiers, logger: logger}
}

func (m *Manager) Tiers() []Tier {
	return m.tiers
}

// Replicate uploads the artifact and its checksum to all tiers concurrently.
// It never returns an error; per-tier failures are on the result.
func (m *Manager) Replicate(ctx context.Context, artifactPath, checksumPath, projectName string, at time.Time) *Result {
	results := make([]TierResult, len(m.tiers))

	var g errgroup.Group
	for i, tier := range m.tiers {
		g.Go(func() error {
			start := time.Now()
			ref, err := m.replicateTier(ctx, tier, artifactPath, checksumPath, projectName, at)
			results[i] = TierResult{Tier: tier.Name, Ref: ref, Err: err, Duration: time.Since(start)}

			logger := m.logger.With().Str("project", projectName).Str("tier", tier.Name).Logger()
			if err != nil {
				logger.Error().Err(err).Msg("Replication failed")
			} else {
				logger.Info().Str("ref", ref).Msg("Replicated")
			}
			return nil
		})
	}
	_ = g.Wait()

	return &Result{Tiers: results}
}

func (m *Manager) replicateTier(ctx context.Context, tier Tier, artifactPath, checksumPath, projectName string, at time.Time) (ref string, err error) {
	defer func() {
		if r := recover(); r != nil {
			ref, err = "", errors.Newf("panic replicating to %s: %v", tier.Name, r)
		}
	}()

	key := tier.Layout(projectName, filepath.Base(artifactPath), at)
	if err := tier.Disk.MakeDirectory(ctx, path.Dir(key)); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := putFile(ctx, tier.Disk, key, artifactPath); err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	sidecarKey := tier.Layout(projectName, filepath.Base(checksumPath), at)
	if err := putFile(ctx, tier.Disk, sidecarKey, checksumPath); err != nil {
		return "", fmt.Errorf("failed to upload checksum: %w", err)
	}
	return key, nil
}

func putFile(ctx context.Context, disk storage.Disk, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return disk.Put(ctx, key, f)
}
