package activities

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"drbackup/internal/archive"
	"drbackup/internal/health"
	"drbackup/internal/orchestrator"
	"drbackup/internal/project"
	"drbackup/internal/record"
	"drbackup/internal/record/badgerstore"
	"drbackup/internal/replication"
	"drbackup/internal/retention"
	"drbackup/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

func newActivities(t *testing.T) *Activities {
	t.Helper()
	tempDir, localRoot, offsiteRoot := t.TempDir(), t.TempDir(), t.TempDir()

	store, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := archive.NewRegistry()
	registry.Register(project.StrategyLaravelApp, archive.BuilderFunc(func(ctx context.Context, cfg *project.Config) (string, error) {
		if cfg.Name == "broken" {
			return "", archive.NewBuildError(cfg.Name, "missing source path", nil)
		}
		p := filepath.Join(tempDir, archive.BackupName(time.Now(), cfg.Name)+".zip")
		return p, os.WriteFile(p, []byte("artifact"), 0o600)
	}))

	local := storage.NewLocalDisk(replication.TierLocal, localRoot)
	o := orchestrator.New(
		registry,
		replication.NewManager(zerolog.Nop(), replication.DefaultTiers(local, storage.NewLocalDisk(replication.TierOffsite, offsiteRoot))...),
		retention.NewManager(local, zerolog.Nop()),
		store,
		nil,
		zerolog.Nop(),
	)

	off := false
	projects := []project.Config{
		{Name: "shop", Type: project.StrategyLaravelApp, RootPath: "/srv/shop"},
		{Name: "broken", Type: project.StrategyLaravelApp, RootPath: "/srv/broken"},
		{Name: "legacy", Type: project.StrategyLaravelApp, RootPath: "/srv/legacy", Enabled: &off},
	}
	return NewActivities(projects, o, health.NewEvaluator(store, 0))
}

func TestListProjectsActivity(t *testing.T) {
	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestActivityEnvironment()
	a := newActivities(t)
	env.RegisterActivity(a)

	future, err := env.ExecuteActivity(a.ListProjectsActivity, ListProjectsActivityInput{})
	require.NoError(t, err)

	var out ListProjectsActivityOutput
	require.NoError(t, future.Get(&out))
	assert.Equal(t, []string{"shop", "broken"}, out.Projects)
}

func TestBackupProjectActivity(t *testing.T) {
	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestActivityEnvironment()
	a := newActivities(t)
	env.RegisterActivity(a)

	future, err := env.ExecuteActivity(a.BackupProjectActivity, BackupProjectActivityInput{Project: "shop"})
	require.NoError(t, err)

	var out BackupProjectActivityOutput
	require.NoError(t, future.Get(&out))
	require.NotNil(t, out.Record)
	assert.Equal(t, record.StatusSuccess, out.Record.Status)
	assert.True(t, out.Record.StoredOffsite)
}

func TestBackupProjectActivity_FailedBackup(t *testing.T) {
	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestActivityEnvironment()
	a := newActivities(t)
	env.RegisterActivity(a)

	future, err := env.ExecuteActivity(a.BackupProjectActivity, BackupProjectActivityInput{Project: "broken"})
	require.NoError(t, err)

	var out BackupProjectActivityOutput
	require.NoError(t, future.Get(&out))
	assert.Equal(t, record.StatusFailed, out.Record.Status)
	assert.Contains(t, out.Record.ErrorMessage, "missing source path")
}

func TestBackupProjectActivity_UnknownProject(t *testing.T) {
	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestActivityEnvironment()
	a := newActivities(t)
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.BackupProjectActivity, BackupProjectActivityInput{Project: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	_, err = env.ExecuteActivity(a.BackupProjectActivity, BackupProjectActivityInput{Project: "legacy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestEvaluateHealthActivity(t *testing.T) {
	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestActivityEnvironment()
	a := newActivities(t)
	env.RegisterActivity(a)

	_, err := a.Orchestrator.RunIsolated(context.Background(), &a.Projects[0])
	require.NoError(t, err)

	future, err := env.ExecuteActivity(a.EvaluateHealthActivity, EvaluateHealthActivityInput{})
	require.NoError(t, err)

	var out EvaluateHealthActivityOutput
	require.NoError(t, future.Get(&out))
	assert.Equal(t, 2, out.Summary.Total)
	assert.Equal(t, 1, out.Summary.Healthy)
	assert.Equal(t, health.StatusCritical, out.Summary.Worst)
	require.Len(t, out.Reports, 2)
	assert.Equal(t, "broken", out.Reports[0].Project)
}

func TestActivities_project(t *testing.T) {
	a := &Activities{Projects: []project.Config{{Name: "shop"}}}
	_, ok := a.project("shop")
	assert.True(t, ok)
	_, ok = a.project("blog")
	assert.False(t, ok)
}
