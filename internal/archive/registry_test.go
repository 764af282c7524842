package archive

import (
	"context"
	"testing"

	"drbackup/internal/project"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	r.Register(project.StrategyLaravelApp, BuilderFunc(func(ctx context.Context, cfg *project.Config) (string, error) {
		return "/tmp/" + cfg.Name + ".zip", nil
	}))

	b, err := r.Lookup(project.StrategyLaravelApp)
	require.NoError(t, err)

	path, err := b.Build(context.Background(), &project.Config{Name: "shop"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/shop.zip", path)
	assert.Equal(t, []project.Strategy{project.StrategyLaravelApp}, r.Strategies())
}

func TestRegistry_UnknownStrategy(t *testing.T) {
	_, err := NewRegistry().Lookup("django-app")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
	assert.Contains(t, err.Error(), "django-app")
}

func TestBuildError(t *testing.T) {
	err := NewBuildError("shop", "database dump failed", errors.New("exit status 2"))

	assert.True(t, errors.Is(err, ErrBuild))

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "shop", be.Project)
	assert.Equal(t, "database dump failed", be.Reason)
	assert.Equal(t, "build shop: database dump failed: exit status 2", err.Error())
}

func TestResolveInside(t *testing.T) {
	root := "/srv/shop"

	got, err := resolveInside(root, "storage/app")
	require.NoError(t, err)
	assert.Equal(t, "/srv/shop/storage/app", got)

	for _, bad := range []string{"../other", "storage/../../etc", "/etc/passwd"} {
		_, err := resolveInside(root, bad)
		assert.Error(t, err, bad)
	}
}
