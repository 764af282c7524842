package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingDisk fails every write and counts attempts.
type failingDisk struct {
	*LocalDisk
	puts int
}

func (f *failingDisk) Put(ctx context.Context, key string, r io.Reader) error {
	f.puts++
	return errors.New("connection refused")
}

func TestBreakerDisk_OpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	inner := &failingDisk{LocalDisk: NewLocalDisk("offsite", t.TempDir())}
	disk := NewBreakerDisk(inner, 2, time.Hour, zerolog.Nop())

	for i := 0; i < 2; i++ {
		err := disk.Put(ctx, "a", strings.NewReader("x"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}
	assert.Equal(t, gobreaker.StateOpen, disk.State())

	err := disk.Put(ctx, "a", strings.NewReader("x"))
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 2, inner.puts)
}

// flakyDisk fails every LastModified call and counts them.
type flakyDisk struct {
	*LocalDisk
	stats int
}

func (f *flakyDisk) LastModified(ctx context.Context, key string) (time.Time, error) {
	f.stats++
	return time.Time{}, errors.New("i/o timeout")
}

func TestBreakerDisk_GuardsLastModified(t *testing.T) {
	ctx := context.Background()
	inner := &flakyDisk{LocalDisk: NewLocalDisk("offsite", t.TempDir())}
	disk := NewBreakerDisk(inner, 1, time.Hour, zerolog.Nop())

	_, err := disk.LastModified(ctx, "shop/hot/a.zip")
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, disk.State())

	_, err = disk.LastModified(ctx, "shop/hot/a.zip")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 1, inner.stats)
}

func TestBreakerDisk_NotFoundKeepsClosed(t *testing.T) {
	ctx := context.Background()
	disk := NewBreakerDisk(NewLocalDisk("offsite", t.TempDir()), 1, time.Hour, zerolog.Nop())

	for i := 0; i < 3; i++ {
		err := disk.Delete(ctx, "shop/hot/missing.zip")
		assert.True(t, errors.Is(err, ErrNotFound))

		_, err = disk.LastModified(ctx, "shop/hot/missing.zip")
		assert.True(t, errors.Is(err, ErrNotFound))
	}
	assert.Equal(t, gobreaker.StateClosed, disk.State())

	when := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, disk.Put(ctx, "shop/hot/a.zip", strings.NewReader("x")))
	require.NoError(t, os.Chtimes(filepath.Join(disk.Disk.(*LocalDisk).root, "shop", "hot", "a.zip"), when, when))
	got, err := disk.LastModified(ctx, "shop/hot/a.zip")
	require.NoError(t, err)
	assert.True(t, got.Equal(when))
}

func TestBreakerDisk_PassesThrough(t *testing.T) {
	ctx := context.Background()
	disk := NewBreakerDisk(NewLocalDisk("offsite", t.TempDir()), 3, time.Minute, zerolog.Nop())

	require.NoError(t, disk.MakeDirectory(ctx, "shop/archive"))
	require.NoError(t, disk.Put(ctx, "shop/archive/a.zip", strings.NewReader("x")))

	exists, err := disk.Exists(ctx, "shop/archive/a.zip")
	require.NoError(t, err)
	assert.True(t, exists)

	files, err := disk.Files(ctx, "shop/archive")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop/archive/a.zip"}, files)
	assert.Equal(t, "offsite", disk.Name())
	assert.Equal(t, gobreaker.StateClosed, disk.State())
}
