package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"drbackup/internal/archive/dump"
	"drbackup/internal/project"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yzip "github.com/yeka/zip"
)

var testStart = time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC)

// ticker returns a clock that advances one second per call.
func ticker() func() time.Time {
	t := testStart
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// sqliteProject lays out a minimal Laravel tree backed by sqlite.
func sqliteProject(t *testing.T) *project.Config {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "APP_NAME=Shop\nDB_CONNECTION=sqlite\n")
	writeFile(t, filepath.Join(root, "database", "database.sqlite"), "SQLite format 3\x00data")
	writeFile(t, filepath.Join(root, "storage", "app", "invoices", "1.pdf"), "%PDF-1.7")
	writeFile(t, filepath.Join(root, "storage", "app", "logo.png"), "png")

	return &project.Config{
		Name:     "shop",
		Type:     project.StrategyLaravelApp,
		RootPath: root,
		Include: project.IncludeConfig{
			Database: true,
			Files:    []string{"storage/app", "public/uploads"},
			Config:   true,
		},
	}
}

func newTestBuilder(t *testing.T) *LaravelBuilder {
	t.Helper()
	b := NewLaravelBuilder(t.TempDir(), 6, DefaultEngines("mysqldump", time.Minute, false), zerolog.Nop())
	b.Now = ticker()
	return b
}

func zipEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = string(data)
	}
	return out
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestLaravelBuilder_SQLite(t *testing.T) {
	b := newTestBuilder(t)
	cfg := sqliteProject(t)

	artifact, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.TempDir, "20261018-020001-shop.zip"), artifact)

	entries := zipEntries(t, artifact)
	assert.Equal(t, []string{
		"config/.env",
		"database.sqlite",
		"files/storage/app/invoices/1.pdf",
		"files/storage/app/logo.png",
		"manifest.json",
	}, keys(entries))
	assert.Equal(t, "SQLite format 3\x00data", entries["database.sqlite"])
	assert.Contains(t, entries["config/.env"], "DB_CONNECTION=sqlite")

	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(entries["manifest.json"]), &m))
	assert.Equal(t, "shop", m.Project)
	assert.Equal(t, "laravel-app", m.Type)
	assert.Equal(t, "20261018-020001-shop", m.Backup)
	assert.Equal(t, &DatabaseEntry{Engine: "sqlite", Name: "database.sqlite", File: "database.sqlite"}, m.Includes.Database)
	assert.Equal(t, []string{"storage/app"}, m.Includes.Files)
	assert.Equal(t, []string{"public/uploads"}, m.Includes.Skipped)
	assert.True(t, m.Includes.Config)
	assert.Contains(t, m.Tools, "drbackup")
	assert.False(t, m.Encrypted)

	// only the artifact is left behind
	left, err := os.ReadDir(b.TempDir)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "20261018-020001-shop.zip", left[0].Name())
}

func TestLaravelBuilder_SameSourceSameIncludes(t *testing.T) {
	b := newTestBuilder(t)
	cfg := sqliteProject(t)

	manifestOf := func() Manifest {
		artifact, err := b.Build(context.Background(), cfg)
		require.NoError(t, err)
		var m Manifest
		require.NoError(t, json.Unmarshal([]byte(zipEntries(t, artifact)["manifest.json"]), &m))
		return m
	}

	first, second := manifestOf(), manifestOf()
	assert.NotEqual(t, first.Backup, second.Backup)
	assert.Equal(t, first.Includes, second.Includes)
}

func TestLaravelBuilder_BackToBackBuilds(t *testing.T) {
	b := NewLaravelBuilder(t.TempDir(), 6, DefaultEngines("mysqldump", time.Minute, false), zerolog.Nop())
	cfg := sqliteProject(t)

	first, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.FileExists(t, first)
	assert.FileExists(t, second)
}

func TestLaravelBuilder_SameTimestamp(t *testing.T) {
	b := newTestBuilder(t)
	b.Now = func() time.Time { return testStart }
	cfg := sqliteProject(t)

	first, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "20261018-020000-shop", NameFromArtifact(first))
	assert.Regexp(t, `^20261018-020000-shop-[0-9a-f]{8}$`, NameFromArtifact(second))

	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(zipEntries(t, second)["manifest.json"]), &m))
	assert.Equal(t, NameFromArtifact(second), m.Backup)
}

func TestReserveWorkDir(t *testing.T) {
	dir := t.TempDir()

	name, err := reserveWorkDir(dir, testStart, "shop")
	require.NoError(t, err)
	assert.Equal(t, "20261018-020000-shop", name)
	assert.DirExists(t, filepath.Join(dir, name))

	// a finished artifact from another run keeps its name taken
	other := t.TempDir()
	writeFile(t, filepath.Join(other, "20261018-020000-shop.zip"), "zip")
	name, err = reserveWorkDir(other, testStart, "shop")
	require.NoError(t, err)
	assert.NotEqual(t, "20261018-020000-shop", name)
	assert.NoDirExists(t, filepath.Join(other, "20261018-020000-shop"))
	assert.DirExists(t, filepath.Join(other, name))
}

func TestLaravelBuilder_SQLiteCustomPath(t *testing.T) {
	b := newTestBuilder(t)
	cfg := sqliteProject(t)
	writeFile(t, filepath.Join(cfg.RootPath, ".env"), "DB_CONNECTION=sqlite\nDB_DATABASE=storage/db.sqlite\n")
	writeFile(t, filepath.Join(cfg.RootPath, "storage", "db.sqlite"), "custom")
	cfg.Include = project.IncludeConfig{Database: true}

	artifact, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)
	entries := zipEntries(t, artifact)
	assert.Equal(t, "custom", entries["database.sqlite"])
}

func TestLaravelBuilder_MySQL(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "mysqldump")
	writeFile(t, script, `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "mysqldump  Ver 10.19 Distrib 10.11.6-MariaDB, for debian-linux-gnu (x86_64)"
  exit 0
fi
echo "-- dump of $(eval echo \${$#})"
i=0
while [ $i -lt 20 ]; do echo "INSERT INTO orders VALUES ($i);"; i=$((i+1)); done
`)
	require.NoError(t, os.Chmod(script, 0o755))

	b := newTestBuilder(t)
	b.Engines = DefaultEngines(script, time.Minute, false)

	cfg := sqliteProject(t)
	writeFile(t, filepath.Join(cfg.RootPath, ".env"), "DB_CONNECTION=mariadb\nDB_HOST=127.0.0.1\nDB_DATABASE=shop_env\nDB_USERNAME=shop\nDB_PASSWORD=secret\n")
	cfg.DatabaseName = "shop_prod"
	cfg.Include = project.IncludeConfig{Database: true}

	artifact, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)

	entries := zipEntries(t, artifact)
	assert.True(t, strings.HasPrefix(entries["database.sql"], "-- dump of shop_prod\n"))

	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(entries["manifest.json"]), &m))
	assert.Equal(t, "mariadb", m.Includes.Database.Engine)
	assert.Equal(t, "shop_prod", m.Includes.Database.Name)
	assert.Equal(t, "10.19.0", m.Tools["mysqldump"])
}

func TestLaravelBuilder_DumpFailure(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "mysqldump")
	writeFile(t, script, "#!/bin/sh\necho 'access denied' >&2\nexit 2\n")
	require.NoError(t, os.Chmod(script, 0o755))

	b := newTestBuilder(t)
	b.Engines = DefaultEngines(script, time.Minute, false)

	cfg := sqliteProject(t)
	writeFile(t, filepath.Join(cfg.RootPath, ".env"), "DB_CONNECTION=mysql\nDB_DATABASE=shop\n")

	artifact, err := b.Build(context.Background(), cfg)
	require.Error(t, err)
	assert.Empty(t, artifact)
	assert.True(t, errors.Is(err, ErrBuild))

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "database dump failed", be.Reason)
	assert.Contains(t, err.Error(), "access denied")

	left, err := os.ReadDir(b.TempDir)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestLaravelBuilder_UnsupportedEngine(t *testing.T) {
	b := newTestBuilder(t)
	cfg := sqliteProject(t)
	writeFile(t, filepath.Join(cfg.RootPath, ".env"), "DB_CONNECTION=pgsql\n")

	_, err := b.Build(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pgsql")
}

func TestLaravelBuilder_MissingEnv(t *testing.T) {
	b := newTestBuilder(t)
	cfg := sqliteProject(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.RootPath, ".env")))

	_, err := b.Build(context.Background(), cfg)
	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "missing config path", be.Reason)
}

func TestLaravelBuilder_FilesOnly(t *testing.T) {
	b := newTestBuilder(t)
	cfg := sqliteProject(t)
	// no .env needed when neither database nor config is included
	require.NoError(t, os.Remove(filepath.Join(cfg.RootPath, ".env")))
	cfg.Include = project.IncludeConfig{Files: []string{"storage/app/logo.png", "../escape"}}

	artifact, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"files/storage/app/logo.png", "manifest.json"}, keys(zipEntries(t, artifact)))
}

func TestLaravelBuilder_Encrypted(t *testing.T) {
	b := newTestBuilder(t)
	cfg := sqliteProject(t)
	cfg.Encryption = project.EncryptionConfig{Enabled: true, Password: "correct horse"}

	artifact, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)

	r, err := yzip.OpenReader(artifact)
	require.NoError(t, err)
	defer r.Close()

	require.NotEmpty(t, r.File)
	for _, f := range r.File {
		assert.True(t, f.IsEncrypted(), f.Name)
		if f.Name != "database.sqlite" {
			continue
		}
		f.SetPassword("correct horse")
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		assert.Equal(t, "SQLite format 3\x00data", string(data))
	}
}

func TestLaravelBuilder_EncryptionWithoutPassword(t *testing.T) {
	b := newTestBuilder(t)
	cfg := sqliteProject(t)
	cfg.Encryption = project.EncryptionConfig{Enabled: true}

	artifact, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)

	entries := zipEntries(t, artifact)
	assert.Equal(t, "SQLite format 3\x00data", entries["database.sqlite"])
}

func TestDefaultEngines(t *testing.T) {
	engines := DefaultEngines("", time.Minute, true)
	assert.IsType(t, &dump.FileCopy{}, engines["sqlite"])
	assert.Same(t, engines["mysql"], engines["mariadb"])
	assert.True(t, engines["mysql"].(*dump.MySQLDump).Preflight)
	assert.False(t, DefaultEngines("", time.Minute, false)["mysql"].(*dump.MySQLDump).Preflight)
}

func TestNameFromArtifact(t *testing.T) {
	assert.Equal(t, "20261018-020000-shop", NameFromArtifact("/tmp/drbackup/20261018-020000-shop.zip"))
	assert.Equal(t, "20261018-020000-shop", BackupName(testStart, "shop"))
}
