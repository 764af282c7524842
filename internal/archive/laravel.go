package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"drbackup/internal/archive/dump"
	"drbackup/internal/project"
	"drbackup/pkg/version"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TimestampFormat names backups and their working directories.
const TimestampFormat = "20060102-150405"

const (
	envConnection = "DB_CONNECTION"
	envHost       = "DB_HOST"
	envPort       = "DB_PORT"
	envDatabase   = "DB_DATABASE"
	envUsername   = "DB_USERNAME"
	envPassword   = "DB_PASSWORD"

	defaultSQLitePath = "database/database.sqlite"

	reserveAttempts = 5
)

// BackupName is the "{timestamp}-{project}" name shared by the working
// directory, the artifact and the record.
func BackupName(t time.Time, projectName string) string {
	return t.UTC().Format(TimestampFormat) + "-" + projectName
}

// reserveWorkDir creates a working directory whose name is not used by any
// other run, in this process or another. The "{timestamp}-{project}" name is
// tried first, then the same name with a short random suffix. A name counts
// as taken while its directory or its artifact exists.
func reserveWorkDir(tempDir string, at time.Time, projectName string) (string, error) {
	base := BackupName(at, projectName)
	name := base
	var err error
	for range reserveAttempts {
		dir := filepath.Join(tempDir, name)
		if err = os.Mkdir(dir, 0o700); err == nil {
			if _, statErr := os.Lstat(dir + ".zip"); os.IsNotExist(statErr) {
				return name, nil
			}
			_ = os.Remove(dir)
			err = os.ErrExist
		} else if !os.IsExist(err) {
			return "", err
		}
		name = base + "-" + uuid.NewString()[:8]
	}
	return "", errors.Wrapf(err, "no free working directory for %s", base)
}

// NameFromArtifact strips the directory and extension from an artifact path.
func NameFromArtifact(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// LaravelBuilder archives a Laravel application: database dump, selected
// trees under files/, and the .env snapshot under config/.
type LaravelBuilder struct {
	TempDir          string
	CompressionLevel int
	// Engines maps DB_CONNECTION values to dump engines.
	Engines map[string]dump.Engine
	Logger  zerolog.Logger
	Now     func() time.Time
}

func NewLaravelBuilder(tempDir string, level int, engines map[string]dump.Engine, logger zerolog.Logger) *LaravelBuilder {
	return &LaravelBuilder{
		TempDir:          tempDir,
		CompressionLevel: level,
		Engines:          engines,
		Logger:           logger,
		Now:              time.Now,
	}
}

// DefaultEngines wires sqlite to a file copy and the MySQL family to
// mysqldump. preflight makes mysqldump runs ping the server first.
func DefaultEngines(mysqldump string, timeout time.Duration, preflight bool) map[string]dump.Engine {
	my := dump.NewMySQLDump(mysqldump, timeout)
	my.Preflight = preflight
	return map[string]dump.Engine{
		"sqlite":  dump.NewSQLite(),
		"mysql":   my,
		"mariadb": my,
	}
}

func (b *LaravelBuilder) now() time.Time {
	if b.Now == nil {
		return time.Now().UTC()
	}
	return b.Now().UTC()
}

func (b *LaravelBuilder) Build(ctx context.Context, cfg *project.Config) (string, error) {
	now := b.now()

	if err := os.MkdirAll(b.TempDir, 0o700); err != nil {
		return "", NewBuildError(cfg.Name, "temp directory unavailable", err)
	}
	name, err := reserveWorkDir(b.TempDir, now, cfg.Name)
	if err != nil {
		return "", NewBuildError(cfg.Name, "working directory unavailable", err)
	}
	workDir := filepath.Join(b.TempDir, name)
	artifact := workDir + ".zip"

	logger := b.Logger.With().Str("project", cfg.Name).Str("backup", name).Logger()
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn().Err(err).Str("path", workDir).Msg("Failed to remove working directory")
		}
	}()

	manifest := &Manifest{
		Project:   cfg.Name,
		Type:      cfg.Type.String(),
		Backup:    name,
		Timestamp: now,
		Encrypted: cfg.EncryptionActive(),
		Includes:  Includes{Files: []string{}},
		Tools:     map[string]string{version.Name: version.Agent()},
	}

	var env map[string]string
	if cfg.Include.Database || cfg.Include.Config {
		env, err = ReadEnvFile(cfg.RootPath)
		if err != nil {
			return "", NewBuildError(cfg.Name, "missing config path", err)
		}
	}

	if cfg.Include.Database {
		entry, engine, err := b.dumpDatabase(ctx, cfg, env, workDir)
		if err != nil {
			return "", err
		}
		manifest.Includes.Database = entry
		if v := engine.Version(ctx); v != "" {
			manifest.Tools[engine.Name()+"dump"] = v
		}
		logger.Info().Str("engine", entry.Engine).Msg("Database dumped")
	}

	if len(cfg.Include.Files) > 0 {
		copied, skipped := b.copyFiles(cfg, workDir, logger)
		manifest.Includes.Files = copied
		manifest.Includes.Skipped = skipped
	}

	if cfg.Include.Config {
		dst := filepath.Join(workDir, "config", EnvFileName)
		if err := copyFile(filepath.Join(cfg.RootPath, EnvFileName), dst); err != nil {
			return "", NewBuildError(cfg.Name, "missing config path", err)
		}
		manifest.Includes.Config = true
	}

	if err := writeManifest(workDir, manifest); err != nil {
		return "", NewBuildError(cfg.Name, "manifest write failed", err)
	}

	opts := zipOptions{Level: b.CompressionLevel}
	switch {
	case cfg.EncryptionActive():
		opts.Password = cfg.Encryption.Password
	case cfg.Encryption.Enabled:
		logger.Warn().Msg("Encryption enabled without a password, writing plain archive")
	}

	if err := compressDir(workDir, artifact, opts); err != nil {
		return "", NewBuildError(cfg.Name, "archive failed", err)
	}

	logger.Info().Str("artifact", artifact).Bool("encrypted", opts.Password != "").Msg("Archive built")
	return artifact, nil
}

func (b *LaravelBuilder) dumpDatabase(ctx context.Context, cfg *project.Config, env map[string]string, workDir string) (*DatabaseEntry, dump.Engine, error) {
	connection := strings.ToLower(env[envConnection])
	if connection == "" {
		return nil, nil, NewBuildError(cfg.Name, "database dump failed", errors.Newf("%s not set in %s", envConnection, EnvFileName))
	}

	engine, ok := b.Engines[connection]
	if !ok {
		return nil, nil, NewBuildError(cfg.Name, "database dump failed", errors.Newf("unsupported database engine %q", connection))
	}

	creds := dump.Credentials{
		Host:     env[envHost],
		Port:     env[envPort],
		Username: env[envUsername],
		Password: env[envPassword],
	}
	database := cfg.DatabaseName
	if database == "" {
		database = env[envDatabase]
	}

	if connection == "sqlite" {
		file := env[envDatabase]
		if file == "" {
			file = defaultSQLitePath
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(cfg.RootPath, file)
		}
		creds.File = file
		database = filepath.Base(file)
	}

	out := filepath.Join(workDir, engine.FileName())
	if err := engine.Dump(ctx, creds, database, out); err != nil {
		return nil, nil, NewBuildError(cfg.Name, "database dump failed", err)
	}

	entry := &DatabaseEntry{Engine: connection, Name: database, File: engine.FileName()}
	return entry, engine, nil
}

// copyFiles copies each include path into files/. Missing paths and paths
// outside the project root are skipped.
func (b *LaravelBuilder) copyFiles(cfg *project.Config, workDir string, logger zerolog.Logger) (copied, skipped []string) {
	copied = []string{}
	for _, rel := range cfg.Include.Files {
		src, err := resolveInside(cfg.RootPath, rel)
		if err != nil {
			logger.Warn().Err(err).Str("path", rel).Msg("Skipping include path")
			skipped = append(skipped, rel)
			continue
		}
		if _, err := os.Stat(src); err != nil {
			logger.Warn().Err(err).Str("path", rel).Msg("Include path missing, skipping")
			skipped = append(skipped, rel)
			continue
		}

		dst := filepath.Join(workDir, "files", filepath.Clean(rel))
		if err := copyTree(src, dst); err != nil {
			_ = os.RemoveAll(dst)
			logger.Warn().Err(err).Str("path", rel).Msg("Failed to copy include path, skipping")
			skipped = append(skipped, rel)
			continue
		}
		copied = append(copied, filepath.ToSlash(filepath.Clean(rel)))
	}
	return copied, skipped
}
