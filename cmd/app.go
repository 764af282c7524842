package main

import (
	"context"
	"fmt"
	"net"
	"path/filepath"

	"drbackup/internal/archive"
	"drbackup/internal/config"
	"drbackup/internal/health"
	"drbackup/internal/metrics"
	"drbackup/internal/orchestrator"
	"drbackup/internal/project"
	"drbackup/internal/record"
	"drbackup/internal/record/badgerstore"
	"drbackup/internal/record/pgstore"
	"drbackup/internal/replication"
	"drbackup/internal/retention"
	"drbackup/internal/storage"
	"drbackup/pkg/log"
	"drbackup/pkg/s3"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// app holds the wired pipeline shared by every command.
type app struct {
	cfg          *config.Config
	logger       zerolog.Logger
	store        record.Store
	registry     *prometheus.Registry
	metrics      *metrics.Metrics
	orchestrator *orchestrator.Orchestrator
	health       *health.Evaluator
}

// loadConfig reads the configuration and builds the logger. Commands that
// do not touch the pipeline stop here.
func loadConfig(ctx context.Context, configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.NewConfig(ctx, configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log.New(cfg.Log), nil
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, logger, err := loadConfig(ctx, configPath)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg.Store, logger, false)
	if err != nil {
		if errors.Is(err, badgerstore.ErrLocked) {
			return nil, errors.Wrap(err, "a running worker owns the record store, start backups with the trigger command")
		}
		return nil, err
	}

	local, err := openDisk(ctx, replication.TierLocal, cfg.Disks.Local)
	if err != nil {
		store.Close()
		return nil, err
	}
	offsite, err := openDisk(ctx, replication.TierOffsite, cfg.Disks.Offsite)
	if err != nil {
		store.Close()
		return nil, err
	}
	if cfg.Breaker.Enabled {
		offsite = storage.NewBreakerDisk(offsite, cfg.Breaker.MaxFailures, cfg.Breaker.Timeout, log.Component(logger, "storage"))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	builders := archive.NewRegistry()
	builders.Register(project.StrategyLaravelApp, archive.NewLaravelBuilder(
		cfg.TempDir,
		cfg.Archive.CompressionLevel,
		archive.DefaultEngines(cfg.Path.MySQL, cfg.Dump.Timeout, cfg.Dump.Preflight),
		log.Component(logger, "archive"),
	))

	o := orchestrator.New(
		builders,
		replication.NewManager(log.Component(logger, "replication"), replication.DefaultTiers(local, offsite)...),
		retention.NewManager(local, log.Component(logger, "retention")),
		store,
		m,
		log.Component(logger, "orchestrator"),
	)

	return &app{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		registry:     reg,
		metrics:      m,
		orchestrator: o,
		health:       health.NewEvaluator(store, hours(cfg.Health.MaxAgeHours)),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// openStore opens the configured record store. readOnly only changes the
// badger driver, which then shares its directory with other readers.
func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger, readOnly bool) (record.Store, error) {
	switch cfg.Driver {
	case "postgres":
		store, err := pgstore.Open(ctx, cfg.DSN, cfg.Migrate)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "badger", "":
		open := badgerstore.Open
		if readOnly {
			open = badgerstore.OpenReadOnly
		}
		store, err := open(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func openDisk(ctx context.Context, name string, cfg config.DiskConfig) (storage.Disk, error) {
	switch cfg.Driver {
	case "local", "":
		root, err := filepath.Abs(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("resolve %s disk root: %w", name, err)
		}
		return storage.NewLocalDisk(name, root), nil
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("%s disk: s3 bucket not configured", name)
		}
		client, err := s3.NewClient(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Disk(name, client, cfg.S3.Bucket, cfg.Root), nil
	default:
		return nil, fmt.Errorf("%s disk: unknown driver %q", name, cfg.Driver)
	}
}

// workerHealthURL is where a running worker serves /health.
func workerHealthURL(cfg *config.Config) string {
	if cfg.Health.WorkerURL != "" {
		return cfg.Health.WorkerURL
	}
	host, port, err := net.SplitHostPort(cfg.Metrics.Addr)
	if err != nil {
		return "http://" + cfg.Metrics.Addr + "/health"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/health"
}

// selectProjects returns the configs named in names, or all of them when
// names is empty.
func selectProjects(configs []project.Config, names []string) ([]project.Config, error) {
	if len(names) == 0 {
		return configs, nil
	}
	byName := make(map[string]project.Config, len(configs))
	for _, c := range configs {
		byName[c.Name] = c
	}
	out := make([]project.Config, 0, len(names))
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("project %q is not configured", n)
		}
		out = append(out, c)
	}
	return out, nil
}
