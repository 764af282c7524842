package dump

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"drbackup/pkg/version"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"
)

const pingTimeout = 10 * time.Second

// MySQLDump runs mysqldump (or a compatible binary) for MySQL and MariaDB.
type MySQLDump struct {
	Binary  string
	Timeout time.Duration
	// Preflight pings the server with the same credentials before the dump
	// starts, so bad credentials or an unreachable host fail fast with the
	// driver's error instead of a truncated dump.
	Preflight bool
}

func NewMySQLDump(binary string, timeout time.Duration) *MySQLDump {
	if binary == "" {
		binary = "mysqldump"
	}
	return &MySQLDump{Binary: binary, Timeout: timeout, Preflight: true}
}

func (m *MySQLDump) Name() string     { return "mysql" }
func (m *MySQLDump) FileName() string { return "database.sql" }

func (m *MySQLDump) connConfig(creds Credentials, database string) *mysql.Config {
	host, port := creds.Host, creds.Port
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3306"
	}

	cfg := mysql.NewConfig()
	cfg.User = creds.Username
	cfg.Passwd = creds.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = database
	cfg.Timeout = pingTimeout
	return cfg
}

// Ping opens one connection to database and checks it answers.
func (m *MySQLDump) Ping(ctx context.Context, creds Credentials, database string) error {
	cfg := m.connConfig(creds, database)
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return fmt.Errorf("invalid connection settings: %w", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return errors.Wrapf(err, "mysql at %s as %q unreachable", cfg.Addr, cfg.User)
	}
	return nil
}

func dumpArgs(cfg *mysql.Config) ([]string, error) {
	host, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", cfg.Addr, err)
	}
	args := []string{
		"--host=" + host,
		"--port=" + port,
		"--user=" + cfg.User,
		"--single-transaction",
		"--quick",
		"--routines",
		"--triggers",
		"--no-tablespaces",
		cfg.DBName,
	}
	return args, nil
}

func (m *MySQLDump) Dump(ctx context.Context, creds Credentials, database, outputPath string) error {
	if database == "" {
		return errors.New("no database name configured")
	}

	cfg := m.connConfig(creds, database)
	args, err := dumpArgs(cfg)
	if err != nil {
		return err
	}

	if m.Preflight {
		if err := m.Ping(ctx, creds, database); err != nil {
			return err
		}
	}

	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}

	// #nosec G204 -- binary comes from operator config
	cmd := exec.CommandContext(ctx, m.Binary, args...)
	// MYSQL_PWD keeps the password out of the process list.
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+cfg.Passwd)
	cmd.Stdout = file

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		file.Close()
		return errors.Wrapf(err, "%s failed: %s", m.Binary, strings.TrimSpace(stderr.String()))
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close dump file: %w", err)
	}

	fi, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("failed to stat dump file: %w", err)
	}
	if fi.Size() < MinDumpSize {
		return errors.Wrapf(ErrDumpTooSmall, "%d bytes", fi.Size())
	}
	return nil
}

func (m *MySQLDump) Version(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// #nosec G204
	out, err := exec.CommandContext(ctx, m.Binary, "--version").Output()
	if err != nil {
		return version.Unknown
	}
	return version.Normalize(string(out))
}
