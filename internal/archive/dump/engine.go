// Package dump produces database dumps for archive builders. File based
// engines copy the database file, client/server engines shell out to the
// vendor dump utility.
package dump

import (
	"context"

	"github.com/cockroachdb/errors"
)

// MinDumpSize is the smallest logical dump accepted as complete. Anything
// smaller is an empty or truncated dump.
const MinDumpSize = 100

var ErrDumpTooSmall = errors.New("dump output below minimum size")

// Credentials locate a database. File is used by file based engines, the
// network fields by client/server engines.
type Credentials struct {
	Host     string
	Port     string
	Username string
	Password string
	File     string
}

type Engine interface {
	Name() string
	// FileName is the name of the dump inside the archive.
	FileName() string
	Dump(ctx context.Context, creds Credentials, database, outputPath string) error
	// Version reports the dump tool version, or "" when no tool is involved.
	Version(ctx context.Context) string
}
