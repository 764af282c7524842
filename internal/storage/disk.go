// Package storage implements the disks backups are replicated to. Keys are
// slash separated paths relative to the disk root.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when a key does not exist on a disk.
var ErrNotFound = errors.New("object not found")

// Disk is the capability set the pipeline needs from a storage tier.
type Disk interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader) error
	Exists(ctx context.Context, key string) (bool, error)
	MakeDirectory(ctx context.Context, dir string) error
	// Files lists the files directly under dir. A missing dir is empty.
	Files(ctx context.Context, dir string) ([]string, error)
	LastModified(ctx context.Context, key string) (time.Time, error)
	Delete(ctx context.Context, key string) error
}
