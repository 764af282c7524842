// Package badgerstore keeps backup records in an embedded BadgerDB. Keys
// sort by project then backup date so the newest record of a project is
// the last key under its prefix.
package badgerstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"drbackup/internal/record"
	"drbackup/pkg/log"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const keyPrefix = "record/"

type Store struct {
	db *badger.DB
}

var _ record.Store = (*Store)(nil)

// ErrLocked is returned when another process holds the store open for
// writing. Badger allows a single writer per directory.
var ErrLocked = errors.New("record store is locked by another process")

// Open opens (or creates) a store in dir.
func Open(dir string, logger zerolog.Logger) (*Store, error) {
	return open(badger.DefaultOptions(dir).WithLogger(log.NewBadgerAdapter(logger)))
}

// OpenReadOnly opens an existing store without taking the writer lock, so
// several readers can share it. A directory that holds no store yet reads
// as empty.
func OpenReadOnly(dir string, logger zerolog.Logger) (*Store, error) {
	if _, err := os.Stat(filepath.Join(dir, badger.ManifestFilename)); os.IsNotExist(err) {
		return OpenInMemory()
	}
	return open(badger.DefaultOptions(dir).WithReadOnly(true).WithLogger(log.NewBadgerAdapter(logger)))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		err = fmt.Errorf("open badger at %s: %w", opts.Dir, err)
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			err = errors.Mark(err, ErrLocked)
		}
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{db: db}, nil
}

func projectPrefix(projectName string) []byte {
	return []byte(keyPrefix + projectName + "\x00")
}

func recordKey(r *record.Record) []byte {
	return fmt.Appendf(projectPrefix(r.Project), "%020d/%s", r.BackupDate.UnixNano(), r.ID)
}

func (s *Store) Append(ctx context.Context, r *record.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(r), data); err != nil {
			return fmt.Errorf("set record: %w", err)
		}
		return nil
	})
}

func (s *Store) Latest(ctx context.Context, projectName string) (*record.Record, error) {
	records, err := s.List(ctx, projectName, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(record.ErrNotFound, "project %q", projectName)
	}
	return records[0], nil
}

func (s *Store) List(ctx context.Context, projectName string, limit int) ([]*record.Record, error) {
	var records []*record.Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := projectPrefix(projectName)
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var r record.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			records = append(records, &r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list records of %s: %w", projectName, err)
	}
	return records, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
