package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// LocalDisk stores objects as files under a root directory.
type LocalDisk struct {
	name string
	root string
}

func NewLocalDisk(name, root string) *LocalDisk {
	return &LocalDisk{name: name, root: root}
}

func (l *LocalDisk) Name() string { return l.name }

func (l *LocalDisk) fullPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", errors.Newf("invalid key %q", key)
	}
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (l *LocalDisk) Put(ctx context.Context, key string, r io.Reader) error {
	fullPath, err := l.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write next to the destination and rename so readers never see a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	return nil
}

func (l *LocalDisk) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := l.fullPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *LocalDisk) MakeDirectory(ctx context.Context, dir string) error {
	fullPath, err := l.fullPath(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(fullPath, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func (l *LocalDisk) Files(ctx context.Context, dir string) ([]string, error) {
	fullPath, err := l.fullPath(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fullPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".upload-") {
			continue
		}
		files = append(files, path.Join(strings.Trim(dir, "/"), e.Name()))
	}
	return files, nil
}

func (l *LocalDisk) LastModified(ctx context.Context, key string) (time.Time, error) {
	fullPath, err := l.fullPath(key)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return time.Time{}, errors.Wrap(ErrNotFound, key)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return info.ModTime(), nil
}

func (l *LocalDisk) Delete(ctx context.Context, key string) error {
	fullPath, err := l.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(ErrNotFound, key)
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
