package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	yzip "github.com/yeka/zip"
)

type zipOptions struct {
	Level    int
	Password string
}

type entryWriter interface {
	create(name string, info fs.FileInfo) (io.Writer, error)
	Close() error
}

type plainWriter struct {
	zw *zip.Writer
}

func newPlainWriter(w io.Writer, level int) *plainWriter {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	return &plainWriter{zw: zw}
}

func (p *plainWriter) create(name string, info fs.FileInfo) (io.Writer, error) {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return nil, err
	}
	header.Name = name
	header.Method = zip.Deflate
	return p.zw.CreateHeader(header)
}

func (p *plainWriter) Close() error { return p.zw.Close() }

// encryptedWriter stores every entry with WinZip AES-256.
type encryptedWriter struct {
	zw       *yzip.Writer
	password string
}

func (e *encryptedWriter) create(name string, _ fs.FileInfo) (io.Writer, error) {
	return e.zw.Encrypt(name, e.password, yzip.AES256Encryption)
}

func (e *encryptedWriter) Close() error { return e.zw.Close() }

// compressDir writes every regular file under srcDir into a zip at dest,
// using slash separated paths relative to srcDir. Entries are added in
// lexical order.
func compressDir(srcDir, dest string, opts zipOptions) (err error) {
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create zip file %s: %w", dest, err)
	}
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(dest)
		}
	}()

	var w entryWriter
	if opts.Password != "" {
		w = &encryptedWriter{zw: yzip.NewWriter(file), password: opts.Password}
	} else {
		w = newPlainWriter(file, opts.Level)
	}

	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		entry, err := w.create(filepath.ToSlash(rel), info)
		if err != nil {
			return fmt.Errorf("failed to create zip entry for %s: %w", rel, err)
		}

		src, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file %s: %w", path, err)
		}
		defer src.Close()

		if _, err := io.Copy(entry, src); err != nil {
			return fmt.Errorf("failed to copy file content for %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed during zip creation for %s: %w", srcDir, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close zip writer: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close zip file handle: %w", err)
	}
	return nil
}
