package dump

import (
	"context"
	"fmt"
	"io"
	"os"
)

// FileCopy dumps an embedded database by copying its file verbatim.
type FileCopy struct {
	engine   string
	fileName string
}

func NewSQLite() *FileCopy {
	return &FileCopy{engine: "sqlite", fileName: "database.sqlite"}
}

func (f *FileCopy) Name() string     { return f.engine }
func (f *FileCopy) FileName() string { return f.fileName }

func (f *FileCopy) Version(ctx context.Context) string { return "" }

func (f *FileCopy) Dump(ctx context.Context, creds Credentials, database, outputPath string) error {
	if creds.File == "" {
		return fmt.Errorf("no database file configured")
	}

	src, err := os.Open(creds.File)
	if err != nil {
		return fmt.Errorf("failed to open database file: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy database file: %w", err)
	}
	return dst.Close()
}
