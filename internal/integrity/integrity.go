// Package integrity computes artifact digests and writes checksum sidecars in
// the format understood by sha256sum -c.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// SidecarExt is appended to the artifact path to name its checksum file.
const SidecarExt = ".sha256"

// ErrMismatch is returned by Verify when the digest differs.
var ErrMismatch = errors.New("checksum mismatch")

type Result struct {
	Checksum    string
	Size        int64
	SidecarPath string
}

// Sum streams the file through SHA-256 and returns the hex digest and size.
func Sum(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	size, err := io.Copy(h, file)
	if err != nil {
		return "", 0, fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// Digest computes the artifact digest and writes "{hex}  {filename}" next to it.
func Digest(artifactPath string) (*Result, error) {
	checksum, size, err := Sum(artifactPath)
	if err != nil {
		return nil, err
	}

	sidecar := artifactPath + SidecarExt
	line := fmt.Sprintf("%s  %s\n", checksum, filepath.Base(artifactPath))
	if err := os.WriteFile(sidecar, []byte(line), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write checksum file: %w", err)
	}

	return &Result{Checksum: checksum, Size: size, SidecarPath: sidecar}, nil
}

// Verify recomputes the digest of path and compares it with expected.
func Verify(path, expected string) error {
	checksum, _, err := Sum(path)
	if err != nil {
		return err
	}
	if checksum != expected {
		return errors.Wrapf(ErrMismatch, "%s: got %s, want %s", filepath.Base(path), checksum, expected)
	}
	return nil
}
