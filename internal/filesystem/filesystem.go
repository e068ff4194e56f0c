// Package filesystem provides artifact path layout, freshness checks and
// atomic writes for the derived image cache.
package filesystem

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// ArtifactPath returns <dir>/<proposalID>/<rootname>_<filetype>.<ext>.
func ArtifactPath(dir, proposalID, rootname, filetype, ext string) string {
	return filepath.Join(dir, proposalID, rootname+"_"+filetype+"."+ext)
}

// IsFresh reports whether path exists and was modified after source.
func IsFresh(path string, source time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.ModTime().After(source)
}

// WriteFileAtomic streams write into a temporary file next to path and
// renames it into place, so readers never observe a partial artifact.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "creating temporary file")
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temporary file")
	}
	//nolint:gosec // G302: artifacts are served by the catalog web server
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "setting artifact permissions")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "renaming into %s", path)
	}
	return nil
}

// Checksum returns the hex xxhash64 digest of the file contents.
func Checksum(path string) (string, error) {
	//nolint:gosec // G304: path comes from the discoverer
	file, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open file %s", path)
	}
	defer func() { _ = file.Close() }()

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", errors.Wrapf(err, "failed to hash file %s", path)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// RemoveContents deletes everything inside dir but keeps dir itself.
// A missing dir is not an error.
func RemoveContents(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
