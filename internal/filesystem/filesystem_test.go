package filesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestArtifactPath(t *testing.T) {
	got := ArtifactPath("/cache/jpegs", "jbm1", "jbm110u2q", "flt", "jpg")
	want := filepath.Join("/cache/jpegs", "jbm1", "jbm110u2q_flt.jpg")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWriteFileAtomicAndFreshness(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jbm1", "jbm110u2q_flt.jpg")
	sourceTime := time.Now().Add(-time.Hour)

	if IsFresh(path, sourceTime) {
		t.Fatalf("missing file must not be fresh")
	}

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "jpeg bytes")
		return err
	})
	if err != nil {
		t.Fatalf("WriteFileAtomic error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil || string(content) != "jpeg bytes" {
		t.Fatalf("unexpected content %q (err %v)", content, err)
	}
	if !IsFresh(path, sourceTime) {
		t.Fatalf("artifact written after the source should be fresh")
	}
	if IsFresh(path, time.Now().Add(time.Hour)) {
		t.Fatalf("artifact older than the source must not be fresh")
	}
}

func TestWriteFileAtomicLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "half")
		return errors.New("encoder failed")
	})
	if err == nil {
		t.Fatalf("expected error from writer")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("failed write must not leave %s behind", path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".broken.jpg") {
			t.Fatalf("temporary file %s left behind", entry.Name())
		}
	}
}

func TestChecksumIsStable(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.fits")
	b := filepath.Join(dir, "b.fits")
	if err := os.WriteFile(a, []byte("SIMPLE"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(b, []byte("SIMPLE!"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	first, err := Checksum(a)
	if err != nil {
		t.Fatalf("Checksum error: %v", err)
	}
	second, _ := Checksum(a)
	other, _ := Checksum(b)
	if first != second || len(first) != 16 {
		t.Fatalf("expected stable 16-char digest, got %q and %q", first, second)
	}
	if first == other {
		t.Fatalf("different content should hash differently")
	}
}

func TestRemoveContents(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "jbm1"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "jbm1", "x.jpg"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	count, err := RemoveContents(dir)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 removed entry, got %d (err %v)", count, err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("directory itself must be kept")
	}

	if count, err := RemoveContents(filepath.Join(dir, "missing")); err != nil || count != 0 {
		t.Fatalf("missing dir should be a no-op, got %d (err %v)", count, err)
	}
}
