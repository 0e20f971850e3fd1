package snapfetch

import (
	"archive/tar"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"gotest.tools/v3/assert"
)

// makeArchive builds a tar.gz holding the given path -> content entries.
// Paths ending in "/" become directories.
func makeArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		if name[len(name)-1] == '/' {
			assert.NilError(t, tw.WriteHeader(&tar.Header{
				Name:     name,
				Typeflag: tar.TypeDir,
				Mode:     0o755,
			}))
			continue
		}
		assert.NilError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		assert.NilError(t, err)
	}
	assert.NilError(t, tw.Close())
	assert.NilError(t, gz.Close())
	return buf.Bytes()
}

func writeArchive(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, "checkpoint.tar.gz")
	assert.NilError(t, os.WriteFile(path, makeArchive(t, entries), 0o644))
	return path
}

func TestExtractArchive(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, map[string]string{
		"CURRENT":         "MANIFEST-000001",
		"sst/000001.sst":  "kv-data",
		"sst/":            "",
		"MANIFEST-000001": "manifest",
	})

	dest := filepath.Join(dir, "out")
	assert.NilError(t, extractArchive(archive, dest))

	data, err := os.ReadFile(filepath.Join(dest, "CURRENT"))
	assert.NilError(t, err)
	assert.Equal(t, string(data), "MANIFEST-000001")

	data, err = os.ReadFile(filepath.Join(dest, "sst", "000001.sst"))
	assert.NilError(t, err)
	assert.Equal(t, string(data), "kv-data")
}

func TestExtractArchiveDestinationExists(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, map[string]string{"a": "1"})

	dest := filepath.Join(dir, "out")
	assert.NilError(t, os.Mkdir(dest, 0o755))

	err := extractArchive(archive, dest)
	var fsErr *FilesystemError
	assert.Assert(t, errors.As(err, &fsErr))
	assert.Equal(t, fsErr.Path, dest)
	assert.Assert(t, errors.Is(fsErr.Cause, fs.ErrExist))
}

func TestExtractArchiveCorrupt(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "checkpoint.tar.gz")
	assert.NilError(t, os.WriteFile(archive, []byte("this is not a gzip stream"), 0o644))

	err := extractArchive(archive, filepath.Join(dir, "out"))
	var exErr *ExtractionError
	assert.Assert(t, errors.As(err, &exErr))
}

func TestExtractArchiveTruncated(t *testing.T) {
	dir := t.TempDir()
	data := makeArchive(t, map[string]string{"a": "some content here"})
	archive := filepath.Join(dir, "checkpoint.tar.gz")
	assert.NilError(t, os.WriteFile(archive, data[:len(data)/2], 0o644))

	err := extractArchive(archive, filepath.Join(dir, "out"))
	var exErr *ExtractionError
	assert.Assert(t, errors.As(err, &exErr))
}

func TestExtractArchiveRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, map[string]string{"../evil": "boom"})

	err := extractArchive(archive, filepath.Join(dir, "out"))
	var exErr *ExtractionError
	assert.Assert(t, errors.As(err, &exErr))
	assert.ErrorContains(t, err, "escapes destination")

	_, statErr := os.Stat(filepath.Join(dir, "evil"))
	assert.Assert(t, errors.Is(statErr, fs.ErrNotExist))
}

func TestExtractArchiveMissingFile(t *testing.T) {
	dir := t.TempDir()
	err := extractArchive(filepath.Join(dir, "nope.tar.gz"), filepath.Join(dir, "out"))
	var fsErr *FilesystemError
	assert.Assert(t, errors.As(err, &fsErr))
}
