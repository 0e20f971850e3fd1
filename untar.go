package snapfetch

import (
	"archive/tar"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// extractArchive unpacks the tar.gz at archivePath into destDir, which must
// not already exist. On success destDir holds exactly the archive's tree; on
// any failure destDir is unusable and must not be partially reused.
func extractArchive(archivePath, destDir string) error {
	if _, err := os.Stat(destDir); err == nil {
		return &FilesystemError{Path: destDir, Op: "create", Cause: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &FilesystemError{Path: destDir, Op: "stat", Cause: err}
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return &FilesystemError{Path: archivePath, Op: "open", Cause: err}
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return &ExtractionError{Archive: archivePath, Cause: err}
	}
	defer gz.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &FilesystemError{Path: destDir, Op: "create", Cause: err}
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &ExtractionError{Archive: archivePath, Cause: err}
		}

		target, ok := entryPath(destDir, hdr.Name)
		if !ok {
			return &ExtractionError{Archive: archivePath, Cause: errors.New("entry " + hdr.Name + " escapes destination")}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &FilesystemError{Path: target, Op: "create", Cause: err}
			}
		case tar.TypeReg:
			if err := extractFile(archivePath, target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			// Checkpoint trees hold only directories and regular files.
		}
	}
}

func extractFile(archivePath, target string, tr *tar.Reader, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &FilesystemError{Path: filepath.Dir(target), Op: "create", Cause: err}
	}

	w, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return &FilesystemError{Path: target, Op: "create", Cause: err}
	}

	if _, err := io.Copy(w, tr); err != nil {
		w.Close()
		// A write-side failure surfaces as a path error; anything else came
		// from the tar/gzip stream.
		var perr *fs.PathError
		if errors.As(err, &perr) {
			return &FilesystemError{Path: target, Op: "write", Cause: err}
		}
		return &ExtractionError{Archive: archivePath, Cause: err}
	}

	if err := w.Close(); err != nil {
		return &FilesystemError{Path: target, Op: "close", Cause: err}
	}
	return nil
}

func entryPath(destDir, name string) (string, bool) {
	target := filepath.Join(destDir, name)
	if target != destDir && !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", false
	}
	return target, true
}
