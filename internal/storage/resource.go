package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrSource marks a failure reading the source stream, as opposed to a local
// filesystem failure. Match it with errors.Is.
var ErrSource = errors.New("source read failed")

// DirError reports that a destination directory could not be created.
type DirError struct {
	Dir string
	Err error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("create directory %s: %v", e.Dir, e.Err)
}

func (e *DirError) Unwrap() error { return e.Err }

const partPattern = ".resgrab-part-*"

// WriteResource streams src into dest without buffering it in memory. The body
// goes to a temporary file in dest's directory, which must already exist, and
// is renamed onto dest only once it is complete. Writers sharing a dest never
// mix bytes, and a failed write leaves whatever dest already holds untouched.
// Source failures wrap ErrSource.
func WriteResource(dest string, src io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), partPattern)
	if err != nil {
		return 0, fmt.Errorf("create temp file for %s: %w", dest, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, &sourceReader{r: src})
	if err != nil {
		_ = tmp.Close()
		discard(tmpName)
		return n, err
	}
	if err := tmp.Close(); err != nil {
		discard(tmpName)
		return n, fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		discard(tmpName)
		return n, fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		discard(tmpName)
		return n, fmt.Errorf("rename onto %s: %w", dest, err)
	}

	slog.Debug("Resource file written", "path", dest, "size", n)
	return n, nil
}

func discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Partial file cleanup failed", "path", path, "error", err)
	}
}

// sourceReader tags read errors so io.Copy failures can be attributed.
type sourceReader struct {
	r io.Reader
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %w", ErrSource, err)
	}
	return n, err
}
