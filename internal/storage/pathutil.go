package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName replaces request file names that cannot be written as-is
// (empty after a trailing slash, "." or "..").
const DefaultFileName = "index"

// OriginFromTargetURL returns the hostname used to group every download of a
// run. The target must be an absolute URL with a host.
func OriginFromTargetURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if !parsed.IsAbs() || parsed.Hostname() == "" {
		return "", fmt.Errorf("target url %q is not absolute", rawURL)
	}
	return parsed.Hostname(), nil
}

// FileNameFromURL returns everything after the last "/" of a request URL.
// Query strings and fragments are kept.
func FileNameFromURL(rawURL string) string {
	return rawURL[strings.LastIndex(rawURL, "/")+1:]
}

// DiskFileName maps a request file name to the name written on disk.
func DiskFileName(fileName string) string {
	switch fileName {
	case "", ".", "..":
		return DefaultFileName
	}
	return fileName
}

// Layout is the storage scheme for one run: Root/Origin/SearchTerm/<file>.
// Origin is always the target page's host, never the serving host.
type Layout struct {
	Root       string
	Origin     string
	SearchTerm string
}

// NewLayout validates that origin and search term stay inside root.
func NewLayout(root, origin, searchTerm string) (Layout, error) {
	if root == "" {
		root = "."
	}
	if origin == "" {
		return Layout{}, fmt.Errorf("origin is required")
	}
	if searchTerm == "" {
		return Layout{}, fmt.Errorf("search term is required")
	}
	if !filepath.IsLocal(origin) || !filepath.IsLocal(searchTerm) {
		return Layout{}, fmt.Errorf("origin %q and search term %q must stay inside %s", origin, searchTerm, root)
	}
	return Layout{Root: root, Origin: origin, SearchTerm: searchTerm}, nil
}

// Dir is the single flat directory all matched resources are written to.
func (l Layout) Dir() string {
	return filepath.Join(l.Root, l.Origin, l.SearchTerm)
}

// Path returns the destination for a request file name.
func (l Layout) Path(fileName string) string {
	return filepath.Join(l.Dir(), DiskFileName(fileName))
}

// EnsureDir creates dir and any missing parents. Existing directories,
// including ones created concurrently by another download, are not an error.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
