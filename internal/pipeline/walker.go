package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreFile lists gitignore-style patterns of files a watched directory
// should not index.
const IgnoreFile = ".corrnetignore"

// NetworkEntry is a network file found under a watched directory.
type NetworkEntry struct {
	// Path is the file path.
	Path string

	// RelPath is the path relative to the watched directory.
	RelPath string
}

// storeNameEscaper flattens a relative path into one directory name.
// Literal '%' and '_' are percent-escaped first so that a separator turned
// into '_' never collides with an underscore in a file name.
var storeNameEscaper = strings.NewReplacer("%", "%25", "_", "%5F", "/", "_")

// Name returns the store name of the network: its relative path without
// the .csv / .csv.gz suffix, with separators replaced by underscores.
// "sub/net.csv" becomes "sub_net" while "sub_net.csv" becomes "sub%5Fnet".
func (e NetworkEntry) Name() string {
	name := filepath.ToSlash(e.RelPath)
	name = strings.TrimSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".csv")
	return storeNameEscaper.Replace(name)
}

// Default patterns to ignore (in addition to .corrnetignore).
var defaultIgnorePatterns = []string{
	".git/",
	".corrnet/",
	".*.tmp",
}

// isNetworkFile reports whether name looks like an edge-list CSV.
func isNetworkFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".csv.gz")
}

// newMatcher combines the default patterns with those of the directory's
// ignore file.
func newMatcher(dir string) (gitignore.Matcher, error) {
	patterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns))
	for _, p := range defaultIgnorePatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	loaded, err := loadIgnore(dir)
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, loaded...)

	return gitignore.NewMatcher(patterns), nil
}

// loadIgnore loads .corrnetignore patterns from dir.
func loadIgnore(dir string) ([]gitignore.Pattern, error) {
	content, err := os.ReadFile(filepath.Join(dir, IgnoreFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}

// WalkNetworks returns every network file under dir not excluded by the
// ignore patterns, in lexical order.
func WalkNetworks(dir string) ([]NetworkEntry, error) {
	matcher, err := newMatcher(dir)
	if err != nil {
		return nil, err
	}

	var entries []NetworkEntry
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		if d.IsDir() {
			if matcher.Match(splitPath(relPath), true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isNetworkFile(d.Name()) || matcher.Match(splitPath(relPath), false) {
			return nil
		}

		entries = append(entries, NetworkEntry{Path: path, RelPath: relPath})
		return nil
	})

	return entries, err
}

func splitPath(relPath string) []string {
	return strings.Split(filepath.ToSlash(relPath), "/")
}
