package job

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expansion is the set of source files selected by a config.
type Expansion struct {
	// Files are root-relative, slash-separated, sorted and unique.
	Files []string
	// Missing lists include patterns that matched no file.
	Missing []string
}

// ExpandInputs expands include globs under root and removes anything
// matching an exclude glob. Only regular files are returned.
func ExpandInputs(root string, include, exclude []string) (*Expansion, error) {
	root = filepath.Clean(root)
	// Globbing through an fs.FS keeps metacharacters in root literal.
	fsys := os.DirFS(root)
	files := map[string]bool{}
	missing := make([]string, 0)
	for _, raw := range include {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		hits, err := doublestar.Glob(fsys, path.Clean(pattern))
		if err != nil {
			return nil, fmt.Errorf("expand include %q: %w", pattern, err)
		}
		matched := false
		for _, rel := range hits {
			if !isRegularFile(filepath.Join(root, filepath.FromSlash(rel))) {
				continue
			}
			matched = true
			files[rel] = true
		}
		if !matched {
			missing = append(missing, pattern)
		}
	}

	out := make([]string, 0, len(files))
	for rel := range files {
		skip, err := matchesAny(exclude, rel)
		if err != nil {
			return nil, err
		}
		if !skip {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return &Expansion{Files: out, Missing: missing}, nil
}

func matchesAny(patterns []string, rel string) (bool, error) {
	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, fmt.Errorf("expand exclude %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func isRegularFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// outputExclude returns an exclude pattern covering outDir when it lives
// inside root, so a rerun never strips its own previous output.
func outputExclude(root, outDir string) (string, bool) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(outDir))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel) + "/**", true
}
