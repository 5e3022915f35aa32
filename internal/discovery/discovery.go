package discovery

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// NotebookDiscovery finds notebook files under a root directory using glob
// patterns and ignore rules.
type NotebookDiscovery struct {
	rootDir          string
	notebookPatterns []compiledPattern
	ignorePatterns   []compiledPattern
}

// New creates a discovery instance. Patterns are matched against slash
// separated paths relative to rootDir.
func New(rootDir string, notebookPatterns, ignorePatterns []string) (*NotebookDiscovery, error) {
	nd := &NotebookDiscovery{
		rootDir: rootDir,
	}

	var err error
	if nd.notebookPatterns, err = compileAll(notebookPatterns); err != nil {
		return nil, err
	}
	if nd.ignorePatterns, err = compileAll(ignorePatterns); err != nil {
		return nil, err
	}

	return nd, nil
}

func compileAll(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, glob: g})
	}
	return compiled, nil
}

// Discover walks the directory tree and returns matching notebook paths,
// sorted. Ignored directories are not descended into.
func (nd *NotebookDiscovery) Discover() ([]string, error) {
	notebooks := []string{}

	err := filepath.WalkDir(nd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(nd.rootDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		// Normalize path separators for glob matching
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if nd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if nd.shouldIgnore(relPath) {
			return nil
		}

		if matchesAnyPattern(relPath, nd.notebookPatterns) {
			notebooks = append(notebooks, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(notebooks)
	return notebooks, nil
}

// Matches reports whether path would be returned by Discover. Relative
// paths are taken relative to the root.
func (nd *NotebookDiscovery) Matches(path string) bool {
	relPath, ok := nd.relative(path)
	if !ok {
		return false
	}

	// Discover never descends into ignored directories
	if nd.underIgnoredDir(relPath) {
		return false
	}

	return !nd.shouldIgnore(relPath) && matchesAnyPattern(relPath, nd.notebookPatterns)
}

// IgnoresDir reports whether Discover would skip the directory at path,
// either directly or because an ancestor is ignored. The root itself and
// paths outside it are never ignored.
func (nd *NotebookDiscovery) IgnoresDir(path string) bool {
	relPath, ok := nd.relative(path)
	if !ok {
		return false
	}
	return nd.underIgnoredDir(relPath) || nd.shouldIgnore(relPath)
}

// relative converts path to a slash separated path below the root.
func (nd *NotebookDiscovery) relative(path string) (string, bool) {
	if filepath.IsAbs(path) {
		root, err := filepath.Abs(nd.rootDir)
		if err != nil {
			return "", false
		}
		if path, err = filepath.Rel(root, path); err != nil {
			return "", false
		}
	}

	relPath := filepath.ToSlash(filepath.Clean(path))
	if relPath == "." || relPath == ".." || strings.HasPrefix(relPath, "../") {
		return "", false
	}
	return relPath, true
}

func (nd *NotebookDiscovery) underIgnoredDir(relPath string) bool {
	parts := strings.Split(relPath, "/")
	for i := 1; i < len(parts); i++ {
		if nd.shouldIgnore(strings.Join(parts[:i], "/")) {
			return true
		}
	}
	return false
}

// shouldIgnore checks if a path matches any ignore pattern.
func (nd *NotebookDiscovery) shouldIgnore(relPath string) bool {
	// Always ignore the nbfunc state directory
	if strings.HasPrefix(relPath, ".nbfunc/") || relPath == ".nbfunc" {
		return true
	}

	if matchesAnyPattern(relPath, nd.ignorePatterns) {
		return true
	}

	// A directory matches when its "dir/**" form does, so "node_modules"
	// is skipped by the pattern "node_modules/**".
	return matchesAnyPattern(relPath+"/**", nd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Files in the root (no slash) also match "**/" patterns with the prefix
	// removed, so "**/*.ipynb" matches both "a.ipynb" and "dir/a.ipynb".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil {
					if simplifiedGlob.Match(path) {
						return true
					}
				}
			}
		}
	}

	return false
}

// NameFilter matches function names against a glob such as "load_*".
type NameFilter struct {
	glob glob.Glob
}

// NewNameFilter compiles pattern. An empty pattern matches every name.
func NewNameFilter(pattern string) (*NameFilter, error) {
	if pattern == "" {
		return &NameFilter{}, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &NameFilter{glob: g}, nil
}

// Filter returns the names that match, preserving order.
func (f *NameFilter) Filter(names []string) []string {
	if f.glob == nil {
		return names
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if f.glob.Match(name) {
			out = append(out, name)
		}
	}
	return out
}
