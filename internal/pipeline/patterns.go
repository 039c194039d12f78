package pipeline

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

func compilePattern(pattern string) (compiledPattern, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return compiledPattern{}, err
	}
	return compiledPattern{pattern: pattern, glob: g}, nil
}

// match checks a slash-separated path. A pattern starting with "**/" also
// matches paths at the root, so "**/*.java" matches "Main.java".
func (cp compiledPattern) match(path string) bool {
	if cp.glob.Match(path) {
		return true
	}
	if strings.Contains(path, "/") || !strings.HasPrefix(cp.pattern, "**/") {
		return false
	}
	simplified, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/')
	return err == nil && simplified.Match(path)
}

// DiscoverClasspath expands classpath patterns relative to root. Patterns
// without glob syntax are taken literally, whether or not they exist, so a
// missing jar surfaces as a ClasspathResolutionError.
func DiscoverClasspath(root string, patterns []string) ([]string, error) {
	var (
		paths    []string
		compiled []compiledPattern
	)
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[{") {
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(root, pattern)
			}
			paths = append(paths, pattern)
			continue
		}
		cp, err := compilePattern(filepath.ToSlash(pattern))
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, cp)
	}
	if len(compiled) == 0 {
		return paths, nil
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, cp := range compiled {
			if cp.match(rel) {
				paths = append(paths, path)
				return nil
			}
		}
		return nil
	})
	return paths, err
}
