package search

import (
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	"disk-search/config"
)

// ExclusionFilter decides which directory entries the walker never touches.
type ExclusionFilter struct {
	root          string
	ignoreHidden  bool
	excludeSystem bool
	excluded      []string
}

// NewExclusionFilter builds a filter from a normalized request.
func NewExclusionFilter(req Request) *ExclusionFilter {
	f := &ExclusionFilter{
		root:          req.Root,
		ignoreHidden:  req.IgnoreHidden,
		excludeSystem: req.ExcludeSystemFiles,
	}
	for _, p := range req.ExcludedPaths {
		f.excluded = append(f.excluded, foldCase(filepath.Clean(p)))
	}
	return f
}

// Skip reports whether the entry at path should be left out of the scan.
func (f *ExclusionFilter) Skip(path string, entry fs.DirEntry) bool {
	name := entry.Name()

	if config.IsProblematicName(name) {
		return true
	}
	if f.isExcludedPath(path) {
		return true
	}
	if entry.IsDir() && f.isPseudoFilesystem(path) {
		return true
	}
	if f.ignoreHidden && isHidden(path, name) {
		return true
	}
	if f.excludeSystem && isOSProtected(path, name) {
		return true
	}
	return false
}

// isExcludedPath reports whether path lies under one of the excluded prefixes.
func (f *ExclusionFilter) isExcludedPath(path string) bool {
	p := foldCase(path)
	for _, prefix := range f.excluded {
		if hasPathPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// isPseudoFilesystem skips kernel-backed trees unless the scan was rooted there.
func (f *ExclusionFilter) isPseudoFilesystem(path string) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	for _, pseudo := range config.PseudoFilesystems {
		if path == pseudo && !hasPathPrefix(f.root, pseudo) {
			return true
		}
	}
	return false
}

// hasPathPrefix reports whether path equals prefix or lies beneath it.
func hasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if strings.HasSuffix(prefix, string(filepath.Separator)) {
		return true
	}
	return path[len(prefix)] == filepath.Separator
}

// foldCase lowercases paths on case-insensitive filesystems.
func foldCase(path string) string {
	if runtime.GOOS == "windows" {
		return strings.ToLower(path)
	}
	return path
}
