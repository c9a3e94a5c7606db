package search

import (
	"path/filepath"
	"sync"
)

// VisitedSet records canonical directory paths so each directory is listed
// at most once per run, even through symlink cycles.
type VisitedSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{paths: make(map[string]struct{})}
}

// Add inserts path and reports whether it was new. Test and insert happen
// under one lock.
func (v *VisitedSet) Add(path string) bool {
	key := foldCase(path)
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, seen := v.paths[key]; seen {
		return false
	}
	v.paths[key] = struct{}{}
	return true
}

func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.paths)
}

// canonicalPath resolves symlinks so aliases of one directory collapse to a
// single key. Unresolvable paths fall back to their cleaned form.
func canonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}
