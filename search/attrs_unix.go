//go:build !windows

package search

// isHidden checks if an entry is hidden on this platform (Unix-like)
func isHidden(_ string, name string) bool {
	return len(name) > 0 && name[0] == '.'
}

// isOSProtected is always false here; unix system trees are handled by path.
func isOSProtected(_, _ string) bool {
	return false
}
