package search

import (
	"strings"

	"disk-search/config"
)

// Priority ranks a directory for scheduling; lower is scanned earlier.
//
//	0 user folders, 1 data folders, 2 everything else, 3 OS/program folders
//
// Without prioritization every directory gets 1 and the scan is FIFO.
func Priority(path string, prioritizeUserFolders bool) int {
	if !prioritizeUserFolders {
		return 1
	}
	lower := strings.ToLower(path)
	switch {
	case containsAny(lower, config.UserFolderKeywords):
		return 0
	case containsAny(lower, config.SystemFolderKeywords):
		return 3
	case containsAny(lower, config.DataFolderKeywords):
		return 1
	default:
		return 2
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
