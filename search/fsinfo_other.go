//go:build !linux && !darwin && !windows

package search

import (
	"io/fs"
	"time"
)

// createdTime has no portable source here; the modification time stands in.
func createdTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
