//go:build windows

package search

import (
	"golang.org/x/sys/windows"
)

func fileAttributes(path string) (uint32, error) {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	return windows.GetFileAttributes(ptr)
}

// isHidden checks the FILE_ATTRIBUTE_HIDDEN bit, falling back to the dot
// convention when attributes can't be read.
func isHidden(path string, name string) bool {
	attrs, err := fileAttributes(path)
	if err != nil {
		return len(name) > 0 && name[0] == '.'
	}
	return attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0
}

// isOSProtected matches system reparse points such as the legacy
// "Documents and Settings" compatibility junctions.
func isOSProtected(path, _ string) bool {
	attrs, err := fileAttributes(path)
	if err != nil {
		return false
	}
	const protectedMask = windows.FILE_ATTRIBUTE_SYSTEM | windows.FILE_ATTRIBUTE_REPARSE_POINT
	return attrs&protectedMask == protectedMask
}
