//go:build windows

package search

import (
	"io/fs"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

func createdTime(path string, info fs.FileInfo) time.Time {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return info.ModTime()
	}
	var data windows.Win32FileAttributeData
	if err := windows.GetFileAttributesEx(ptr, windows.GetFileExInfoStandard, (*byte)(unsafe.Pointer(&data))); err != nil {
		return info.ModTime()
	}
	return time.Unix(0, data.CreationTime.Nanoseconds())
}
