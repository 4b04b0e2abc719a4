//go:build windows
// +build windows

package rtasm

import "golang.org/x/sys/windows"

// hostPageSize queries the OS page size via golang.org/x/sys/windows,
// mirroring filewatcher_windows.go's build-tag split.
func hostPageSize() int {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	if info.PageSize == 0 {
		return 4096
	}
	return int(info.PageSize)
}
