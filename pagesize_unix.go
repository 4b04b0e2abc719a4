//go:build linux || darwin || freebsd
// +build linux darwin freebsd

package rtasm

import "golang.org/x/sys/unix"

// hostPageSize queries the OS page size via golang.org/x/sys/unix, the
// same build-tag split as the teacher's filewatcher_unix.go/
// filewatcher_darwin.go. Consulted only for section-alignment defaults
// (spec §1 scope note: page-size introspection, never execution mapping).
func hostPageSize() int {
	return unix.Getpagesize()
}
