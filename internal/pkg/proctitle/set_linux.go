//go:build linux

package proctitle

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Set renames the calling thread group via PR_SET_NAME.
func Set(title string) error {
	name, err := short(title)
	if err != nil {
		return err
	}
	p, err := unix.BytePtrFromString(name)
	if err != nil {
		return err
	}
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(p)), 0, 0, 0)
}
