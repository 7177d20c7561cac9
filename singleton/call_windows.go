package singleton

import (
	"fmt"
	"syscall"
)

// CallNameResolver calls the name function at fn with metadata as its
// only argument, using the platform calling convention, and returns
// the address of the NUL terminated name.
func CallNameResolver(fn uintptr, metadata uintptr) (uintptr, error) {
	if fn == 0 {
		return 0, fmt.Errorf("%w: name function address is zero", ErrNameResolution)
	}

	name, _, _ := syscall.SyscallN(fn, metadata)

	return name, nil
}
