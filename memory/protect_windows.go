package memory

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// makeWritable adds write permission to the pages covering
// [addr, addr+n). The returned function restores the previous
// protection.
func makeWritable(addr uintptr, n int) (func() error, error) {
	var oldProtect uint32
	err := windows.VirtualProtect(addr, uintptr(n), windows.PAGE_EXECUTE_READWRITE, &oldProtect)
	if err != nil {
		return nil, fmt.Errorf("VirtualProtect failed - %w", err)
	}

	return func() error {
		var unused uint32
		return windows.VirtualProtect(addr, uintptr(n), oldProtect, &unused)
	}, nil
}
