//go:build !windows

package singleton

// CallNameResolver calls the name function at fn with metadata as its
// only argument. Calling into the target executable is only supported
// on windows; elsewhere ErrCallingUnsupported is returned.
func CallNameResolver(fn uintptr, metadata uintptr) (uintptr, error) {
	return 0, ErrCallingUnsupported
}
