//go:build !linux && !windows

package memory

import (
	"errors"
)

func makeWritable(addr uintptr, n int) (func() error, error) {
	return nil, errors.ErrUnsupported
}
