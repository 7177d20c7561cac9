package memory

import (
	"fmt"
)

var _ Memory = (*Buffer)(nil)

// NewBuffer returns a zeroed Buffer of size bytes mapped at base.
func NewBuffer(base uintptr, size int) *Buffer {
	return &Buffer{
		Base: base,
		Data: make([]byte, size),
	}
}

// Buffer is a Memory implementation backed by Data, with Data[0]
// located at address Base.
type Buffer struct {
	Base uintptr
	Data []byte
}

// End returns the first address past the end of the buffer.
func (o *Buffer) End() uintptr {
	return o.Base + uintptr(len(o.Data))
}

func (o *Buffer) Read(addr uintptr, p []byte) error {
	window, err := o.window(addr, len(p))
	if err != nil {
		return err
	}

	copy(p, window)

	return nil
}

func (o *Buffer) Write(addr uintptr, p []byte) error {
	window, err := o.window(addr, len(p))
	if err != nil {
		return err
	}

	copy(window, p)

	return nil
}

func (o *Buffer) View(addr uintptr, n int) ([]byte, error) {
	window, err := o.window(addr, n)
	if err != nil {
		return nil, err
	}

	return window[:n:n], nil
}

func (o *Buffer) window(addr uintptr, n int) ([]byte, error) {
	if addr == 0 {
		return nil, ErrNullAddress
	}

	if n < 0 || addr < o.Base || addr-o.Base > uintptr(len(o.Data)) ||
		uintptr(n) > uintptr(len(o.Data))-(addr-o.Base) {
		return nil, fmt.Errorf("0x%x+%d is outside of 0x%x-0x%x - %w",
			addr, n, o.Base, o.End(), ErrOutOfRange)
	}

	start := addr - o.Base

	return o.Data[start : start+uintptr(n)], nil
}
