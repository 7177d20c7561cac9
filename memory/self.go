package memory

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"unsafe"
)

// Self returns the Memory of the current process.
//
// Faults caused by reading or writing unmapped or protected addresses
// are reported as *FaultError rather than crashing the process.
// A write that faults is retried once after temporarily making the
// affected pages writable, which allows code to be patched.
func Self() Memory {
	return selfMemory{}
}

type selfMemory struct{}

func (selfMemory) Read(addr uintptr, p []byte) error {
	if len(p) == 0 {
		return nil
	}

	err := checkRange(addr, len(p))
	if err != nil {
		return err
	}

	return guard(addr, func() {
		copy(p, unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(p)))
	})
}

func (selfMemory) Write(addr uintptr, p []byte) error {
	if len(p) == 0 {
		return nil
	}

	err := checkRange(addr, len(p))
	if err != nil {
		return err
	}

	write := func() {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(p)), p)
	}

	err = guard(addr, write)
	if err == nil {
		return nil
	}

	var fault *FaultError
	if !errors.As(err, &fault) {
		return err
	}

	log.WithField("addr", fmt.Sprintf("0x%x", addr)).
		Debugf("write faulted, retrying with writable pages - %s", fault.Cause)

	restore, protErr := makeWritable(addr, len(p))
	if protErr != nil {
		return fmt.Errorf("%w (failed to make memory writable - %s)", err, protErr)
	}

	err = guard(addr, write)

	restoreErr := restore()
	if err != nil {
		return err
	}

	if restoreErr != nil {
		return fmt.Errorf("failed to restore memory protection at 0x%x - %w", addr, restoreErr)
	}

	return nil
}

func (selfMemory) View(addr uintptr, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}

	err := checkRange(addr, n)
	if err != nil {
		return nil, err
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n), nil
}

// As reinterprets addr as a pointer to a T. It returns nil if addr
// is zero. The caller is responsible for T matching the layout of
// the memory at addr.
func As[T any](addr uintptr) *T {
	if addr == 0 {
		return nil
	}

	return (*T)(unsafe.Pointer(addr))
}

// AddressOf returns the address of the value p points to.
func AddressOf[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}

func checkRange(addr uintptr, n int) error {
	if addr == 0 {
		return ErrNullAddress
	}

	if n < 0 || addr+uintptr(n) < addr {
		return fmt.Errorf("0x%x+%d - %w", addr, n, ErrOutOfRange)
	}

	return nil
}

// guard runs fn, converting a memory fault into a *FaultError.
func guard(addr uintptr, fn func()) (err error) {
	old := debug.SetPanicOnFault(true)

	defer func() {
		debug.SetPanicOnFault(old)

		r := recover()
		if r == nil {
			return
		}

		runtimeErr, ok := r.(runtime.Error)
		if !ok {
			panic(r)
		}

		err = &FaultError{
			Addr:  addr,
			Cause: runtimeErr.Error(),
		}
	}()

	fn()

	return nil
}
