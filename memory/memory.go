package memory

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

var (
	ErrNullAddress  = errors.New("null address")
	ErrOutOfRange   = errors.New("address range is out of bounds")
	ErrUnterminated = errors.New("string is not null terminated within the maximum length")
	ErrInvalidPatch = errors.New("patch was not created by NewPatch or NewPatchIn")
)

// Memory abstracts byte-level access to an address space.
type Memory interface {
	// Read fills p with the bytes found at addr.
	Read(addr uintptr, p []byte) error

	// Write copies p to addr.
	Write(addr uintptr, p []byte) error

	// View returns a read-only view of n bytes starting at addr.
	// The view aliases the memory; it is not a copy.
	View(addr uintptr, n int) ([]byte, error)
}

// FaultError is returned when accessing an address faults.
type FaultError struct {
	Addr  uintptr
	Cause string
}

func (o *FaultError) Error() string {
	return fmt.Sprintf("memory fault at 0x%x - %s", o.Addr, o.Cause)
}

// ReadPointer reads an x86-64 pointer stored at addr.
func ReadPointer(mem Memory, addr uintptr) (uintptr, error) {
	pm := PointerMakerForX86_64()

	p := make(Pointer, pm.Size())
	err := mem.Read(addr, p)
	if err != nil {
		return 0, err
	}

	return pm.Uint(p), nil
}

// ReadUint32 reads a little-endian uint32 stored at addr.
func ReadUint32(mem Memory, addr uintptr) (uint32, error) {
	var b [4]byte
	err := mem.Read(addr, b[:])
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadCString reads a null terminated string starting at addr,
// excluding the terminator. At most max bytes are examined.
func ReadCString(mem Memory, addr uintptr, max int) ([]byte, error) {
	if addr == 0 {
		return nil, ErrNullAddress
	}

	buf := bytes.NewBuffer(nil)

	var b [1]byte
	for i := 0; i < max; i++ {
		err := mem.Read(addr+uintptr(i), b[:])
		if err != nil {
			return nil, fmt.Errorf("failed to read string byte %d - %w", i, err)
		}

		if b[0] == 0 {
			return buf.Bytes(), nil
		}

		buf.WriteByte(b[0])
	}

	return nil, ErrUnterminated
}

// Align rounds a up to the next multiple of b, which must be
// a power of two.
func Align[I constraints.Integer](a, b I) I {
	return (a + b - 1) &^ (b - 1)
}
