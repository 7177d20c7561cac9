package memory

import (
	"encoding/binary"
	"fmt"
)

func PointerMakerForX86_64() PointerMaker {
	return PointerMaker{
		byteOrder: binary.LittleEndian,
		ptrSize:   8,
	}
}

// PointerMaker converts between addresses and their in-memory
// representation on a given platform.
type PointerMaker struct {
	byteOrder binary.ByteOrder
	ptrSize   int
}

// Size returns the size of a pointer in bytes.
func (o PointerMaker) Size() int {
	return o.ptrSize
}

// FromUint encodes address as a Pointer.
func (o PointerMaker) FromUint(address uintptr) Pointer {
	out := make(Pointer, o.ptrSize)
	o.byteOrder.PutUint64(out, uint64(address))
	return out
}

// Uint decodes p. It panics if p is not exactly one pointer wide.
func (o PointerMaker) Uint(p Pointer) uintptr {
	if len(p) != o.ptrSize {
		panic(fmt.Sprintf("pointer is %d bytes, expected %d", len(p), o.ptrSize))
	}

	return uintptr(o.byteOrder.Uint64(p))
}

// Pointer is the raw, in-memory representation of an address.
type Pointer []byte
