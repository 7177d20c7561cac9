package memory

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

type protectedRegion struct {
	region []byte
	prot   int
}

// makeWritable adds write permission to the pages covering
// [addr, addr+n), which may span several mappings. The returned
// function restores the protection of each mapping as found in
// /proc/self/maps.
func makeWritable(addr uintptr, n int) (func() error, error) {
	pageSize := uintptr(unix.Getpagesize())
	start := addr &^ (pageSize - 1)
	end := Align(addr+uintptr(n), pageSize)

	mappings, err := SelfMappings()
	if err != nil {
		return nil, fmt.Errorf("failed to read process mappings - %w", err)
	}

	var regions []protectedRegion
	next := start
	for _, m := range mappings {
		if m.End <= next || m.Start >= end {
			continue
		}

		if m.Start > next {
			break
		}

		regionEnd := min(m.End, end)

		regions = append(regions, protectedRegion{
			region: unsafe.Slice((*byte)(unsafe.Pointer(next)), regionEnd-next),
			prot:   mappingProt(m),
		})

		next = regionEnd
		if next == end {
			break
		}
	}

	if next != end {
		return nil, fmt.Errorf("0x%x is not mapped", next)
	}

	restore := func(regions []protectedRegion) error {
		var errs []error
		for _, r := range regions {
			err := unix.Mprotect(r.region, r.prot)
			if err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	for i, r := range regions {
		err = unix.Mprotect(r.region, r.prot|unix.PROT_READ|unix.PROT_WRITE)
		if err != nil {
			restoreErr := restore(regions[:i])
			if restoreErr != nil {
				log.Warnf("failed to restore memory protection - %s", restoreErr)
			}

			return nil, fmt.Errorf("mprotect failed - %w", err)
		}
	}

	return func() error {
		return restore(regions)
	}, nil
}

func mappingProt(m Mapping) int {
	prot := 0
	if m.Readable() {
		prot |= unix.PROT_READ
	}
	if m.Writable() {
		prot |= unix.PROT_WRITE
	}
	if m.Executable() {
		prot |= unix.PROT_EXEC
	}
	return prot
}
