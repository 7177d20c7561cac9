package memory

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Mapping is one entry of a /proc/<pid>/maps file.
type Mapping struct {
	Start  uintptr
	End    uintptr
	Perms  string
	Offset uint64
	Path   string
}

func (o Mapping) Contains(addr uintptr) bool {
	return addr >= o.Start && addr < o.End
}

func (o Mapping) Readable() bool {
	return len(o.Perms) > 0 && o.Perms[0] == 'r'
}

func (o Mapping) Writable() bool {
	return len(o.Perms) > 1 && o.Perms[1] == 'w'
}

func (o Mapping) Executable() bool {
	return len(o.Perms) > 2 && o.Perms[2] == 'x'
}

// SelfMappings returns the memory mappings of the current process.
// It is only supported on systems providing /proc/self/maps.
func SelfMappings() ([]Mapping, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseMappings(f)
}

// ParseMappings parses the contents of a /proc/<pid>/maps file.
func ParseMappings(r io.Reader) ([]Mapping, error) {
	var mappings []Mapping

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if len(fields) < 5 {
			return nil, fmt.Errorf("line %d has %d fields, expected at least 5",
				line, len(fields))
		}

		startStr, endStr, found := strings.Cut(fields[0], "-")
		if !found {
			return nil, fmt.Errorf("line %d has a malformed address range: %q",
				line, fields[0])
		}

		start, err := strconv.ParseUint(startStr, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d has a malformed start address - %w", line, err)
		}

		end, err := strconv.ParseUint(endStr, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d has a malformed end address - %w", line, err)
		}

		offset, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d has a malformed offset - %w", line, err)
		}

		m := Mapping{
			Start:  uintptr(start),
			End:    uintptr(end),
			Perms:  fields[1],
			Offset: offset,
		}

		if len(fields) > 5 {
			m.Path = strings.Join(fields[5:], " ")
		}

		mappings = append(mappings, m)
	}

	err := scanner.Err()
	if err != nil {
		return nil, err
	}

	return mappings, nil
}
