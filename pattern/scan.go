package pattern

import (
	"bytes"
	"encoding/binary"
)

// Match is a single occurrence of a Pattern in a buffer.
type Match struct {
	// Offset is the index of the first matched byte in
	// the scanned buffer.
	Offset int

	// Captures contains a copy of the bytes matched by each
	// capture group, in declaration order.
	Captures [][]byte

	groups []Group
}

// Capture returns the bytes captured by the named group.
func (o Match) Capture(name string) ([]byte, bool) {
	for i, g := range o.groups {
		if g.Name == name {
			return o.Captures[i], true
		}
	}
	return nil, false
}

// Uint32 decodes capture i as a little-endian uint32. It panics
// if the capture is not 4 bytes wide.
func (o Match) Uint32(i int) uint32 {
	c := o.Captures[i]
	if len(c) != 4 {
		panic("pattern: capture is not 4 bytes wide")
	}
	return binary.LittleEndian.Uint32(c)
}

// Int32 decodes capture i as a little-endian int32, such as
// an x86 displacement.
func (o Match) Int32(i int) int32 {
	return int32(o.Uint32(i))
}

// Matches reports whether the pattern matches the start of buf.
func (o *Pattern) Matches(buf []byte) bool {
	if len(buf) < len(o.mask) {
		return false
	}
	return o.matchAt(buf, 0)
}

// ScanAll returns every match of the pattern in buf. Overlapping
// matches are included.
func (o *Pattern) ScanAll(buf []byte) []Match {
	var matches []Match
	o.Scan(buf, func(m Match) bool {
		matches = append(matches, m)
		return true
	})
	return matches
}

// Scan calls fn for every offset in buf at which the pattern matches,
// in ascending order. Scanning stops when fn returns false.
func (o *Pattern) Scan(buf []byte, fn func(Match) bool) {
	n := len(o.mask)
	if n == 0 || len(buf) < n {
		return
	}

	last := len(buf) - n
	for i := 0; i <= last; i++ {
		if o.anchor >= 0 {
			j := bytes.IndexByte(buf[i+o.anchor:last+o.anchor+1], o.value[o.anchor])
			if j < 0 {
				return
			}
			i += j
		}

		if !o.matchAt(buf, i) {
			continue
		}

		if !fn(o.newMatch(buf, i)) {
			return
		}
	}
}

func (o *Pattern) matchAt(buf []byte, at int) bool {
	window := buf[at : at+len(o.mask)]
	for i, b := range window {
		if b&o.mask[i] != o.value[i] {
			return false
		}
	}
	return true
}

func (o *Pattern) newMatch(buf []byte, at int) Match {
	m := Match{
		Offset:   at,
		Captures: make([][]byte, len(o.groups)),
		groups:   o.groups,
	}

	for i, g := range o.groups {
		c := make([]byte, g.Len)
		copy(c, buf[at+g.Offset:])
		m.Captures[i] = c
	}

	return m
}
