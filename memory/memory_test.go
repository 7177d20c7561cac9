package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var selfTestData = [...]byte{'h', 'e', 'l', 'l', 'o', 0, 'w', 'o', 'r', 'l', 'd'}

func TestBuffer_ReadWrite(t *testing.T) {
	buf := NewBuffer(0x1000, 16)

	require.NoError(t, buf.Write(0x1004, []byte{1, 2, 3}))
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 0}, buf.Data[:8])

	p := make([]byte, 2)
	require.NoError(t, buf.Read(0x1005, p))
	assert.Equal(t, []byte{2, 3}, p)

	require.NoError(t, buf.Write(0x100f, []byte{0xff}))
	assert.Equal(t, uintptr(0x1010), buf.End())
}

func TestBuffer_OutOfRange(t *testing.T) {
	buf := NewBuffer(0x1000, 16)

	tests := []struct {
		name string
		addr uintptr
		n    int
	}{
		{name: "Below", addr: 0xfff, n: 1},
		{name: "Above", addr: 0x1010, n: 1},
		{name: "StraddlesEnd", addr: 0x100e, n: 4},
		{name: "FarAbove", addr: 0xffffffff, n: 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := buf.Read(test.addr, make([]byte, test.n))
			assert.ErrorIs(t, err, ErrOutOfRange)

			err = buf.Write(test.addr, make([]byte, test.n))
			assert.ErrorIs(t, err, ErrOutOfRange)

			_, err = buf.View(test.addr, test.n)
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}

	assert.ErrorIs(t, buf.Read(0, make([]byte, 1)), ErrNullAddress)
}

func TestBuffer_View(t *testing.T) {
	buf := NewBuffer(0x1000, 16)

	view, err := buf.View(0x1008, 8)
	require.NoError(t, err)
	require.Len(t, view, 8)

	buf.Data[8] = 0xaa
	assert.Equal(t, byte(0xaa), view[0])
}

func TestReadPointer(t *testing.T) {
	buf := NewBuffer(0x1000, 16)
	copy(buf.Data[8:], PointerMakerForX86_64().FromUint(0x143cd1f48))

	p, err := ReadPointer(buf, 0x1008)
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x143cd1f48), p)

	_, err = ReadPointer(buf, 0x100c)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestReadUint32(t *testing.T) {
	buf := &Buffer{Base: 0x1000, Data: []byte{0x78, 0x56, 0x34, 0x12}}

	v, err := ReadUint32(buf, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)
}

func TestReadCString(t *testing.T) {
	buf := &Buffer{Base: 0x1000, Data: []byte("WorldChrMan\x00CSCamera")}

	s, err := ReadCString(buf, 0x1000, 64)
	require.NoError(t, err)
	assert.Equal(t, "WorldChrMan", string(s))

	_, err = ReadCString(buf, 0x1000, 4)
	assert.ErrorIs(t, err, ErrUnterminated)

	_, err = ReadCString(buf, 0x100c, 64)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ReadCString(buf, 0, 64)
	assert.ErrorIs(t, err, ErrNullAddress)

	empty, err := ReadCString(buf, 0x100b, 64)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAlign(t *testing.T) {
	assert.Equal(t, uintptr(0x2000), Align(uintptr(0x1001), 0x1000))
	assert.Equal(t, uintptr(0x1000), Align(uintptr(0x1000), 0x1000))
	assert.Equal(t, 8, Align(5, 8))
}

func TestSelf_Read(t *testing.T) {
	addr := AddressOf(&selfTestData[0])

	s, err := ReadCString(Self(), addr, 16)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(s))

	view, err := Self().View(addr+6, 5)
	require.NoError(t, err)
	assert.Equal(t, "world", string(view))
}

func TestSelf_Fault(t *testing.T) {
	err := Self().Read(8, make([]byte, 8))

	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, uintptr(8), fault.Addr)

	assert.ErrorIs(t, Self().Read(0, make([]byte, 1)), ErrNullAddress)
}

type pair struct {
	A uint32
	B uint32
}

var asTestPair = pair{A: 1, B: 2}

func TestAs(t *testing.T) {
	v := &asTestPair

	p := As[pair](AddressOf(v))
	require.NotNil(t, p)
	p.B = 3
	assert.Equal(t, uint32(3), v.B)

	assert.Nil(t, As[pair](0))
}

func TestParseMappings(t *testing.T) {
	maps := `55d4b8a00000-55d4b8a02000 r--p 00000000 fd:01 1234 /usr/bin/game
55d4b8a02000-55d4b8a08000 r-xp 00002000 fd:01 1234 /usr/bin/game
55d4b8a08000-55d4b8a09000 rw-p 00008000 fd:01 1234 /usr/bin/game
7ffd1c3f0000-7ffd1c411000 rw-p 00000000 00:00 0    [stack]
7ffd1c500000-7ffd1c501000 rw-p 00000000 00:00 0
`

	mappings, err := ParseMappings(strings.NewReader(maps))
	require.NoError(t, err)
	require.Len(t, mappings, 5)

	text := mappings[1]
	assert.Equal(t, uintptr(0x55d4b8a02000), text.Start)
	assert.Equal(t, uintptr(0x55d4b8a08000), text.End)
	assert.Equal(t, uint64(0x2000), text.Offset)
	assert.Equal(t, "/usr/bin/game", text.Path)
	assert.True(t, text.Readable())
	assert.False(t, text.Writable())
	assert.True(t, text.Executable())
	assert.True(t, text.Contains(0x55d4b8a07fff))
	assert.False(t, text.Contains(0x55d4b8a08000))

	assert.Equal(t, "[stack]", mappings[3].Path)
	assert.Empty(t, mappings[4].Path)
}

func TestParseMappings_Malformed(t *testing.T) {
	_, err := ParseMappings(strings.NewReader("zzzz-1000 r--p 0 00:00 0\n"))
	assert.Error(t, err)

	_, err = ParseMappings(strings.NewReader("1000 r--p 0 00:00 0\n"))
	assert.Error(t, err)

	_, err = ParseMappings(strings.NewReader("1000-2000 r--p\n"))
	assert.Error(t, err)
}
