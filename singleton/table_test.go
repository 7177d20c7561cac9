package singleton

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Export(t *testing.T) {
	table := NewTable(map[string]uintptr{
		"WorldChrMan": 0x143d5a3b8,
		"CSMenuMan":   0x10,
		"GameDataMan": 0x143d5aac0,
	})

	buf := bytes.NewBuffer(nil)
	require.NoError(t, table.Export(buf))

	assert.Equal(t, "\"CSMenuMan\", 10\n"+
		"\"GameDataMan\", 143d5aac0\n"+
		"\"WorldChrMan\", 143d5a3b8\n", buf.String())
}

func TestTable_Export_Empty(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, NewTable(nil).Export(buf))
	assert.Empty(t, buf.String())
}

func TestTable_Names(t *testing.T) {
	table := NewTable(map[string]uintptr{"b": 2, "c": 3, "a": 1})

	assert.Equal(t, []string{"a", "b", "c"}, table.Names())
	assert.Equal(t, 3, table.Len())
}

func TestNewTable_CopiesEntries(t *testing.T) {
	entries := map[string]uintptr{"WorldChrMan": 1}
	table := NewTable(entries)

	entries["WorldChrMan"] = 2
	entries["GameDataMan"] = 3

	addr, hasIt := table.Address("WorldChrMan")
	assert.True(t, hasIt)
	assert.Equal(t, uintptr(1), addr)

	_, hasIt = table.Address("GameDataMan")
	assert.False(t, hasIt)
}

func TestTable_AddressOrExit(t *testing.T) {
	defer func(fn func(error)) { DefaultExitFn = fn }(DefaultExitFn)

	var exitErr error
	DefaultExitFn = func(err error) { exitErr = err }

	table := NewTable(map[string]uintptr{"WorldChrMan": 0x1000})

	assert.Equal(t, uintptr(0x1000), table.AddressOrExit("WorldChrMan"))
	assert.NoError(t, exitErr)

	table.AddressOrExit("FieldArea")
	assert.ErrorIs(t, exitErr, ErrNotFound)
}

func TestTable_ExportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "singletons.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale contents that are longer\n"), 0o600))

	table := NewTable(map[string]uintptr{"WorldChrMan": 0x143d5a3b8})
	require.NoError(t, table.ExportFile(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\"WorldChrMan\", 143d5a3b8\n", string(contents))
}

func TestTable_ExportFile_CreateFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "singletons.csv")

	err := NewTable(nil).ExportFile(path)

	var exportErr *ExportError
	require.True(t, errors.As(err, &exportErr))
	assert.Equal(t, "create", exportErr.Op)
	assert.Equal(t, path, exportErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
