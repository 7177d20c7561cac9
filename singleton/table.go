package singleton

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
)

// NewTable creates a Table from a map of singleton names to the
// addresses of their instance pointers. The map is copied.
func NewTable(entries map[string]uintptr) *Table {
	t := &Table{
		entries: make(map[string]uintptr, len(entries)),
	}

	for name, addr := range entries {
		t.entries[name] = addr
	}

	return t
}

// Table maps the names of reflected singleton classes to the
// addresses of their static instance pointers. A Table is not
// modified after it is built, so it may be shared between goroutines.
type Table struct {
	entries map[string]uintptr
}

func (o *Table) set(name string, addr uintptr) {
	previous, hasIt := o.entries[name]
	if hasIt {
		log.Debugf("replacing instance pointer of %q at 0x%x with 0x%x",
			name, previous, addr)
	}

	o.entries[name] = addr
}

// Address returns the address of the instance pointer of the
// named singleton.
func (o *Table) Address(name string) (uintptr, bool) {
	addr, hasIt := o.entries[name]
	return addr, hasIt
}

// AddressOrExit returns the address of the instance pointer of the
// named singleton. If the name is not in the table, then DefaultExitFn
// is invoked.
func (o *Table) AddressOrExit(name string) uintptr {
	addr, hasIt := o.entries[name]
	if !hasIt {
		DefaultExitFn(fmt.Errorf("%w: %q", ErrNotFound, name))
	}

	return addr
}

// Len returns the number of singletons in the table.
func (o *Table) Len() int {
	return len(o.entries)
}

// Names returns the names in the table in ascending order.
func (o *Table) Names() []string {
	names := make([]string, 0, len(o.entries))
	for name := range o.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Export writes one line per singleton to w, sorted by name:
//
//	"WorldChrMan", 143d5a3b8
func (o *Table) Export(w io.Writer) error {
	for _, name := range o.Names() {
		_, err := fmt.Fprintf(w, "\"%s\", %x\n", name, o.entries[name])
		if err != nil {
			return err
		}
	}

	return nil
}

// ExportFile creates or truncates the file at path and writes
// the table to it using Export. Failures are returned as *ExportError.
func (o *Table) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &ExportError{Op: "create", Path: path, Err: err}
	}

	bw := bufio.NewWriter(f)

	err = o.Export(bw)
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		_ = f.Close()
		return &ExportError{Op: "write", Path: path, Err: err}
	}

	err = f.Close()
	if err != nil {
		return &ExportError{Op: "close", Path: path, Err: err}
	}

	return nil
}

// ExportError is returned when the table cannot be exported to a file.
type ExportError struct {
	// Op is one of "create", "write", or "close".
	Op   string
	Path string
	Err  error
}

func (o *ExportError) Error() string {
	return fmt.Sprintf("failed to %s export file %q - %s", o.Op, o.Path, o.Err)
}

func (o *ExportError) Unwrap() error {
	return o.Err
}
