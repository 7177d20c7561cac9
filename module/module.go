// Package module locates loaded modules and their sections.
package module

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gitlab.com/stephen-fox/singlescan/memory"
)

var (
	ErrModuleNotFound  = errors.New("module not found")
	ErrSectionNotFound = errors.New("section not found")

	log = logrus.WithField("subsys", "module")
)

// DefaultModuleNames are the file names the target executable is
// known to be loaded as.
var DefaultModuleNames = []string{
	"eldenring.exe",
	"start_protected_game.exe",
}

// Module is a handle to a loaded module.
type Module interface {
	Name() string
	Base() uintptr
}

// Resolver finds loaded modules and their sections.
type Resolver interface {
	// ResolveModule returns the first candidate that is loaded.
	// It fails with ErrModuleNotFound if none are.
	ResolveModule(candidates ...string) (Module, error)

	// SectionRange returns the address range of the named section.
	// It fails with ErrSectionNotFound if the module lacks it.
	SectionRange(m Module, section string) (Range, error)
}

// Range is a half-open address interval.
type Range struct {
	Start uintptr
	End   uintptr
}

// Contains reports whether addr is inside the range.
func (o Range) Contains(addr uintptr) bool {
	return addr >= o.Start && addr < o.End
}

// Len returns the length of the range in bytes.
func (o Range) Len() int {
	if o.End <= o.Start {
		return 0
	}
	return int(o.End - o.Start)
}

func (o Range) String() string {
	return fmt.Sprintf("0x%x-0x%x", o.Start, o.End)
}

// Section is a section of a loaded module.
type Section struct {
	Name  string
	Range Range

	// Data is a read-only view of the section's memory.
	// It must not be modified.
	Data []byte
}

// LookupError is returned when a module or section cannot be found.
type LookupError struct {
	// Module is empty if no candidate module was loaded.
	Module  string
	Section string
	Err     error
}

func (o *LookupError) Error() string {
	if o.Module == "" {
		return fmt.Sprintf("failed to find section %q - %s", o.Section, o.Err)
	}
	return fmt.Sprintf("failed to find section %q in %q - %s", o.Section, o.Module, o.Err)
}

func (o *LookupError) Unwrap() error {
	return o.Err
}

// FindSection resolves the first loaded module of candidates and
// returns the named section, including a view of its bytes in mem.
func FindSection(r Resolver, mem memory.Memory, candidates []string, name string) (Section, error) {
	m, err := r.ResolveModule(candidates...)
	if err != nil {
		return Section{}, &LookupError{Section: name, Err: err}
	}

	rng, err := r.SectionRange(m, name)
	if err != nil {
		return Section{}, &LookupError{Module: m.Name(), Section: name, Err: err}
	}

	data, err := mem.View(rng.Start, rng.Len())
	if err != nil {
		return Section{}, &LookupError{
			Module:  m.Name(),
			Section: name,
			Err:     fmt.Errorf("failed to view section memory at %s - %w", rng, err),
		}
	}

	log.WithFields(logrus.Fields{
		"module":  m.Name(),
		"section": name,
		"range":   rng.String(),
	}).Debug("resolved section")

	return Section{
		Name:  name,
		Range: rng,
		Data:  data,
	}, nil
}
