package module

import (
	"debug/elf"
	"fmt"
	"path/filepath"
	"strings"

	"gitlab.com/stephen-fox/singlescan/memory"
	"golang.org/x/sys/unix"
)

// Process returns a Resolver for the modules loaded by the current
// process. Modules are matched against the base name of the files
// found in /proc/self/maps.
func Process() Resolver {
	return processResolver{}
}

type processResolver struct{}

type elfModule struct {
	name     string
	base     uintptr
	bias     uintptr
	sections []*elf.SectionHeader
}

func (o *elfModule) Name() string {
	return o.name
}

func (o *elfModule) Base() uintptr {
	return o.base
}

func (processResolver) ResolveModule(candidates ...string) (Module, error) {
	mappings, err := memory.SelfMappings()
	if err != nil {
		return nil, fmt.Errorf("failed to read process mappings - %w", err)
	}

	for _, name := range candidates {
		var path string
		var base uintptr
		for _, m := range mappings {
			if m.Path == "" || filepath.Base(m.Path) != name {
				continue
			}

			if path == "" || m.Start < base {
				path = m.Path
				base = m.Start
			}
		}

		if path == "" {
			continue
		}

		return openELFModule(name, path, base)
	}

	return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, strings.Join(candidates, ", "))
}

func openELFModule(name string, path string, base uintptr) (*elfModule, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q - %w", path, err)
	}
	defer f.Close()

	var firstLoad *elf.Prog
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD {
			firstLoad = p
			break
		}
	}

	if firstLoad == nil {
		return nil, fmt.Errorf("%q has no loadable segments", path)
	}

	pageMask := uint64(unix.Getpagesize()) - 1

	mod := &elfModule{
		name: name,
		base: base,
		bias: base - uintptr(firstLoad.Vaddr&^pageMask),
	}

	for _, s := range f.Sections {
		sh := s.SectionHeader
		mod.sections = append(mod.sections, &sh)
	}

	log.WithField("module", name).Debugf("found %q at 0x%x (bias 0x%x)", path, base, mod.bias)

	return mod, nil
}

func (processResolver) SectionRange(m Module, section string) (Range, error) {
	mod, ok := m.(*elfModule)
	if !ok {
		return Range{}, fmt.Errorf("unsupported module type: %T", m)
	}

	for _, s := range mod.sections {
		if s.Name == section && s.Flags&elf.SHF_ALLOC != 0 {
			start := uintptr(s.Addr) + mod.bias
			return Range{
				Start: start,
				End:   start + uintptr(s.Size),
			}, nil
		}
	}

	return Range{}, fmt.Errorf("%w: %q", ErrSectionNotFound, section)
}
