package module

import (
	"fmt"
	"strings"

	"gitlab.com/stephen-fox/singlescan/memory"
	"golang.org/x/sys/windows"
)

// Process returns a Resolver for the modules loaded by the current
// process.
func Process() Resolver {
	return processResolver{}
}

type processResolver struct{}

func (processResolver) ResolveModule(candidates ...string) (Module, error) {
	for _, name := range candidates {
		namePtr, err := windows.UTF16PtrFromString(name)
		if err != nil {
			continue
		}

		var handle windows.Handle
		err = windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT,
			namePtr, &handle)
		if err != nil {
			log.WithField("module", name).Debugf("module is not loaded - %s", err)
			continue
		}

		img, err := ParsePEImage(memory.Self(), name, uintptr(handle))
		if err != nil {
			return nil, fmt.Errorf("failed to parse headers of %q - %w", name, err)
		}

		return img, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, strings.Join(candidates, ", "))
}

func (processResolver) SectionRange(m Module, section string) (Range, error) {
	img, ok := m.(*PEImage)
	if !ok {
		return Range{}, fmt.Errorf("unsupported module type: %T", m)
	}

	return img.SectionRange(m, section)
}
