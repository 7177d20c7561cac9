//go:build !linux && !windows

package module

import (
	"errors"
	"fmt"
)

// Process returns a Resolver for the modules loaded by the current
// process. It is not supported on this platform.
func Process() Resolver {
	return processResolver{}
}

type processResolver struct{}

func (processResolver) ResolveModule(candidates ...string) (Module, error) {
	return nil, fmt.Errorf("failed to resolve module - %w", errors.ErrUnsupported)
}

func (processResolver) SectionRange(m Module, section string) (Range, error) {
	return Range{}, fmt.Errorf("failed to resolve section - %w", errors.ErrUnsupported)
}
