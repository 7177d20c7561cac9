package memory

import (
	"fmt"
)

// NewPatch creates an InactivePatch that replaces len(replacement)
// bytes at target in the current process' memory.
func NewPatch(target uintptr, replacement []byte) InactivePatch {
	return NewPatchIn(Self(), target, replacement)
}

// NewPatchIn creates an InactivePatch that replaces len(replacement)
// bytes at target in mem. The replacement is copied, so later changes
// to the caller's slice do not affect the patch.
func NewPatchIn(mem Memory, target uintptr, replacement []byte) InactivePatch {
	return InactivePatch{
		mem:         mem,
		target:      target,
		replacement: cloneBytes(replacement),
	}
}

// InactivePatch is a patch whose replacement is not currently
// written to its target.
type InactivePatch struct {
	mem         Memory
	target      uintptr
	replacement []byte
}

// Target returns the address the patch writes to.
func (o InactivePatch) Target() uintptr {
	return o.target
}

// Len returns the number of bytes the patch replaces.
func (o InactivePatch) Len() int {
	return len(o.replacement)
}

// Replacement returns a copy of the bytes the patch writes.
func (o InactivePatch) Replacement() []byte {
	return cloneBytes(o.replacement)
}

// ApplyOrExit calls Apply. DefaultExitFn is invoked if an error occurs.
func (o InactivePatch) ApplyOrExit() ActivePatch {
	active, err := o.Apply()
	if err != nil {
		DefaultExitFn(err)
	}
	return active
}

// Apply saves the bytes currently found at the target and then
// writes the replacement over them. Apply must be called at most once
// per InactivePatch value; apply the InactivePatch returned by
// Rollback to patch the target again.
func (o InactivePatch) Apply() (ActivePatch, error) {
	if o.mem == nil {
		return ActivePatch{}, ErrInvalidPatch
	}

	original := make([]byte, len(o.replacement))

	err := o.mem.Read(o.target, original)
	if err != nil {
		return ActivePatch{}, fmt.Errorf("failed to back up %d bytes at 0x%x - %w",
			len(original), o.target, err)
	}

	err = o.mem.Write(o.target, o.replacement)
	if err != nil {
		return ActivePatch{}, fmt.Errorf("failed to write %d bytes to 0x%x - %w",
			len(o.replacement), o.target, err)
	}

	return ActivePatch{
		mem:         o.mem,
		target:      o.target,
		replacement: o.replacement,
		original:    original,
	}, nil
}

// ActivePatch is a patch whose replacement is written to its target.
type ActivePatch struct {
	mem         Memory
	target      uintptr
	replacement []byte
	original    []byte
}

// Target returns the address the patch wrote to.
func (o ActivePatch) Target() uintptr {
	return o.target
}

// Len returns the number of bytes the patch replaced.
func (o ActivePatch) Len() int {
	return len(o.replacement)
}

// Original returns a copy of the bytes found at the target
// when the patch was applied.
func (o ActivePatch) Original() []byte {
	return cloneBytes(o.original)
}

// RollbackOrExit calls Rollback. DefaultExitFn is invoked if an
// error occurs.
func (o ActivePatch) RollbackOrExit() InactivePatch {
	inactive, err := o.Rollback()
	if err != nil {
		DefaultExitFn(err)
	}
	return inactive
}

// Rollback writes the original bytes back to the target. The
// returned InactivePatch carries the same replacement and may be
// applied again.
func (o ActivePatch) Rollback() (InactivePatch, error) {
	if o.mem == nil {
		return InactivePatch{}, ErrInvalidPatch
	}

	err := o.mem.Write(o.target, o.original)
	if err != nil {
		return InactivePatch{}, fmt.Errorf("failed to restore %d bytes at 0x%x - %w",
			len(o.original), o.target, err)
	}

	return InactivePatch{
		mem:         o.mem,
		target:      o.target,
		replacement: o.replacement,
	}, nil
}

func cloneBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
