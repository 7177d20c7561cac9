// Package singleton discovers the static instance pointers of the
// reflected singleton classes of a running executable, and provides
// typed access to the live instances.
//
// The executable exposes no symbol table. However, every reflected
// singleton class is checked for null before use with the same
// instruction sequence, which also references the class' reflection
// metadata and a function that returns the class name:
//
//	mov  reg, [rip+instance]    ; pointer to the instance
//	test reg, reg
//	jnz  ...
//	lea  rcx, [rip+metadata]    ; reflection metadata
//	call get_singleton_name     ; char* get_singleton_name(metadata)
//
// Build scans the code section for this idiom, discards candidates
// whose addresses do not point into the expected sections, calls the
// name function for each remaining candidate, and records the address
// of the instance pointer under the returned name. Displacements are
// read as signed values, so idioms whose name function or data are
// located before the idiom itself are found as well.
//
// The table is built once per Accessor. Instance and Lookup return
// (nil, nil) when a class is known but currently has no instance;
// for example, some managers only exist while a game world is loaded.
package singleton
