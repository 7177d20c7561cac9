// Package memory provides functionality for reading and writing memory
// that the calling code does not own.
//
// Foreign memory
//
// Memory belonging to a process that does not cooperate with this code
// may be unmapped, reallocated, or re-protected at any time. Every access
// therefore goes through the Memory interface and returns an error,
// even when the underlying operation is a plain load or store. Self
// returns the implementation for the current process. As converts an
// address into a typed Go pointer for memory known to hold a T.
//
// Buffer implements Memory over a []byte mapped at an arbitrary base
// address. It is useful for tests and for working with images that were
// loaded from disk rather than from a live process.
//
// Patches
//
// A memory patch replaces a fixed number of bytes at a target address
// and remembers the bytes it replaced. The two states of a patch are
// separate types: an InactivePatch can only be applied, and the
// ActivePatch returned by Apply can only be rolled back. Calling Apply
// twice without a rollback (or Rollback twice without an apply) does
// not compile, provided the caller discards the receiver of each
// transition and keeps only its result.
//
// Patches perform no locking. Callers that share a target address must
// serialize access to it themselves.
package memory
