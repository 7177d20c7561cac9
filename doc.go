// Package singlescan provides access to the reflected singletons of
// a game executable that carries no symbols, from code running inside
// the game's process.
//
// APIs are separated into subpackages, and documented accordingly:
//	- pattern compiles bit-level signatures and scans buffers for them
//	- module locates the executable and its sections
//	- memory reads, writes, and patches memory without crashing on faults
//	- singleton builds the name to instance pointer table and provides
//	  typed access to live instances
//	- asmkit disassembles the instructions around a match
//
// For scripting convenience, "OrExit" functions and methods are provided.
// Any errors encountered by these functions are treated as fatal. In such
// cases, an exit handler function is invoked.
package singlescan
