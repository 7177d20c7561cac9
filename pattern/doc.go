// Package pattern provides a small bit-level signature language and
// a scanner that finds every occurrence of a compiled signature in a
// buffer of machine code or data.
//
// Pattern text
//
// A pattern is a whitespace separated list of byte tokens:
//	- Eight characters of '0', '1', or '.' describe one byte bit by
//	  bit, most significant bit first. A '.' matches either bit value.
//	  For example, "01001..." matches any REX.W prefix
//	- Two hex digits describe a fixed byte (e.g., "8b")
//	- "??" matches any byte
//
// Square brackets mark capture groups. The bytes matched by a group are
// returned to the caller rather than merely verified. A group may be
// named by following the opening bracket with a name and a colon:
//	"11101000 [target: ........ ........ ........ ........]"
//
// Groups cannot be nested or empty, and because tokens are whole bytes,
// captures are always byte-aligned.
//
// Patterns are compiled once (typically at startup) into a *Pattern,
// which may then be used to scan any number of buffers concurrently.
package pattern
