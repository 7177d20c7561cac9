package pattern

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPattern       = errors.New("pattern contains no bytes")
	ErrInvalidToken       = errors.New("invalid byte token")
	ErrUnbalancedGroup    = errors.New("unbalanced capture group bracket")
	ErrEmptyGroup         = errors.New("capture group contains no bytes")
	ErrDuplicateGroupName = errors.New("duplicate capture group name")
)

// SyntaxError describes a malformed pattern.
type SyntaxError struct {
	// Offset is the index into the pattern text at which
	// the problem was found.
	Offset int

	// Token is the offending piece of pattern text, if any.
	Token string

	Err error
}

func (o *SyntaxError) Error() string {
	if o.Token == "" {
		return fmt.Sprintf("pattern: %s at offset %d", o.Err, o.Offset)
	}

	return fmt.Sprintf("pattern: %s at offset %d (%q)", o.Err, o.Offset, o.Token)
}

func (o *SyntaxError) Unwrap() error {
	return o.Err
}

// Group describes a capture group of a compiled Pattern.
type Group struct {
	// Name is the optional name of the group.
	Name string

	// Offset is the byte offset of the group relative to
	// the start of a match.
	Offset int

	// Len is the width of the group in bytes.
	Len int
}

// Pattern is a compiled pattern. It is safe for concurrent use.
type Pattern struct {
	text   string
	mask   []byte
	value  []byte
	groups []Group

	// anchor is the index of the first byte with no wildcard bits,
	// or -1 if every byte has at least one.
	anchor int
}

// CompileOrExit calls Compile. DefaultExitFn is invoked if an
// error occurs.
func CompileOrExit(text string) *Pattern {
	p, err := Compile(text)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to compile pattern - %w", err))
	}
	return p
}

// Compile parses pattern text into a Pattern. Refer to the package
// documentation for the syntax. Errors are of type *SyntaxError.
func Compile(text string) (*Pattern, error) {
	p := &Pattern{
		text:   text,
		anchor: -1,
	}

	inGroup := false
	groupStart := 0
	groupName := ""
	names := make(map[string]struct{})

	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case isSpace(c):
			i++
		case c == '[':
			if inGroup {
				return nil, &SyntaxError{Offset: i, Token: "[", Err: ErrUnbalancedGroup}
			}

			name, n := parseGroupName(text[i+1:])
			if name != "" {
				if _, hasIt := names[name]; hasIt {
					return nil, &SyntaxError{Offset: i, Token: name, Err: ErrDuplicateGroupName}
				}
				names[name] = struct{}{}
			}

			inGroup = true
			groupStart = len(p.mask)
			groupName = name
			i += 1 + n
		case c == ']':
			if !inGroup {
				return nil, &SyntaxError{Offset: i, Token: "]", Err: ErrUnbalancedGroup}
			}

			if len(p.mask) == groupStart {
				return nil, &SyntaxError{Offset: i, Err: ErrEmptyGroup}
			}

			p.groups = append(p.groups, Group{
				Name:   groupName,
				Offset: groupStart,
				Len:    len(p.mask) - groupStart,
			})
			inGroup = false
			i++
		default:
			j := i
			for j < len(text) && !isSpace(text[j]) && text[j] != '[' && text[j] != ']' {
				j++
			}

			token := text[i:j]
			mask, value, ok := parseByteToken(token)
			if !ok {
				return nil, &SyntaxError{Offset: i, Token: token, Err: ErrInvalidToken}
			}

			if mask == 0xff && p.anchor < 0 {
				p.anchor = len(p.mask)
			}

			p.mask = append(p.mask, mask)
			p.value = append(p.value, value)
			i = j
		}
	}

	if inGroup {
		return nil, &SyntaxError{Offset: len(text), Err: ErrUnbalancedGroup}
	}

	if len(p.mask) == 0 {
		return nil, &SyntaxError{Offset: 0, Err: ErrEmptyPattern}
	}

	return p, nil
}

// parseGroupName returns the name following a '[' and the number
// of characters consumed, including the ':'. It returns an empty
// name and zero if the group is unnamed.
func parseGroupName(s string) (string, int) {
	n := 0
	for n < len(s) && isNameChar(s[n]) {
		n++
	}

	if n == 0 || n >= len(s) || s[n] != ':' {
		return "", 0
	}

	return s[:n], n + 1
}

func parseByteToken(token string) (mask byte, value byte, ok bool) {
	switch len(token) {
	case 8:
		for i := 0; i < 8; i++ {
			bit := byte(1) << (7 - i)
			switch token[i] {
			case '0':
				mask |= bit
			case '1':
				mask |= bit
				value |= bit
			case '.':
				// Wildcard.
			default:
				return 0, 0, false
			}
		}
		return mask, value, true
	case 2:
		if token == "??" {
			return 0, 0, true
		}

		b, err := hex.DecodeString(token)
		if err != nil {
			return 0, 0, false
		}
		return 0xff, b[0], true
	default:
		return 0, 0, false
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// Len returns the number of bytes matched by the pattern.
func (o *Pattern) Len() int {
	return len(o.mask)
}

// Groups returns the pattern's capture groups in declaration order.
func (o *Pattern) Groups() []Group {
	groups := make([]Group, len(o.groups))
	copy(groups, o.groups)
	return groups
}

// GroupIndex returns the index of the named capture group.
func (o *Pattern) GroupIndex(name string) (int, bool) {
	for i, g := range o.groups {
		if g.Name == name {
			return i, true
		}
	}
	return 0, false
}

// String returns the pattern in normalized bit notation.
func (o *Pattern) String() string {
	var b strings.Builder

	group := 0
	for i := range o.mask {
		if i > 0 {
			b.WriteByte(' ')
		}

		if group < len(o.groups) && o.groups[group].Offset == i {
			b.WriteByte('[')
			if o.groups[group].Name != "" {
				b.WriteString(o.groups[group].Name)
				b.WriteByte(':')
			}
		}

		for bit := 7; bit >= 0; bit-- {
			switch {
			case o.mask[i]&(1<<bit) == 0:
				b.WriteByte('.')
			case o.value[i]&(1<<bit) == 0:
				b.WriteByte('0')
			default:
				b.WriteByte('1')
			}
		}

		if group < len(o.groups) && o.groups[group].Offset+o.groups[group].Len-1 == i {
			b.WriteByte(']')
			group++
		}
	}

	return b.String()
}
