package singleton

import (
	"fmt"

	"gitlab.com/stephen-fox/singlescan/module"
	"gitlab.com/stephen-fox/singlescan/pattern"
)

// NullCheckIdiom matches the null check emitted before a singleton
// is used. The three capture groups hold the rip-relative
// displacements of the instance pointer, of the reflection metadata,
// and of the name function, in that order.
const NullCheckIdiom = "" +
	// 0: mov reg, [rip+instance]
	"01001... 10001011 00...101 [instance: ........ ........ ........ ........] " +
	// 7: test reg, reg
	"01001... 10000101 11...... " +
	// 10: jnz
	"01110101 ........ " +
	// 12: lea rcx, [rip+metadata]
	"01001... 10001101 00001101 [metadata: ........ ........ ........ ........] " +
	// 19: call get_singleton_name
	"11101000 [resolver: ........ ........ ........ ........]"

// Offsets of the end of each instruction that carries a displacement,
// relative to the start of the idiom. Displacements are relative to
// the end of their instruction.
const (
	instanceDispEnd = 7
	metadataDispEnd = 19
	resolverDispEnd = 24

	idiomLen = 24
)

// Candidate is an occurrence of the idiom whose addresses all point
// into the expected sections.
type Candidate struct {
	// Site is the address of the first byte of the idiom.
	Site uintptr

	// Instance is the address of the static instance pointer.
	Instance uintptr

	// Metadata is the address of the reflection metadata.
	Metadata uintptr

	// Resolver is the address of the name function.
	Resolver uintptr
}

func (o Candidate) String() string {
	return fmt.Sprintf("site: 0x%x, instance: 0x%x, metadata: 0x%x, resolver: 0x%x",
		o.Site, o.Instance, o.Metadata, o.Resolver)
}

// FindCandidates scans the code section with p (typically compiled
// from NullCheckIdiom) and returns the candidates, in scan order, whose
// instance and metadata addresses are inside the data section and whose
// name function is inside the code section. Other matches are discarded
// silently.
func FindCandidates(code module.Section, data module.Section, p *pattern.Pattern) ([]Candidate, error) {
	err := checkIdiomPattern(p)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	rejected := 0

	p.Scan(code.Data, func(m pattern.Match) bool {
		site := code.Range.Start + uintptr(m.Offset)

		c := Candidate{
			Site:     site,
			Instance: relativeTo(site+instanceDispEnd, m.Int32(0)),
			Metadata: relativeTo(site+metadataDispEnd, m.Int32(1)),
			Resolver: relativeTo(site+resolverDispEnd, m.Int32(2)),
		}

		switch {
		case !data.Range.Contains(c.Instance):
			log.Debugf("rejected candidate, instance is outside of %s - %s", data.Name, c)
		case !data.Range.Contains(c.Metadata):
			log.Debugf("rejected candidate, metadata is outside of %s - %s", data.Name, c)
		case !code.Range.Contains(c.Resolver):
			log.Debugf("rejected candidate, resolver is outside of %s - %s", code.Name, c)
		default:
			candidates = append(candidates, c)
			return true
		}

		rejected++
		return true
	})

	log.Debugf("found %d candidates, rejected %d", len(candidates), rejected)

	return candidates, nil
}

func relativeTo(end uintptr, displacement int32) uintptr {
	return end + uintptr(int64(displacement))
}

func checkIdiomPattern(p *pattern.Pattern) error {
	if p == nil {
		return fmt.Errorf("%w: pattern is nil", ErrPattern)
	}

	if p.Len() != idiomLen {
		return fmt.Errorf("%w: pattern is %d bytes long, expected %d",
			ErrPattern, p.Len(), idiomLen)
	}

	groups := p.Groups()
	if len(groups) != 3 {
		return fmt.Errorf("%w: pattern has %d capture groups, expected 3",
			ErrPattern, len(groups))
	}

	for i, g := range groups {
		if g.Len != 4 {
			return fmt.Errorf("%w: capture group %d is %d bytes wide, expected 4",
				ErrPattern, i, g.Len)
		}
	}

	return nil
}
