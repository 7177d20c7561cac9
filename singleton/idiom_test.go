package singleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/stephen-fox/singlescan/module"
	"gitlab.com/stephen-fox/singlescan/pattern"
)

func testSections(t *testing.T, img *testImage) (module.Section, module.Section) {
	code, err := module.FindSection(img, img.buf, []string{testModuleName}, ".text")
	require.NoError(t, err)

	data, err := module.FindSection(img, img.buf, []string{testModuleName}, ".data")
	require.NoError(t, err)

	return code, data
}

func TestNullCheckIdiom_Compiles(t *testing.T) {
	p, err := pattern.Compile(NullCheckIdiom)
	require.NoError(t, err)

	assert.Equal(t, idiomLen, p.Len())
	assert.Equal(t, []pattern.Group{
		{Name: "instance", Offset: 3, Len: 4},
		{Name: "metadata", Offset: 15, Len: 4},
		{Name: "resolver", Offset: 20, Len: 4},
	}, p.Groups())
}

func TestFindCandidates(t *testing.T) {
	img := newTestImage()

	// The name function precedes the second site, so its displacement
	// is negative.
	first := img.plantIdiom(0x10, img.data.Start+0x8, img.data.Start+0x100, img.resolverAddr())
	second := img.plantIdiom(0x900, img.data.Start+0x10, img.data.Start+0x110, img.resolverAddr())

	code, data := testSections(t, img)

	candidates, err := FindCandidates(code, data, pattern.CompileOrExit(NullCheckIdiom))
	require.NoError(t, err)

	assert.Equal(t, []Candidate{
		{
			Site:     first,
			Instance: img.data.Start + 0x8,
			Metadata: img.data.Start + 0x100,
			Resolver: img.resolverAddr(),
		},
		{
			Site:     second,
			Instance: img.data.Start + 0x10,
			Metadata: img.data.Start + 0x110,
			Resolver: img.resolverAddr(),
		},
	}, candidates)
}

func TestFindCandidates_Empty(t *testing.T) {
	img := newTestImage()

	code, data := testSections(t, img)

	candidates, err := FindCandidates(code, data, pattern.CompileOrExit(NullCheckIdiom))
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFindCandidates_RejectsAddressesOutsideSections(t *testing.T) {
	img := newTestImage()

	// Instance in .text.
	img.plantIdiom(0x10, img.text.Start+0x10, img.data.Start+0x100, img.resolverAddr())
	// Instance one past the end of .data.
	img.plantIdiom(0x40, img.data.End, img.data.Start+0x100, img.resolverAddr())
	// Metadata outside of .data.
	img.plantIdiom(0x80, img.data.Start+0x8, img.strs.Start+0x10, img.resolverAddr())
	// Name function in .data.
	img.plantIdiom(0xc0, img.data.Start+0x8, img.data.Start+0x100, img.data.Start+0x200)
	// Everything at the last valid address.
	valid := img.plantIdiom(0x100, img.data.End-1, img.data.End-1, img.text.End-1)

	code, data := testSections(t, img)

	candidates, err := FindCandidates(code, data, pattern.CompileOrExit(NullCheckIdiom))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, valid, candidates[0].Site)
}

func TestFindCandidates_InvalidPattern(t *testing.T) {
	img := newTestImage()

	code, data := testSections(t, img)

	tests := []string{
		"11101000 [........ ........ ........ ........]",
		"01001... 10001011 00...101 [........ ........ ........ ........] " +
			"01001... 10000101 11...... 01110101 ........ " +
			"01001... 10001101 00001101 [........ ........ ........ ........] " +
			"11101000 ........ ........ ........ ........",
		"01001... 10001011 00...101 [........ ........ ........ ........] " +
			"01001... 10000101 11...... 01110101 ........ " +
			"01001... 10001101 00001101 [........ ........ ........ ........] " +
			"11101000 [........ ........] ........ ........",
	}

	for _, text := range tests {
		_, err := FindCandidates(code, data, pattern.CompileOrExit(text))
		assert.ErrorIs(t, err, ErrPattern, text)
	}

	_, err := FindCandidates(code, data, nil)
	assert.ErrorIs(t, err, ErrPattern)
}
