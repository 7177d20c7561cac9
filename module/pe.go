package module

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/stephen-fox/singlescan/memory"
)

const (
	dosMagic            = "MZ"
	peSignature         = "PE\x00\x00"
	dosLfanewOffset     = 0x3c
	optSizeOfImageOff   = 56
	sectionHeaderLength = 40
)

var (
	ErrNotPE = errors.New("image is not a PE image")
)

var (
	_ Module   = (*PEImage)(nil)
	_ Resolver = (*PEImage)(nil)
)

// SectionHeader describes a section of a loaded image.
type SectionHeader struct {
	Name  string
	Range Range
}

// PEImage is a PE image mapped into memory.
type PEImage struct {
	name        string
	base        uintptr
	sizeOfImage uint32
	sections    []SectionHeader
}

// ParsePEImage parses the headers of a PE image mapped at base in mem.
func ParsePEImage(mem memory.Memory, name string, base uintptr) (*PEImage, error) {
	dos := make([]byte, dosLfanewOffset+4)
	err := mem.Read(base, dos)
	if err != nil {
		return nil, fmt.Errorf("failed to read dos header - %w", err)
	}

	if string(dos[0:2]) != dosMagic {
		return nil, fmt.Errorf("%w: missing dos magic", ErrNotPE)
	}

	ntOffset := uintptr(binary.LittleEndian.Uint32(dos[dosLfanewOffset:]))

	ntHeaders := make([]byte, 4+binary.Size(pe.FileHeader{}))
	err = mem.Read(base+ntOffset, ntHeaders)
	if err != nil {
		return nil, fmt.Errorf("failed to read nt headers - %w", err)
	}

	if string(ntHeaders[0:4]) != peSignature {
		return nil, fmt.Errorf("%w: missing pe signature", ErrNotPE)
	}

	var fileHeader pe.FileHeader
	err = binary.Read(bytes.NewReader(ntHeaders[4:]), binary.LittleEndian, &fileHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file header - %w", err)
	}

	optHeaderAddr := base + ntOffset + uintptr(len(ntHeaders))

	var sizeOfImage uint32
	if fileHeader.SizeOfOptionalHeader >= optSizeOfImageOff+4 {
		sizeOfImage, err = memory.ReadUint32(mem, optHeaderAddr+optSizeOfImageOff)
		if err != nil {
			return nil, fmt.Errorf("failed to read size of image - %w", err)
		}
	}

	rawSections := make([]byte, int(fileHeader.NumberOfSections)*sectionHeaderLength)
	err = mem.Read(optHeaderAddr+uintptr(fileHeader.SizeOfOptionalHeader), rawSections)
	if err != nil {
		return nil, fmt.Errorf("failed to read section headers - %w", err)
	}

	img := &PEImage{
		name:        name,
		base:        base,
		sizeOfImage: sizeOfImage,
	}

	r := bytes.NewReader(rawSections)
	for i := 0; i < int(fileHeader.NumberOfSections); i++ {
		var sh pe.SectionHeader32
		err = binary.Read(r, binary.LittleEndian, &sh)
		if err != nil {
			return nil, fmt.Errorf("failed to decode section header %d - %w", i, err)
		}

		size := sh.VirtualSize
		if size == 0 {
			size = sh.SizeOfRawData
		}

		start := base + uintptr(sh.VirtualAddress)

		img.sections = append(img.sections, SectionHeader{
			Name: string(bytes.TrimRight(sh.Name[:], "\x00")),
			Range: Range{
				Start: start,
				End:   start + uintptr(size),
			},
		})
	}

	return img, nil
}

// LoadPEFile maps the PE file at path into a memory.Buffer located at
// the file's preferred image base, the way a loader would (minus
// relocations and imports).
func LoadPEFile(path string) (*PEImage, *memory.Buffer, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var imageBase uintptr
	var sizeOfImage, sizeOfHeaders uint32
	switch opt := f.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		imageBase = uintptr(opt.ImageBase)
		sizeOfImage = opt.SizeOfImage
		sizeOfHeaders = opt.SizeOfHeaders
	case *pe.OptionalHeader32:
		imageBase = uintptr(opt.ImageBase)
		sizeOfImage = opt.SizeOfImage
		sizeOfHeaders = opt.SizeOfHeaders
	default:
		return nil, nil, fmt.Errorf("%w: missing optional header", ErrNotPE)
	}

	buf := memory.NewBuffer(imageBase, int(sizeOfImage))

	raw, err := readFilePrefix(path, int(sizeOfHeaders))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read headers - %w", err)
	}
	copy(buf.Data, raw)

	for _, s := range f.Sections {
		n := s.VirtualSize
		if n == 0 || s.Size < n {
			n = s.Size
		}

		if uint64(s.VirtualAddress)+uint64(n) > uint64(len(buf.Data)) {
			return nil, nil, fmt.Errorf("section %q exceeds the size of the image", s.Name)
		}

		data := make([]byte, n)
		_, err := s.ReadAt(data, 0)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("failed to read section %q - %w", s.Name, err)
		}

		copy(buf.Data[s.VirtualAddress:], data)
	}

	img, err := ParsePEImage(buf, filepath.Base(path), imageBase)
	if err != nil {
		return nil, nil, err
	}

	return img, buf, nil
}

// Name returns the name the image was loaded as.
func (o *PEImage) Name() string {
	return o.name
}

// Base returns the address the image is mapped at.
func (o *PEImage) Base() uintptr {
	return o.base
}

// SizeOfImage returns the size of the mapped image, as stated by its
// optional header.
func (o *PEImage) SizeOfImage() uint32 {
	return o.sizeOfImage
}

// Sections returns the image's section headers.
func (o *PEImage) Sections() []SectionHeader {
	sections := make([]SectionHeader, len(o.sections))
	copy(sections, o.sections)
	return sections
}

// ResolveModule returns the image if its name is one of candidates.
// Names are compared case-insensitively.
func (o *PEImage) ResolveModule(candidates ...string) (Module, error) {
	for _, candidate := range candidates {
		if strings.EqualFold(candidate, o.name) {
			return o, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, strings.Join(candidates, ", "))
}

// SectionRange returns the range of a section of the image.
func (o *PEImage) SectionRange(m Module, section string) (Range, error) {
	if m.Name() != o.name || m.Base() != o.base {
		return Range{}, fmt.Errorf("%w: %q is not this image", ErrModuleNotFound, m.Name())
	}

	for _, s := range o.sections {
		if s.Name == section {
			return s.Range, nil
		}
	}

	return Range{}, fmt.Errorf("%w: %q", ErrSectionNotFound, section)
}

func readFilePrefix(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}

	return buf[:read], nil
}
