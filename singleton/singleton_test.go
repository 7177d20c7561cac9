package singleton

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"gitlab.com/stephen-fox/singlescan/memory"
	"gitlab.com/stephen-fox/singlescan/module"
)

const (
	testModuleName = "eldenring.exe"
	testImageBase  = uintptr(0x140000000)
)

// testImage is a fake executable mapped into a memory.Buffer. It
// also acts as the module.Resolver and NameFunc of a build.
type testImage struct {
	buf        *memory.Buffer
	text       module.Range
	data       module.Range
	strs       module.Range
	nextString uintptr
	names      map[uintptr]uintptr
	resolves   atomic.Int32
}

func newTestImage() *testImage {
	return &testImage{
		buf:        memory.NewBuffer(testImageBase, 0x5000),
		text:       module.Range{Start: testImageBase + 0x1000, End: testImageBase + 0x2000},
		data:       module.Range{Start: testImageBase + 0x3000, End: testImageBase + 0x4000},
		strs:       module.Range{Start: testImageBase + 0x4000, End: testImageBase + 0x5000},
		nextString: testImageBase + 0x4000,
		names:      make(map[uintptr]uintptr),
	}
}

func (o *testImage) Name() string {
	return testModuleName
}

func (o *testImage) Base() uintptr {
	return o.buf.Base
}

func (o *testImage) ResolveModule(candidates ...string) (module.Module, error) {
	o.resolves.Add(1)

	for _, c := range candidates {
		if c == testModuleName {
			return o, nil
		}
	}

	return nil, module.ErrModuleNotFound
}

func (o *testImage) SectionRange(m module.Module, section string) (module.Range, error) {
	switch section {
	case ".text":
		return o.text, nil
	case ".data":
		return o.data, nil
	default:
		return module.Range{}, module.ErrSectionNotFound
	}
}

func (o *testImage) nameFunc(fn uintptr, metadata uintptr) (uintptr, error) {
	if !o.text.Contains(fn) {
		return 0, fmt.Errorf("name function 0x%x is outside of .text", fn)
	}

	addr, hasIt := o.names[metadata]
	if !hasIt {
		return 0, fmt.Errorf("unknown metadata 0x%x", metadata)
	}

	return addr, nil
}

func (o *testImage) config() BuildConfig {
	return BuildConfig{
		Memory:      o.buf,
		Resolver:    o,
		ModuleNames: []string{"start_protected_game.exe", testModuleName},
		CodeSection: ".text",
		DataSection: ".data",
		NameFunc:    o.nameFunc,
		MaxNameLen:  64,
	}
}

// plantIdiom writes the null check idiom at the given offset into
// .text and returns the address of the idiom.
func (o *testImage) plantIdiom(textOffset int, instance uintptr, metadata uintptr, resolver uintptr) uintptr {
	site := o.text.Start + uintptr(textOffset)

	b := []byte{
		0x48, 0x8b, 0x05, 0, 0, 0, 0, // mov rax, [rip+instance]
		0x48, 0x85, 0xc0, // test rax, rax
		0x75, 0x2e, // jnz
		0x48, 0x8d, 0x0d, 0, 0, 0, 0, // lea rcx, [rip+metadata]
		0xe8, 0, 0, 0, 0, // call resolver
	}

	putDisplacement(b[3:], site+instanceDispEnd, instance)
	putDisplacement(b[15:], site+metadataDispEnd, metadata)
	putDisplacement(b[20:], site+resolverDispEnd, resolver)

	err := o.buf.Write(site, b)
	if err != nil {
		panic(err)
	}

	return site
}

// plantName writes a NUL terminated name and makes the name function
// return it for metadata.
func (o *testImage) plantName(metadata uintptr, name []byte) {
	addr := o.nextString

	err := o.buf.Write(addr, append(append([]byte{}, name...), 0))
	if err != nil {
		panic(err)
	}

	o.nextString += uintptr(len(name) + 1)
	o.names[metadata] = addr
}

// plant plants an idiom that resolves to name, with metadata stored
// at metadataOffset into .data.
func (o *testImage) plant(textOffset int, name string, instance uintptr, metadataOffset int) uintptr {
	metadata := o.data.Start + uintptr(metadataOffset)
	o.plantName(metadata, []byte(name))
	return o.plantIdiom(textOffset, instance, metadata, o.resolverAddr())
}

func (o *testImage) resolverAddr() uintptr {
	return o.text.Start + 0x800
}

func (o *testImage) setPointer(addr uintptr, value uintptr) {
	err := o.buf.Write(addr, memory.PointerMakerForX86_64().FromUint(value))
	if err != nil {
		panic(err)
	}
}

func putDisplacement(b []byte, end uintptr, target uintptr) {
	binary.LittleEndian.PutUint32(b, uint32(int32(int64(target)-int64(end))))
}
