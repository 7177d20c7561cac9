package pattern_test

import (
	"fmt"

	"gitlab.com/stephen-fox/singlescan/pattern"
)

func ExamplePattern_ScanAll() {
	// "call rel32", capturing the displacement.
	p := pattern.CompileOrExit("11101000 [disp: ........ ........ ........ ........]")

	code := []byte{
		0x90,
		0xe8, 0x10, 0x00, 0x00, 0x00,
		0x90,
		0xe8, 0xf0, 0xff, 0xff, 0xff,
	}

	for _, m := range p.ScanAll(code) {
		fmt.Printf("call at %d, displacement %d\n", m.Offset, m.Int32(0))
	}

	// Output:
	// call at 1, displacement 16
	// call at 7, displacement -16
}
