package arm64

import "github.com/xyproto/rtasm"

// EmitPadding implements rtasm.Funcs.EmitPadding. AArch64 instructions are
// always 4 bytes wide, so code padding is always whole NOP words (0xD503201F)
// regardless of the optimized flag — there is no multi-byte NOP table the
// way x86 has one. Non-code padding still falls back to zero fill.
func EmitPadding(buf *rtasm.CodeBuffer, mode rtasm.AlignMode, n int, optimized bool) error {
	if mode != rtasm.AlignCode {
		buf.AppendZeros(n)
		return nil
	}
	for n >= 4 {
		putWord(buf, 0xd503201f)
		n -= 4
	}
	buf.AppendZeros(n)
	return nil
}
