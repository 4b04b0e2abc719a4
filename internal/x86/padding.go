package x86

import "github.com/xyproto/rtasm"

// EmitPadding implements rtasm.Funcs.EmitPadding. Optimized padding uses the
// classic multi-byte NOP forms up to 9 bytes; a longer run is emitted as
// repeated 9-byte NOPs followed by one shorter NOP for the remainder — the
// same table every production x86 assembler
// (including the teacher's Cld/RepMovsb-style direct byte emission) uses.
var multiByteNops = [][]byte{
	{},
	{0x90},
	{0x66, 0x90},
	{0x0F, 0x1F, 0x00},
	{0x0F, 0x1F, 0x40, 0x00},
	{0x0F, 0x1F, 0x44, 0x00, 0x00},
	{0x66, 0x0F, 0x1F, 0x44, 0x00, 0x00},
	{0x0F, 0x1F, 0x80, 0x00, 0x00, 0x00, 0x00},
	{0x0F, 0x1F, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0x66, 0x0F, 0x1F, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00},
}

func EmitPadding(buf *rtasm.CodeBuffer, mode rtasm.AlignMode, n int, optimized bool) error {
	if mode != rtasm.AlignCode {
		buf.AppendZeros(n)
		return nil
	}
	if !optimized {
		for i := 0; i < n; i++ {
			buf.AppendByte(0x90)
		}
		return nil
	}
	for n > 0 {
		chunk := len(multiByteNops) - 1
		if n < chunk {
			chunk = n
		}
		buf.AppendBytes(multiByteNops[chunk])
		n -= chunk
	}
	return nil
}
