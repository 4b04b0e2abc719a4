package x86

import "github.com/xyproto/rtasm"

// Instruction ids for the representative x86-64 subset named in SPEC_FULL
// §4.6: mov/lea/add/sub/cmp/and/or/xor/push/pop/jmp/jcc/call/ret/nop, plus
// movs (with the sticky rep prefix scenario from spec §8(b)) and an
// AVX-512 mask-aware vaddpd family. Grounded on the teacher's per-mnemonic
// files (mov.go, add.go, sub.go, cmp.go, and.go, or.go, xor.go, push.go,
// jmp.go, call.go, ret.go), generalized from string-keyed dispatch to a
// closed InstId enum with a round-trip Mnemonic/Lookup pair (spec §8
// invariant 4).
const (
	MOV rtasm.InstId = iota + 1
	LEA
	ADD
	SUB
	CMP
	AND
	OR
	XOR
	PUSH
	POP
	JMP
	JCC
	CALL
	RET
	NOP
	MOVS
	VADDPD
)

var mnemonics = map[rtasm.InstId]string{
	MOV: "mov", LEA: "lea", ADD: "add", SUB: "sub", CMP: "cmp",
	AND: "and", OR: "or", XOR: "xor", PUSH: "push", POP: "pop",
	JMP: "jmp", JCC: "jcc", CALL: "call", RET: "ret", NOP: "nop",
	MOVS: "movs", VADDPD: "vaddpd",
}

var byMnemonic = func() map[string]rtasm.InstId {
	m := make(map[string]rtasm.InstId, len(mnemonics))
	for id, name := range mnemonics {
		m[name] = id
	}
	return m
}()

// Mnemonic returns the textual name of id, or ("", false) if id is not one
// of this package's instructions.
func Mnemonic(id rtasm.InstId) (string, bool) {
	name, ok := mnemonics[id]
	return name, ok
}

// Lookup is Mnemonic's inverse (spec §8 invariant 4's round trip).
func Lookup(name string) (rtasm.InstId, bool) {
	id, ok := byMnemonic[name]
	return id, ok
}

// Condition codes for JCC's first operand (ImmOp), the representative
// subset's stand-in for asmjit's CondCode.
// Values are the 4-bit x86 condition field the encoder adds to 0x80 for the
// 0F 8x near Jcc opcode.
const (
	CondE  int64 = 0x4
	CondNE int64 = 0x5
	CondL  int64 = 0xc
	CondLE int64 = 0xe
	CondG  int64 = 0xf
	CondGE int64 = 0xd
)
