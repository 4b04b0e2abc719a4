package arm64

import "github.com/xyproto/rtasm"

// InstId constants for the AArch64 representative subset (spec §4.6),
// grounded on arm64_instructions.go's exported method set.
const (
	MOV rtasm.InstId = iota + 1
	MOVZ
	MOVK
	ADD
	SUB
	CMP
	LDR
	STR
	B
	BCOND
	CBZ
	CBNZ
	BL
	RET
	NOP
)

var mnemonics = map[rtasm.InstId]string{
	MOV: "mov", MOVZ: "movz", MOVK: "movk", ADD: "add", SUB: "sub", CMP: "cmp",
	LDR: "ldr", STR: "str", B: "b", BCOND: "b.cond", CBZ: "cbz", CBNZ: "cbnz",
	BL: "bl", RET: "ret", NOP: "nop",
}

var byMnemonic = func() map[string]rtasm.InstId {
	m := make(map[string]rtasm.InstId, len(mnemonics))
	for id, name := range mnemonics {
		m[name] = id
	}
	return m
}()

// Mnemonic returns id's assembly mnemonic.
func Mnemonic(id rtasm.InstId) (string, bool) {
	name, ok := mnemonics[id]
	return name, ok
}

// Lookup resolves a mnemonic back to its InstId.
func Lookup(name string) (rtasm.InstId, bool) {
	id, ok := byMnemonic[name]
	return id, ok
}

// Condition codes for BCOND's first operand immediate, matching AArch64's
// 4-bit cond field (A64 §C1.2.4).
const (
	CondEQ int64 = 0x0
	CondNE int64 = 0x1
	CondLT int64 = 0xb
	CondLE int64 = 0xd
	CondGT int64 = 0xc
	CondGE int64 = 0xa
)
