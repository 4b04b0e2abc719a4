package x86

import "github.com/xyproto/rtasm"

// Validate is a structural check over the representative subset: operand
// count only, not operand kind or full encodability (Encode rejects wrong
// operand kinds) — the same depth the teacher's own
// code reaches (mov.go's GetRegister lookups silently no-op on failure
// rather than validating up front; this repo surfaces that as an error
// instead, per spec §7).
func Validate(inst rtasm.BaseInst, ops []rtasm.Operand, flags rtasm.ValidationFlags) error {
	name, ok := Mnemonic(inst.ID)
	if !ok {
		return &rtasm.Error{Kind: rtasm.InvalidInstruction, Message: "unknown x86-64 instruction id"}
	}

	arity := map[string]int{
		"mov": 2, "lea": 2, "add": 2, "sub": 2, "cmp": 2, "and": 2, "or": 2, "xor": 2,
		"push": 1, "pop": 1, "jmp": 1, "jcc": 2, "call": 1, "ret": 0, "nop": 0,
		"movs": 0, "vaddpd": 3,
	}
	want, ok := arity[name]
	if !ok {
		return &rtasm.Error{Kind: rtasm.InvalidInstruction, Message: "no arity rule for " + name}
	}
	if len(ops) != want {
		return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: name + ": wrong operand count"}
	}
	return nil
}
