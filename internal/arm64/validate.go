package arm64

import "github.com/xyproto/rtasm"

// Validate performs the same structural, non-exhaustive arity check the
// x86-64 backend does, resolved per Open Question decision: "always
// succeed" would hide mismatched operand counts the same way skipping
// validation entirely would, so this still enforces arity even though
// AArch64 add-immediate's 12-bit shift encoding and ldr/str's dual
// scaled/unscaled forms are not range-checked here (that happens in
// Encode, returning RelocationOutOfRange on failure).
func Validate(inst rtasm.BaseInst, ops []rtasm.Operand, flags rtasm.ValidationFlags) error {
	name, ok := Mnemonic(inst.ID)
	if !ok {
		return rtasm.ErrInvalidInstruction
	}

	arity := map[string]int{
		"mov": 2, "movz": 2, "movk": 2, "add": 3, "sub": 3, "cmp": 2, "ldr": 2, "str": 2,
		"b": 1, "b.cond": 2, "cbz": 2, "cbnz": 2, "bl": 1, "ret": 0, "nop": 0,
	}
	want, ok := arity[name]
	if !ok {
		return rtasm.ErrInvalidInstruction
	}
	if len(ops) != want {
		return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: name + ": wrong operand count"}
	}
	return nil
}
