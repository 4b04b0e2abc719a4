// Package arm64 is the representative AArch64 encoder plug-in (component
// C10), mirroring internal/x86's structure and grounded on the teacher's
// arm64_instructions.go (register tables, MovImm64's MOVZ/MOVK chain,
// Branch/BranchLink/Return, CompareAndBranchZero64/NonZero64, StrImm64's
// scaled/unscaled STUR fallback).
package arm64

import "github.com/xyproto/rtasm"

// Funcs returns the AArch64 architecture plug-in table.
func Funcs() rtasm.Funcs {
	return rtasm.Funcs{
		Validate:           Validate,
		FormatInstruction:  FormatInstruction,
		Encode:             Encode,
		EmitPadding:        EmitPadding,
		EmitProlog:         EmitProlog,
		EmitEpilog:         EmitEpilog,
		EmitArgsAssignment: EmitArgsAssignment,
		AllocatableGPRegs:  AllocatableGPRegs,
	}
}
