package x86

import "github.com/xyproto/rtasm"

// Funcs returns the x86-64 architecture plug-in table (component C10),
// wired into an Assembler/Builder/Compiler via rtasm.NewAssembler and
// friends. Living in the arch package rather than the root package is what
// keeps rtasm free of any import on internal/x86 — only this package
// imports rtasm, never the other way around.
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
