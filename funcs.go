package rtasm

// ConstPool is a minimal constant pool: a block of already-laid-out bytes
// with its own alignment requirement. embedConstPool aligns to it, binds the
// pool's label at the aligned position, then embeds the bytes — the same
// three-step sequence asmjit's BaseEmitter::embedConstPool documents.
type ConstPool struct {
	Data      []byte
	Alignment int
}

// FuncFrame is the minimal description of a function's prolog/epilog shape
// the arch Funcs.EmitProlog/EmitEpilog need: how much stack space to
// reserve and which callee-saved registers to push/pop. It intentionally
// does not model the full calling-convention machinery asmjit's FuncFrame
// does — the register allocator internals are out of scope (SPEC_FULL §1).
type FuncFrame struct {
	StackSize       int
	CalleeSaved     []Reg
	HasFramePointer bool
}

// FuncArgsAssignment describes how incoming argument registers/stack slots
// map onto the callee's expected argument registers, for
// Funcs.EmitArgsAssignment.
type FuncArgsAssignment struct {
	// From[i] is where argument i arrives; To[i] is where the callee expects
	// it. Both slices must be the same length.
	From []Operand
	To   []Operand
}

// Funcs is the per-architecture plug-in table an Assembler is constructed
// with (component C10). It is the Go analog of asmjit's BaseEmitter::Funcs:
// an explicit table of function pointers chosen once at construction time,
// rather than virtual dispatch (spec §9 design note).
type Funcs struct {
	// Validate checks inst/ops for basic well-formedness — arity against the
	// instruction's mnemonic, not full operand-kind/encodability checking
	// (see internal/x86/validate.go and internal/arm64/validate.go).
	Validate func(inst BaseInst, ops []Operand, flags ValidationFlags) error

	// FormatInstruction renders inst/ops as a single line of text for the
	// Logger, e.g. "mov rax, rbx".
	FormatInstruction func(inst BaseInst, ops []Operand) (string, error)

	// Encode performs the actual byte emission into sec's buffer. It is
	// responsible for reserving placeholder bytes and registering a
	// PatchSite via holder.AddPatchSite when an operand references an
	// unbound label, or a RelocationEntry via holder.AddRelocation when the
	// target cannot be resolved as an inline displacement at all.
	Encode func(holder *CodeHolder, sec SectionID, inst BaseInst, ops []Operand) error

	// EmitPadding writes n bytes of alignment padding into buf according to
	// mode, optionally using architecture-optimized multi-byte sequences.
	EmitPadding func(buf *CodeBuffer, mode AlignMode, n int, optimized bool) error

	// EmitProlog/EmitEpilog/EmitArgsAssignment emit a function's prolog,
	// epilog, and argument-reassignment sequences by calling back into e's
	// own Emit/EmitOpArray — this is how the Compiler backend's generated
	// frame code reaches the same replay path as user-submitted instructions.
	EmitProlog         func(e Emitter, frame *FuncFrame) error
	EmitEpilog         func(e Emitter, frame *FuncFrame) error
	EmitArgsAssignment func(e Emitter, frame *FuncFrame, args *FuncArgsAssignment) error

	// AllocatableGPRegs lists the general-purpose physical registers the
	// Compiler's linear-scan allocator may hand out, ordered callee-saved
	// first the way the teacher's RegisterAllocator seeds its freeRegs pool
	// from calleeSaved (register_allocator.go).
	AllocatableGPRegs []Reg
}
