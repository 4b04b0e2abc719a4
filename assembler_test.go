package rtasm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xyproto/rtasm"
	"github.com/xyproto/rtasm/internal/arm64"
	"github.com/xyproto/rtasm/internal/x86"
)

func newX86Holder() *rtasm.CodeHolder {
	return rtasm.NewCodeHolder(rtasm.NewEnvironment(rtasm.ArchX86_64, rtasm.OSLinux))
}

// TestForwardBranchPatch covers spec scenario (a): emit a jmp to a label
// that is not yet bound, then bind it later in the same section, and check
// the rel32 field lands at the right displacement.
func TestForwardBranchPatch(t *testing.T) {
	holder := newX86Holder()
	asm, err := rtasm.NewAssembler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}

	label, err := asm.NewLabel()
	if err != nil {
		t.Fatal(err)
	}

	if err := asm.Emit(x86.JMP, rtasm.LabelOp(label)); err != nil {
		t.Fatalf("emitting forward jmp: %v", err)
	}

	// Pad with a few NOPs before binding, so the displacement is non-zero.
	for i := 0; i < 3; i++ {
		if err := asm.Emit(x86.NOP); err != nil {
			t.Fatal(err)
		}
	}
	if err := asm.Bind(label); err != nil {
		t.Fatalf("bind: %v", err)
	}

	if err := asm.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	sec, err := holder.Section(asm.Section())
	if err != nil {
		t.Fatal(err)
	}
	code := sec.Bytes()
	// jmp rel32 is opcode 0xE9 followed by a 4-byte displacement measured
	// from the end of that field; the label is bound 3 NOPs later.
	if code[0] != 0xE9 {
		t.Fatalf("expected jmp opcode 0xE9, got %#x", code[0])
	}
	disp := int32(uint32(code[1]) | uint32(code[2])<<8 | uint32(code[3])<<16 | uint32(code[4])<<24)
	if disp != 3 {
		t.Errorf("displacement = %d, want 3", disp)
	}
}

// TestStickyRepPrefix covers spec scenario (b): AddInstOptions(InstOptionRep)
// is sticky for exactly the next Emit call, then clears. The failed-emit
// case is covered by TestStickyOptionsClearedEvenOnFailedEmit.
func TestStickyRepPrefix(t *testing.T) {
	holder := newX86Holder()
	asm, err := rtasm.NewAssembler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}

	asm.AddInstOptions(rtasm.InstOptionRep)
	if err := asm.Emit(x86.MOVS); err != nil {
		t.Fatalf("emitting rep movs: %v", err)
	}
	// The option must not carry over to a second, unrelated emit.
	if err := asm.Emit(x86.MOVS); err != nil {
		t.Fatalf("emitting plain movs: %v", err)
	}

	if err := asm.Finalize(); err != nil {
		t.Fatal(err)
	}

	sec, _ := holder.Section(asm.Section())
	code := sec.Bytes()
	if len(code) != 3 || code[0] != 0xF3 || code[1] != 0xA4 || code[2] != 0xA4 {
		t.Fatalf("got %x, want [F3 A4 A4] (rep movs, then plain movs)", code)
	}
}

// TestStickyOptionsClearedEvenOnFailedEmit checks that a failed Emit still
// discards the pending transient state (spec §8 invariant: "transient state
// is always cleared after emit, even on error").
func TestStickyOptionsClearedEvenOnFailedEmit(t *testing.T) {
	holder := newX86Holder()
	asm, err := rtasm.NewAssembler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}

	asm.AddInstOptions(rtasm.InstOptionRep)
	// MOV with zero operands is malformed and fails validation once enabled.
	asm.SetDiagnosticOptions(rtasm.ValidateAssembler)
	if err := asm.Emit(x86.MOV); err == nil {
		t.Fatal("expected malformed mov to fail")
	}

	if err := asm.Emit(x86.MOVS); err != nil {
		t.Fatalf("emitting plain movs after failed emit: %v", err)
	}
	if err := asm.Finalize(); err != nil {
		t.Fatal(err)
	}

	sec, _ := holder.Section(asm.Section())
	code := sec.Bytes()
	if len(code) != 1 || code[0] != 0xA4 {
		t.Fatalf("got %x, want plain movs [A4] (rep must not have leaked across the failed emit)", code)
	}
}

// TestForcedInstOptionsAreSticky covers spec §3's forcedInstOptions: unlike
// AddInstOptions, it is not consumed by the next emit — it stays merged into
// every instruction's effective options until changed again.
func TestForcedInstOptionsAreSticky(t *testing.T) {
	holder := newX86Holder()
	asm, err := rtasm.NewAssembler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}

	asm.SetForcedInstOptions(rtasm.InstOptionRep)
	if err := asm.Emit(x86.MOVS); err != nil {
		t.Fatalf("emitting first rep movs: %v", err)
	}
	// Forced options are not transient: a second emit with no AddInstOptions
	// call must still carry the rep prefix.
	if err := asm.Emit(x86.MOVS); err != nil {
		t.Fatalf("emitting second rep movs: %v", err)
	}

	asm.SetForcedInstOptions(rtasm.InstOptionNone)
	if err := asm.Emit(x86.MOVS); err != nil {
		t.Fatalf("emitting plain movs after clearing forced options: %v", err)
	}

	if err := asm.Finalize(); err != nil {
		t.Fatal(err)
	}

	sec, _ := holder.Section(asm.Section())
	code := sec.Bytes()
	want := []byte{0xF3, 0xA4, 0xF3, 0xA4, 0xA4}
	if string(code) != string(want) {
		t.Fatalf("got %x, want %x (rep movs, rep movs, plain movs)", code, want)
	}
}

// TestInlineCommentTransientClearsAfterEmit covers spec §3's nextInlineComment:
// SetInlineComment decorates exactly the next emitted instruction's logged
// line, then clears before the following emit.
func TestInlineCommentTransientClearsAfterEmit(t *testing.T) {
	holder := newX86Holder()
	asm, err := rtasm.NewAssembler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	asm.SetLogger(rtasm.NewWriterLogger(&buf))

	asm.SetInlineComment("first word")
	if err := asm.Emit(x86.MOVS); err != nil {
		t.Fatal(err)
	}
	if err := asm.Emit(x86.MOVS); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 logged lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "; first word") {
		t.Errorf("first line should carry the inline comment, got %q", lines[0])
	}
	if strings.Contains(lines[1], "first word") {
		t.Errorf("inline comment must not leak to the second emit, got %q", lines[1])
	}
}

// TestBuilderAssemblerByteIdentical covers spec invariant 5: Builder and a
// directly-driven Assembler produce identical bytes for the same call
// sequence.
func TestBuilderAssemblerByteIdentical(t *testing.T) {
	run := func(e rtasm.Emitter, newLabel func() (rtasm.LabelID, error), bind func(rtasm.LabelID) error) {
		e.Emit(x86.MOV, rtasm.RegOp(x86.RAX), rtasm.ImmOp(42))
		l, _ := newLabel()
		e.Emit(x86.JMP, rtasm.LabelOp(l))
		e.Emit(x86.NOP)
		bind(l)
		e.Emit(x86.RET)
	}

	asmHolder := newX86Holder()
	asm, err := rtasm.NewAssembler(asmHolder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}
	run(asm, asm.NewLabel, asm.Bind)
	if err := asm.Finalize(); err != nil {
		t.Fatalf("assembler finalize: %v", err)
	}
	asmSec, _ := asmHolder.Section(asm.Section())

	bldHolder := newX86Holder()
	bld, err := rtasm.NewBuilder(bldHolder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}
	run(bld, bld.NewLabel, bld.Bind)
	if err := bld.Finalize(); err != nil {
		t.Fatalf("builder finalize: %v", err)
	}
	bldSec, _ := bldHolder.Section(bld.Section())

	if !bytes.Equal(asmSec.Bytes(), bldSec.Bytes()) {
		t.Errorf("Builder replay produced different bytes:\nassembler: %x\nbuilder:   %x", asmSec.Bytes(), bldSec.Bytes())
	}
}

// TestErrorHandlerInvokedOnFailure covers spec scenario (d): an ErrorHandler
// is invoked exactly once per failing call, and the error is still returned
// to the caller (HandleError never suppresses it).
func TestErrorHandlerInvokedOnFailure(t *testing.T) {
	holder := newX86Holder()
	asm, err := rtasm.NewAssembler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}
	handler := &rtasm.CollectingErrorHandler{}
	asm.SetErrorHandler(handler)

	if _, err := asm.NewNamedLabel(rtasm.LabelGlobal, "dup", rtasm.InvalidLabelID); err != nil {
		t.Fatal(err)
	}
	_, err = asm.NewNamedLabel(rtasm.LabelGlobal, "dup", rtasm.InvalidLabelID)
	if err == nil {
		t.Fatal("expected LabelNameCollision from duplicate global label name")
	}

	// NewLabel/NewNamedLabel route through CodeHolder directly, not through
	// BaseEmitter's reportError, so the handler is exercised instead via a
	// failing Emit.
	if err := asm.Emit(x86.JMP, rtasm.RegOp(x86.RAX)); err == nil {
		t.Fatal("expected jmp with a register operand (not a label) to fail")
	}
	if len(handler.Calls) != 1 {
		t.Fatalf("handler invoked %d times, want 1", len(handler.Calls))
	}
	if handler.Calls[0].Origin != asm {
		t.Error("handler's origin should be the emitter that failed")
	}
}

// TestCrossSectionLabelRelocation covers spec scenario (e): a call targets a
// label bound in a different section; the displacement cannot be computed
// until Flatten assigns both sections their final offsets.
func TestCrossSectionLabelRelocation(t *testing.T) {
	holder := newX86Holder()
	otherSec, err := holder.NewSection("other", rtasm.SectionExecutable, 1)
	if err != nil {
		t.Fatal(err)
	}

	asm, err := rtasm.NewAssembler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}

	label, err := asm.NewLabel()
	if err != nil {
		t.Fatal(err)
	}
	// Bind the label in the other section before it is referenced, so the
	// call site below cannot resolve inline (different section) and must
	// record a RelocationEntry instead.
	if err := holder.BindLabel(label, otherSec, 8); err != nil {
		t.Fatal(err)
	}

	if err := asm.Emit(x86.CALL, rtasm.LabelOp(label)); err != nil {
		t.Fatalf("emitting call: %v", err)
	}

	if len(holder.Relocations()) != 1 {
		t.Fatalf("expected one pending relocation before finalize, got %d", len(holder.Relocations()))
	}

	if err := asm.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if len(holder.Relocations()) != 0 {
		t.Errorf("expected ResolveCrossSection to resolve the entry, %d remain", len(holder.Relocations()))
	}

	sec, _ := holder.Section(asm.Section())
	code := sec.Bytes()
	if code[0] != 0xE8 {
		t.Fatalf("expected call opcode 0xE8, got %#x", code[0])
	}
	otherS, _ := holder.Section(otherSec)
	ripAddr := sec.Offset() + 1 + 4
	wantDisp := int32(otherS.Offset() + 8 - ripAddr)
	gotDisp := int32(uint32(code[1]) | uint32(code[2])<<8 | uint32(code[3])<<16 | uint32(code[4])<<24)
	if gotDisp != wantDisp {
		t.Errorf("resolved displacement = %d, want %d", gotDisp, wantDisp)
	}
}

// TestDoubleBindRejected covers spec scenario (f): binding the same label
// twice returns AlreadyBound.
func TestDoubleBindRejected(t *testing.T) {
	holder := newX86Holder()
	asm, err := rtasm.NewAssembler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}

	label, err := asm.NewLabel()
	if err != nil {
		t.Fatal(err)
	}
	if err := asm.Bind(label); err != nil {
		t.Fatal(err)
	}
	err = asm.Bind(label)
	if kind, ok := rtasm.AsKind(err); !ok || kind != rtasm.AlreadyBound {
		t.Fatalf("second bind returned %v, want AlreadyBound", err)
	}
}

// TestFinalizeTwiceFails checks the AlreadyFinalized guard shared by every
// emitter variant.
func TestFinalizeTwiceFails(t *testing.T) {
	holder := newX86Holder()
	asm, err := rtasm.NewAssembler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}
	if err := asm.Finalize(); err != nil {
		t.Fatal(err)
	}
	err = asm.Finalize()
	if kind, ok := rtasm.AsKind(err); !ok || kind != rtasm.AlreadyFinalized {
		t.Fatalf("second finalize returned %v, want AlreadyFinalized", err)
	}

	emitErr := asm.Emit(x86.NOP)
	if kind, ok := rtasm.AsKind(emitErr); !ok || kind != rtasm.AlreadyFinalized {
		t.Errorf("emit after finalize returned %v, want AlreadyFinalized", emitErr)
	}
}

// TestEncodeFailureTruncatesPartialBytes covers spec §7: a failing Encode
// call must not leave partial bytes behind in the section buffer.
func TestEncodeFailureTruncatesPartialBytes(t *testing.T) {
	holder := newX86Holder()
	asm, err := rtasm.NewAssembler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}
	if err := asm.Emit(x86.NOP); err != nil {
		t.Fatal(err)
	}
	before := holder.CodeSize()

	// jmp with an operand that is a label but references an id this holder
	// never allocated fails inside emitRelDisplacement, after the opcode
	// byte has already been appended to the section buffer.
	if err := asm.Emit(x86.JMP, rtasm.LabelOp(rtasm.LabelID(9999))); err == nil {
		t.Fatal("expected failure")
	}
	if holder.CodeSize() != before {
		t.Errorf("code size grew from %d to %d after a failed encode", before, holder.CodeSize())
	}
}

// TestARM64ForwardBranchUnsupported documents the deliberate scope
// limitation: the AArch64 encoder rejects a branch to a still-unbound label
// rather than silently producing a wrong instruction word.
func TestARM64ForwardBranchUnsupported(t *testing.T) {
	holder := rtasm.NewCodeHolder(rtasm.NewEnvironment(rtasm.ArchARM64, rtasm.OSLinux))
	asm, err := rtasm.NewAssembler(holder, arm64.Funcs())
	if err != nil {
		t.Fatal(err)
	}
	label, err := asm.NewLabel()
	if err != nil {
		t.Fatal(err)
	}
	err = asm.Emit(arm64.B, rtasm.LabelOp(label))
	if kind, ok := rtasm.AsKind(err); !ok || kind != rtasm.FeatureNotEnabled {
		t.Fatalf("forward branch returned %v, want FeatureNotEnabled", err)
	}
}

// TestARM64BoundBranchPatchesInline mirrors TestForwardBranchPatch but for a
// label bound before the branch referencing it is emitted.
func TestARM64BoundBranchPatchesInline(t *testing.T) {
	holder := rtasm.NewCodeHolder(rtasm.NewEnvironment(rtasm.ArchARM64, rtasm.OSLinux))
	asm, err := rtasm.NewAssembler(holder, arm64.Funcs())
	if err != nil {
		t.Fatal(err)
	}

	label, err := asm.NewLabel()
	if err != nil {
		t.Fatal(err)
	}
	if err := asm.Bind(label); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := asm.Emit(arm64.NOP); err != nil {
			t.Fatal(err)
		}
	}
	if err := asm.Emit(arm64.B, rtasm.LabelOp(label)); err != nil {
		t.Fatalf("branch to bound label: %v", err)
	}
	if err := asm.Finalize(); err != nil {
		t.Fatal(err)
	}

	sec, _ := holder.Section(asm.Section())
	code := sec.Bytes()
	word := uint32(code[8]) | uint32(code[9])<<8 | uint32(code[10])<<16 | uint32(code[11])<<24
	// disp = 0 - 8 = -8 bytes = -2 instructions; imm26 two's complement.
	var disp32 int32 = -2
	wantImm26 := uint32(disp32) & 0x03ffffff
	if word&0x03ffffff != wantImm26 || word&0xfc000000 != 0x14000000 {
		t.Errorf("branch word = %#010x, want opcode 0x14000000 with imm26 %#x", word, wantImm26)
	}
}
