package rtasm_test

import (
	"testing"

	"github.com/xyproto/rtasm"
	"github.com/xyproto/rtasm/internal/x86"
)

// singleRegFuncs borrows x86's encoder/validator/formatter but restricts the
// allocatable pool to one register, so a handful of virtual registers is
// enough to exercise both the reuse and the spill paths deterministically.
func singleRegFuncs() rtasm.Funcs {
	f := x86.Funcs()
	f.AllocatableGPRegs = []rtasm.Reg{x86.RAX}
	return f
}

func TestCompilerReusesPhysicalRegisterForNonOverlappingVirtuals(t *testing.T) {
	holder := newX86Holder()
	c, err := rtasm.NewCompiler(holder, singleRegFuncs())
	if err != nil {
		t.Fatal(err)
	}

	v0 := c.NewVirtualReg(64)
	v1 := c.NewVirtualReg(64)

	if err := c.Emit(x86.MOV, rtasm.RegOp(v0), rtasm.ImmOp(1)); err != nil {
		t.Fatal(err)
	}
	if err := c.Emit(x86.MOV, rtasm.RegOp(v1), rtasm.ImmOp(2)); err != nil {
		t.Fatal(err)
	}

	if err := c.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	sec, _ := holder.Section(c.Section())
	// Both movs should have been rewritten onto rax (REX.W, 0xC7, modrm 0xC0,
	// imm32), one after the other, since the pool has exactly one register.
	want := []byte{
		0x48, 0xC7, 0xC0, 0x01, 0x00, 0x00, 0x00,
		0x48, 0xC7, 0xC0, 0x02, 0x00, 0x00, 0x00,
	}
	if string(sec.Bytes()) != string(want) {
		t.Errorf("got %x, want %x", sec.Bytes(), want)
	}
}

func TestCompilerReportsRegAllocFailureOnSpill(t *testing.T) {
	holder := newX86Holder()
	c, err := rtasm.NewCompiler(holder, singleRegFuncs())
	if err != nil {
		t.Fatal(err)
	}

	v0 := c.NewVirtualReg(64)
	v1 := c.NewVirtualReg(64)

	if err := c.Emit(x86.MOV, rtasm.RegOp(v0), rtasm.ImmOp(1)); err != nil {
		t.Fatal(err)
	}
	if err := c.Emit(x86.MOV, rtasm.RegOp(v1), rtasm.ImmOp(2)); err != nil {
		t.Fatal(err)
	}
	// Using both v0 and v1 here keeps them simultaneously live, which a
	// one-register pool cannot satisfy without a spill.
	if err := c.Emit(x86.ADD, rtasm.RegOp(v0), rtasm.RegOp(v1)); err != nil {
		t.Fatal(err)
	}

	err = c.Finalize()
	if kind, ok := rtasm.AsKind(err); !ok || kind != rtasm.RegAllocFailure {
		t.Fatalf("finalize returned %v, want RegAllocFailure", err)
	}
}

func TestCompilerFuncFrameProlog(t *testing.T) {
	holder := newX86Holder()
	c, err := rtasm.NewCompiler(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}
	c.SetFuncFrame(&rtasm.FuncFrame{CalleeSaved: []rtasm.Reg{x86.RBX}})

	v0 := c.NewVirtualReg(64)
	if err := c.Emit(x86.MOV, rtasm.RegOp(v0), rtasm.ImmOp(9)); err != nil {
		t.Fatal(err)
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	sec, _ := holder.Section(c.Section())
	code := sec.Bytes()
	// PUSH rbx (0x53), then the rewritten mov, then POP rbx (0x5B) + ret
	// (0xC3) from the epilog — but EmitEpilog is only invoked when a frame
	// was set, which it was here.
	if code[0] != 0x53 {
		t.Errorf("expected push rbx at the start of the prolog, got %#x", code[0])
	}
	if code[len(code)-1] != 0xC3 || code[len(code)-2] != 0x5B {
		t.Errorf("expected pop rbx; ret at the end of the epilog, got %x", code[len(code)-2:])
	}
}
