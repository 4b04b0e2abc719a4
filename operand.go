package rtasm

// Reg is an architecture-agnostic register reference. Arch packages export
// named constants of this type (e.g. x86.RAX, arm64.X0) built with the same
// {Name,Size,Encoding} shape as the teacher's reg.go Register table.
type Reg struct {
	Name     string
	Size     int  // width in bits
	Encoding uint8

	// Virtual marks a Compiler-only virtual register; VRegID identifies it
	// until the register-allocation pass (internal/regalloc) rewrites it to
	// a physical Reg before replay (spec §4.5 (b)).
	Virtual bool
	VRegID  int
}

// IsVirtual reports whether r still needs register allocation.
func (r Reg) IsVirtual() bool { return r.Virtual }

// OperandKind discriminates an Operand's active field.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandReg
	OperandMem
	OperandImm
	OperandLabel
)

// Mem is a memory operand: [Base + Index*Scale + Disp].
type Mem struct {
	Base     Reg
	HasBase  bool
	Index    Reg
	HasIndex bool
	Scale    int // 1, 2, 4, or 8
	Disp     int64
}

// Operand is the single operand type accepted by Emit/EmitOpArray, playing
// the role of asmjit's Operand_ union but as a Go tagged struct.
type Operand struct {
	Kind  OperandKind
	Reg   Reg
	Mem   Mem
	Imm   int64
	Label LabelID
}

// RegOp wraps a register as an Operand.
func RegOp(r Reg) Operand { return Operand{Kind: OperandReg, Reg: r} }

// MemOp wraps a memory reference as an Operand.
func MemOp(m Mem) Operand { return Operand{Kind: OperandMem, Mem: m} }

// ImmOp wraps an immediate value as an Operand.
func ImmOp(v int64) Operand { return Operand{Kind: OperandImm, Imm: v} }

// LabelOp wraps a label reference as an Operand.
func LabelOp(l LabelID) Operand { return Operand{Kind: OperandLabel, Label: l} }

// MaxOperands is the fixed maximum operand count emit()/_emit() support
// (spec §8 boundary behavior: "operand count at the fixed maximum (6)").
const MaxOperands = 6
