package rtasm

import (
	"fmt"

	"github.com/xyproto/rtasm/internal/regalloc"
)

// Compiler is the virtual-register emitter variant (component C9): operands
// may carry a Reg with Virtual set, deferred to a linear-scan allocation
// pass (internal/regalloc, grounded on the teacher's RegisterAllocator) that
// runs during Finalize, before the rewritten node list replays into an
// Assembler — the same deferred-replay shape as Builder, with register
// assignment inserted ahead of it (spec §4.5).
type Compiler struct {
	BaseEmitter

	funcs Funcs
	diag  DiagnosticOptions
	enc   EncodingOptions

	nodes    []node
	nextVReg int

	frame *FuncFrame
	args  *FuncArgsAssignment
}

// NewCompiler constructs a Compiler bound to holder, attaching itself.
func NewCompiler(holder *CodeHolder, funcs Funcs) (*Compiler, error) {
	c := &Compiler{funcs: funcs}
	initBaseEmitter(&c.BaseEmitter, EmitterCompiler, holder, c)
	cfg := holder.ConfigDefaults()
	c.diag = cfg.diagnosticOptions()
	c.enc = cfg.encodingOptions()
	if err := holder.Attach(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Compiler) SetDiagnosticOptions(d DiagnosticOptions) { c.diag = d }
func (c *Compiler) SetEncodingOptions(e EncodingOptions)     { c.enc = e }

// SetFuncFrame/SetArgsAssignment record the prolog/epilog shape and the
// incoming-argument mapping Finalize hands to Funcs.EmitProlog/EmitEpilog/
// EmitArgsAssignment.
func (c *Compiler) SetFuncFrame(frame *FuncFrame)            { c.frame = frame }
func (c *Compiler) SetArgsAssignment(args *FuncArgsAssignment) { c.args = args }

// NewVirtualReg allocates a fresh virtual register of the given width (in
// bits), distinct from every other virtual register this Compiler has
// issued so far.
func (c *Compiler) NewVirtualReg(sizeBits int) Reg {
	id := c.nextVReg
	c.nextVReg++
	return Reg{Name: fmt.Sprintf("v%d", id), Size: sizeBits, Virtual: true, VRegID: id}
}

func (c *Compiler) SwitchSection(id SectionID) error { return c.BaseEmitter.SwitchSection(id, c) }
func (c *Compiler) Bind(label LabelID) error         { return c.BaseEmitter.Bind(label, c) }
func (c *Compiler) Align(mode AlignMode, alignment int) error {
	return c.BaseEmitter.Align(mode, alignment, c)
}
func (c *Compiler) Embed(data []byte) error { return c.BaseEmitter.Embed(data, c) }
func (c *Compiler) EmbedDataArray(typ TypeID, data []byte, repeatCount int) error {
	return c.BaseEmitter.EmbedDataArray(typ, data, repeatCount, c)
}
func (c *Compiler) EmbedConstPool(label LabelID, pool ConstPool) error {
	return c.BaseEmitter.EmbedConstPool(label, pool, c)
}
func (c *Compiler) EmbedLabel(label LabelID, size int) error {
	return c.BaseEmitter.EmbedLabel(label, size, c)
}
func (c *Compiler) EmbedLabelDelta(label, base LabelID, size int) error {
	return c.BaseEmitter.EmbedLabelDelta(label, base, size, c)
}
func (c *Compiler) Emit(instID InstId, ops ...Operand) error {
	return c.BaseEmitter.Emit(instID, c, ops...)
}
func (c *Compiler) EmitOpArray(instID InstId, ops []Operand) error {
	return c.BaseEmitter.EmitOpArray(instID, ops, c)
}
func (c *Compiler) EmitInst(inst BaseInst, ops []Operand) error {
	return c.BaseEmitter.EmitInst(inst, ops, c)
}
func (c *Compiler) Finalize() error { return c.BaseEmitter.Finalize(c) }

func (c *Compiler) doEmit(inst BaseInst, ops []Operand) error {
	if c.diag&ValidateIntermediate != 0 && c.funcs.Validate != nil {
		if err := c.funcs.Validate(inst, ops, ValidationFlagEncoder); err != nil {
			return err
		}
	}
	opsCopy := append([]Operand(nil), ops...)
	c.nodes = append(c.nodes, node{kind: nodeInst, inst: inst, ops: opsCopy})
	return nil
}

func (c *Compiler) doSwitchSection(id SectionID) error {
	c.nodes = append(c.nodes, node{kind: nodeSwitchSection, section: id})
	return nil
}

func (c *Compiler) doBind(label LabelID) error {
	if !c.holder.IsLabelValid(label) {
		return newError(InvalidLabel, "label id %d is not valid", label)
	}
	c.nodes = append(c.nodes, node{kind: nodeLabelBind, label: label})
	return nil
}

func (c *Compiler) doAlign(mode AlignMode, alignment int) error {
	c.nodes = append(c.nodes, node{kind: nodeAlign, mode: mode, alignment: alignment})
	return nil
}

func (c *Compiler) doEmbed(data []byte) error {
	c.nodes = append(c.nodes, node{kind: nodeEmbed, data: append([]byte(nil), data...)})
	return nil
}

func (c *Compiler) doEmbedDataArray(typ TypeID, data []byte, repeatCount int) error {
	if typ.Size() == 0 {
		return newError(InvalidArgument, "unknown element type")
	}
	c.nodes = append(c.nodes, node{kind: nodeEmbedDataArray, typ: typ, data: append([]byte(nil), data...), repeatCount: repeatCount})
	return nil
}

func (c *Compiler) doEmbedConstPool(label LabelID, pool ConstPool) error {
	if !c.holder.IsLabelValid(label) {
		return newError(InvalidLabel, "label id %d is not valid", label)
	}
	c.nodes = append(c.nodes, node{kind: nodeEmbedConstPool, label: label, pool: pool})
	return nil
}

func (c *Compiler) doEmbedLabel(label LabelID, size int) error {
	if !c.holder.IsLabelValid(label) {
		return newError(InvalidLabel, "label id %d is not valid", label)
	}
	c.nodes = append(c.nodes, node{kind: nodeEmbedLabel, label: label, size: size})
	return nil
}

func (c *Compiler) doEmbedLabelDelta(label, base LabelID, size int) error {
	if !c.holder.IsLabelValid(label) || !c.holder.IsLabelValid(base) {
		return newError(InvalidLabel, "label or base id is not valid")
	}
	c.nodes = append(c.nodes, node{kind: nodeEmbedLabelDelta, label: label, base: base, size: size})
	return nil
}

func (c *Compiler) doComment(text string) {
	c.nodes = append(c.nodes, node{kind: nodeComment, text: text})
}

// doFinalize runs register allocation over the recorded node list (spec
// §4.5 (b)), rewrites every virtual Reg operand to the physical register or
// (unsupported here) spill slot the allocator assigned, emits the prolog,
// replays the rewritten stream, emits the epilog, and finalizes the
// Assembler it replayed into — the same two-phase shape asmjit's Compiler
// uses internally (RAPass, then replay into an Assembler).
func (c *Compiler) doFinalize() error {
	if len(c.funcs.AllocatableGPRegs) == 0 {
		return newError(FeatureNotEnabled, "no allocatable registers configured for this architecture")
	}

	ra := regalloc.NewAllocator(len(c.funcs.AllocatableGPRegs))
	c.scanLiveness(ra)
	ra.Allocate()

	rewritten, err := c.rewriteVirtualRegs(ra)
	if err != nil {
		return err
	}

	asm, err := NewAssembler(c.holder, c.funcs)
	if err != nil {
		return err
	}
	defer c.holder.Detach(asm)

	asm.SetDiagnosticOptions(c.diag)
	asm.SetEncodingOptions(c.enc)
	asm.SetLogger(c.effectiveLogger())
	asm.SetErrorHandler(c.effectiveErrorHandler())

	if c.frame != nil && c.funcs.EmitProlog != nil {
		if err := c.funcs.EmitProlog(asm, c.frame); err != nil {
			return err
		}
	}
	if c.args != nil && c.funcs.EmitArgsAssignment != nil {
		if err := c.funcs.EmitArgsAssignment(asm, c.frame, c.args); err != nil {
			return err
		}
	}

	if err := replayNodes(asm, rewritten); err != nil {
		return err
	}

	if c.frame != nil && c.funcs.EmitEpilog != nil {
		if err := c.funcs.EmitEpilog(asm, c.frame); err != nil {
			return err
		}
	}

	return asm.Finalize()
}

// scanLiveness walks the node list once, recording a def/use event for
// every virtual register operand at its node's position — the Compiler's
// analog of the teacher's BeginVariable/DefVariable/UseVariable calls
// interleaved with code generation.
func (c *Compiler) scanLiveness(ra *regalloc.Allocator) {
	for _, n := range c.nodes {
		if n.kind == nodeInst {
			for i, op := range n.ops {
				if op.Kind == OperandReg && op.Reg.Virtual {
					if i == 0 {
						ra.Def(regalloc.VRegID(op.Reg.VRegID))
					} else {
						ra.Use(regalloc.VRegID(op.Reg.VRegID))
					}
				}
				if op.Kind == OperandMem {
					if op.Mem.HasBase && op.Mem.Base.Virtual {
						ra.Use(regalloc.VRegID(op.Mem.Base.VRegID))
					}
					if op.Mem.HasIndex && op.Mem.Index.Virtual {
						ra.Use(regalloc.VRegID(op.Mem.Index.VRegID))
					}
				}
			}
		}
		ra.Advance()
	}
}

// rewriteVirtualRegs produces a copy of the node list with every virtual Reg
// operand replaced by the physical Reg the allocator assigned. Spilled
// virtual registers are reported as RegAllocFailure: this repo's Compiler
// does not synthesize spill-to-stack load/store sequences (SPEC_FULL's
// register allocator targets straight-line code small enough to fit in the
// physical set; see DESIGN.md's Open Question decision).
func (c *Compiler) rewriteVirtualRegs(ra *regalloc.Allocator) ([]node, error) {
	rewritten := make([]node, len(c.nodes))
	copy(rewritten, c.nodes)

	resolve := func(r Reg) (Reg, error) {
		if !r.Virtual {
			return r, nil
		}
		idx, ok := ra.PhysReg(regalloc.VRegID(r.VRegID))
		if !ok {
			return r, newError(RegAllocFailure, "virtual register v%d was spilled; spill code generation is not supported", r.VRegID)
		}
		phys := c.funcs.AllocatableGPRegs[idx]
		phys.Size = r.Size
		return phys, nil
	}

	for ni, n := range rewritten {
		if n.kind != nodeInst {
			continue
		}
		ops := append([]Operand(nil), n.ops...)
		for i, op := range ops {
			switch op.Kind {
			case OperandReg:
				reg, err := resolve(op.Reg)
				if err != nil {
					return nil, err
				}
				ops[i].Reg = reg
			case OperandMem:
				m := op.Mem
				if m.HasBase {
					reg, err := resolve(m.Base)
					if err != nil {
						return nil, err
					}
					m.Base = reg
				}
				if m.HasIndex {
					reg, err := resolve(m.Index)
					if err != nil {
						return nil, err
					}
					m.Index = reg
				}
				ops[i].Mem = m
			}
		}
		rewritten[ni].ops = ops
	}
	return rewritten, nil
}
