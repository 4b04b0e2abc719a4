// Package x86 is the representative x86-64 encoder plug-in (component C10):
// registers, a representative instruction subset, and the Funcs table an
// Assembler/Builder/Compiler is constructed with. Grounded on the teacher's
// per-mnemonic emission code (mov.go, add.go, sub.go, cmp.go, and.go, or.go,
// xor.go, push.go, jmp.go, call.go, ret.go) and reg.go's register tables,
// adapted from string-keyed dispatch writing directly into a BufferWrapper
// to InstId-keyed dispatch writing into a rtasm.CodeBuffer via rtasm's
// CodeHolder/PatchSite/RelocationEntry primitives.
package x86

import (
	"fmt"

	"github.com/xyproto/rtasm"
)

func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func needsRex(regs ...rtasm.Reg) bool {
	for _, r := range regs {
		if r.Size == 64 || r.Encoding >= 8 {
			return true
		}
	}
	return false
}

func putImm32(buf *rtasm.CodeBuffer, v int64) {
	u := uint32(v)
	buf.AppendByte(byte(u))
	buf.AppendByte(byte(u >> 8))
	buf.AppendByte(byte(u >> 16))
	buf.AppendByte(byte(u >> 24))
}

// emitRelDisplacement writes a placeholder rel32 field for a label operand
// and records how it is to be resolved: an inline value now, if the label
// is already bound in the same section; a link-chain PatchSite, if the
// label is not yet bound; or a RelocationEntry, if the label is bound in a
// different section and can only be resolved once every section's final
// offset is known (spec §4.1 / §8 scenario (e)).
func emitRelDisplacement(holder *rtasm.CodeHolder, sec rtasm.SectionID, buf *rtasm.CodeBuffer, label rtasm.LabelID) error {
	if !holder.IsLabelValid(label) {
		return &rtasm.Error{Kind: rtasm.InvalidLabel, Message: fmt.Sprintf("label id %d is not valid", label)}
	}

	siteOffset := buf.Len()
	buf.AppendZeros(4)
	siteEnd := buf.Len()

	targetSec, targetOffset, bound := holder.LabelOffsetIfBound(label)
	switch {
	case bound && targetSec == sec:
		disp := int64(targetOffset) - int64(siteEnd)
		v := uint32(disp)
		b := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
		buf.PatchBytes(siteOffset, b)
		return nil
	case bound:
		holder.AddRelocation(rtasm.RelocationEntry{
			Kind:          rtasm.RelocRelative,
			SourceSection: sec,
			SourceOffset:  siteOffset,
			TargetKind:    rtasm.TargetLabel,
			TargetID:      int(label),
			Size:          4,
		})
		return nil
	default:
		return holder.AddPatchSite(label, rtasm.PatchSite{
			Section:   sec,
			Offset:    siteOffset,
			EndOffset: siteEnd,
			Size:      4,
			Kind:      rtasm.PatchRelativeDisplacement,
		})
	}
}

// Encode implements rtasm.Funcs.Encode for the representative subset named
// in SPEC_FULL §4.6.
func Encode(holder *rtasm.CodeHolder, secID rtasm.SectionID, inst rtasm.BaseInst, ops []rtasm.Operand) error {
	sec, err := holder.Section(secID)
	if err != nil {
		return err
	}
	buf := sec.Buffer()

	switch inst.ID {
	case MOV:
		return encodeMov(buf, ops)
	case LEA:
		return encodeLea(buf, ops)
	case ADD, SUB, CMP, AND, OR, XOR:
		return encodeAlu(buf, inst.ID, ops)
	case PUSH:
		return encodePushPop(buf, ops, 0x50)
	case POP:
		return encodePushPop(buf, ops, 0x58)
	case RET:
		buf.AppendByte(0xC3)
		return nil
	case NOP:
		buf.AppendByte(0x90)
		return nil
	case MOVS:
		if inst.Options&rtasm.InstOptionRep != 0 {
			buf.AppendByte(0xF3)
		}
		buf.AppendByte(0xA4)
		return nil
	case JMP:
		if len(ops) != 1 || ops[0].Kind != rtasm.OperandLabel {
			return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "jmp expects one label operand"}
		}
		buf.AppendByte(0xE9)
		return emitRelDisplacement(holder, secID, buf, ops[0].Label)
	case JCC:
		if len(ops) != 2 || ops[0].Kind != rtasm.OperandImm || ops[1].Kind != rtasm.OperandLabel {
			return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "jcc expects (condition imm, label)"}
		}
		cond := ops[0].Imm
		if cond < 0 || cond > 0x0F {
			return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "condition code out of range"}
		}
		buf.AppendByte(0x0F)
		buf.AppendByte(byte(0x80 + cond))
		return emitRelDisplacement(holder, secID, buf, ops[1].Label)
	case CALL:
		if len(ops) != 1 || ops[0].Kind != rtasm.OperandLabel {
			return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "call expects one label operand"}
		}
		buf.AppendByte(0xE8)
		return emitRelDisplacement(holder, secID, buf, ops[0].Label)
	case VADDPD:
		return encodeVaddpd(buf, inst, ops)
	default:
		return &rtasm.Error{Kind: rtasm.InvalidInstruction, Message: fmt.Sprintf("unknown x86-64 instruction id %d", inst.ID)}
	}
}

func encodeMov(buf *rtasm.CodeBuffer, ops []rtasm.Operand) error {
	if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg {
		return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "mov expects (reg, reg|imm)"}
	}
	dst := ops[0].Reg

	switch ops[1].Kind {
	case rtasm.OperandReg:
		src := ops[1].Reg
		if needsRex(dst, src) {
			buf.AppendByte(rex(dst.Size == 64 || src.Size == 64, src.Encoding >= 8, false, dst.Encoding >= 8))
		}
		buf.AppendByte(0x89)
		buf.AppendByte(0xC0 | (src.Encoding&7)<<3 | dst.Encoding&7)
		return nil
	case rtasm.OperandImm:
		if dst.Size == 64 {
			buf.AppendByte(rex(true, false, false, dst.Encoding >= 8))
		} else if dst.Encoding >= 8 {
			buf.AppendByte(rex(false, false, false, true))
		}
		buf.AppendByte(0xC7)
		buf.AppendByte(0xC0 | dst.Encoding&7)
		putImm32(buf, ops[1].Imm)
		return nil
	default:
		return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "mov source must be a register or immediate"}
	}
}

func encodeLea(buf *rtasm.CodeBuffer, ops []rtasm.Operand) error {
	if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandMem {
		return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "lea expects (reg, mem)"}
	}
	dst := ops[0].Reg
	m := ops[1].Mem
	if !m.HasBase {
		return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "lea requires a base register"}
	}
	base := m.Base
	if needsRex(dst, base) {
		buf.AppendByte(rex(dst.Size == 64, dst.Encoding >= 8, false, base.Encoding >= 8))
	}
	buf.AppendByte(0x8D)
	buf.AppendByte(0x80 | (dst.Encoding&7)<<3 | base.Encoding&7)
	if base.Encoding&7 == 4 {
		buf.AppendByte(0x24) // SIB: no index, base=rsp/r12
	}
	putImm32(buf, m.Disp)
	return nil
}

var aluOpcodeReg = map[rtasm.InstId]byte{ADD: 0x01, OR: 0x09, AND: 0x21, SUB: 0x29, XOR: 0x31, CMP: 0x39}
var aluExtImm = map[rtasm.InstId]byte{ADD: 0, OR: 1, AND: 4, SUB: 5, XOR: 6, CMP: 7}

func encodeAlu(buf *rtasm.CodeBuffer, id rtasm.InstId, ops []rtasm.Operand) error {
	if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg {
		return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "arithmetic instruction expects (reg, reg|imm)"}
	}
	dst := ops[0].Reg

	switch ops[1].Kind {
	case rtasm.OperandReg:
		src := ops[1].Reg
		if needsRex(dst, src) {
			buf.AppendByte(rex(dst.Size == 64 || src.Size == 64, src.Encoding >= 8, false, dst.Encoding >= 8))
		}
		buf.AppendByte(aluOpcodeReg[id])
		buf.AppendByte(0xC0 | (src.Encoding&7)<<3 | dst.Encoding&7)
		return nil
	case rtasm.OperandImm:
		if dst.Size == 64 || dst.Encoding >= 8 {
			buf.AppendByte(rex(dst.Size == 64, false, false, dst.Encoding >= 8))
		}
		buf.AppendByte(0x81)
		buf.AppendByte(0xC0 | (aluExtImm[id]&7)<<3 | dst.Encoding&7)
		putImm32(buf, ops[1].Imm)
		return nil
	default:
		return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "second operand must be a register or immediate"}
	}
}

func encodePushPop(buf *rtasm.CodeBuffer, ops []rtasm.Operand, base byte) error {
	if len(ops) != 1 || ops[0].Kind != rtasm.OperandReg {
		return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "expects a single register operand"}
	}
	r := ops[0].Reg
	if r.Encoding >= 8 {
		buf.AppendByte(rex(false, false, false, true))
	}
	buf.AppendByte(base + r.Encoding&7)
	return nil
}

// encodeVaddpd emits a representative (structurally EVEX-shaped, not
// execution-accurate) mask-aware packed-double add: VADDPD zmm{k}, zmm, zmm.
// asmjit's own EVEX encoder (see original_source/src/asmjit/x86/x86assembler.cpp)
// is thousands of lines; this repo's Non-goal is exhaustive ISA coverage
// (SPEC_FULL §1), so the byte layout here demonstrates the EVEX field shape
// without claiming to be a CPU-runnable encoding.
func encodeVaddpd(buf *rtasm.CodeBuffer, inst rtasm.BaseInst, ops []rtasm.Operand) error {
	if len(ops) != 3 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandReg || ops[2].Kind != rtasm.OperandReg {
		return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "vaddpd expects (zmm, zmm, zmm)"}
	}
	dst, src1, src2 := ops[0].Reg, ops[1].Reg, ops[2].Reg

	buf.AppendByte(0x62) // EVEX prefix byte 0

	p1 := byte(0x01)
	if dst.Encoding >= 8 {
		p1 &^= 0x80 >> 5 // placeholder bit clear for R (documented as representative)
	}
	if src2.Encoding >= 8 {
		p1 |= 0x20
	}
	buf.AppendByte(p1) // EVEX byte 1

	p2 := byte(0x7C) // pp=01 (66), vvvv inverted for src1 (approximate)
	p2 |= (^src1.Encoding & 0x0F) << 3
	buf.AppendByte(p2) // EVEX byte 2

	p3 := byte(0x48) // L'L=10 (512-bit), b=0
	if inst.HasExtraReg {
		p3 |= inst.ExtraReg.Encoding & 0x07 // aaa: opmask register selector
	}
	buf.AppendByte(p3) // EVEX byte 3

	buf.AppendByte(0x58) // opcode: ADDPD (packed double)
	buf.AppendByte(0xC0 | (dst.Encoding&7)<<3 | src2.Encoding&7)
	return nil
}

// FormatInstruction implements rtasm.Funcs.FormatInstruction.
func FormatInstruction(inst rtasm.BaseInst, ops []rtasm.Operand) (string, error) {
	name, ok := Mnemonic(inst.ID)
	if !ok {
		return "", &rtasm.Error{Kind: rtasm.InvalidInstruction, Message: "unknown instruction id"}
	}
	line := name
	for i, op := range ops {
		if i == 0 {
			line += " "
		} else {
			line += ", "
		}
		line += formatOperand(op)
	}
	if inst.Options&rtasm.InstOptionRep != 0 {
		line = "rep " + line
	}
	return line, nil
}

func formatOperand(op rtasm.Operand) string {
	switch op.Kind {
	case rtasm.OperandReg:
		return op.Reg.Name
	case rtasm.OperandImm:
		return fmt.Sprintf("%d", op.Imm)
	case rtasm.OperandLabel:
		return fmt.Sprintf("L%d", op.Label)
	case rtasm.OperandMem:
		if op.Mem.HasBase {
			return fmt.Sprintf("[%s+%d]", op.Mem.Base.Name, op.Mem.Disp)
		}
		return fmt.Sprintf("[%d]", op.Mem.Disp)
	default:
		return "?"
	}
}
