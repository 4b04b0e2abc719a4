package arm64

import (
	"encoding/binary"
	"fmt"

	"github.com/xyproto/rtasm"
)

func putWord(buf *rtasm.CodeBuffer, w uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], w)
	buf.AppendBytes(b[:])
}

// emitBranchImm resolves a branch target the same way internal/x86's
// emitRelDisplacement does for bound labels: an inline patch when the
// label is already bound in the same section, or a deferred
// RelocationEntry when it is bound in a different section.
//
// Unlike x86's rel32 fields, AArch64 branch immediates are packed into
// specific bit positions of an opcode word rather than occupying the
// whole patched field as a raw little-endian integer, so they cannot use
// CodeHolder's generic link-chain PatchSite (which overwrites the full
// site with a raw signed displacement — correct for x86's rel32, wrong
// here). Forward references to a still-unbound label are therefore out
// of scope for this representative AArch64 encoder; callers needing a
// forward branch must bind the label first or use x86.
//
// encode builds the final instruction word given the byte displacement
// from the site to the target.
func emitBranchImm(holder *rtasm.CodeHolder, sec rtasm.SectionID, buf *rtasm.CodeBuffer, label rtasm.LabelID, encode func(dispBytes int64) uint32) error {
	if !holder.IsLabelValid(label) {
		return rtasm.ErrInvalidLabel
	}

	targetSec, targetOffset, bound := holder.LabelOffsetIfBound(label)
	if !bound {
		return &rtasm.Error{Kind: rtasm.FeatureNotEnabled, Message: "forward references to unbound labels are not supported by the AArch64 branch encoder"}
	}

	siteOffset := buf.Len()
	if targetSec == sec {
		disp := int64(targetOffset) - int64(siteOffset)
		putWord(buf, encode(disp))
		return nil
	}
	putWord(buf, encode(0))
	holder.AddRelocation(rtasm.RelocationEntry{
		Kind:          rtasm.RelocRelative,
		SourceSection: sec,
		SourceOffset:  siteOffset,
		TargetKind:    rtasm.TargetLabel,
		TargetID:      int(label),
		Size:          4,
	})
	return nil
}

func encBImm(disp int64) uint32 {
	imm26 := uint32(disp/4) & 0x03ffffff
	return 0x14000000 | imm26
}

func encBlImm(disp int64) uint32 {
	imm26 := uint32(disp/4) & 0x03ffffff
	return 0x94000000 | imm26
}

func encBCondImm(cond int64) func(int64) uint32 {
	return func(disp int64) uint32 {
		imm19 := uint32(disp/4) & 0x7ffff
		return 0x54000000 | (imm19 << 5) | uint32(cond)
	}
}

func encCbzImm(rt uint8) func(int64) uint32 {
	return func(disp int64) uint32 {
		imm19 := uint32(disp/4) & 0x7ffff
		return 0xb4000000 | (imm19 << 5) | uint32(rt)
	}
}

func encCbnzImm(rt uint8) func(int64) uint32 {
	return func(disp int64) uint32 {
		imm19 := uint32(disp/4) & 0x7ffff
		return 0xb5000000 | (imm19 << 5) | uint32(rt)
	}
}

// movImm64 lowers a 64-bit immediate to a MOVZ followed by up to three
// MOVK instructions, grounded on the teacher's MovImm64.
func movImm64(buf *rtasm.CodeBuffer, rd uint8, v uint64) {
	putWord(buf, 0xd2800000|(uint32(v&0xffff)<<5)|uint32(rd))
	if v>>16&0xffff != 0 {
		putWord(buf, 0xf2a00000|(uint32(v>>16&0xffff)<<5)|uint32(rd))
	}
	if v>>32&0xffff != 0 {
		putWord(buf, 0xf2c00000|(uint32(v>>32&0xffff)<<5)|uint32(rd))
	}
	if v>>48&0xffff != 0 {
		putWord(buf, 0xf2e00000|(uint32(v>>48&0xffff)<<5)|uint32(rd))
	}
}

// Encode implements rtasm.Funcs.Encode for the AArch64 representative
// subset, each case grounded on the named method in arm64_instructions.go.
func Encode(holder *rtasm.CodeHolder, secID rtasm.SectionID, inst rtasm.BaseInst, ops []rtasm.Operand) error {
	sec, err := holder.Section(secID)
	if err != nil {
		return err
	}
	buf := sec.Buffer()

	switch inst.ID {
	case MOV:
		if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg {
			return rtasm.ErrInvalidOperand
		}
		rd, rn := ops[0].Reg, ops[1].Reg
		if ops[1].Kind == rtasm.OperandImm {
			movImm64(buf, rd.Encoding, uint64(ops[1].Imm))
			return nil
		}
		if ops[1].Kind != rtasm.OperandReg {
			return rtasm.ErrInvalidOperand
		}
		// mov Xd, Xn == orr Xd, XZR, Xn (MovReg64).
		putWord(buf, 0xaa0003e0|(uint32(rn.Encoding)<<16)|uint32(rd.Encoding))
		return nil

	case MOVZ:
		if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandImm {
			return rtasm.ErrInvalidOperand
		}
		rd, imm := ops[0].Reg, ops[1].Imm
		putWord(buf, 0xd2800000|(uint32(imm&0xffff)<<5)|uint32(rd.Encoding))
		return nil

	case MOVK:
		if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandImm {
			return rtasm.ErrInvalidOperand
		}
		rd, imm := ops[0].Reg, ops[1].Imm
		putWord(buf, 0xf2800000|(uint32(imm&0xffff)<<5)|uint32(rd.Encoding))
		return nil

	case ADD:
		if len(ops) != 3 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandReg || ops[2].Kind != rtasm.OperandImm {
			return rtasm.ErrInvalidOperand
		}
		rd, rn, imm := ops[0].Reg, ops[1].Reg, ops[2].Imm
		if imm < 0 || imm > 0xfff {
			return rtasm.ErrRelocationOutOfRange
		}
		putWord(buf, 0x91000000|(uint32(imm&0xfff)<<10)|(uint32(rn.Encoding)<<5)|uint32(rd.Encoding))
		return nil

	case SUB:
		if len(ops) != 3 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandReg || ops[2].Kind != rtasm.OperandImm {
			return rtasm.ErrInvalidOperand
		}
		rd, rn, imm := ops[0].Reg, ops[1].Reg, ops[2].Imm
		if imm < 0 || imm > 0xfff {
			return rtasm.ErrRelocationOutOfRange
		}
		putWord(buf, 0xd1000000|(uint32(imm&0xfff)<<10)|(uint32(rn.Encoding)<<5)|uint32(rd.Encoding))
		return nil

	case CMP:
		if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandImm {
			return rtasm.ErrInvalidOperand
		}
		// cmp Xn, imm == subs XZR, Xn, imm.
		rn, imm := ops[0].Reg, ops[1].Imm
		if imm < 0 || imm > 0xfff {
			return rtasm.ErrRelocationOutOfRange
		}
		putWord(buf, 0xf1000000|(uint32(imm&0xfff)<<10)|(uint32(rn.Encoding)<<5)|31)
		return nil

	case STR:
		if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandMem {
			return rtasm.ErrInvalidOperand
		}
		return encLdst(buf, ops, 0xf9000000, 0xf8000000)
	case LDR:
		if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandMem {
			return rtasm.ErrInvalidOperand
		}
		return encLdst(buf, ops, 0xf9400000, 0xf8400000)

	case B:
		if len(ops) != 1 || ops[0].Kind != rtasm.OperandLabel {
			return rtasm.ErrInvalidOperand
		}
		return emitBranchImm(holder, secID, buf, ops[0].Label, encBImm)
	case BL:
		if len(ops) != 1 || ops[0].Kind != rtasm.OperandLabel {
			return rtasm.ErrInvalidOperand
		}
		return emitBranchImm(holder, secID, buf, ops[0].Label, encBlImm)
	case BCOND:
		if len(ops) != 2 || ops[0].Kind != rtasm.OperandImm || ops[1].Kind != rtasm.OperandLabel {
			return rtasm.ErrInvalidOperand
		}
		return emitBranchImm(holder, secID, buf, ops[1].Label, encBCondImm(ops[0].Imm))
	case CBZ:
		if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandLabel {
			return rtasm.ErrInvalidOperand
		}
		return emitBranchImm(holder, secID, buf, ops[1].Label, encCbzImm(ops[0].Reg.Encoding))
	case CBNZ:
		if len(ops) != 2 || ops[0].Kind != rtasm.OperandReg || ops[1].Kind != rtasm.OperandLabel {
			return rtasm.ErrInvalidOperand
		}
		return emitBranchImm(holder, secID, buf, ops[1].Label, encCbnzImm(ops[0].Reg.Encoding))

	case RET:
		putWord(buf, 0xd65f03c0)
		return nil
	case NOP:
		putWord(buf, 0xd503201f)
		return nil

	default:
		return rtasm.ErrInvalidInstruction
	}
}

// encLdst encodes STR/LDR Xt, [Xn, #imm] using the scaled unsigned-offset
// form when the byte offset is a non-negative multiple of 8 within range,
// falling back to the unscaled STUR/LDUR form otherwise (StrImm64/LdrImm64
// and their STUR/LDUR fallback in the teacher).
func encLdst(buf *rtasm.CodeBuffer, ops []rtasm.Operand, scaledOp, unscaledOp uint32) error {
	rt := ops[0].Reg
	m := ops[1].Mem
	if !m.HasBase {
		return rtasm.ErrInvalidOperand
	}
	disp := m.Disp
	if disp >= 0 && disp%8 == 0 && disp/8 < 4096 {
		imm12 := uint32(disp/8) & 0xfff
		putWord(buf, scaledOp|(imm12<<10)|(uint32(m.Base.Encoding)<<5)|uint32(rt.Encoding))
		return nil
	}
	if disp >= -256 && disp <= 255 {
		imm9 := uint32(disp) & 0x1ff
		putWord(buf, unscaledOp|(imm9<<12)|(uint32(m.Base.Encoding)<<5)|uint32(rt.Encoding))
		return nil
	}
	return rtasm.ErrRelocationOutOfRange
}

// FormatInstruction implements rtasm.Funcs.FormatInstruction.
func FormatInstruction(inst rtasm.BaseInst, ops []rtasm.Operand) (string, error) {
	name, ok := Mnemonic(inst.ID)
	if !ok {
		return "", rtasm.ErrInvalidInstruction
	}
	s := name
	for i, op := range ops {
		if i == 0 {
			s += " "
		} else {
			s += ", "
		}
		s += formatOperand(op)
	}
	return s, nil
}

func formatOperand(op rtasm.Operand) string {
	switch op.Kind {
	case rtasm.OperandReg:
		return op.Reg.Name
	case rtasm.OperandImm:
		return fmt.Sprintf("#%d", op.Imm)
	case rtasm.OperandMem:
		return fmt.Sprintf("[%s, #%d]", op.Mem.Base.Name, op.Mem.Disp)
	case rtasm.OperandLabel:
		return fmt.Sprintf("L%d", op.Label)
	default:
		return "?"
	}
}
