package arm64

import "github.com/xyproto/rtasm"

// EmitProlog/EmitEpilog implement rtasm.Funcs.EmitProlog/EmitEpilog for
// AArch64, grounded on the teacher's StpImm64/LdpImm64 pair load/store
// (used there to spill register pairs), simplified here to one register per
// store: sub sp,sp,#n; a single str for each callee-saved register at its
// own 8-byte slot; mirror with ldr and add for the epilog.
func EmitProlog(e rtasm.Emitter, frame *rtasm.FuncFrame) error {
	total := frame.StackSize + len(frame.CalleeSaved)*8
	if total > 0 {
		if err := e.Emit(SUB, rtasm.RegOp(SP), rtasm.RegOp(SP), rtasm.ImmOp(int64(total))); err != nil {
			return err
		}
	}
	for i, r := range frame.CalleeSaved {
		slot := rtasm.MemOp(rtasm.Mem{Base: SP, HasBase: true, Disp: int64(i * 8)})
		if err := e.Emit(STR, rtasm.RegOp(r), slot); err != nil {
			return err
		}
	}
	return nil
}

func EmitEpilog(e rtasm.Emitter, frame *rtasm.FuncFrame) error {
	for i, r := range frame.CalleeSaved {
		slot := rtasm.MemOp(rtasm.Mem{Base: SP, HasBase: true, Disp: int64(i * 8)})
		if err := e.Emit(LDR, rtasm.RegOp(r), slot); err != nil {
			return err
		}
	}
	total := frame.StackSize + len(frame.CalleeSaved)*8
	if total > 0 {
		if err := e.Emit(ADD, rtasm.RegOp(SP), rtasm.RegOp(SP), rtasm.ImmOp(int64(total))); err != nil {
			return err
		}
	}
	return e.Emit(RET)
}

// EmitArgsAssignment mirrors internal/x86's representative-subset
// register-to-register shuffle, using AArch64's mov instead of x86's mov.
func EmitArgsAssignment(e rtasm.Emitter, frame *rtasm.FuncFrame, args *rtasm.FuncArgsAssignment) error {
	if len(args.From) != len(args.To) {
		return &rtasm.Error{Kind: rtasm.InvalidArgument, Message: "args assignment From/To length mismatch"}
	}
	for i := range args.From {
		if args.From[i].Kind != rtasm.OperandReg || args.To[i].Kind != rtasm.OperandReg {
			return &rtasm.Error{Kind: rtasm.InvalidOperand, Message: "args assignment supports register operands only"}
		}
		if args.From[i].Reg == args.To[i].Reg {
			continue
		}
		if err := e.Emit(MOV, args.To[i], args.From[i]); err != nil {
			return err
		}
	}
	return nil
}
