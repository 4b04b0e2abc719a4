package x86

import "github.com/xyproto/rtasm"

// EmitProlog/EmitEpilog implement rtasm.Funcs.EmitProlog/EmitEpilog, calling
// back into e's own Emit so the generated frame code reaches the same
// logging/error-handling path as user instructions (spec §4.5 (c)).
// Grounded on register_allocator.go's GeneratePrologue/GenerateEpilogue,
// generalized from direct Out.PushReg/SubImmFromReg calls to Emitter.Emit
// calls against this package's own InstId/Reg constants.
func EmitProlog(e rtasm.Emitter, frame *rtasm.FuncFrame) error {
	for _, r := range frame.CalleeSaved {
		if err := e.Emit(PUSH, rtasm.RegOp(r)); err != nil {
			return err
		}
	}
	if frame.StackSize > 0 {
		if err := e.Emit(SUB, rtasm.RegOp(RSP), rtasm.ImmOp(int64(frame.StackSize))); err != nil {
			return err
		}
	}
	return nil
}

func EmitEpilog(e rtasm.Emitter, frame *rtasm.FuncFrame) error {
	if frame.StackSize > 0 {
		if err := e.Emit(ADD, rtasm.RegOp(RSP), rtasm.ImmOp(int64(frame.StackSize))); err != nil {
			return err
		}
	}
	for i := len(frame.CalleeSaved) - 1; i >= 0; i-- {
		if err := e.Emit(POP, rtasm.RegOp(frame.CalleeSaved[i])); err != nil {
			return err
		}
	}
	return e.Emit(RET)
}

// EmitArgsAssignment moves each incoming argument into its callee-expected
// location with a plain MOV, the representative-subset stand-in for
// asmjit's full FuncArgsAssignment shuffle algorithm (which also handles
// cyclic register swaps and stack-to-register moves).
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
