package arm64

import "github.com/xyproto/rtasm"

// General-purpose registers, grounded on the teacher's arm64GPRegs map
// (arm64_instructions.go), generalized to rtasm.Reg.
var (
	X0  = rtasm.Reg{Name: "x0", Size: 64, Encoding: 0}
	X1  = rtasm.Reg{Name: "x1", Size: 64, Encoding: 1}
	X2  = rtasm.Reg{Name: "x2", Size: 64, Encoding: 2}
	X3  = rtasm.Reg{Name: "x3", Size: 64, Encoding: 3}
	X4  = rtasm.Reg{Name: "x4", Size: 64, Encoding: 4}
	X5  = rtasm.Reg{Name: "x5", Size: 64, Encoding: 5}
	X6  = rtasm.Reg{Name: "x6", Size: 64, Encoding: 6}
	X7  = rtasm.Reg{Name: "x7", Size: 64, Encoding: 7}
	X8  = rtasm.Reg{Name: "x8", Size: 64, Encoding: 8}
	X9  = rtasm.Reg{Name: "x9", Size: 64, Encoding: 9}
	X19 = rtasm.Reg{Name: "x19", Size: 64, Encoding: 19}
	X20 = rtasm.Reg{Name: "x20", Size: 64, Encoding: 20}
	X21 = rtasm.Reg{Name: "x21", Size: 64, Encoding: 21}
	X22 = rtasm.Reg{Name: "x22", Size: 64, Encoding: 22}
	X23 = rtasm.Reg{Name: "x23", Size: 64, Encoding: 23}
	X24 = rtasm.Reg{Name: "x24", Size: 64, Encoding: 24}
	X25 = rtasm.Reg{Name: "x25", Size: 64, Encoding: 25}
	X26 = rtasm.Reg{Name: "x26", Size: 64, Encoding: 26}
	X27 = rtasm.Reg{Name: "x27", Size: 64, Encoding: 27}
	X28 = rtasm.Reg{Name: "x28", Size: 64, Encoding: 28}
	FP  = rtasm.Reg{Name: "x29", Size: 64, Encoding: 29}
	LR  = rtasm.Reg{Name: "x30", Size: 64, Encoding: 30}
	SP  = rtasm.Reg{Name: "sp", Size: 64, Encoding: 31}
)

// AllocatableGPRegs lists callee-saved registers first (x19-x28), the same
// set register_allocator.go's ArchARM64 case seeds its freeRegs pool from.
var AllocatableGPRegs = []rtasm.Reg{X19, X20, X21, X22, X23, X24, X25, X26, X27, X28, X0, X1, X2, X3, X4, X5, X6, X7, X8, X9}
