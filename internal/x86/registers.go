package x86

import "github.com/xyproto/rtasm"

// General-purpose registers, grounded on the teacher's x86_64Registers table
// (reg.go) — same name/size/encoding triples, generalized to rtasm.Reg.
var (
	RAX = rtasm.Reg{Name: "rax", Size: 64, Encoding: 0}
	RCX = rtasm.Reg{Name: "rcx", Size: 64, Encoding: 1}
	RDX = rtasm.Reg{Name: "rdx", Size: 64, Encoding: 2}
	RBX = rtasm.Reg{Name: "rbx", Size: 64, Encoding: 3}
	RSP = rtasm.Reg{Name: "rsp", Size: 64, Encoding: 4}
	RBP = rtasm.Reg{Name: "rbp", Size: 64, Encoding: 5}
	RSI = rtasm.Reg{Name: "rsi", Size: 64, Encoding: 6}
	RDI = rtasm.Reg{Name: "rdi", Size: 64, Encoding: 7}
	R8  = rtasm.Reg{Name: "r8", Size: 64, Encoding: 8}
	R9  = rtasm.Reg{Name: "r9", Size: 64, Encoding: 9}
	R10 = rtasm.Reg{Name: "r10", Size: 64, Encoding: 10}
	R11 = rtasm.Reg{Name: "r11", Size: 64, Encoding: 11}
	R12 = rtasm.Reg{Name: "r12", Size: 64, Encoding: 12}
	R13 = rtasm.Reg{Name: "r13", Size: 64, Encoding: 13}
	R14 = rtasm.Reg{Name: "r14", Size: 64, Encoding: 14}
	R15 = rtasm.Reg{Name: "r15", Size: 64, Encoding: 15}

	EAX = rtasm.Reg{Name: "eax", Size: 32, Encoding: 0}
	ECX = rtasm.Reg{Name: "ecx", Size: 32, Encoding: 1}
	EDX = rtasm.Reg{Name: "edx", Size: 32, Encoding: 2}
	EBX = rtasm.Reg{Name: "ebx", Size: 32, Encoding: 3}
)

// ZMM0..ZMM3 and K0..K3 back the AVX-512 mask-aware vaddpd subset (spec's
// representative-instruction list); same Size/Encoding shape as reg.go's
// zmm/k maps, trimmed to a handful of registers.
var (
	ZMM0 = rtasm.Reg{Name: "zmm0", Size: 512, Encoding: 0}
	ZMM1 = rtasm.Reg{Name: "zmm1", Size: 512, Encoding: 1}
	ZMM2 = rtasm.Reg{Name: "zmm2", Size: 512, Encoding: 2}
	ZMM3 = rtasm.Reg{Name: "zmm3", Size: 512, Encoding: 3}

	K0 = rtasm.Reg{Name: "k0", Size: 64, Encoding: 0}
	K1 = rtasm.Reg{Name: "k1", Size: 64, Encoding: 1}
	K2 = rtasm.Reg{Name: "k2", Size: 64, Encoding: 2}
	K3 = rtasm.Reg{Name: "k3", Size: 64, Encoding: 3}
)

// AllocatableGPRegs lists callee-saved GP registers first, the same pool
// register_allocator.go seeds ArchX86_64's freeRegs from.
var AllocatableGPRegs = []rtasm.Reg{RBX, R12, R13, R14, R15, RAX, RCX, RDX, RSI, RDI}

func gpByEncoding(enc uint8, size int) (rtasm.Reg, bool) {
	regs := []rtasm.Reg{RAX, RCX, RDX, RBX, RSP, RBP, RSI, RDI, R8, R9, R10, R11, R12, R13, R14, R15}
	if int(enc) >= len(regs) {
		return rtasm.Reg{}, false
	}
	r := regs[enc]
	r.Size = size
	return r, true
}
