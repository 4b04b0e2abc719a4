package rtasm

// InstId identifies an instruction mnemonic. The id space is
// architecture-specific; arch packages (internal/x86, internal/arm64) export
// their own InstId constants and a Mnemonic/Lookup pair satisfying spec §8
// invariant 4's round-trip property.
type InstId uint32

// InstOptions is a bitset of per-instruction options, combining encoder-level
// hints (rep/lock prefixes) with reserved bits the core itself interprets.
// Bits are generic; which ones a given architecture's encoder understands is
// documented on the arch package's own constants.
type InstOptions uint32

const InstOptionNone InstOptions = 0

const (
	// InstOptionRep requests a REP-family prefix (x86) — the sticky-prefix
	// scenario from spec §8(b): `rep movs` vs a plain `movs`.
	InstOptionRep InstOptions = 1 << iota
	InstOptionRepne
	InstOptionLock
	// InstOptionShortForm prefers the shortest encoding of a branch/jump.
	InstOptionShortForm
)

// BaseInst bundles an instruction id with the options, extra register and
// inline comment that were pending on the emitter when it was submitted —
// the Go analog of asmjit's BaseInst, used by emitInst() and carried into IR
// nodes.
type BaseInst struct {
	ID          InstId
	Options     InstOptions
	ExtraReg    Reg
	HasExtraReg bool
	Comment     string
}
