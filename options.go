package rtasm

// EncodingOptions controls encoder-level preferences, unchanged from spec §6.
type EncodingOptions uint32

const EncodingOptionNone EncodingOptions = 0

const (
	// OptimizeForSize names the preference for shorter equivalent encodings
	// (e.g. implicit zero-extension instead of a wider immediate form). The
	// internal/x86 and internal/arm64 encoders do not read it; it is carried
	// on the emitter only.
	OptimizeForSize EncodingOptions = 1 << iota
	// OptimizedAlign emits multi-byte NOP sequences instead of single-byte
	// ones when padding for AlignMode.Code.
	OptimizedAlign
	// PredictedJumps names the request for static branch-hint prefixes. The
	// internal/x86 and internal/arm64 encoders do not read it; no hint
	// prefix is emitted.
	PredictedJumps
)

// DiagnosticOptions controls validation and register-allocator diagnostics,
// unchanged from spec §6.
type DiagnosticOptions uint32

const DiagnosticOptionNone DiagnosticOptions = 0

const (
	// ValidateAssembler runs the arch encoder's validate() before every
	// Assembler.emit (and, by propagation, before the Assembler finalize()
	// creates internally for Builder/Compiler).
	ValidateAssembler DiagnosticOptions = 1 << iota
	// ValidateIntermediate runs validate() before Builder/Compiler create an
	// InstNode, catching malformed instructions earlier than
	// ValidateAssembler would.
	ValidateIntermediate
	RAAnnotate
	RADebugCFG
	RADebugLiveness
	RADebugAssignment
	RADebugUnreachable
)

// RADebugAll enables every Compiler/RA debug option.
const RADebugAll = RADebugCFG | RADebugLiveness | RADebugAssignment | RADebugUnreachable

// ValidationFlags narrows how strict Validate() should be; the set is
// intentionally small since this repo's encoders validate a representative
// instruction subset rather than a full ISA (SPEC_FULL §1).
type ValidationFlags uint32

const ValidationFlagNone ValidationFlags = 0

const (
	ValidationFlagEncoder ValidationFlags = 1 << iota
)

// AlignMode selects the padding strategy for BaseEmitter.Align (spec §4.2).
type AlignMode int

const (
	AlignCode AlignMode = iota
	AlignData
	AlignZero
)

func (m AlignMode) String() string {
	switch m {
	case AlignCode:
		return "code"
	case AlignData:
		return "data"
	case AlignZero:
		return "zero"
	default:
		return "unknown"
	}
}

// TypeID names the element type of an embedDataArray call.
type TypeID int

const (
	TypeUInt8 TypeID = iota
	TypeInt8
	TypeUInt16
	TypeInt16
	TypeUInt32
	TypeInt32
	TypeUInt64
	TypeInt64
	TypeFloat32
	TypeFloat64
)

// Size returns the element's size in bytes.
func (t TypeID) Size() int {
	switch t {
	case TypeUInt8, TypeInt8:
		return 1
	case TypeUInt16, TypeInt16:
		return 2
	case TypeUInt32, TypeInt32, TypeFloat32:
		return 4
	case TypeUInt64, TypeInt64, TypeFloat64:
		return 8
	default:
		return 0
	}
}
