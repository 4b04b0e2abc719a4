package rtasm

// RelocKind classifies how a RelocationEntry's addend combines with its
// target to produce the final patched value.
type RelocKind int

const (
	RelocAbsolute RelocKind = iota
	RelocRelative
	RelocExpr
)

func (k RelocKind) String() string {
	switch k {
	case RelocAbsolute:
		return "absolute"
	case RelocRelative:
		return "relative"
	case RelocExpr:
		return "expr"
	default:
		return "unknown"
	}
}

// RelocTargetKind identifies what a RelocationEntry's target field means.
type RelocTargetKind int

const (
	// TargetLabel: TargetID is a LabelID.
	TargetLabel RelocTargetKind = iota
	// TargetExternalAddress: TargetAddress is an absolute host address
	// supplied by the caller (e.g. a symbol resolved by a dynamic linker).
	TargetExternalAddress
	// TargetSectionRelative: TargetID is a SectionID and the value is an
	// offset relative to that section's final placement.
	TargetSectionRelative
)

func (k RelocTargetKind) String() string {
	switch k {
	case TargetLabel:
		return "label"
	case TargetExternalAddress:
		return "external-address"
	case TargetSectionRelative:
		return "section-relative"
	default:
		return "unknown"
	}
}

// RelocationEntry is a pending fixup whose target could not be materialized
// as an inline immediate/displacement at encode time (component C4). It is
// consumed at code relocation time, which is external to this package (spec
// §3: "consumed at code relocation time (external to this spec)") — this
// repo only records and, where the target is fully known, resolves entries
// in ResolveCrossSection; it never writes the final relocated executable.
type RelocationEntry struct {
	Kind RelocKind

	SourceSection SectionID
	SourceOffset  int

	TargetKind    RelocTargetKind
	TargetID      int // LabelID or SectionID depending on TargetKind
	TargetAddress uint64

	Addend int64
	Size   int
}
