package rtasm

// LabelID is a dense, stable id into CodeHolder.labels (component C3).
type LabelID int

// InvalidLabelID marks "no label" / a label that failed to resolve by name.
const InvalidLabelID LabelID = -1

// LabelType classifies a label the way asmjit's LabelType does.
type LabelType int

const (
	LabelAnonymous LabelType = iota
	LabelGlobal
	LabelExternal
	LabelLocal
)

func (t LabelType) String() string {
	switch t {
	case LabelAnonymous:
		return "anonymous"
	case LabelGlobal:
		return "global"
	case LabelExternal:
		return "external"
	case LabelLocal:
		return "local"
	default:
		return "unknown"
	}
}

// PatchKind selects how the generic bind-time patcher rewrites a recorded
// site (spec §4.1, "a generic per-kind patcher").
type PatchKind int

const (
	// PatchRelativeDisplacement writes a little-endian signed displacement
	// computed as labelOffset - site.EndOffset into the site, sized Size
	// bytes. Used for branch/jump operands referencing an unbound label.
	PatchRelativeDisplacement PatchKind = iota
)

// PatchSite records one pending reference to an unbound label: (sectionId,
// offsetOfSite, encodingKind) per spec §4.1. EndOffset is the offset right
// after the patched field — the position a PC-relative encoding measures
// from — recorded explicitly so the generic patcher never has to assume the
// field sits at the end of the instruction.
type PatchSite struct {
	Section   SectionID
	Offset    int
	EndOffset int
	Size      int
	Kind      PatchKind
}

// LabelEntry is the CodeHolder's bookkeeping record for one label (component
// C3). Attributes and invariants follow spec §3 verbatim: bound ⇔ sectionId
// valid; a label transitions unbound → bound exactly once.
type LabelEntry struct {
	id       LabelID
	name     string
	parentID LabelID
	typ      LabelType

	bound   bool
	section SectionID
	offset  int

	linkChain []PatchSite
}

// ID returns the label's stable id.
func (l *LabelEntry) ID() LabelID { return l.id }

// Name returns the label's name, or "" for an anonymous label.
func (l *LabelEntry) Name() string { return l.name }

// Type returns the label's LabelType.
func (l *LabelEntry) Type() LabelType { return l.typ }

// Bound reports whether the label has been bound to a (section, offset).
func (l *LabelEntry) Bound() bool { return l.bound }

// Section returns the section the label is bound in, or InvalidSectionID.
func (l *LabelEntry) Section() SectionID { return l.section }

// Offset returns the label's bound offset, valid only if Bound() is true.
func (l *LabelEntry) Offset() int { return l.offset }
