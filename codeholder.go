package rtasm

import (
	"fmt"

	"github.com/xyproto/rtasm/internal/engine"
)

// Environment is the root package's name for engine.Environment, re-exported
// so callers never need to import internal/engine directly.
type Environment = engine.Environment

// Arch, OS and their constants are re-exported the same way.
type Arch = engine.Arch
type OS = engine.OS

const (
	ArchUnknown = engine.ArchUnknown
	ArchX86     = engine.ArchX86
	ArchX86_64  = engine.ArchX86_64
	ArchARM64   = engine.ArchARM64

	OSLinux   = engine.OSLinux
	OSDarwin  = engine.OSDarwin
	OSFreeBSD = engine.OSFreeBSD
	OSWindows = engine.OSWindows
)

// NewEnvironment constructs an Environment for arch/os.
func NewEnvironment(arch Arch, os OS) Environment {
	return engine.NewEnvironment(arch, os)
}

// CodeHolder owns sections, labels, relocations, and the chain of attached
// emitters — the byte-level source of truth (component C5). It is grounded
// on the teacher's ExecutableBuilder (main.go): a label-name→offset map plus
// a pending-relocation list, generalized here to dense ids, a per-label
// link chain, and an explicit Section/LabelEntry/RelocationEntry model per
// spec §3.
type CodeHolder struct {
	env Environment

	sections []*Section
	labels   []*LabelEntry
	relocs   []RelocationEntry

	namedLabels map[string]LabelID // Global/Local name -> id, for collision checks and LabelByName

	attached []Emitter

	logger       Logger
	errorHandler ErrorHandler

	// cfg holds the process-environment-derived defaults (RTASM_VALIDATE,
	// RTASM_OPTIMIZED_ALIGN, RTASM_LOG) read once by Init; NewAssembler,
	// NewBuilder, and NewCompiler seed a freshly constructed emitter's
	// diagnostic/encoding options and logger from it (spec §3.1).
	cfg Config
}

// NewCodeHolder constructs an empty CodeHolder and initializes it for env,
// equivalent to calling Init immediately.
func NewCodeHolder(env Environment) *CodeHolder {
	c := &CodeHolder{}
	_ = c.Init(env)
	return c
}

// Init sets the target environment and clears all state. After Init, the
// holder has one implicit ".text" section (id 0) with alignment matching
// the architecture's instruction alignment (spec §4.1).
func (c *CodeHolder) Init(env Environment) error {
	c.env = env
	c.cfg = LoadConfig()
	if c.cfg.Log {
		c.logger = NewStderrLogger()
	}
	return c.Reset()
}

// Reset clears all sections, labels, relocations, and detaches every
// attached emitter, then recreates the implicit ".text" section.
func (c *CodeHolder) Reset() error {
	for _, e := range append([]Emitter(nil), c.attached...) {
		_ = c.Detach(e)
	}
	c.sections = nil
	c.labels = nil
	c.relocs = nil
	c.namedLabels = make(map[string]LabelID)

	align := c.env.InstructionAlignment()
	if align < 1 {
		align = 1
	}
	_, err := c.NewSection(".text", SectionExecutable, align)
	return err
}

// Environment returns the holder's target environment.
func (c *CodeHolder) Environment() Environment { return c.env }

// ConfigDefaults returns the environment-derived defaults read at Init
// time, consulted by NewAssembler/NewBuilder/NewCompiler to seed a freshly
// constructed emitter.
func (c *CodeHolder) ConfigDefaults() Config { return c.cfg }

// Logger returns the holder's own logger, or nil.
func (c *CodeHolder) Logger() Logger { return c.logger }

// SetLogger sets the holder's logger and notifies every attached emitter so
// those without an own logger can recompute their effective logger (spec
// §4.2 "Logger / ErrorHandler resolution").
func (c *CodeHolder) SetLogger(l Logger) {
	c.logger = l
	c.notifySettingsUpdated()
}

// ErrorHandler returns the holder's own error handler, or nil.
func (c *CodeHolder) ErrorHandler() ErrorHandler { return c.errorHandler }

// SetErrorHandler sets the holder's error handler and notifies attached
// emitters.
func (c *CodeHolder) SetErrorHandler(h ErrorHandler) {
	c.errorHandler = h
	c.notifySettingsUpdated()
}

type settingsAware interface {
	onSettingsUpdated()
}

func (c *CodeHolder) notifySettingsUpdated() {
	for _, e := range c.attached {
		if sa, ok := e.(settingsAware); ok {
			sa.onSettingsUpdated()
		}
	}
}

// Attach links emitter into the holder's attached chain (spec §4.1).
func (c *CodeHolder) Attach(e Emitter) error {
	for _, a := range c.attached {
		if a == e {
			return ErrAlreadyAttached
		}
	}
	c.attached = append(c.attached, e)
	if aw, ok := e.(attachAware); ok {
		aw.onAttach(c)
	}
	return nil
}

// Detach unlinks emitter from the holder's attached chain.
func (c *CodeHolder) Detach(e Emitter) error {
	for i, a := range c.attached {
		if a == e {
			c.attached = append(c.attached[:i], c.attached[i+1:]...)
			if aw, ok := e.(attachAware); ok {
				aw.onDetach(c)
			}
			return nil
		}
	}
	return ErrNotAttached
}

type attachAware interface {
	onAttach(c *CodeHolder)
	onDetach(c *CodeHolder)
}

// NewSection appends a Section and returns its id. Fails with
// InvalidArgument if alignment is not a power of two.
func (c *CodeHolder) NewSection(name string, flags SectionFlags, alignment int) (SectionID, error) {
	if !isPowerOfTwo(alignment) {
		return InvalidSectionID, newError(InvalidArgument, "alignment %d is not a power of two", alignment)
	}
	id := SectionID(len(c.sections))
	c.sections = append(c.sections, &Section{
		id:        id,
		name:      name,
		alignment: alignment,
		flags:     flags,
		offset:    -1,
	})
	return id, nil
}

// NewPageAlignedSection creates a section aligned to the host's native page
// size, for callers that want a section boundary to coincide with a page
// boundary ahead of handing the flattened bytes to an external JIT memory
// allocator (spec §1 scope note: this repo only introspects the page size,
// it never maps memory executable itself).
func (c *CodeHolder) NewPageAlignedSection(name string, flags SectionFlags) (SectionID, error) {
	return c.NewSection(name, flags, hostPageSize())
}

// Section returns the section with the given id.
func (c *CodeHolder) Section(id SectionID) (*Section, error) {
	if id < 0 || int(id) >= len(c.sections) {
		return nil, newError(InvalidSection, "section id %d out of range", id)
	}
	return c.sections[id], nil
}

// Sections returns every section in creation order.
func (c *CodeHolder) Sections() []*Section { return c.sections }

// SectionByName looks up a section by name, returning InvalidSectionID if
// none matches.
func (c *CodeHolder) SectionByName(name string) SectionID {
	for _, s := range c.sections {
		if s.name == name {
			return s.id
		}
	}
	return InvalidSectionID
}

// NewLabelID allocates a LabelEntry and returns its id. Fails with
// LabelNameCollision for a Global/Local name already registered, or
// InvalidParent (surfaced as InvalidArgument) for an unknown parent.
func (c *CodeHolder) NewLabelID(typ LabelType, name string, parent LabelID) (LabelID, error) {
	if name != "" && (typ == LabelGlobal || typ == LabelLocal) {
		key := name
		if typ == LabelLocal {
			key = fmt.Sprintf("%d:%s", parent, name)
		}
		if _, exists := c.namedLabels[key]; exists {
			return InvalidLabelID, newError(LabelNameCollision, "label %q already defined", name)
		}
		if typ == LabelLocal {
			if parent < 0 || int(parent) >= len(c.labels) {
				return InvalidLabelID, newError(InvalidArgument, "invalid parent label id %d", parent)
			}
		}
	}

	id := LabelID(len(c.labels))
	c.labels = append(c.labels, &LabelEntry{
		id:       id,
		name:     name,
		parentID: parent,
		typ:      typ,
		section:  InvalidSectionID,
	})

	if name != "" && (typ == LabelGlobal || typ == LabelLocal) {
		key := name
		if typ == LabelLocal {
			key = fmt.Sprintf("%d:%s", parent, name)
		}
		c.namedLabels[key] = id
	}
	return id, nil
}

// Label returns the LabelEntry for id.
func (c *CodeHolder) Label(id LabelID) (*LabelEntry, error) {
	if id < 0 || int(id) >= len(c.labels) {
		return nil, newError(InvalidLabel, "label id %d out of range", id)
	}
	return c.labels[id], nil
}

// IsLabelValid reports whether id is a registered label.
func (c *CodeHolder) IsLabelValid(id LabelID) bool {
	return id >= 0 && int(id) < len(c.labels)
}

// LabelByName returns the id of a previously created Global/Local label, or
// InvalidLabelID if none matches. It never triggers the error handler (spec
// §4.2): callers must check the returned id for validity themselves.
func (c *CodeHolder) LabelByName(name string, parent LabelID) LabelID {
	key := name
	if parent != InvalidLabelID {
		key = fmt.Sprintf("%d:%s", parent, name)
	}
	if id, ok := c.namedLabels[key]; ok {
		return id
	}
	if id, ok := c.namedLabels[name]; ok {
		return id
	}
	if c.logger != nil {
		if suggestion := engine.SuggestName(name, c.namedLabelKeys()); suggestion != "" {
			c.logger.Log(fmt.Sprintf("label %q not found, did you mean %q?", name, suggestion))
		}
	}
	return InvalidLabelID
}

// namedLabelKeys returns the registered Global/Local label names, used for
// did-you-mean suggestions in LabelByName.
func (c *CodeHolder) namedLabelKeys() []string {
	keys := make([]string, 0, len(c.namedLabels))
	for k := range c.namedLabels {
		keys = append(keys, k)
	}
	return keys
}

// BindLabel transitions a LabelEntry to bound state and walks its link
// chain, patching each recorded site (spec §4.1's patch algorithm). Fails
// with AlreadyBound or InvalidLabel.
func (c *CodeHolder) BindLabel(id LabelID, sec SectionID, offset int) error {
	label, err := c.Label(id)
	if err != nil {
		return err
	}
	if label.bound {
		return newError(AlreadyBound, "label %d already bound", id)
	}
	if _, err := c.Section(sec); err != nil {
		return err
	}

	label.bound = true
	label.section = sec
	label.offset = offset

	for _, site := range label.linkChain {
		if err := c.patchSite(site, label); err != nil {
			return err
		}
	}
	label.linkChain = nil
	return nil
}

// AddPatchSite appends a pending reference to an as-yet-unbound label (spec
// §4.1's link chain). Returns InvalidLabel if id is unknown and AlreadyBound
// if the label is already bound (callers are expected to check
// LabelOffsetIfBound first and patch inline instead of calling this).
func (c *CodeHolder) AddPatchSite(id LabelID, site PatchSite) error {
	label, err := c.Label(id)
	if err != nil {
		return err
	}
	if label.bound {
		return newError(AlreadyBound, "label %d already bound", id)
	}
	label.linkChain = append(label.linkChain, site)
	return nil
}

// LabelOffsetIfBound returns the (section, offset) a label is bound to, and
// true, or (_, _, false) if it is not yet bound.
func (c *CodeHolder) LabelOffsetIfBound(id LabelID) (SectionID, int, bool) {
	label, err := c.Label(id)
	if err != nil || !label.bound {
		return InvalidSectionID, 0, false
	}
	return label.section, label.offset, true
}

// patchSite applies the generic bind-time patcher described in spec §4.1:
// displacement = labelOffset - siteEndOffset, written little-endian, signed,
// sized site.Size. Fails with RelocationOutOfRange if it doesn't fit.
func (c *CodeHolder) patchSite(site PatchSite, label *LabelEntry) error {
	sec, err := c.Section(site.Section)
	if err != nil {
		return err
	}

	switch site.Kind {
	case PatchRelativeDisplacement:
		disp := int64(label.offset) - int64(site.EndOffset)
		if !fitsSigned(disp, site.Size) {
			return newError(RelocationOutOfRange, "displacement %d does not fit in %d byte(s) for label %q", disp, site.Size, label.name)
		}
		buf := make([]byte, site.Size)
		putLittleEndianSigned(buf, disp)
		if !sec.buffer.PatchBytes(site.Offset, buf) {
			return newError(InvalidState, "patch site offset %d out of range in section %q", site.Offset, sec.name)
		}
		return nil
	default:
		return newError(InvalidArgument, "unknown patch kind %d", site.Kind)
	}
}

func fitsSigned(v int64, size int) bool {
	switch size {
	case 1:
		return v >= -128 && v <= 127
	case 2:
		return v >= -32768 && v <= 32767
	case 4:
		return v >= -2147483648 && v <= 2147483647
	case 8:
		return true
	default:
		return false
	}
}

func putLittleEndianSigned(dst []byte, v int64) {
	for i := range dst {
		dst[i] = byte(v)
		v >>= 8
	}
}

// AddRelocation appends an entry; always succeeds, so it has no error return
// (the Go runtime's allocator failure mode is a panic, not a recoverable
// OutOfMemory — see spec §4.1 "always succeeds unless out-of-memory").
func (c *CodeHolder) AddRelocation(entry RelocationEntry) {
	c.relocs = append(c.relocs, entry)
}

// Relocations returns every recorded relocation.
func (c *CodeHolder) Relocations() []RelocationEntry { return c.relocs }

// ResolveCrossSection rewrites cross-section label relocations that are now
// encodable inline (both source and target section offsets are known, pre-
// flatten, relative to their own section) into patched bytes, and leaves the
// rest as output relocations. It must run after Flatten so section offsets
// are final.
func (c *CodeHolder) ResolveCrossSection() error {
	remaining := make([]RelocationEntry, 0, len(c.relocs))
	for _, r := range c.relocs {
		if r.TargetKind != TargetLabel {
			remaining = append(remaining, r)
			continue
		}
		label, err := c.Label(LabelID(r.TargetID))
		if err != nil || !label.bound {
			remaining = append(remaining, r)
			continue
		}
		targetSec, err := c.Section(label.section)
		if err != nil || targetSec.offset < 0 {
			remaining = append(remaining, r)
			continue
		}
		srcSec, err := c.Section(r.SourceSection)
		if err != nil || srcSec.offset < 0 {
			remaining = append(remaining, r)
			continue
		}

		absolute := targetSec.offset + int64(label.offset) + r.Addend
		buf := make([]byte, r.Size)
		switch r.Kind {
		case RelocAbsolute:
			if r.Size == 8 {
				putUint64LE(buf, uint64(absolute))
			} else if r.Size == 4 {
				putUint32LE(buf, uint32(absolute))
			} else {
				remaining = append(remaining, r)
				continue
			}
		case RelocRelative:
			ripAddr := srcSec.offset + int64(r.SourceOffset) + int64(r.Size)
			disp := absolute - ripAddr
			if !fitsSigned(disp, r.Size) {
				remaining = append(remaining, r)
				continue
			}
			putLittleEndianSigned(buf, disp)
		default:
			remaining = append(remaining, r)
			continue
		}

		if !srcSec.buffer.PatchBytes(r.SourceOffset, buf) {
			return newError(InvalidState, "relocation source offset %d out of range", r.SourceOffset)
		}
	}
	c.relocs = remaining
	return nil
}

func putUint32LE(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func putUint64LE(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v)
		v >>= 8
	}
}

// alignUp rounds n up to the next multiple of align (align must be a power
// of two).
func alignUp(n int64, align int) int64 {
	a := int64(align)
	if a <= 1 {
		return n
	}
	return (n + a - 1) &^ (a - 1)
}

// Flatten assigns final contiguous offsets to sections obeying their
// alignment, and returns the total size.
func (c *CodeHolder) Flatten() (int64, error) {
	var offset int64
	for _, s := range c.sections {
		offset = alignUp(offset, s.alignment)
		s.offset = offset
		offset += int64(s.buffer.Len())
	}
	return offset, nil
}

// CodeSize returns the sum of every section's current size, ignoring
// inter-section alignment padding (i.e. the size before Flatten runs).
func (c *CodeHolder) CodeSize() int64 {
	var total int64
	for _, s := range c.sections {
		total += int64(s.buffer.Len())
	}
	return total
}

// CopyFlattenedData serializes all section buffers into dst at the offsets
// Flatten assigned, and returns the number of bytes written. Flatten must
// have been called first.
func (c *CodeHolder) CopyFlattenedData(dst []byte) (int, error) {
	var written int
	for _, s := range c.sections {
		if s.offset < 0 {
			return written, newError(InvalidState, "section %q has not been flattened", s.name)
		}
		end := s.offset + int64(s.buffer.Len())
		if end > int64(len(dst)) {
			return written, newError(InvalidArgument, "dst too small: need %d, have %d", end, len(dst))
		}
		copy(dst[s.offset:end], s.buffer.Bytes())
		if int(end) > written {
			written = int(end)
		}
	}
	return written, nil
}
