package rtasm

import "fmt"

// EmitterType discriminates which of the three variants an Emitter is, the
// Go analog of asmjit's BaseEmitter::EmitterType (spec §4).
type EmitterType int

const (
	EmitterNone EmitterType = iota
	EmitterAssembler
	EmitterBuilder
	EmitterCompiler
)

func (t EmitterType) String() string {
	switch t {
	case EmitterAssembler:
		return "assembler"
	case EmitterBuilder:
		return "builder"
	case EmitterCompiler:
		return "compiler"
	default:
		return "none"
	}
}

// EmitterFlags are per-emitter sticky flags — unrelated to the
// per-instruction transient state spec §4.2 describes. Finalize sets
// EmitterFlagFinalized; no operation clears a flag once set.
type EmitterFlags uint32

const EmitterFlagNone EmitterFlags = 0

const (
	// EmitterFlagFinalized marks an emitter that has already run Finalize.
	EmitterFlagFinalized EmitterFlags = 1 << iota
	// EmitterFlagDestroyed is reserved for an emitter removed from its
	// CodeHolder; Detach does not set it.
	EmitterFlagDestroyed
)

// Emitter is the common surface every one of the three variants satisfies
// (component's public contract, spec §4.2). Section/label/align/embed/
// comment are shared verbatim across variants; Emit/EmitOpArray/EmitInst are
// the three arities of the same underlying operation (spec §4.2 "the single
// logical operation of constructing one instruction"); Finalize/backend
// distinguish the variants' replay targets.
type Emitter interface {
	Type() EmitterType
	Arch() Arch

	CodeHolder() *CodeHolder

	Section() SectionID
	SwitchSection(id SectionID) error

	// NewLabel/NewNamedLabel allocate the label in the CodeHolder directly;
	// Bind routes through the emitter so Builder/Compiler can record a bind
	// node instead of binding in the CodeHolder immediately.
	NewLabel() (LabelID, error)
	NewNamedLabel(typ LabelType, name string, parent LabelID) (LabelID, error)
	Bind(label LabelID) error

	// Align appends alignment padding to the current section.
	Align(mode AlignMode, alignment int) error

	// Embed appends raw bytes, an array of same-typed elements, or a
	// constant pool to the current section.
	Embed(data []byte) error
	EmbedDataArray(typ TypeID, data []byte, repeatCount int) error
	EmbedConstPool(label LabelID, pool ConstPool) error

	// EmbedLabel/EmbedLabelDelta write an absolute or relative reference to a
	// label's eventual address, always via a RelocationEntry (spec §8
	// scenario (e)).
	EmbedLabel(label LabelID, size int) error
	EmbedLabelDelta(label, base LabelID, size int) error

	// Comment/Commentf route a line of text to the effective Logger (and, for
	// Builder/Compiler, also record it as its own comment node in the node
	// list) without affecting emitted bytes.
	Comment(text string)
	Commentf(format string, args ...interface{})

	// Emit constructs one instruction from a fixed operand list. EmitOpArray
	// and EmitInst are the slice- and BaseInst-taking variants of the same
	// operation (spec §4.2).
	Emit(instID InstId, ops ...Operand) error
	EmitOpArray(instID InstId, ops []Operand) error
	EmitInst(inst BaseInst, ops []Operand) error

	// AddInstOptions/SetExtraReg/SetInlineComment set the transient,
	// consumed-by-next-Emit state (spec §8 scenario (b)); SetForcedInstOptions
	// sets the sticky options merged into every subsequent emit until changed.
	AddInstOptions(opt InstOptions)
	SetExtraReg(r Reg)
	SetInlineComment(text string)
	SetForcedInstOptions(opt InstOptions)

	// Logger/ErrorHandler let an emitter override the CodeHolder's own.
	SetLogger(l Logger)
	SetErrorHandler(h ErrorHandler)

	// Finalize freezes the emitter's contribution (for Builder/Compiler,
	// this is where replay into an internal Assembler happens). Calling it
	// twice returns AlreadyFinalized.
	Finalize() error
}

// transientState holds the per-instruction options/extra-register/inline
// comment pending on an emitter — nextInstOptions, nextExtraReg and
// nextInlineComment in spec §3 — cleared unconditionally after every
// Emit/EmitOpArray/EmitInst call regardless of success or failure (spec
// §4.2's "Idle"/"Loaded" states, invariant "transient state is always
// cleared after emit, even on error").
type transientState struct {
	options           InstOptions
	extraReg          Reg
	hasExtraReg       bool
	nextInlineComment string
}

func (t *transientState) loaded() bool {
	return t.options != InstOptionNone || t.hasExtraReg || t.nextInlineComment != ""
}

func (t *transientState) clear() {
	*t = transientState{}
}

// emitterBackend is the unexported hook set each variant implements to
// supply its own replay target for the operations BaseEmitter shares (spec
// §9 design note: "a small interface instead of virtual dispatch").
type emitterBackend interface {
	doEmit(inst BaseInst, ops []Operand) error
	doSwitchSection(id SectionID) error
	doBind(label LabelID) error
	doAlign(mode AlignMode, alignment int) error
	doEmbed(data []byte) error
	doEmbedDataArray(typ TypeID, data []byte, repeatCount int) error
	doEmbedConstPool(label LabelID, pool ConstPool) error
	doEmbedLabel(label LabelID, size int) error
	doEmbedLabelDelta(label, base LabelID, size int) error
	doComment(text string)
	doFinalize() error
}

// BaseEmitter implements the shared Emitter surface; each variant embeds it
// and supplies an emitterBackend plus its own EmitterType (spec §4.2, "three
// variants sharing a base"). This plays the role of asmjit's BaseEmitter,
// generalized from C++ virtual dispatch to an embedded-struct + interface
// pair, the idiomatic Go substitute (spec §9 design note).
type BaseEmitter struct {
	typ     EmitterType
	arch    Arch
	holder  *CodeHolder
	section SectionID

	flags         EmitterFlags
	state         transientState
	forcedOptions InstOptions

	logger       Logger
	errorHandler ErrorHandler

	backend emitterBackend
}

// initBaseEmitter wires a BaseEmitter to its holder and backend; called from
// each variant's constructor.
func initBaseEmitter(b *BaseEmitter, typ EmitterType, holder *CodeHolder, backend emitterBackend) {
	b.typ = typ
	b.arch = holder.Environment().Arch
	b.holder = holder
	b.backend = backend
	b.section = holder.SectionByName(".text")
}

func (b *BaseEmitter) Type() EmitterType   { return b.typ }
func (b *BaseEmitter) Arch() Arch          { return b.arch }
func (b *BaseEmitter) CodeHolder() *CodeHolder { return b.holder }
func (b *BaseEmitter) Section() SectionID  { return b.section }

func (b *BaseEmitter) finalized() bool {
	return b.flags&EmitterFlagFinalized != 0
}

// onSettingsUpdated satisfies settingsAware; an emitter with its own
// logger/errorHandler doesn't need to react, but is notified regardless
// (spec §4.2's resolution rule recomputes on every call, not on notify).
func (b *BaseEmitter) onSettingsUpdated() {}

func (b *BaseEmitter) onAttach(c *CodeHolder)  {}
func (b *BaseEmitter) onDetach(c *CodeHolder)  {}

func (b *BaseEmitter) effectiveLogger() Logger {
	if b.logger != nil {
		return b.logger
	}
	return b.holder.Logger()
}

func (b *BaseEmitter) effectiveErrorHandler() ErrorHandler {
	if b.errorHandler != nil {
		return b.errorHandler
	}
	return b.holder.ErrorHandler()
}

// reportError routes err to the effective ErrorHandler, if any, then returns
// err unchanged — the handler never suppresses the error return (spec §7,
// "HandleError's return value is ignored").
func (b *BaseEmitter) reportError(err error, self Emitter) error {
	if err == nil {
		panic("rtasm: reportError called with a nil error")
	}
	if h := b.effectiveErrorHandler(); h != nil {
		h.HandleError(err, self)
	}
	return err
}

func (b *BaseEmitter) SetLogger(l Logger)             { b.logger = l }
func (b *BaseEmitter) SetErrorHandler(h ErrorHandler) { b.errorHandler = h }

func (b *BaseEmitter) AddInstOptions(opt InstOptions) {
	b.state.options |= opt
}

func (b *BaseEmitter) SetExtraReg(r Reg) {
	b.state.extraReg = r
	b.state.hasExtraReg = true
}

func (b *BaseEmitter) SetInlineComment(text string) {
	b.state.nextInlineComment = text
}

// SetForcedInstOptions replaces the sticky options merged into every emit's
// effective options (spec §3's forcedInstOptions) until changed again.
// Unlike AddInstOptions/SetExtraReg/SetInlineComment, it is
// not part of the per-instruction transient and survives a successful emit.
func (b *BaseEmitter) SetForcedInstOptions(opt InstOptions) {
	b.forcedOptions = opt
}

func (b *BaseEmitter) SwitchSection(id SectionID, self Emitter) error {
	if _, err := b.holder.Section(id); err != nil {
		return b.reportError(err, self)
	}
	if err := b.backend.doSwitchSection(id); err != nil {
		return b.reportError(err, self)
	}
	b.section = id
	return nil
}

func (b *BaseEmitter) NewLabel() (LabelID, error) {
	return b.holder.NewLabelID(LabelAnonymous, "", InvalidLabelID)
}

func (b *BaseEmitter) NewNamedLabel(typ LabelType, name string, parent LabelID) (LabelID, error) {
	return b.holder.NewLabelID(typ, name, parent)
}

func (b *BaseEmitter) Bind(label LabelID, self Emitter) error {
	if err := b.backend.doBind(label); err != nil {
		return b.reportError(err, self)
	}
	return nil
}

func (b *BaseEmitter) Align(mode AlignMode, alignment int, self Emitter) error {
	if !isPowerOfTwo(alignment) {
		return b.reportError(newError(InvalidArgument, "alignment %d is not a power of two", alignment), self)
	}
	if err := b.backend.doAlign(mode, alignment); err != nil {
		return b.reportError(err, self)
	}
	return nil
}

func (b *BaseEmitter) Embed(data []byte, self Emitter) error {
	if err := b.backend.doEmbed(data); err != nil {
		return b.reportError(err, self)
	}
	return nil
}

func (b *BaseEmitter) EmbedDataArray(typ TypeID, data []byte, repeatCount int, self Emitter) error {
	if err := b.backend.doEmbedDataArray(typ, data, repeatCount); err != nil {
		return b.reportError(err, self)
	}
	return nil
}

func (b *BaseEmitter) EmbedConstPool(label LabelID, pool ConstPool, self Emitter) error {
	if err := b.backend.doEmbedConstPool(label, pool); err != nil {
		return b.reportError(err, self)
	}
	return nil
}

func (b *BaseEmitter) EmbedLabel(label LabelID, size int, self Emitter) error {
	if err := b.backend.doEmbedLabel(label, size); err != nil {
		return b.reportError(err, self)
	}
	return nil
}

func (b *BaseEmitter) EmbedLabelDelta(label, base LabelID, size int, self Emitter) error {
	if err := b.backend.doEmbedLabelDelta(label, base, size); err != nil {
		return b.reportError(err, self)
	}
	return nil
}

func (b *BaseEmitter) Comment(text string) {
	b.backend.doComment(text)
	if l := b.effectiveLogger(); l != nil {
		l.Log("; " + text)
	}
}

// Commentf is the Printf-style variant of Comment (spec §4.2).
func (b *BaseEmitter) Commentf(format string, args ...interface{}) {
	b.Comment(fmt.Sprintf(format, args...))
}

// Emit is the Go analog of asmjit's variadic _emit: it builds an operand
// slice and calls EmitOpArray.
func (b *BaseEmitter) Emit(instID InstId, self Emitter, ops ...Operand) error {
	return self.EmitOpArray(instID, ops)
}

func (b *BaseEmitter) EmitOpArray(instID InstId, ops []Operand, self Emitter) error {
	if len(ops) > MaxOperands {
		b.state.clear()
		return b.reportError(newError(InvalidOperand, "operand count %d exceeds maximum %d", len(ops), MaxOperands), self)
	}
	// Step 1 of the emit contract: merge nextInstOptions | forcedInstOptions
	// into the effective options for this instruction (spec §4.2).
	inst := BaseInst{ID: instID, Options: b.state.options | b.forcedOptions, Comment: b.state.nextInlineComment}
	if b.state.hasExtraReg {
		inst.ExtraReg = b.state.extraReg
		inst.HasExtraReg = true
	}
	return self.EmitInst(inst, ops)
}

func (b *BaseEmitter) EmitInst(inst BaseInst, ops []Operand, self Emitter) error {
	// The transient state is always cleared here, before backend.doEmit runs,
	// so a panic or early return inside doEmit can never leave it loaded
	// (spec §8 invariant: "transient state is always cleared after emit").
	b.state.clear()

	if b.finalized() {
		return b.reportError(newError(AlreadyFinalized, "emitter already finalized"), self)
	}
	if len(ops) > MaxOperands {
		return b.reportError(newError(InvalidOperand, "operand count %d exceeds maximum %d", len(ops), MaxOperands), self)
	}
	if err := b.backend.doEmit(inst, ops); err != nil {
		return b.reportError(err, self)
	}
	return nil
}

func (b *BaseEmitter) Finalize(self Emitter) error {
	if b.finalized() {
		return b.reportError(newError(AlreadyFinalized, "emitter already finalized"), self)
	}
	if err := b.backend.doFinalize(); err != nil {
		return b.reportError(err, self)
	}
	b.flags |= EmitterFlagFinalized
	return nil
}

var _ fmt.Stringer = EmitterType(0)
