package rtasm

// Assembler is the direct-to-bytes emitter variant (component C7): every
// Emit call encodes immediately into the current section's CodeBuffer, the
// same "no intermediate representation" behavior as asmjit's x86::Assembler.
// It is also the replay target Builder and Compiler finalize into.
type Assembler struct {
	BaseEmitter

	funcs Funcs
	diag  DiagnosticOptions
	enc   EncodingOptions
}

// NewAssembler constructs an Assembler bound to holder, using funcs for
// architecture-specific validate/encode/format/padding. It attaches itself
// to holder.
func NewAssembler(holder *CodeHolder, funcs Funcs) (*Assembler, error) {
	a := &Assembler{funcs: funcs}
	initBaseEmitter(&a.BaseEmitter, EmitterAssembler, holder, a)
	cfg := holder.ConfigDefaults()
	a.diag = cfg.diagnosticOptions()
	a.enc = cfg.encodingOptions()
	if err := holder.Attach(a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetDiagnosticOptions/SetEncodingOptions configure validation strictness
// and encoder preferences (spec §6).
func (a *Assembler) SetDiagnosticOptions(d DiagnosticOptions) { a.diag = d }
func (a *Assembler) SetEncodingOptions(e EncodingOptions)     { a.enc = e }
func (a *Assembler) DiagnosticOptions() DiagnosticOptions     { return a.diag }
func (a *Assembler) EncodingOptions() EncodingOptions         { return a.enc }

// The methods below are thin forwarders to BaseEmitter's self-dispatching
// helpers — Go's substitute for the CRTP-like self-reference asmjit's
// BaseEmitter relies on in C++ (spec §9 design note). Every variant
// (Assembler, Builder, Compiler) repeats this same small forwarding set.

func (a *Assembler) SwitchSection(id SectionID) error { return a.BaseEmitter.SwitchSection(id, a) }
func (a *Assembler) Bind(label LabelID) error         { return a.BaseEmitter.Bind(label, a) }
func (a *Assembler) Align(mode AlignMode, alignment int) error {
	return a.BaseEmitter.Align(mode, alignment, a)
}
func (a *Assembler) Embed(data []byte) error { return a.BaseEmitter.Embed(data, a) }
func (a *Assembler) EmbedDataArray(typ TypeID, data []byte, repeatCount int) error {
	return a.BaseEmitter.EmbedDataArray(typ, data, repeatCount, a)
}
func (a *Assembler) EmbedConstPool(label LabelID, pool ConstPool) error {
	return a.BaseEmitter.EmbedConstPool(label, pool, a)
}
func (a *Assembler) EmbedLabel(label LabelID, size int) error {
	return a.BaseEmitter.EmbedLabel(label, size, a)
}
func (a *Assembler) EmbedLabelDelta(label, base LabelID, size int) error {
	return a.BaseEmitter.EmbedLabelDelta(label, base, size, a)
}
func (a *Assembler) Emit(instID InstId, ops ...Operand) error {
	return a.BaseEmitter.Emit(instID, a, ops...)
}
func (a *Assembler) EmitOpArray(instID InstId, ops []Operand) error {
	return a.BaseEmitter.EmitOpArray(instID, ops, a)
}
func (a *Assembler) EmitInst(inst BaseInst, ops []Operand) error {
	return a.BaseEmitter.EmitInst(inst, ops, a)
}
func (a *Assembler) Finalize() error { return a.BaseEmitter.Finalize(a) }

// currentSection resolves the section the backend hooks below operate on.
func (a *Assembler) currentSection() (*Section, error) {
	return a.holder.Section(a.section)
}

func (a *Assembler) doEmit(inst BaseInst, ops []Operand) error {
	if a.diag&ValidateAssembler != 0 && a.funcs.Validate != nil {
		if err := a.funcs.Validate(inst, ops, ValidationFlagEncoder); err != nil {
			return err
		}
	}
	sec, err := a.currentSection()
	if err != nil {
		return err
	}
	before := sec.Buffer().Len()
	if a.funcs.Encode == nil {
		return newError(FeatureNotEnabled, "no encoder configured for this architecture")
	}
	if err := a.funcs.Encode(a.holder, a.section, inst, ops); err != nil {
		sec.Buffer().Truncate(before)
		return err
	}
	if logger := a.effectiveLogger(); logger != nil && a.funcs.FormatInstruction != nil {
		if line, ferr := a.funcs.FormatInstruction(inst, ops); ferr == nil {
			if inst.Comment != "" {
				line += "  ; " + inst.Comment
			}
			logger.Log(line)
		}
	}
	return nil
}

func (a *Assembler) doSwitchSection(id SectionID) error { return nil }

func (a *Assembler) doBind(label LabelID) error {
	sec, err := a.currentSection()
	if err != nil {
		return err
	}
	return a.holder.BindLabel(label, a.section, sec.Buffer().Len())
}

func (a *Assembler) doAlign(mode AlignMode, alignment int) error {
	sec, err := a.currentSection()
	if err != nil {
		return err
	}
	cur := sec.Buffer().Len()
	target := int(alignUp(int64(cur), alignment))
	pad := target - cur
	if pad <= 0 {
		return nil
	}
	if a.funcs.EmitPadding != nil {
		return a.funcs.EmitPadding(sec.Buffer(), mode, pad, a.enc&OptimizedAlign != 0)
	}
	sec.Buffer().AppendZeros(pad)
	return nil
}

func (a *Assembler) doEmbed(data []byte) error {
	sec, err := a.currentSection()
	if err != nil {
		return err
	}
	sec.Buffer().AppendBytes(data)
	return nil
}

func (a *Assembler) doEmbedDataArray(typ TypeID, data []byte, repeatCount int) error {
	if typ.Size() == 0 {
		return newError(InvalidArgument, "unknown element type")
	}
	sec, err := a.currentSection()
	if err != nil {
		return err
	}
	for i := 0; i < repeatCount; i++ {
		sec.Buffer().AppendBytes(data)
	}
	return nil
}

func (a *Assembler) doEmbedConstPool(label LabelID, pool ConstPool) error {
	if err := a.doAlign(AlignData, pool.Alignment); err != nil {
		return err
	}
	sec, err := a.currentSection()
	if err != nil {
		return err
	}
	if err := a.holder.BindLabel(label, a.section, sec.Buffer().Len()); err != nil {
		return err
	}
	sec.Buffer().AppendBytes(pool.Data)
	return nil
}

// doEmbedLabel always records a RelocationEntry regardless of whether label
// is already bound — unlike a branch operand's link-chain patch, an embedded
// label address is consumed by an external relocator, not by this package's
// own bind-time patcher (spec §8 scenario (e)).
func (a *Assembler) doEmbedLabel(label LabelID, size int) error {
	if !a.holder.IsLabelValid(label) {
		return newError(InvalidLabel, "label id %d is not valid", label)
	}
	sec, err := a.currentSection()
	if err != nil {
		return err
	}
	offset := sec.Buffer().Len()
	sec.Buffer().AppendZeros(size)
	a.holder.AddRelocation(RelocationEntry{
		Kind:          RelocAbsolute,
		SourceSection: a.section,
		SourceOffset:  offset,
		TargetKind:    TargetLabel,
		TargetID:      int(label),
		Size:          size,
	})
	return nil
}

// doEmbedLabelDelta records the difference between two labels as an
// RelocExpr entry; it is left to an external relocator to resolve, since the
// difference of two as-yet-unbound labels cannot, in general, be computed
// from this section's offset alone.
func (a *Assembler) doEmbedLabelDelta(label, base LabelID, size int) error {
	if !a.holder.IsLabelValid(label) || !a.holder.IsLabelValid(base) {
		return newError(InvalidLabel, "label or base id is not valid")
	}
	sec, err := a.currentSection()
	if err != nil {
		return err
	}
	offset := sec.Buffer().Len()
	sec.Buffer().AppendZeros(size)
	a.holder.AddRelocation(RelocationEntry{
		Kind:          RelocExpr,
		SourceSection: a.section,
		SourceOffset:  offset,
		TargetKind:    TargetLabel,
		TargetID:      int(label),
		Addend:        int64(base),
		Size:          size,
	})
	return nil
}

func (a *Assembler) doComment(text string) {}

// doFinalize settles the CodeHolder's section layout and resolves every
// cross-section label relocation that is now computable inline — the
// Assembler is the variant Builder and Compiler eventually replay into, so
// this is where the whole pipeline's output actually becomes final bytes.
func (a *Assembler) doFinalize() error {
	if _, err := a.holder.Flatten(); err != nil {
		return err
	}
	return a.holder.ResolveCrossSection()
}
