package rtasm

import "fmt"

// nodeKind discriminates a Builder node's active fields, the tagged-union
// substitute for asmjit's BaseNode subclass hierarchy (spec §9 design note:
// "NodeList indexed by dense ids instead of an intrusive pointer list",
// grounded on the node-list shape used by wazero's internal IR (see
// other_examples/Taction-wazero__impl.go's NodeImpl) generalized from a
// Wasm-bytecode IR to an assembler IR).
type nodeKind int

const (
	nodeInst nodeKind = iota
	nodeLabelBind
	nodeSwitchSection
	nodeAlign
	nodeEmbed
	nodeEmbedDataArray
	nodeEmbedConstPool
	nodeEmbedLabel
	nodeEmbedLabelDelta
	nodeComment
)

// node is one entry in a Builder's or Compiler's instruction stream. Only
// the fields relevant to kind are populated; this mirrors asmjit's BaseNode
// union of subclasses as a single Go struct instead, trading a few wasted
// words per node for the simplicity of a flat, append-only slice (spec §9).
type node struct {
	kind nodeKind

	inst BaseInst
	ops  []Operand

	label LabelID
	base  LabelID

	section SectionID

	mode      AlignMode
	alignment int

	data        []byte
	typ         TypeID
	repeatCount int
	pool        ConstPool
	size        int

	text string
}

// Builder is the intermediate-representation emitter variant (component
// C8): every call appends a node instead of encoding immediately, and
// Finalize replays the accumulated node list into an internal Assembler
// (spec §4.4, "same section/label/emit surface as Assembler, deferred").
type Builder struct {
	BaseEmitter

	funcs Funcs
	diag  DiagnosticOptions
	enc   EncodingOptions

	nodes []node
}

// NewBuilder constructs a Builder bound to holder, attaching itself.
func NewBuilder(holder *CodeHolder, funcs Funcs) (*Builder, error) {
	b := &Builder{funcs: funcs}
	initBaseEmitter(&b.BaseEmitter, EmitterBuilder, holder, b)
	cfg := holder.ConfigDefaults()
	b.diag = cfg.diagnosticOptions()
	b.enc = cfg.encodingOptions()
	if err := holder.Attach(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builder) SetDiagnosticOptions(d DiagnosticOptions) { b.diag = d }
func (b *Builder) SetEncodingOptions(e EncodingOptions)     { b.enc = e }

// NodeCount returns the number of nodes recorded so far, useful for tests
// asserting the node list shape (spec §8 scenario (c)).
func (b *Builder) NodeCount() int { return len(b.nodes) }

func (b *Builder) SwitchSection(id SectionID) error { return b.BaseEmitter.SwitchSection(id, b) }
func (b *Builder) Bind(label LabelID) error         { return b.BaseEmitter.Bind(label, b) }
func (b *Builder) Align(mode AlignMode, alignment int) error {
	return b.BaseEmitter.Align(mode, alignment, b)
}
func (b *Builder) Embed(data []byte) error { return b.BaseEmitter.Embed(data, b) }
func (b *Builder) EmbedDataArray(typ TypeID, data []byte, repeatCount int) error {
	return b.BaseEmitter.EmbedDataArray(typ, data, repeatCount, b)
}
func (b *Builder) EmbedConstPool(label LabelID, pool ConstPool) error {
	return b.BaseEmitter.EmbedConstPool(label, pool, b)
}
func (b *Builder) EmbedLabel(label LabelID, size int) error {
	return b.BaseEmitter.EmbedLabel(label, size, b)
}
func (b *Builder) EmbedLabelDelta(label, base LabelID, size int) error {
	return b.BaseEmitter.EmbedLabelDelta(label, base, size, b)
}
func (b *Builder) Emit(instID InstId, ops ...Operand) error {
	return b.BaseEmitter.Emit(instID, b, ops...)
}
func (b *Builder) EmitOpArray(instID InstId, ops []Operand) error {
	return b.BaseEmitter.EmitOpArray(instID, ops, b)
}
func (b *Builder) EmitInst(inst BaseInst, ops []Operand) error {
	return b.BaseEmitter.EmitInst(inst, ops, b)
}
func (b *Builder) Finalize() error { return b.BaseEmitter.Finalize(b) }

func (b *Builder) doEmit(inst BaseInst, ops []Operand) error {
	if b.diag&ValidateIntermediate != 0 && b.funcs.Validate != nil {
		if err := b.funcs.Validate(inst, ops, ValidationFlagEncoder); err != nil {
			return err
		}
	}
	opsCopy := append([]Operand(nil), ops...)
	b.nodes = append(b.nodes, node{kind: nodeInst, inst: inst, ops: opsCopy})
	return nil
}

func (b *Builder) doSwitchSection(id SectionID) error {
	b.nodes = append(b.nodes, node{kind: nodeSwitchSection, section: id})
	return nil
}

func (b *Builder) doBind(label LabelID) error {
	if !b.holder.IsLabelValid(label) {
		return newError(InvalidLabel, "label id %d is not valid", label)
	}
	b.nodes = append(b.nodes, node{kind: nodeLabelBind, label: label})
	return nil
}

func (b *Builder) doAlign(mode AlignMode, alignment int) error {
	b.nodes = append(b.nodes, node{kind: nodeAlign, mode: mode, alignment: alignment})
	return nil
}

func (b *Builder) doEmbed(data []byte) error {
	b.nodes = append(b.nodes, node{kind: nodeEmbed, data: append([]byte(nil), data...)})
	return nil
}

func (b *Builder) doEmbedDataArray(typ TypeID, data []byte, repeatCount int) error {
	if typ.Size() == 0 {
		return newError(InvalidArgument, "unknown element type")
	}
	b.nodes = append(b.nodes, node{kind: nodeEmbedDataArray, typ: typ, data: append([]byte(nil), data...), repeatCount: repeatCount})
	return nil
}

func (b *Builder) doEmbedConstPool(label LabelID, pool ConstPool) error {
	if !b.holder.IsLabelValid(label) {
		return newError(InvalidLabel, "label id %d is not valid", label)
	}
	b.nodes = append(b.nodes, node{kind: nodeEmbedConstPool, label: label, pool: pool})
	return nil
}

func (b *Builder) doEmbedLabel(label LabelID, size int) error {
	if !b.holder.IsLabelValid(label) {
		return newError(InvalidLabel, "label id %d is not valid", label)
	}
	b.nodes = append(b.nodes, node{kind: nodeEmbedLabel, label: label, size: size})
	return nil
}

func (b *Builder) doEmbedLabelDelta(label, base LabelID, size int) error {
	if !b.holder.IsLabelValid(label) || !b.holder.IsLabelValid(base) {
		return newError(InvalidLabel, "label or base id is not valid")
	}
	b.nodes = append(b.nodes, node{kind: nodeEmbedLabelDelta, label: label, base: base, size: size})
	return nil
}

func (b *Builder) doComment(text string) {
	b.nodes = append(b.nodes, node{kind: nodeComment, text: text})
}

// doFinalize replays every recorded node, in order, into a fresh Assembler
// attached to the same CodeHolder, then finalizes that Assembler — this is
// what gives Builder/Assembler byte-identical output for the same call
// sequence (spec §8 invariant 5).
func (b *Builder) doFinalize() error {
	asm, err := NewAssembler(b.holder, b.funcs)
	if err != nil {
		return err
	}
	defer b.holder.Detach(asm)

	asm.SetDiagnosticOptions(b.diag)
	asm.SetEncodingOptions(b.enc)
	asm.SetLogger(b.effectiveLogger())
	asm.SetErrorHandler(b.effectiveErrorHandler())

	if err := replayNodes(asm, b.nodes); err != nil {
		return err
	}
	return asm.Finalize()
}

// replayNodes drives any Emitter (an Assembler, in practice) through a
// recorded node list; shared between Builder.doFinalize and
// Compiler.doFinalize once register allocation has rewritten virtual
// registers to physical ones.
func replayNodes(e Emitter, nodes []node) error {
	for i, n := range nodes {
		var err error
		switch n.kind {
		case nodeInst:
			err = e.EmitInst(n.inst, n.ops)
		case nodeSwitchSection:
			err = e.SwitchSection(n.section)
		case nodeLabelBind:
			err = e.Bind(n.label)
		case nodeAlign:
			err = e.Align(n.mode, n.alignment)
		case nodeEmbed:
			err = e.Embed(n.data)
		case nodeEmbedDataArray:
			err = e.EmbedDataArray(n.typ, n.data, n.repeatCount)
		case nodeEmbedConstPool:
			err = e.EmbedConstPool(n.label, n.pool)
		case nodeEmbedLabel:
			err = e.EmbedLabel(n.label, n.size)
		case nodeEmbedLabelDelta:
			err = e.EmbedLabelDelta(n.label, n.base, n.size)
		case nodeComment:
			e.Comment(n.text)
		default:
			err = newError(InvalidState, "unknown node kind %d", n.kind)
		}
		if err != nil {
			return fmt.Errorf("replaying node %d: %w", i, err)
		}
	}
	return nil
}
