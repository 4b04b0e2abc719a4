package rtasm_test

import (
	"testing"

	"github.com/xyproto/rtasm"
	"github.com/xyproto/rtasm/internal/x86"
)

func TestBuilderNodeCountTracksRecordedCalls(t *testing.T) {
	holder := newX86Holder()
	b, err := rtasm.NewBuilder(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}

	if b.NodeCount() != 0 {
		t.Fatalf("fresh builder should have 0 nodes, got %d", b.NodeCount())
	}

	if err := b.Emit(x86.MOV, rtasm.RegOp(x86.RAX), rtasm.ImmOp(1)); err != nil {
		t.Fatal(err)
	}
	l, err := b.NewLabel()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Bind(l); err != nil {
		t.Fatal(err)
	}
	b.Comment("checkpoint")

	if b.NodeCount() != 3 {
		t.Fatalf("NodeCount() = %d, want 3 (emit, bind, comment)", b.NodeCount())
	}
}

// TestBuilderValidateIntermediateCatchesBadArityEarly covers the distinction
// between ValidateIntermediate (checked when the node is recorded) and
// ValidateAssembler (checked again at replay time): with Intermediate
// enabled, a malformed call fails immediately rather than only surfacing
// once Finalize replays into the internal Assembler.
func TestBuilderValidateIntermediateCatchesBadArityEarly(t *testing.T) {
	holder := newX86Holder()
	b, err := rtasm.NewBuilder(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}
	b.SetDiagnosticOptions(rtasm.ValidateIntermediate)

	err = b.Emit(x86.MOV, rtasm.RegOp(x86.RAX))
	if kind, ok := rtasm.AsKind(err); !ok || kind != rtasm.InvalidOperand {
		t.Fatalf("got %v, want InvalidOperand", err)
	}
	if b.NodeCount() != 0 {
		t.Errorf("a rejected emit must not be recorded as a node, got NodeCount() = %d", b.NodeCount())
	}
}

func TestBuilderEmbedLabelDeltaRecordsRelocExpr(t *testing.T) {
	holder := newX86Holder()
	b, err := rtasm.NewBuilder(holder, x86.Funcs())
	if err != nil {
		t.Fatal(err)
	}
	l1, _ := b.NewLabel()
	l2, _ := b.NewLabel()
	if err := b.Bind(l1); err != nil {
		t.Fatal(err)
	}
	if err := b.EmbedLabelDelta(l1, l2, 4); err != nil {
		t.Fatal(err)
	}
	if err := b.Bind(l2); err != nil {
		t.Fatal(err)
	}
	if err := b.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(holder.Relocations()) != 1 {
		t.Fatalf("expected one RelocExpr relocation left unresolved, got %d", len(holder.Relocations()))
	}
	if holder.Relocations()[0].Kind != rtasm.RelocExpr {
		t.Errorf("got kind %v, want RelocExpr", holder.Relocations()[0].Kind)
	}
}
