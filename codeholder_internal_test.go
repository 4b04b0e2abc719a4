package rtasm

import (
	"bytes"
	"strings"
	"testing"
)

func TestAlignUp(t *testing.T) {
	cases := []struct {
		n, align int64
		want     int64
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 4, 8},
		{7, 16, 16},
		{3, 1, 3},
	}
	for _, c := range cases {
		if got := alignUp(c.n, int(c.align)); got != c.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", c.n, c.align, got, c.want)
		}
	}
}

func TestFitsSigned(t *testing.T) {
	if !fitsSigned(127, 1) || fitsSigned(128, 1) {
		t.Error("fitsSigned boundary wrong for size 1")
	}
	if !fitsSigned(-128, 1) || fitsSigned(-129, 1) {
		t.Error("fitsSigned negative boundary wrong for size 1")
	}
	if !fitsSigned(2147483647, 4) || fitsSigned(2147483648, 4) {
		t.Error("fitsSigned boundary wrong for size 4")
	}
	if !fitsSigned(1<<40, 8) {
		t.Error("size 8 should always fit")
	}
}

func TestPutLittleEndianSigned(t *testing.T) {
	buf := make([]byte, 4)
	putLittleEndianSigned(buf, -1)
	for _, b := range buf {
		if b != 0xff {
			t.Fatalf("expected all-0xff for -1, got %x", buf)
		}
	}

	buf2 := make([]byte, 2)
	putLittleEndianSigned(buf2, 0x0102)
	if buf2[0] != 0x02 || buf2[1] != 0x01 {
		t.Fatalf("expected little-endian [02 01], got %x", buf2)
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, n := range []int{1, 2, 4, 8, 4096} {
		if !isPowerOfTwo(n) {
			t.Errorf("isPowerOfTwo(%d) = false, want true", n)
		}
	}
	for _, n := range []int{0, 3, 5, 6, -4} {
		if isPowerOfTwo(n) {
			t.Errorf("isPowerOfTwo(%d) = true, want false", n)
		}
	}
}

func TestCodeHolderBindLabelPatchesSameSectionSite(t *testing.T) {
	c := NewCodeHolder(NewEnvironment(ArchX86_64, OSLinux))
	sec := c.SectionByName(".text")
	s, err := c.Section(sec)
	if err != nil {
		t.Fatal(err)
	}

	label, err := c.NewLabelID(LabelAnonymous, "", InvalidLabelID)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate an encoder emitting a call before the label is bound: reserve
	// a 4-byte rel32 field and register it on the link chain.
	siteOffset := s.Buffer().Len()
	s.Buffer().AppendZeros(4)
	siteEnd := s.Buffer().Len()
	if err := c.AddPatchSite(label, PatchSite{
		Section:   sec,
		Offset:    siteOffset,
		EndOffset: siteEnd,
		Size:      4,
		Kind:      PatchRelativeDisplacement,
	}); err != nil {
		t.Fatal(err)
	}

	// Advance past the call and bind the label here.
	s.Buffer().AppendZeros(10)
	targetOffset := s.Buffer().Len()
	if err := c.BindLabel(label, sec, targetOffset); err != nil {
		t.Fatal(err)
	}

	want := int32(targetOffset - siteEnd)
	got := int32(uint32(s.Bytes()[siteOffset]) | uint32(s.Bytes()[siteOffset+1])<<8 |
		uint32(s.Bytes()[siteOffset+2])<<16 | uint32(s.Bytes()[siteOffset+3])<<24)
	if got != want {
		t.Errorf("patched displacement = %d, want %d", got, want)
	}

	if err := c.BindLabel(label, sec, targetOffset); !errorKindIs(err, AlreadyBound) {
		t.Errorf("second bind: got %v, want AlreadyBound", err)
	}
}

func TestLabelByNameLogsDidYouMeanOnMiss(t *testing.T) {
	c := NewCodeHolder(NewEnvironment(ArchX86_64, OSLinux))
	var buf bytes.Buffer
	c.SetLogger(NewWriterLogger(&buf))

	if _, err := c.NewLabelID(LabelGlobal, "loop_start", InvalidLabelID); err != nil {
		t.Fatal(err)
	}

	if id := c.LabelByName("loop_strat", InvalidLabelID); id != InvalidLabelID {
		t.Fatalf("expected InvalidLabelID for a near-miss name, got %d", id)
	}
	if !strings.Contains(buf.String(), "loop_start") {
		t.Errorf("expected a did-you-mean suggestion naming %q, got log %q", "loop_start", buf.String())
	}

	buf.Reset()
	if id := c.LabelByName("completely_unrelated_xyz", InvalidLabelID); id != InvalidLabelID {
		t.Fatalf("expected InvalidLabelID, got %d", id)
	}
	if buf.String() != "" {
		t.Errorf("expected no suggestion for a far-off name, got log %q", buf.String())
	}
}

func errorKindIs(err error, kind ErrorKind) bool {
	k, ok := AsKind(err)
	return ok && k == kind
}
