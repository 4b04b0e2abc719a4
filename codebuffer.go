package rtasm

// CodeBuffer is a growable byte vector backing one Section (component C1).
// It mirrors the teacher's BufferWrapper (main.go) in spirit — append bytes,
// track a position, allow patching already-written bytes — but stores plain
// []byte instead of wrapping a bytes.Buffer, since the patch primitives need
// random-access overwrite, which bytes.Buffer does not support.
type CodeBuffer struct {
	data []byte
}

// Len returns the number of bytes currently in the buffer.
func (b *CodeBuffer) Len() int {
	return len(b.data)
}

// Bytes returns the buffer's contents. The slice is owned by the CodeBuffer;
// callers must not retain it across further mutation.
func (b *CodeBuffer) Bytes() []byte {
	return b.data
}

// AppendByte appends a single byte, growing the backing array by doubling
// capacity when needed (resource policy, spec §5).
func (b *CodeBuffer) AppendByte(v byte) {
	b.data = append(b.data, v)
}

// AppendBytes appends a slice of bytes.
func (b *CodeBuffer) AppendBytes(v []byte) {
	b.data = append(b.data, v...)
}

// AppendZeros appends n zero bytes, used for reserving displacement slots at
// unbound label sites and for AlignMode.Zero.
func (b *CodeBuffer) AppendZeros(n int) {
	for i := 0; i < n; i++ {
		b.data = append(b.data, 0)
	}
}

// Truncate shrinks the buffer back to length n. Used to restore the section
// buffer length when an encoder fails partway through emitting an
// instruction (spec §7: "No partial buffer writes are retained on encoding
// failure").
func (b *CodeBuffer) Truncate(n int) {
	if n < 0 || n > len(b.data) {
		return
	}
	b.data = b.data[:n]
}

// PatchByte overwrites a single byte at offset, used by the label-bind patch
// algorithm and by immediate/displacement fixups.
func (b *CodeBuffer) PatchByte(offset int, v byte) bool {
	if offset < 0 || offset >= len(b.data) {
		return false
	}
	b.data[offset] = v
	return true
}

// PatchBytes overwrites len(v) bytes starting at offset.
func (b *CodeBuffer) PatchBytes(offset int, v []byte) bool {
	if offset < 0 || offset+len(v) > len(b.data) {
		return false
	}
	copy(b.data[offset:], v)
	return true
}
