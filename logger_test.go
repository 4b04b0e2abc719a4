package rtasm

import (
	"bytes"
	"testing"
)

func TestWriterLoggerWritesLineWithNewline(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)
	l.Log("mov rax, rbx")
	l.Log("ret")
	if buf.String() != "mov rax, rbx\nret\n" {
		t.Errorf("got %q", buf.String())
	}
}
