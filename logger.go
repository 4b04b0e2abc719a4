package rtasm

import (
	"fmt"
	"io"
	"os"
)

// Logger is the line-oriented sink BaseEmitter routes disassembly-style text
// and inline comments to (spec §6, "Logger interface (produced to)"). A nil
// Logger is always valid and simply means "no output".
type Logger interface {
	Log(line string)
}

// WriterLogger adapts any io.Writer (os.Stderr, a bytes.Buffer in tests, a
// log file) into a Logger, the way the teacher's verbose trace wrote
// directly to os.Stderr in mov.go's BufferWrapper.Write.
type WriterLogger struct {
	w io.Writer
}

// NewWriterLogger wraps w as a Logger.
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{w: w}
}

// NewStderrLogger returns a Logger writing to os.Stderr, the default sink a
// CLI consumer of this package would reach for.
func NewStderrLogger() *WriterLogger {
	return NewWriterLogger(os.Stderr)
}

func (l *WriterLogger) Log(line string) {
	fmt.Fprintln(l.w, line)
}
