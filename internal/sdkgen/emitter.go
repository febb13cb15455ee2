package sdkgen

import (
	"fmt"
	"strings"
)

// Emitter builds TypeScript source with two-space indentation.
type Emitter struct {
	buf    strings.Builder
	indent int
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Line writes a single line of code at the current indentation level.
func (e *Emitter) Line(format string, args ...any) {
	line := format
	if len(args) > 0 {
		line = fmt.Sprintf(format, args...)
	}
	if line == "" {
		e.buf.WriteByte('\n')
		return
	}
	e.writeIndent()
	e.buf.WriteString(line)
	e.buf.WriteByte('\n')
}

// Blank writes an empty line.
func (e *Emitter) Blank() {
	e.buf.WriteByte('\n')
}

// Block writes the line followed by " {" and indents.
func (e *Emitter) Block(format string, args ...any) {
	line := format
	if len(args) > 0 {
		line = fmt.Sprintf(format, args...)
	}
	e.writeIndent()
	e.buf.WriteString(line)
	e.buf.WriteString(" {\n")
	e.indent++
}

// EndBlock dedents and writes "}".
func (e *Emitter) EndBlock() {
	e.EndBlockSuffix("")
}

// EndBlockSuffix dedents and writes "}" followed by suffix (e.g. "};").
func (e *Emitter) EndBlockSuffix(suffix string) {
	if e.indent > 0 {
		e.indent--
	}
	e.writeIndent()
	e.buf.WriteString("}")
	e.buf.WriteString(suffix)
	e.buf.WriteByte('\n')
}

// Indent increases the indentation level.
func (e *Emitter) Indent() {
	e.indent++
}

// Dedent decreases the indentation level.
func (e *Emitter) Dedent() {
	if e.indent > 0 {
		e.indent--
	}
}

// String returns the accumulated source without its final newline.
func (e *Emitter) String() string {
	return strings.TrimSuffix(e.buf.String(), "\n")
}

func (e *Emitter) writeIndent() {
	for i := 0; i < e.indent; i++ {
		e.buf.WriteString("  ")
	}
}
