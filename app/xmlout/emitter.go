// Package xmlout writes small indented XML documents.
package xmlout

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	Header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	indent = "  "
)

type frame struct {
	name        string
	hasChildren bool
}

// Emitter streams an XML document to an io.Writer. It is single-use and not
// safe for concurrent use. The first write error is sticky and returned by
// every later call as well as by Close.
type Emitter struct {
	w       *bufio.Writer
	stack   []frame
	started bool
	err     error
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: bufio.NewWriter(w)}
}

func (e *Emitter) OpenTag(name string) error {
	e.start()
	if n := len(e.stack); n > 0 && !e.stack[n-1].hasChildren {
		e.stack[n-1].hasChildren = true
		e.writeString("\n")
	}
	e.writeIndent(len(e.stack))
	e.writeString("<" + name + ">")
	e.stack = append(e.stack, frame{name: name})
	return e.err
}

// CloseTag closes the innermost open element. Closing anything else is a
// programming error and panics.
func (e *Emitter) CloseTag(name string) error {
	n := len(e.stack)
	if n == 0 || e.stack[n-1].name != name {
		panic(fmt.Sprintf("xmlout: CloseTag(%q) does not match open element %q", name, e.current()))
	}
	top := e.stack[n-1]
	e.stack = e.stack[:n-1]
	if top.hasChildren {
		e.writeIndent(len(e.stack))
	}
	e.writeString("</" + name + ">\n")
	return e.err
}

func (e *Emitter) WriteText(s string) error {
	e.start()
	if e.err == nil {
		e.err = xml.EscapeText(e.w, []byte(s))
	}
	return e.err
}

// WriteCData writes s verbatim inside a CDATA section. An embedded "]]>" is
// split across two sections.
func (e *Emitter) WriteCData(s string) error {
	e.start()
	e.writeString("<![CDATA[")
	e.writeString(strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>"))
	e.writeString("]]>")
	return e.err
}

// Tag writes a complete element: open, content, close.
func (e *Emitter) Tag(name string, content Content) error {
	if err := e.OpenTag(name); err != nil {
		return err
	}
	if content != nil {
		if err := content.writeTo(e); err != nil {
			return err
		}
	}
	return e.CloseTag(name)
}

// Close flushes buffered output. All opened elements must have been closed.
func (e *Emitter) Close() error {
	if len(e.stack) > 0 {
		panic(fmt.Sprintf("xmlout: Close with open element %q", e.current()))
	}
	e.start()
	if e.err == nil {
		e.err = e.w.Flush()
	}
	return e.err
}

func (e *Emitter) start() {
	if !e.started {
		e.started = true
		e.writeString(Header)
	}
}

func (e *Emitter) current() string {
	if len(e.stack) == 0 {
		return ""
	}
	return e.stack[len(e.stack)-1].name
}

func (e *Emitter) writeIndent(depth int) {
	e.writeString(strings.Repeat(indent, depth))
}

func (e *Emitter) writeString(s string) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s)
}

// Render writes root as a complete document and returns the bytes.
func Render(root Element) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams root as a complete document to w.
func Write(w io.Writer, root Element) error {
	e := NewEmitter(w)
	if err := e.Tag(root.Name, root.Content); err != nil {
		return err
	}
	return e.Close()
}
