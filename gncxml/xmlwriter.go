package gncxml

import (
	"bufio"
	"encoding/xml"
	"io"
	"strings"
)

// xmlWriter emits prefixed elements in the dialect's conventional form.
// encoding/xml's encoder rewrites prefixed names into namespace-expanded
// ones, which the desktop application's parser lineage does not accept, so
// the few primitives needed here are written out by hand. Errors are sticky;
// check them once via flush.
type xmlWriter struct {
	bw   *bufio.Writer
	open []string
	err  error
}

func newXMLWriter(w io.Writer) *xmlWriter {
	return &xmlWriter{bw: bufio.NewWriter(w)}
}

func (x *xmlWriter) raw(s string) {
	if x.err != nil {
		return
	}
	_, x.err = x.bw.WriteString(s)
}

func (x *xmlWriter) escaped(s string) {
	if x.err != nil {
		return
	}
	x.err = xml.EscapeText(x.bw, []byte(s))
}

func (x *xmlWriter) indent() {
	x.raw(strings.Repeat("  ", len(x.open)))
}

func (x *xmlWriter) declaration() {
	x.raw(`<?xml version="1.0" encoding="utf-8" standalone="yes"?>` + "\n")
}

func (x *xmlWriter) attrs(pairs []string) {
	for i := 0; i+1 < len(pairs); i += 2 {
		x.raw(" " + pairs[i] + `="`)
		x.escaped(pairs[i+1])
		x.raw(`"`)
	}
}

// start opens an element; attrPairs alternate name, value.
func (x *xmlWriter) start(name string, attrPairs ...string) {
	x.indent()
	x.raw("<" + name)
	x.attrs(attrPairs)
	x.raw(">\n")
	x.open = append(x.open, name)
}

func (x *xmlWriter) end() {
	name := x.open[len(x.open)-1]
	x.open = x.open[:len(x.open)-1]
	x.indent()
	x.raw("</" + name + ">\n")
}

// leaf writes a complete text element on one line.
func (x *xmlWriter) leaf(name, text string, attrPairs ...string) {
	x.indent()
	x.raw("<" + name)
	x.attrs(attrPairs)
	x.raw(">")
	x.escaped(text)
	x.raw("</" + name + ">\n")
}

func (x *xmlWriter) flush() error {
	if x.err != nil {
		return x.err
	}
	return x.bw.Flush()
}
