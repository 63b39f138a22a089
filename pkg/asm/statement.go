// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/consensys/go-solace/pkg/util/source"
)

// OperandKind identifies the syntactic form of an operand.
type OperandKind uint8

const (
	// NAME is an identifier operand, e.g. "$x".
	NAME OperandKind = iota
	// TYPENAME is a type operand, e.g. "%Adder".
	TYPENAME
	// NUMBER is an immediate operand, e.g. "#-1".
	NUMBER
	// TEXT is a string operand, e.g. +"hello".
	TEXT
	// PORTREF is a leaf port operand, e.g. "$add@in1".
	PORTREF
)

func (k OperandKind) String() string {
	switch k {
	case NAME:
		return "identifier"
	case TYPENAME:
		return "type"
	case NUMBER:
		return "immediate"
	case TEXT:
		return "string"
	case PORTREF:
		return "port"
	}
	//
	return "unknown"
}

// Operand is a single operand of a statement.  Which fields are meaningful
// depends on the kind: Name holds the identifier, type name, string contents
// or leaf name; Port holds the port name of a port reference; Value holds an
// immediate.
type Operand struct {
	Kind  OperandKind
	Name  string
	Port  string
	Value int32
	Span  source.Span
}

// Statement is one instruction as written in assembly, before it has been
// interpreted against an instruction set.
type Statement struct {
	// Mnemonic as written, without the leading '.'
	Mnemonic string
	// Operands in order of appearance.
	Operands []Operand
	// Init indicates a trailing '?'.
	Init bool
	// Span of the entire statement.
	Span source.Span
	// Source file from which this statement was parsed.
	srcfile *source.File
}

// Text returns the text of this statement as it was written.
func (p *Statement) Text() string {
	if p.srcfile == nil {
		return "." + p.Mnemonic
	}
	//
	return p.srcfile.Text(p.Span)
}

// Reader returns a reader over the operands of this statement.
func (p *Statement) Reader() *Reader {
	return &Reader{p, 0, nil}
}

// Reader consumes the operands of a statement one at a time, checking each has
// the expected form.  The first problem encountered is retained and reported by
// Close, so that instruction parsers can read all their operands before
// checking for errors.
type Reader struct {
	stmt  *Statement
	index int
	err   error
}

// Name reads an identifier operand.
func (p *Reader) Name() string {
	if operand, ok := p.next(NAME); ok {
		return operand.Name
	}
	//
	return ""
}

// Type reads a type operand.
func (p *Reader) Type() string {
	if operand, ok := p.next(TYPENAME); ok {
		return operand.Name
	}
	//
	return ""
}

// Immediate reads an immediate operand.
func (p *Reader) Immediate() int32 {
	if operand, ok := p.next(NUMBER); ok {
		return operand.Value
	}
	//
	return 0
}

// Text reads a string operand.
func (p *Reader) Text() string {
	if operand, ok := p.next(TEXT); ok {
		return operand.Name
	}
	//
	return ""
}

// Port reads a leaf port operand, returning the leaf and port names.
func (p *Reader) Port() (string, string) {
	if operand, ok := p.next(PORTREF); ok {
		return operand.Name, operand.Port
	}
	//
	return "", ""
}

// Peek returns the kind of the next operand, or false if there are none left.
func (p *Reader) Peek() (OperandKind, bool) {
	if p.index >= len(p.stmt.Operands) {
		return 0, false
	}
	//
	return p.stmt.Operands[p.index].Kind, true
}

// Close checks that all operands have been consumed and returns the first
// error encountered (if any).
func (p *Reader) Close() error {
	if p.err == nil && p.index < len(p.stmt.Operands) {
		p.fail("unexpected %s operand", p.stmt.Operands[p.index].Kind)
	}
	//
	return p.err
}

func (p *Reader) next(kind OperandKind) (Operand, bool) {
	if p.err != nil {
		return Operand{}, false
	} else if p.index >= len(p.stmt.Operands) {
		p.fail("missing %s operand", kind)
		return Operand{}, false
	}
	//
	operand := p.stmt.Operands[p.index]
	//
	if operand.Kind != kind {
		p.fail("expected %s operand, found %s", kind, operand.Kind)
		return Operand{}, false
	}
	//
	p.index++
	//
	return operand, true
}

func (p *Reader) fail(msg string, args ...any) {
	var (
		reason = fmt.Sprintf(msg, args...)
		err    = illegalf(p.stmt.Text(), "%s", reason)
	)
	//
	if p.stmt.srcfile != nil {
		err.Location = p.stmt.srcfile.SyntaxError(p.stmt.Span, reason)
	}
	//
	p.err = err
}

// ============================================================================
// Rendering
// ============================================================================

// Identifier renders an identifier operand.
func Identifier(name string) string {
	return "$" + name
}

// Type renders a type operand.
func Type(name string) string {
	return "%" + name
}

// Immediate renders an immediate operand.
func Immediate(value int32) string {
	return "#" + strconv.FormatInt(int64(value), 10)
}

// String renders a string operand.
func String(text string) string {
	return "+" + strconv.Quote(text)
}

// PortRef renders a leaf port operand.
func PortRef(leaf string, port string) string {
	return "$" + leaf + "@" + port
}

// Render produces the canonical text of an instruction.
func Render(insn Instruction) string {
	var builder strings.Builder
	//
	builder.WriteString(".")
	builder.WriteString(insn.Mnemonic())
	//
	for _, operand := range insn.Operands() {
		builder.WriteString(" ")
		builder.WriteString(operand)
	}
	//
	if insn.IsInit() {
		builder.WriteString(" ?")
	}
	//
	return builder.String()
}
