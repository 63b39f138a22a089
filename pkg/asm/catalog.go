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
	"strings"

	"github.com/consensys/go-solace/pkg/util/source"
)

// Instruction is implemented by the instructions of every instruction set.
// Rendering is defined in terms of these methods, which guarantees the
// canonical text of an instruction is always accepted by its parser.
type Instruction interface {
	// Mnemonic returns the mnemonic of this instruction, without the leading
	// '.'.
	Mnemonic() string
	// Operands returns the canonical text of each operand.
	Operands() []string
	// IsInit determines whether this instruction belongs to the init phase (or
	// the run phase).
	IsInit() bool
}

// Opcode describes a single entry of an instruction set.
type Opcode[T Instruction] struct {
	// Code is the byte identifying this opcode in encoded form.
	Code byte
	// Mnemonic identifies this opcode in assembly, without the leading '.'.
	Mnemonic string
	// Parse constructs an instruction from a statement with this mnemonic.
	Parse func(*Statement) (T, error)
}

// Catalog is a closed set of opcodes making up one instruction set.  A catalog
// is immutable once constructed.
type Catalog[T Instruction] struct {
	name    string
	opcodes []Opcode[T]
	byCode  map[byte]int
	byName  map[string]int
}

// NewCatalog constructs a catalog from a given set of opcodes.  This panics if
// two opcodes share a code or a mnemonic, since that is a programming error.
func NewCatalog[T Instruction](name string, opcodes ...Opcode[T]) *Catalog[T] {
	var (
		byCode = make(map[byte]int)
		byName = make(map[string]int)
	)
	//
	for i, op := range opcodes {
		if _, ok := byCode[op.Code]; ok {
			panic(fmt.Sprintf("duplicate opcode 0x%02x in %s", op.Code, name))
		} else if _, ok := byName[op.Mnemonic]; ok {
			panic(fmt.Sprintf("duplicate mnemonic .%s in %s", op.Mnemonic, name))
		}
		//
		byCode[op.Code] = i
		byName[op.Mnemonic] = i
	}
	//
	return &Catalog[T]{name, opcodes, byCode, byName}
}

// Name returns the name of this instruction set.
func (p *Catalog[T]) Name() string {
	return p.name
}

// Opcodes returns the opcodes of this instruction set.
func (p *Catalog[T]) Opcodes() []Opcode[T] {
	return p.opcodes
}

// ============================================================================
// Parsing
// ============================================================================

// ParseString parses assembly text held in memory.
func (p *Catalog[T]) ParseString(text string) ([]T, error) {
	return p.Parse(source.NewSourceFile("<input>", []byte(text)))
}

// Parse a given source file into a sequence of instructions.  Each statement
// is matched against the opcode whose mnemonic is the longest prefix of the
// mnemonic as written, and then handed to that opcode's parser.  Parsing stops
// at the first illegal instruction.
func (p *Catalog[T]) Parse(srcfile *source.File) ([]T, error) {
	statements, errs := Split(srcfile)
	//
	if len(errs) > 0 {
		return nil, illegalAt(errs[0])
	}
	//
	insns := make([]T, len(statements))
	//
	for i := range statements {
		insn, err := p.ParseStatement(&statements[i])
		if err != nil {
			return nil, err
		}
		//
		insns[i] = insn
	}
	//
	return insns, nil
}

// ParseStatement interprets a single statement against this catalog.
func (p *Catalog[T]) ParseStatement(stmt *Statement) (T, error) {
	var empty T
	//
	index, ok := p.lookup(stmt.Mnemonic)
	//
	if !ok {
		return empty, p.statementError(stmt, "unknown instruction")
	} else if opcode := p.opcodes[index]; len(opcode.Mnemonic) != len(stmt.Mnemonic) {
		return empty, p.statementError(stmt, fmt.Sprintf("unexpected text after .%s", opcode.Mnemonic))
	}
	//
	return p.opcodes[index].Parse(stmt)
}

// Find the opcode whose mnemonic is the longest prefix of the given text.
func (p *Catalog[T]) lookup(text string) (int, bool) {
	var (
		best   = -1
		length = 0
	)
	//
	for i, op := range p.opcodes {
		if strings.HasPrefix(text, op.Mnemonic) && len(op.Mnemonic) > length {
			best, length = i, len(op.Mnemonic)
		}
	}
	//
	return best, best >= 0
}

func (p *Catalog[T]) statementError(stmt *Statement, reason string) error {
	err := illegalf(stmt.Text(), "%s", reason)
	//
	if stmt.srcfile != nil {
		err.Location = stmt.srcfile.SyntaxError(stmt.Span, reason)
	}
	//
	return err
}

// ============================================================================
// Encoding
// ============================================================================

// Encode a sequence of instructions into records.  Each instruction is
// rendered, and the text following its mnemonic becomes the parameters of the
// record with whitespace stripped.
func (p *Catalog[T]) Encode(insns []T) ([]Encoded, error) {
	records := make([]Encoded, len(insns))
	//
	for i, insn := range insns {
		index, ok := p.byName[insn.Mnemonic()]
		if !ok {
			return nil, illegalf(Render(insn), "not part of %s instruction set", p.name)
		}
		//
		var (
			text   = Render(insn)
			params = StripSpace(text[1+len(insn.Mnemonic()):])
			err    error
		)
		//
		if records[i], err = NewEncoded(p.opcodes[index].Code, []byte(params)); err != nil {
			return nil, err
		}
	}
	//
	return records, nil
}

// EncodeBinary encodes a sequence of instructions into binary form.
func (p *Catalog[T]) EncodeBinary(insns []T) ([]byte, error) {
	records, err := p.Encode(insns)
	if err != nil {
		return nil, err
	}
	//
	return WriteBinary(records), nil
}

// EncodeText encodes a sequence of instructions into hex-text form.
func (p *Catalog[T]) EncodeText(insns []T) ([]byte, error) {
	records, err := p.Encode(insns)
	if err != nil {
		return nil, err
	}
	//
	return WriteText(records), nil
}

// ============================================================================
// Decoding
// ============================================================================

// DecodeRecords decodes a sequence of records into instructions, by resolving
// each opcode byte to its mnemonic and then parsing the parameters.
func (p *Catalog[T]) DecodeRecords(records []Encoded) ([]T, error) {
	insns := make([]T, len(records))
	//
	for i, r := range records {
		insn, err := p.decodeRecord(r)
		if err != nil {
			return nil, err
		}
		//
		insns[i] = insn
	}
	//
	return insns, nil
}

func (p *Catalog[T]) decodeRecord(record Encoded) (T, error) {
	var empty T
	//
	index, ok := p.byCode[record.Opcode]
	//
	if !ok {
		return empty, illegalf(record.String(), "unknown %s opcode 0x%02x", p.name, record.Opcode)
	} else if int(record.Length) != len(record.Params) {
		return empty, illegalf(record.String(), "length %d does not match %d parameter bytes", record.Length,
			len(record.Params))
	}
	//
	var (
		opcode  = p.opcodes[index]
		text    = fmt.Sprintf(".%s %s", opcode.Mnemonic, record.Params)
		srcfile = source.NewSourceFile("<record>", []byte(text))
	)
	//
	statements, errs := Split(srcfile)
	//
	if len(errs) > 0 {
		return empty, illegalf(record.String(), "%s", errs[0].Message())
	} else if len(statements) != 1 || statements[0].Mnemonic != opcode.Mnemonic {
		return empty, illegalf(record.String(), "parameters do not form a single .%s instruction", opcode.Mnemonic)
	}
	//
	insn, err := opcode.Parse(&statements[0])
	if err != nil {
		return empty, illegalf(record.String(), "%s", reasonOf(err))
	}
	//
	return insn, nil
}

// Decode decodes a sequence of instructions in binary form.
func (p *Catalog[T]) Decode(data []byte) ([]T, error) {
	records, err := ReadBinary(data)
	if err != nil {
		return nil, err
	}
	//
	return p.DecodeRecords(records)
}

// DecodeText decodes a sequence of instructions in hex-text form.
func (p *Catalog[T]) DecodeText(data []byte) ([]T, error) {
	records, err := ReadText(data)
	if err != nil {
		return nil, err
	}
	//
	return p.DecodeRecords(records)
}

// Format identifies one of the accepted forms of an instruction stream.
type Format uint8

const (
	// ASSEMBLY is assembly text.
	ASSEMBLY Format = iota
	// HEX_TEXT is a sequence of hex-text records.
	HEX_TEXT
	// BINARY is a sequence of binary records.
	BINARY
)

func (f Format) String() string {
	switch f {
	case ASSEMBLY:
		return "assembly"
	case HEX_TEXT:
		return "hex"
	default:
		return "binary"
	}
}

// Detect the form of an instruction stream from its first significant byte.
// Assembly starts with '.' or ';', hex-text starts with a hex digit, whilst
// anything else is taken as binary (whose opcode bytes are never printable).
// Binary opcodes which happen to be whitespace bytes are always followed by a
// zero length byte, so skipping leading whitespace cannot misclassify them.
// An empty stream is reported as assembly.
func Detect(data []byte) Format {
	index := skipSpace(data, 0)
	//
	if index == len(data) {
		return ASSEMBLY
	}
	//
	switch c := data[index]; {
	case c == '.' || c == ';':
		return ASSEMBLY
	case strings.IndexByte("0123456789abcdefABCDEF", c) >= 0:
		return HEX_TEXT
	default:
		return BINARY
	}
}

// Load decodes an instruction stream given in any of the accepted forms.
func (p *Catalog[T]) Load(data []byte) ([]T, error) {
	switch Detect(data) {
	case ASSEMBLY:
		return p.Parse(source.NewSourceFile("<code>", data))
	case HEX_TEXT:
		return p.DecodeText(data)
	default:
		return p.Decode(data)
	}
}

// Determine the reason of an error produced by an opcode parser, ignoring its
// location (which is meaningless for decoded records).
func reasonOf(err error) string {
	if ii, ok := err.(*IllegalInstruction); ok {
		return ii.Reason
	}
	//
	return err.Error()
}
