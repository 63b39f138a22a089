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
package sw

import (
	"github.com/consensys/go-solace/pkg/asm"
)

// Instruction represents an instruction of the software instruction set, which
// is executed by a stack machine.  The set of instructions is closed:
// implementations exist only in this package.
type Instruction interface {
	asm.Instruction
	// String returns the canonical assembly of this instruction.
	String() string
	// Marker restricting implementations to this package.
	software()
}

// Opcodes of the software instruction set.
const (
	BRANCH   byte = 0x01
	DEFINE   byte = 0x02
	GOTO     byte = 0x03
	LABEL    byte = 0x04
	PUSH     byte = 0x05
	PUT      byte = 0x06
	ADD      byte = 0x07
	SUB      byte = 0x08
	MUL      byte = 0x09
	DIV      byte = 0x0A
	MOD      byte = 0x0B
	LT       byte = 0x0C
	GT       byte = 0x0D
	LE       byte = 0x0E
	GE       byte = 0x0F
	EQ       byte = 0x10
	NEQ      byte = 0x11
	AND      byte = 0x12
	OR       byte = 0x13
	NOT      byte = 0x14
	PRINT    byte = 0x15
	PUSHSIZE byte = 0x16
	NEG      byte = 0x17
)

// ISA is the software instruction set.
var ISA = asm.NewCatalog("software", opcodes()...)

func opcodes() []asm.Opcode[Instruction] {
	var ops = []asm.Opcode[Instruction]{
		{Code: BRANCH, Mnemonic: "branch", Parse: parseBranch},
		{Code: DEFINE, Mnemonic: "define", Parse: parseDefine},
		{Code: GOTO, Mnemonic: "goto", Parse: parseGoto},
		{Code: LABEL, Mnemonic: "label", Parse: parseLabel},
		{Code: PUSH, Mnemonic: "push", Parse: parsePush},
		{Code: PUT, Mnemonic: "put", Parse: parsePut},
		{Code: PRINT, Mnemonic: "print", Parse: parsePrint},
		{Code: PUSHSIZE, Mnemonic: "pushsize", Parse: parsePushSize},
	}
	//
	for op := ADD_OP; op <= OR_OP; op++ {
		ops = append(ops, asm.Opcode[Instruction]{Code: op.Opcode(), Mnemonic: op.Mnemonic(), Parse: parseBinary(op)})
	}
	//
	for op := NOT_OP; op <= NEG_OP; op++ {
		ops = append(ops, asm.Opcode[Instruction]{Code: op.Opcode(), Mnemonic: op.Mnemonic(), Parse: parseUnary(op)})
	}
	//
	return ops
}

// ============================================================================
// Control flow
// ============================================================================

// Branch pops an integer condition and jumps to True when it is non-zero, or
// to False otherwise.  End names the label where both arms rejoin, which is
// reached through Goto rather than by this instruction.
type Branch struct {
	True  string
	False string
	End   string
	Init  bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *Branch) Mnemonic() string { return "branch" }

// Operands implementation for asm.Instruction interface.
func (p *Branch) Operands() []string {
	return []string{asm.Identifier(p.True), asm.Identifier(p.False), asm.Identifier(p.End)}
}

// IsInit implementation for asm.Instruction interface.
func (p *Branch) IsInit() bool { return p.Init }

func (p *Branch) String() string { return asm.Render(p) }

func (p *Branch) software() {}

func parseBranch(stmt *asm.Statement) (Instruction, error) {
	r := stmt.Reader()
	t, f, e := r.Name(), r.Name(), r.Name()
	//
	return &Branch{t, f, e, stmt.Init}, r.Close()
}

// Goto jumps unconditionally to a label.
type Goto struct {
	Label string
	Init  bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *Goto) Mnemonic() string { return "goto" }

// Operands implementation for asm.Instruction interface.
func (p *Goto) Operands() []string { return []string{asm.Identifier(p.Label)} }

// IsInit implementation for asm.Instruction interface.
func (p *Goto) IsInit() bool { return p.Init }

func (p *Goto) String() string { return asm.Render(p) }

func (p *Goto) software() {}

func parseGoto(stmt *asm.Statement) (Instruction, error) {
	r := stmt.Reader()
	label := r.Name()
	//
	return &Goto{label, stmt.Init}, r.Close()
}

// Label marks a jump target.  It does nothing when executed.
type Label struct {
	Name string
	Init bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *Label) Mnemonic() string { return "label" }

// Operands implementation for asm.Instruction interface.
func (p *Label) Operands() []string { return []string{asm.Identifier(p.Name)} }

// IsInit implementation for asm.Instruction interface.
func (p *Label) IsInit() bool { return p.Init }

func (p *Label) String() string { return asm.Render(p) }

func (p *Label) software() {}

func parseLabel(stmt *asm.Statement) (Instruction, error) {
	r := stmt.Reader()
	name := r.Name()
	//
	return &Label{name, stmt.Init}, r.Close()
}

// ============================================================================
// Variables
// ============================================================================

// Define declares a variable of a given type ("int", "string" or "fifo").
type Define struct {
	Type string
	Name string
	Init bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *Define) Mnemonic() string { return "define" }

// Operands implementation for asm.Instruction interface.
func (p *Define) Operands() []string { return []string{asm.Type(p.Type), asm.Identifier(p.Name)} }

// IsInit implementation for asm.Instruction interface.
func (p *Define) IsInit() bool { return p.Init }

func (p *Define) String() string { return asm.Render(p) }

func (p *Define) software() {}

func parseDefine(stmt *asm.Statement) (Instruction, error) {
	r := stmt.Reader()
	typ, name := r.Type(), r.Name()
	//
	return &Define{typ, name, stmt.Init}, r.Close()
}

// PushInt pushes an integer literal, e.g. ".push #1".
type PushInt struct {
	Value int32
	Init  bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *PushInt) Mnemonic() string { return "push" }

// Operands implementation for asm.Instruction interface.
func (p *PushInt) Operands() []string { return []string{asm.Immediate(p.Value)} }

// IsInit implementation for asm.Instruction interface.
func (p *PushInt) IsInit() bool { return p.Init }

func (p *PushInt) String() string { return asm.Render(p) }

func (p *PushInt) software() {}

// PushString pushes a string literal, e.g. '.push +"hello"'.
type PushString struct {
	Value string
	Init  bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *PushString) Mnemonic() string { return "push" }

// Operands implementation for asm.Instruction interface.
func (p *PushString) Operands() []string { return []string{asm.String(p.Value)} }

// IsInit implementation for asm.Instruction interface.
func (p *PushString) IsInit() bool { return p.Init }

func (p *PushString) String() string { return asm.Render(p) }

func (p *PushString) software() {}

// PushVar pushes the value of a variable, e.g. ".push $x".  For a fifo
// variable, this dequeues its head.
type PushVar struct {
	Name string
	Init bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *PushVar) Mnemonic() string { return "push" }

// Operands implementation for asm.Instruction interface.
func (p *PushVar) Operands() []string { return []string{asm.Identifier(p.Name)} }

// IsInit implementation for asm.Instruction interface.
func (p *PushVar) IsInit() bool { return p.Init }

func (p *PushVar) String() string { return asm.Render(p) }

func (p *PushVar) software() {}

// Push comes in three forms, distinguished by the kind of operand.
func parsePush(stmt *asm.Statement) (Instruction, error) {
	var (
		r       = stmt.Reader()
		kind, _ = r.Peek()
		insn    Instruction
	)
	//
	switch kind {
	case asm.NUMBER:
		insn = &PushInt{r.Immediate(), stmt.Init}
	case asm.TEXT:
		insn = &PushString{r.Text(), stmt.Init}
	default:
		insn = &PushVar{r.Name(), stmt.Init}
	}
	//
	return insn, r.Close()
}

// PushSize pushes the number of items queued in a fifo variable.
type PushSize struct {
	Name string
	Init bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *PushSize) Mnemonic() string { return "pushsize" }

// Operands implementation for asm.Instruction interface.
func (p *PushSize) Operands() []string { return []string{asm.Identifier(p.Name)} }

// IsInit implementation for asm.Instruction interface.
func (p *PushSize) IsInit() bool { return p.Init }

func (p *PushSize) String() string { return asm.Render(p) }

func (p *PushSize) software() {}

func parsePushSize(stmt *asm.Statement) (Instruction, error) {
	r := stmt.Reader()
	name := r.Name()
	//
	return &PushSize{name, stmt.Init}, r.Close()
}

// Put pops a value and stores it into a variable.  For a fifo variable, this
// enqueues the value instead.
type Put struct {
	Name string
	Init bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *Put) Mnemonic() string { return "put" }

// Operands implementation for asm.Instruction interface.
func (p *Put) Operands() []string { return []string{asm.Identifier(p.Name)} }

// IsInit implementation for asm.Instruction interface.
func (p *Put) IsInit() bool { return p.Init }

func (p *Put) String() string { return asm.Render(p) }

func (p *Put) software() {}

func parsePut(stmt *asm.Statement) (Instruction, error) {
	r := stmt.Reader()
	name := r.Name()
	//
	return &Put{name, stmt.Init}, r.Close()
}

// ============================================================================
// Operators
// ============================================================================

// Binary pops two operands and pushes the result of applying an operator.  The
// top of the stack is the right-hand operand.
type Binary struct {
	Op   BinaryOp
	Init bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *Binary) Mnemonic() string { return p.Op.Mnemonic() }

// Operands implementation for asm.Instruction interface.
func (p *Binary) Operands() []string { return nil }

// IsInit implementation for asm.Instruction interface.
func (p *Binary) IsInit() bool { return p.Init }

func (p *Binary) String() string { return asm.Render(p) }

func (p *Binary) software() {}

func parseBinary(op BinaryOp) func(*asm.Statement) (Instruction, error) {
	return func(stmt *asm.Statement) (Instruction, error) {
		return &Binary{op, stmt.Init}, stmt.Reader().Close()
	}
}

// Unary pops one operand and pushes the result of applying an operator.
type Unary struct {
	Op   UnaryOp
	Init bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *Unary) Mnemonic() string { return p.Op.Mnemonic() }

// Operands implementation for asm.Instruction interface.
func (p *Unary) Operands() []string { return nil }

// IsInit implementation for asm.Instruction interface.
func (p *Unary) IsInit() bool { return p.Init }

func (p *Unary) String() string { return asm.Render(p) }

func (p *Unary) software() {}

func parseUnary(op UnaryOp) func(*asm.Statement) (Instruction, error) {
	return func(stmt *asm.Statement) (Instruction, error) {
		return &Unary{op, stmt.Init}, stmt.Reader().Close()
	}
}

// Print pops a value and writes it to the output of the machine.
type Print struct {
	Init bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *Print) Mnemonic() string { return "print" }

// Operands implementation for asm.Instruction interface.
func (p *Print) Operands() []string { return nil }

// IsInit implementation for asm.Instruction interface.
func (p *Print) IsInit() bool { return p.Init }

func (p *Print) String() string { return asm.Render(p) }

func (p *Print) software() {}

func parsePrint(stmt *asm.Statement) (Instruction, error) {
	return &Print{stmt.Init}, stmt.Reader().Close()
}
