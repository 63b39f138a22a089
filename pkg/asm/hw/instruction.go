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
package hw

import (
	"github.com/consensys/go-solace/pkg/asm"
)

// Instruction represents an instruction of the hardware instruction set.  Such
// instructions describe a netlist: which leaves exist, and how their ports are
// wired together.  The set of instructions is closed, consisting of New, Con
// and ImmCon only.
type Instruction interface {
	asm.Instruction
	// String returns the canonical assembly of this instruction.
	String() string
	// Marker restricting implementations to this package.
	hardware()
}

// NEW is the opcode of New.
const NEW byte = 0x01

// CON is the opcode of Con.
const CON byte = 0x02

// IMMCON is the opcode of ImmCon.
const IMMCON byte = 0x03

// ISA is the hardware instruction set.
var ISA = asm.NewCatalog("hardware",
	asm.Opcode[Instruction]{Code: NEW, Mnemonic: "new", Parse: parseNew},
	asm.Opcode[Instruction]{Code: CON, Mnemonic: "con", Parse: parseCon},
	asm.Opcode[Instruction]{Code: IMMCON, Mnemonic: "immcon", Parse: parseImmCon},
)

// ============================================================================
// New
// ============================================================================

// New creates a leaf of a given type with a given name, e.g. ".new %Adder
// $add".
type New struct {
	Type string
	Name string
	Init bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *New) Mnemonic() string { return "new" }

// Operands implementation for asm.Instruction interface.
func (p *New) Operands() []string {
	return []string{asm.Type(p.Type), asm.Identifier(p.Name)}
}

// IsInit implementation for asm.Instruction interface.
func (p *New) IsInit() bool { return p.Init }

func (p *New) String() string { return asm.Render(p) }

func (p *New) hardware() {}

func parseNew(stmt *asm.Statement) (Instruction, error) {
	r := stmt.Reader()
	typ, name := r.Type(), r.Name()
	//
	return &New{typ, name, stmt.Init}, r.Close()
}

// ============================================================================
// Con
// ============================================================================

// Con connects two leaf ports, such that both share the same wire, e.g. ".con
// $add@out $x@in".  Whilst the order of ports is conventionally driver first,
// it carries no meaning.
type Con struct {
	FromLeaf string
	FromPort string
	ToLeaf   string
	ToPort   string
	Init     bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *Con) Mnemonic() string { return "con" }

// Operands implementation for asm.Instruction interface.
func (p *Con) Operands() []string {
	return []string{asm.PortRef(p.FromLeaf, p.FromPort), asm.PortRef(p.ToLeaf, p.ToPort)}
}

// IsInit implementation for asm.Instruction interface.
func (p *Con) IsInit() bool { return p.Init }

func (p *Con) String() string { return asm.Render(p) }

func (p *Con) hardware() {}

func parseCon(stmt *asm.Statement) (Instruction, error) {
	r := stmt.Reader()
	fromLeaf, fromPort := r.Port()
	toLeaf, toPort := r.Port()
	//
	return &Con{fromLeaf, fromPort, toLeaf, toPort, stmt.Init}, r.Close()
}

// ============================================================================
// ImmCon
// ============================================================================

// ImmCon connects a leaf port to a constant, e.g. ".immcon $add@in2 #1".
type ImmCon struct {
	Leaf  string
	Port  string
	Value int32
	Init  bool
}

// Mnemonic implementation for asm.Instruction interface.
func (p *ImmCon) Mnemonic() string { return "immcon" }

// Operands implementation for asm.Instruction interface.
func (p *ImmCon) Operands() []string {
	return []string{asm.PortRef(p.Leaf, p.Port), asm.Immediate(p.Value)}
}

// IsInit implementation for asm.Instruction interface.
func (p *ImmCon) IsInit() bool { return p.Init }

func (p *ImmCon) String() string { return asm.Render(p) }

func (p *ImmCon) hardware() {}

func parseImmCon(stmt *asm.Statement) (Instruction, error) {
	r := stmt.Reader()
	leaf, port := r.Port()
	value := r.Immediate()
	//
	return &ImmCon{leaf, port, value, stmt.Init}, r.Close()
}
