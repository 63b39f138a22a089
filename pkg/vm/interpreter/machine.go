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
package interpreter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/consensys/go-solace/pkg/asm/sw"
	"github.com/consensys/go-solace/pkg/util/collection/stack"
	"github.com/consensys/go-solace/pkg/vm"
)

// Machine executes a software node on a stack machine.  The program is a single
// flat list of instructions, each marked as belonging to the init or the run
// phase.  Each phase walks the whole list with its own program counter,
// skipping instructions of the other phase.  Thus, labels index the whole list,
// and a jump from one phase to a label of the other phase is an error.
//
// Variables defined during the init phase are global, and persist for the life
// of the machine.  Variables defined during the run phase are local to one tick,
// and are discarded when the tick completes.  Fifo variables are always global,
// and are created when the program is loaded such that they can be addressed
// before the init phase.
type Machine struct {
	vm.Monitor
	program []sw.Instruction
	labels  map[string]int
	stack   *stack.Stack[Value]
	globals map[string]*Variable
	locals  map[string]*Variable
	// Order in which fifos were declared.
	fifos []string
	init  phase
	run   phase
	// Indicates whether the init phase has completed.
	initialised bool
	out         io.Writer
}

// Tracks progress through one phase of the program.
type phase struct {
	name string
	init bool
	pc   int
}

// Load constructs a software machine from one or more chunks of code, each of
// which may be assembly text, hex-text records or binary records.  Chunks are
// concatenated, such that the init and run sections of a container can be
// given separately.
func Load(code ...[]byte) (*Machine, error) {
	var insns []sw.Instruction
	//
	for _, chunk := range code {
		chunkInsns, err := sw.ISA.Load(chunk)
		if err != nil {
			return nil, err
		}
		//
		insns = append(insns, chunkInsns...)
	}
	//
	return New(insns)
}

// New constructs a software machine for a given program.  This fails if a label
// is declared more than once, or a fifo is declared with an unknown type.
func New(program []sw.Instruction) (*Machine, error) {
	var m = &Machine{
		program: program,
		labels:  make(map[string]int),
		stack:   stack.NewStack[Value](),
		globals: make(map[string]*Variable),
		locals:  make(map[string]*Variable),
		init:    phase{"init", true, 0},
		run:     phase{"run", false, 0},
		out:     os.Stdout,
	}
	// Pre-scan labels and fifos
	for pc, insn := range program {
		switch insn := insn.(type) {
		case *sw.Label:
			if _, ok := m.labels[insn.Name]; ok {
				return nil, fmt.Errorf("duplicate label %s", insn.Name)
			}
			//
			m.labels[insn.Name] = pc
		case *sw.Define:
			if typ, err := ParseType(insn.Type); err != nil {
				return nil, err
			} else if typ == FIFO && m.globals[insn.Name] == nil {
				m.globals[insn.Name] = newVariable(FIFO)
				m.fifos = append(m.fifos, insn.Name)
			}
		}
	}
	//
	return m, nil
}

// SetOutput sets the writer to which Print instructions write.  By default, this
// is os.Stdout.
func (p *Machine) SetOutput(out io.Writer) {
	p.out = out
}

// TryInit attempts to execute the init phase.
func (p *Machine) TryInit() vm.Status {
	if p.initialised {
		return p.Attempt("init", func() error { return errors.New("already initialised") })
	}
	//
	status := p.execute(&p.init)
	p.initialised = status == vm.Success
	//
	return status
}

// TryRun attempts to execute one tick of the run phase.
func (p *Machine) TryRun() vm.Status {
	if !p.initialised {
		return p.Attempt("run", func() error { return errors.New("not initialised") })
	}
	//
	return p.execute(&p.run)
}

// Execute a given phase from its current program counter until either the end
// of the program is reached, a fifo blocks, or a fault arises.  Only blocking
// leaves the program counter in place.
func (p *Machine) execute(ph *phase) vm.Status {
	status := p.Attempt(ph.name, func() error {
		for ph.pc < len(p.program) {
			insn := p.program[ph.pc]
			//
			if insn.IsInit() != ph.init {
				ph.pc++
				continue
			}
			//
			next, err := p.step(ph, insn)
			if err != nil {
				return fmt.Errorf("%s (at %d): %w", insn.String(), ph.pc, err)
			}
			//
			ph.pc = next
		}
		//
		return nil
	})
	//
	switch status {
	case vm.Success:
		ph.pc = 0
		clear(p.locals)
	case vm.Error:
		ph.pc = 0
		clear(p.locals)
		p.stack.Clear()
	}
	//
	return status
}

// Execute a single instruction, returning the index of the next instruction.
func (p *Machine) step(ph *phase, insn sw.Instruction) (int, error) {
	var next = ph.pc + 1
	//
	switch insn := insn.(type) {
	case *sw.Branch:
		cond, err := p.popInt()
		if err != nil {
			return 0, err
		} else if cond != 0 {
			return p.jump(ph, insn.True)
		}
		//
		return p.jump(ph, insn.False)
	case *sw.Goto:
		return p.jump(ph, insn.Label)
	case *sw.Label:
		// Labels are resolved by the pre-scan
	case *sw.Define:
		return next, p.define(ph, insn.Type, insn.Name)
	case *sw.PushInt:
		p.stack.Push(Int(insn.Value))
	case *sw.PushString:
		p.stack.Push(String(insn.Value))
	case *sw.PushVar:
		return next, p.load(insn.Name)
	case *sw.PushSize:
		return next, p.size(insn.Name)
	case *sw.Put:
		return next, p.store(insn.Name)
	case *sw.Binary:
		return next, p.binary(insn.Op)
	case *sw.Unary:
		return next, p.unary(insn.Op)
	case *sw.Print:
		value, err := p.pop()
		if err != nil {
			return 0, err
		}
		//
		_, err = fmt.Fprintln(p.out, value.String())
		//
		return next, err
	default:
		panic(fmt.Sprintf("unknown software instruction %T", insn))
	}
	//
	return next, nil
}

func (p *Machine) jump(ph *phase, label string) (int, error) {
	pc, ok := p.labels[label]
	//
	if !ok {
		return 0, fmt.Errorf("undefined label %s", label)
	} else if p.program[pc].IsInit() != ph.init {
		return 0, fmt.Errorf("label %s belongs to another phase", label)
	}
	//
	return pc, nil
}

// ============================================================================
// Variables
// ============================================================================

func (p *Machine) define(ph *phase, typename string, name string) error {
	typ, err := ParseType(typename)
	if err != nil {
		return err
	}
	//
	if v := p.lookup(name); v != nil && v.typ == FIFO && typ == FIFO {
		// Fifos are created by the pre-scan
		return nil
	} else if v != nil {
		return fmt.Errorf("duplicate variable %s", name)
	} else if ph.init {
		p.globals[name] = newVariable(typ)
	} else {
		p.locals[name] = newVariable(typ)
	}
	//
	return nil
}

func (p *Machine) lookup(name string) *Variable {
	if v, ok := p.locals[name]; ok {
		return v
	}
	//
	return p.globals[name]
}

func (p *Machine) variable(name string) (*Variable, error) {
	if v := p.lookup(name); v != nil {
		return v, nil
	}
	//
	return nil, fmt.Errorf("undefined variable %s", name)
}

// Push the value of a variable, where reading a fifo dequeues its head.
func (p *Machine) load(name string) error {
	v, err := p.variable(name)
	//
	if err != nil {
		return err
	} else if v.typ != FIFO {
		p.stack.Push(v.value)
	} else if v.items.IsEmpty() {
		return vm.FifoEmpty(name)
	} else {
		p.stack.Push(Int(v.items.Pop()))
	}
	//
	return nil
}

func (p *Machine) size(name string) error {
	v, err := p.variable(name)
	//
	if err != nil {
		return err
	} else if v.typ != FIFO {
		return fmt.Errorf("variable %s is not a fifo", name)
	}
	//
	p.stack.Push(Int(v.items.Len()))
	//
	return nil
}

// Pop a value and store it into a variable, where writing a fifo enqueues.
func (p *Machine) store(name string) error {
	v, err := p.variable(name)
	if err != nil {
		return err
	}
	//
	value, err := p.pop()
	if err != nil {
		return err
	}
	//
	switch {
	case v.typ == FIFO && value.Type() == INT:
		v.items.Push(int32(value.(Int)))
	case v.typ == value.Type():
		v.value = value
	default:
		return fmt.Errorf("cannot assign %s to %s variable %s", value.Type(), v.typ, name)
	}
	//
	return nil
}

// ============================================================================
// Operators
// ============================================================================

func (p *Machine) binary(op sw.BinaryOp) error {
	rhs, err1 := p.pop()
	lhs, err2 := p.pop()
	//
	if err := errors.Join(err1, err2); err != nil {
		return err
	}
	// Addition is the only operator accepting strings
	if op == sw.ADD_OP && (lhs.Type() == STRING || rhs.Type() == STRING) {
		p.stack.Push(String(lhs.String() + rhs.String()))
		return nil
	}
	//
	a, ok1 := lhs.(Int)
	b, ok2 := rhs.(Int)
	//
	if !ok1 || !ok2 {
		return fmt.Errorf("%s expects int operands, found %s and %s", op.Mnemonic(), lhs.Type(), rhs.Type())
	}
	//
	c, err := evalBinary(op, a, b)
	if err != nil {
		return err
	}
	//
	p.stack.Push(c)
	//
	return nil
}

func evalBinary(op sw.BinaryOp, a, b Int) (Int, error) {
	switch op {
	case sw.ADD_OP:
		return a + b, nil
	case sw.SUB_OP:
		return a - b, nil
	case sw.MUL_OP:
		return a * b, nil
	case sw.DIV_OP:
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		//
		return a / b, nil
	case sw.MOD_OP:
		if b == 0 {
			return 0, errors.New("modulo by zero")
		}
		//
		return a % b, nil
	case sw.LT_OP:
		return truth(a < b), nil
	case sw.GT_OP:
		return truth(a > b), nil
	case sw.LE_OP:
		return truth(a <= b), nil
	case sw.GE_OP:
		return truth(a >= b), nil
	case sw.EQ_OP:
		return truth(a == b), nil
	case sw.NEQ_OP:
		return truth(a != b), nil
	case sw.AND_OP:
		return truth(a != 0 && b != 0), nil
	case sw.OR_OP:
		return truth(a != 0 || b != 0), nil
	default:
		panic(fmt.Sprintf("unknown binary operator %d", op))
	}
}

func (p *Machine) unary(op sw.UnaryOp) error {
	value, err := p.popInt()
	if err != nil {
		return err
	}
	//
	switch op {
	case sw.NOT_OP:
		p.stack.Push(truth(value == 0))
	case sw.NEG_OP:
		p.stack.Push(-value)
	default:
		panic(fmt.Sprintf("unknown unary operator %d", op))
	}
	//
	return nil
}

func (p *Machine) pop() (Value, error) {
	if value, ok := p.stack.TryPop(); ok {
		return value, nil
	}
	//
	return nil, errors.New("stack underflow")
}

func (p *Machine) popInt() (Int, error) {
	value, err := p.pop()
	if err != nil {
		return 0, err
	} else if i, ok := value.(Int); ok {
		return i, nil
	}
	//
	return 0, fmt.Errorf("expected int, found %s", value.Type())
}

func truth(b bool) Int {
	if b {
		return 1
	}
	//
	return 0
}

// ============================================================================
// Ports
// ============================================================================

// Push implementation for the vm.Machine interface.
func (p *Machine) Push(fifo string, value int32) error {
	v, err := p.fifo(fifo)
	if err != nil {
		return err
	}
	//
	v.items.Push(value)
	//
	return nil
}

// Pop implementation for the vm.Machine interface.
func (p *Machine) Pop(fifo string) (int32, error) {
	v, err := p.fifo(fifo)
	if err != nil {
		return 0, err
	} else if v.items.IsEmpty() {
		return 0, vm.FifoEmpty(fifo)
	}
	//
	return v.items.Pop(), nil
}

// Size implementation for the vm.Machine interface.
func (p *Machine) Size(fifo string) (uint, error) {
	v, err := p.fifo(fifo)
	if err != nil {
		return 0, err
	}
	//
	return v.items.Len(), nil
}

// Fifos implementation for the vm.Machine interface.
func (p *Machine) Fifos() []string {
	return slices.Clone(p.fifos)
}

func (p *Machine) fifo(name string) (*Variable, error) {
	if v, ok := p.globals[name]; ok && v.typ == FIFO {
		return v, nil
	}
	//
	return nil, vm.UnknownFifo(name)
}

// ============================================================================
// Introspection
// ============================================================================

// Stack returns a snapshot of the operand stack, ordered from bottom to top.
func (p *Machine) Stack() []Value {
	return p.stack.Items()
}

// Variable returns the variable of a given name, or nil if no such variable is
// currently defined.
func (p *Machine) Variable(name string) *Variable {
	return p.lookup(name)
}
