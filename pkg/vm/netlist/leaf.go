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
package netlist

import (
	"errors"
	"slices"
)

// Direction indicates whether a port is read or written by its leaf.
type Direction uint8

const (
	// INPUT ports are read by their leaf.
	INPUT Direction = iota
	// OUTPUT ports are written by their leaf.
	OUTPUT
)

// Leaf describes the behaviour of a component type within a netlist.  Leaves
// are evaluated once per cycle, reading their inputs and writing their outputs
// through the given ports.
type Leaf interface {
	// Type returns the name of this leaf's type, e.g. "Adder".
	Type() string
	// Port determines whether a port of the given name exists on this leaf,
	// and if so its direction.
	Port(name string) (Direction, bool)
	// Evaluate this leaf for the current cycle.
	Evaluate(ports Ports) error
}

// Constructor constructs a fresh instance of some leaf type.
type Constructor func() Leaf

// ErrDivideByZero is reported by the divider when its divisor is zero.
var ErrDivideByZero = errors.New("division by zero")

// Builtins returns constructors for all built-in leaf types, indexed by type
// name.  A fresh map is returned on each call.
func Builtins() map[string]Constructor {
	return map[string]Constructor{
		"Adder":      binary("Adder", func(a, b int32) (int32, error) { return a + b, nil }),
		"Subtractor": binary("Subtractor", func(a, b int32) (int32, error) { return a - b, nil }),
		"Multiplier": binary("Multiplier", func(a, b int32) (int32, error) { return a * b, nil }),
		"Divider":    binary("Divider", divide),
		"LBitShift":  binary("LBitShift", func(a, b int32) (int32, error) { return a << (uint32(b) & 31), nil }),
		"RBitShift":  binary("RBitShift", func(a, b int32) (int32, error) { return a >> (uint32(b) & 31), nil }),
		"CmpEq":      binary("CmpEq", func(a, b int32) (int32, error) { return truth(a == b), nil }),
		"CmpLess":    binary("CmpLess", func(a, b int32) (int32, error) { return truth(a < b), nil }),
		"CmpLeq":     binary("CmpLeq", func(a, b int32) (int32, error) { return truth(a <= b), nil }),
		"Comparator": binary("Comparator", compare),
		"LogicAnd":   binary("LogicAnd", func(a, b int32) (int32, error) { return truth(a != 0 && b != 0), nil }),
		"LogicOr":    binary("LogicOr", func(a, b int32) (int32, error) { return truth(a != 0 || b != 0), nil }),
		"LogicNot":   func() Leaf { return &gate{"LogicNot", []string{"in1"}, []string{"out"}, not} },
		"Mux2":       func() Leaf { return &gate{"Mux2", []string{"in0", "in1", "sel"}, []string{"out"}, mux2} },
		"Demux2":     func() Leaf { return &gate{"Demux2", []string{"in", "sel"}, []string{"out0", "out1"}, demux2} },
		"Register":   func() Leaf { return &gate{"Register", []string{"in"}, []string{"out"}, register} },
		"Fifo":       func() Leaf { return NewFifo() },
	}
}

// ============================================================================
// Gates
// ============================================================================

// A gate is a leaf with a fixed set of ports, whose behaviour is some function
// of its inputs for the current cycle.
type gate struct {
	typ     string
	inputs  []string
	outputs []string
	fn      func(ports Ports) error
}

func (p *gate) Type() string {
	return p.typ
}

func (p *gate) Port(name string) (Direction, bool) {
	if slices.Contains(p.inputs, name) {
		return INPUT, true
	} else if slices.Contains(p.outputs, name) {
		return OUTPUT, true
	}
	//
	return 0, false
}

func (p *gate) Evaluate(ports Ports) error {
	return p.fn(ports)
}

// Construct a gate reading "in1" and "in2" and writing "out".
func binary(typ string, fn func(a, b int32) (int32, error)) Constructor {
	eval := func(ports Ports) error {
		a, err1 := ports.Receive("in1")
		b, err2 := ports.Receive("in2")
		//
		if err := errors.Join(err1, err2); err != nil {
			return err
		}
		//
		c, err := fn(a, b)
		if err != nil {
			return err
		}
		//
		ports.Send("out", c)
		//
		return nil
	}
	//
	return func() Leaf {
		return &gate{typ, []string{"in1", "in2"}, []string{"out"}, eval}
	}
}

func divide(a, b int32) (int32, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	//
	return a / b, nil
}

func compare(a, b int32) (int32, error) {
	switch {
	case a < b:
		return -1, nil
	case a > b:
		return 1, nil
	default:
		return 0, nil
	}
}

func not(ports Ports) error {
	a, err := ports.Receive("in1")
	if err != nil {
		return err
	}
	//
	ports.Send("out", truth(a == 0))
	//
	return nil
}

// Mux2 forwards in0 when sel is zero, and in1 otherwise.
func mux2(ports Ports) error {
	sel, err := ports.Receive("sel")
	if err != nil {
		return err
	}
	//
	input := "in1"
	if sel == 0 {
		input = "in0"
	}
	//
	value, err := ports.Receive(input)
	if err != nil {
		return err
	}
	//
	ports.Send("out", value)
	//
	return nil
}

// Demux2 forwards its input to out0 when sel is zero, and out1 otherwise.  The
// other output is not sent, and hence is not fresh this cycle.
func demux2(ports Ports) error {
	sel, err1 := ports.Receive("sel")
	value, err2 := ports.Receive("in")
	//
	if err := errors.Join(err1, err2); err != nil {
		return err
	}
	//
	if sel == 0 {
		ports.Send("out0", value)
	} else {
		ports.Send("out1", value)
	}
	//
	return nil
}

// Registers hold no state of their own: state lives in upstream fifos.
func register(ports Ports) error {
	value, err := ports.Receive("in")
	if err != nil {
		return err
	}
	//
	ports.Send("out", value)
	//
	return nil
}

func truth(b bool) int32 {
	if b {
		return 1
	}
	//
	return 0
}
