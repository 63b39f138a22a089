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

	"github.com/consensys/go-solace/pkg/asm/hw"
	"github.com/consensys/go-solace/pkg/vm"
)

// Machine executes a hardware node.  This consists of two graphs built from the
// same instruction stream: the init graph from instructions marked as init, and
// the run graph from the remainder.  The init graph is evaluated exactly once,
// after which the contents of its fifos seed the same-named fifos of the run
// graph.  Port operations always address the run graph.
type Machine struct {
	vm.Monitor
	init *Graph
	run  *Graph
	// Indicates whether the init phase has completed.
	initialised bool
}

// Load constructs a hardware machine from one or more chunks of code, each of
// which may be assembly text, hex-text records or binary records.  Chunks are
// concatenated, such that the init and run sections of a container can be
// given separately.
func Load(code ...[]byte) (*Machine, error) {
	var insns []hw.Instruction
	//
	for _, chunk := range code {
		chunkInsns, err := hw.ISA.Load(chunk)
		if err != nil {
			return nil, err
		}
		//
		insns = append(insns, chunkInsns...)
	}
	//
	return New(nil, insns)
}

// New constructs a hardware machine from a given instruction sequence, drawing
// leaves from the given types (or the builtins when nil).
func New(types map[string]Constructor, insns []hw.Instruction) (*Machine, error) {
	var initInsns, runInsns []hw.Instruction
	//
	for _, insn := range insns {
		if insn.IsInit() {
			initInsns = append(initInsns, insn)
		} else {
			runInsns = append(runInsns, insn)
		}
	}
	//
	initGraph, err := Build(types, initInsns)
	if err != nil {
		return nil, err
	}
	//
	runGraph, err := Build(types, runInsns)
	if err != nil {
		return nil, err
	}
	//
	return &Machine{init: initGraph, run: runGraph}, nil
}

// TryInit evaluates the init graph once, then appends the contents of each of
// its fifos onto the run graph fifo of the same name.
func (p *Machine) TryInit() vm.Status {
	return p.Attempt("init", func() error {
		if p.initialised {
			return errors.New("already initialised")
		} else if err := p.init.Evaluate(); err != nil {
			return err
		}
		//
		for _, name := range p.init.Fifos() {
			seed, _ := p.init.Fifo(name)
			//
			if target, err := p.run.Fifo(name); err != nil {
				p.Logger().Debugf("init fifo %s has no run counterpart", name)
			} else {
				for value, ok := seed.Pop(); ok; value, ok = seed.Pop() {
					target.Push(value)
				}
			}
		}
		//
		p.initialised = true
		//
		return nil
	})
}

// TryRun evaluates one cycle of the run graph.
func (p *Machine) TryRun() vm.Status {
	return p.Attempt("run", func() error {
		if !p.initialised {
			return errors.New("not initialised")
		}
		//
		return p.run.Evaluate()
	})
}

// Push implementation for the vm.Machine interface.
func (p *Machine) Push(fifo string, value int32) error {
	return p.run.Push(fifo, value)
}

// Pop implementation for the vm.Machine interface.
func (p *Machine) Pop(fifo string) (int32, error) {
	return p.run.Pop(fifo)
}

// Size implementation for the vm.Machine interface.
func (p *Machine) Size(fifo string) (uint, error) {
	return p.run.FifoSize(fifo)
}

// Fifos implementation for the vm.Machine interface.
func (p *Machine) Fifos() []string {
	return p.run.Fifos()
}

// InitGraph returns the graph evaluated by the init phase.
func (p *Machine) InitGraph() *Graph {
	return p.init
}

// RunGraph returns the graph evaluated by the run phase.
func (p *Machine) RunGraph() *Graph {
	return p.run
}
