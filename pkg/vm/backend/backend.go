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
package backend

import (
	"fmt"

	"github.com/consensys/go-solace/pkg/asm"
	"github.com/consensys/go-solace/pkg/asm/hw"
	"github.com/consensys/go-solace/pkg/asm/sw"
	"github.com/consensys/go-solace/pkg/vm"
	"github.com/consensys/go-solace/pkg/vm/interpreter"
	"github.com/consensys/go-solace/pkg/vm/netlist"
)

// New constructs the machine which executes a given kind of node, from one or
// more chunks of code (typically the init and run sections of a container).
func New(kind vm.NodeType, code ...[]byte) (vm.Machine, error) {
	var (
		machine vm.Machine
		err     error
	)
	//
	switch kind {
	case vm.HARDWARE:
		machine, err = netlist.Load(code...)
	case vm.SOFTWARE:
		machine, err = interpreter.Load(code...)
	default:
		return nil, fmt.Errorf("unknown node type %s", kind)
	}
	// Avoid returning a typed nil
	if err != nil {
		return nil, err
	}
	//
	return machine, nil
}

// Assemble parses the assembly of a given kind of node, and encodes it as the
// init and run sections of a container (hex-text records).  Either section may
// be empty.
func Assemble(kind vm.NodeType, text string) (initCode []byte, runCode []byte, err error) {
	switch kind {
	case vm.HARDWARE:
		return assemble(hw.ISA, text)
	case vm.SOFTWARE:
		return assemble(sw.ISA, text)
	default:
		return nil, nil, fmt.Errorf("unknown node type %s", kind)
	}
}

func assemble[T asm.Instruction](isa *asm.Catalog[T], text string) ([]byte, []byte, error) {
	var initInsns, runInsns []T
	//
	insns, err := isa.ParseString(text)
	if err != nil {
		return nil, nil, err
	}
	//
	for _, insn := range insns {
		if insn.IsInit() {
			initInsns = append(initInsns, insn)
		} else {
			runInsns = append(runInsns, insn)
		}
	}
	//
	initCode, err := encodeSection(isa, initInsns)
	if err != nil {
		return nil, nil, err
	}
	//
	runCode, err := encodeSection(isa, runInsns)
	//
	return initCode, runCode, err
}

// Encode a section, where an empty section is nil.
func encodeSection[T asm.Instruction](isa *asm.Catalog[T], insns []T) ([]byte, error) {
	if len(insns) == 0 {
		return nil, nil
	}
	//
	return isa.EncodeText(insns)
}
