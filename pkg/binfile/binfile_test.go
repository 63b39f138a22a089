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
package binfile

import (
	"encoding/binary"
	"testing"

	"github.com/consensys/go-solace/pkg/asm/hw"
	"github.com/consensys/go-solace/pkg/util/assert"
	"github.com/consensys/go-solace/pkg/vm"
	"github.com/consensys/go-solace/pkg/vm/backend"
)

func Test_Container_00(t *testing.T) {
	t.Parallel()
	//
	c := NewContainer(vm.SOFTWARE, []byte("0200"), []byte("1500"))
	data, err := c.MarshalBinary()
	assert.NoError(t, err)
	assert.Equal(t, 16+8, len(data))
	assert.Equal(t, "SOLB", string(data[:4]))
	assert.Equal(t, []byte{1, 1, 1, 0, 4, 0, 0, 0, 4, 0, 0, 0}, data[4:16])
	//
	var d Container
	assert.NoError(t, d.UnmarshalBinary(data))
	assert.Equal(t, c.Header, d.Header)
	assert.Equal(t, "0200", string(d.Init))
	assert.Equal(t, "1500", string(d.Run))
}

func Test_Container_Empty(t *testing.T) {
	t.Parallel()
	//
	data, err := NewContainer(vm.HARDWARE, nil, nil).MarshalBinary()
	assert.NoError(t, err)
	//
	var d Container
	assert.NoError(t, d.UnmarshalBinary(data))
	assert.Equal(t, vm.HARDWARE, d.Header.NodeType)
	assert.Equal(t, 0, len(d.Init))
	assert.Equal(t, 0, len(d.Run))
}

func Test_Container_Invalid(t *testing.T) {
	t.Parallel()
	//
	valid, err := NewContainer(vm.HARDWARE, []byte("ab"), []byte("cd")).MarshalBinary()
	assert.NoError(t, err)
	//
	checkContainerError(t, valid[:10], "container too small")
	checkContainerError(t, patch(valid, 0, 'X'), "invalid container magic")
	checkContainerError(t, patch(valid, 4, 2), "incompatible version")
	checkContainerError(t, patch(valid, 5, 3), "unknown node type 3")
	checkContainerError(t, patch(valid, 11, 0xFF), "negative section size")
	checkContainerError(t, patch(valid, 12, 9), "sections exceed container")
	checkContainerError(t, valid[:19], "sections exceed container")
}

func Test_Package_00(t *testing.T) {
	t.Parallel()
	//
	p := testPackage(t)
	data, err := p.MarshalBinary()
	assert.NoError(t, err)
	assert.True(t, IsPackage(data))
	//
	var q Package
	assert.NoError(t, q.UnmarshalBinary(data))
	assert.Equal(t, p.Version, q.Version)
	assert.Equal(t, len(p.Nodes), len(q.Nodes))
	//
	for i := range p.Nodes {
		assert.Equal(t, p.Nodes[i].Name, q.Nodes[i].Name)
		assert.Equal(t, p.Nodes[i].Type, q.Nodes[i].Type)
		assert.Equal(t, p.Nodes[i].Inputs, q.Nodes[i].Inputs)
		assert.Equal(t, p.Nodes[i].Outputs, q.Nodes[i].Outputs)
		assert.Equal(t, p.Nodes[i].Self, q.Nodes[i].Self)
		assert.Equal(t, p.Nodes[i].Container.Init, q.Nodes[i].Container.Init)
		assert.Equal(t, p.Nodes[i].Container.Run, q.Nodes[i].Container.Run)
	}
	//
	assert.Equal(t, p.Connections, q.Connections)
	assert.True(t, q.Node("sink") != nil)
	assert.True(t, q.Node("nope") == nil)
}

// Code extracted from a package can be executed directly.
func Test_Package_Execute(t *testing.T) {
	t.Parallel()
	//
	data, err := testPackage(t).MarshalBinary()
	assert.NoError(t, err)
	//
	var p Package
	assert.NoError(t, p.UnmarshalBinary(data))
	//
	node := p.Node("counter")
	m, err := backend.New(node.Type, node.Container.Init, node.Container.Run)
	assert.NoError(t, err)
	assert.Equal(t, vm.Success, m.TryInit())
	assert.Equal(t, vm.Success, m.TryRun())
	assert.Equal(t, vm.Success, m.TryRun())
	//
	values, err := vm.Drain(m, "numbers")
	assert.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, values)
}

func Test_Package_Invalid(t *testing.T) {
	t.Parallel()
	//
	valid, err := testPackage(t).MarshalBinary()
	assert.NoError(t, err)
	//
	checkPackageError(t, valid[:12], "package too small")
	checkPackageError(t, patch(valid, 3, 'B'), "invalid package magic")
	checkPackageError(t, patch(valid, 4, 9), "incompatible version")
	checkPackageError(t, patch(valid, 12, 3), "node count mismatch")
	checkPackageError(t, patch(valid, 11, 0x7F), "meta section exceeds package")
	// Unknown opcode
	checkPackageError(t, rawPackage(0, meta(nil, 0x07)), "unknown meta opcode 0x07")
	// String index out of range
	checkPackageError(t, rawPackage(0, meta([]string{"a"}, CONNECTION, 0, 0, 0, 0, 0, 0, 1, 0)),
		"string index 1 out of range")
	// Truncated meta
	checkPackageError(t, rawPackage(0, meta([]string{"a"}, CONNECTION, 0, 0)), "meta section truncated")
	// Container out of range
	checkPackageError(t, rawPackage(1, meta([]string{"n"}, nodeDef(0, 0, 100, 16, BYTECODE_FORMAT)...)),
		"code for node n exceeds package")
	// Unsupported format
	checkPackageError(t, rawPackage(1, meta([]string{"n"}, nodeDef(0, 0, 0, 16, 0x02)...)),
		"unsupported bytecode format 2")
}

func Test_Package_TypeMismatch(t *testing.T) {
	t.Parallel()
	//
	p := NewPackage()
	p.Nodes = append(p.Nodes, Node{Name: "n", Type: vm.SOFTWARE, Container: *NewContainer(vm.HARDWARE, nil, nil)})
	data, err := p.MarshalBinary()
	assert.NoError(t, err)
	checkPackageError(t, data, "type mismatch")
}

// ============================================================================
// Test Helpers
// ============================================================================

func testPackage(t *testing.T) *Package {
	insns, err := hw.ISA.ParseString(`
		.new %Fifo $loop ?
		.immcon $loop@in #0 ?
		.new %Fifo $loop
		.new %Adder $inc
		.new %Fifo $numbers
		.con $loop@out $inc@in1
		.immcon $inc@in2 #1
		.con $inc@out $loop@in
		.con $inc@out $numbers@in`)
	assert.NoError(t, err)
	//
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
	initText, err := hw.ISA.EncodeText(initInsns)
	assert.NoError(t, err)
	runText, err := hw.ISA.EncodeText(runInsns)
	assert.NoError(t, err)
	//
	p := NewPackage()
	p.Nodes = []Node{
		{"counter", vm.HARDWARE, nil, []string{"numbers"}, []string{"loop"}, *NewContainer(vm.HARDWARE, initText, runText)},
		{"sink", vm.SOFTWARE, []string{"in"}, nil, nil, *NewContainer(vm.SOFTWARE, nil, []byte("050003$in150000"))},
	}
	p.Connections = []Connection{{Endpoint{"counter", "numbers"}, Endpoint{"sink", "in"}}}
	//
	return p
}

func checkContainerError(t *testing.T, data []byte, expected string) {
	var c Container
	assert.ErrorContains(t, c.UnmarshalBinary(data), expected)
}

func checkPackageError(t *testing.T, data []byte, expected string) {
	var p Package
	assert.ErrorContains(t, p.UnmarshalBinary(data), expected)
}

// Return a copy of some data with one byte changed.
func patch(data []byte, index int, value byte) []byte {
	copied := append([]byte(nil), data...)
	copied[index] = value
	//
	return copied
}

// Construct a meta section from a string table and some raw body bytes.
func meta(strings []string, body ...byte) []byte {
	bytes := binary.LittleEndian.AppendUint32(nil, uint32(len(strings)))
	//
	for _, s := range strings {
		bytes = binary.LittleEndian.AppendUint16(bytes, uint16(len(s)))
		bytes = append(bytes, s...)
	}
	//
	return append(bytes, body...)
}

// Construct a node definition without ports.
func nodeDef(name uint16, typ byte, offset uint32, size uint32, format byte) []byte {
	bytes := []byte{NODE_DEF}
	bytes = binary.LittleEndian.AppendUint16(bytes, name)
	bytes = append(bytes, typ, 0, 0, 0)
	bytes = binary.LittleEndian.AppendUint32(bytes, offset)
	bytes = binary.LittleEndian.AppendUint32(bytes, size)
	//
	return append(bytes, format)
}

func rawPackage(nodes uint32, meta []byte) []byte {
	bytes := []byte{'S', 'O', 'L', 'P', 1, 0, 0, 0}
	bytes = binary.LittleEndian.AppendUint32(bytes, uint32(len(meta)))
	bytes = binary.LittleEndian.AppendUint32(bytes, nodes)
	//
	return append(bytes, meta...)
}
