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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/consensys/go-solace/pkg/vm"
)

// ============================================================================
// Package Format
// ============================================================================

// Package aggregates the containers of every node in a network, along with the
// ports of each node and the connections between them.  The layout is a 16-byte
// header, followed by a meta section (string table, node definitions and
// connections), followed by the containers themselves.
type Package struct {
	Version     uint8
	Flags       uint8
	Nodes       []Node
	Connections []Connection
}

// Node describes one node within a package.
type Node struct {
	Name string
	Type vm.NodeType
	// Ports through which the node receives values
	Inputs []string
	// Ports through which the node sends values
	Outputs []string
	// Ports which the node both sends and receives on, typically loops
	Self []string
	// Code for the node
	Container Container
}

// Endpoint identifies a port on a given node.
type Endpoint struct {
	Node string
	Port string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s.%s", e.Node, e.Port)
}

// Connection joins an output port of one node to an input port of another.
type Connection struct {
	From Endpoint
	To   Endpoint
}

// PACKAGE_HEADER_SIZE is the size (in bytes) of a package header.
const PACKAGE_HEADER_SIZE = 16

// PACKAGE_VERSION is the version of the package format written.
const PACKAGE_VERSION uint8 = 1

// SOLP identifies a package.
var SOLP [4]byte = [4]byte{'S', 'O', 'L', 'P'}

// Opcodes of the meta section.
const (
	NODE_DEF   byte = 0x01
	CONNECTION byte = 0x02
	END        byte = 0xFF
)

// BYTECODE_FORMAT identifies containers as the format of node code.
const BYTECODE_FORMAT byte = 0x01

// IsPackage checks whether the given data begins with the package magic.
func IsPackage(data []byte) bool {
	return len(data) >= 4 && [4]byte(data[:4]) == SOLP
}

// NewPackage constructs an empty package for the current version.
func NewPackage() *Package {
	return &Package{Version: PACKAGE_VERSION}
}

// Node returns the node of a given name, or nil if no such node exists.
func (p *Package) Node(name string) *Node {
	for i := range p.Nodes {
		if p.Nodes[i].Name == name {
			return &p.Nodes[i]
		}
	}
	//
	return nil
}

// MarshalBinary converts the package into a sequence of bytes.
func (p *Package) MarshalBinary() ([]byte, error) {
	var (
		buffer     bytes.Buffer
		header     [PACKAGE_HEADER_SIZE]byte
		containers = make([][]byte, len(p.Nodes))
	)
	//
	for i := range p.Nodes {
		encoded, err := p.Nodes[i].Container.MarshalBinary()
		if err != nil {
			return nil, err
		}
		//
		containers[i] = encoded
	}
	// Meta size does not depend on where the containers start
	meta, err := p.encodeMeta(0, containers)
	if err != nil {
		return nil, err
	}
	//
	meta, err = p.encodeMeta(uint32(PACKAGE_HEADER_SIZE+len(meta)), containers)
	if err != nil {
		return nil, err
	}
	// Construct header
	copy(header[:], SOLP[:])
	header[4] = p.Version
	header[5] = p.Flags
	binary.LittleEndian.PutUint32(header[8:], uint32(len(meta)))
	binary.LittleEndian.PutUint32(header[12:], uint32(len(p.Nodes)))
	// Write everything
	buffer.Write(header[:])
	buffer.Write(meta)
	//
	for _, c := range containers {
		buffer.Write(c)
	}
	// Done
	return buffer.Bytes(), nil
}

func (p *Package) encodeMeta(base uint32, containers [][]byte) ([]byte, error) {
	var (
		strings stringTable
		body    bytes.Buffer
		offset  = base
	)
	//
	for i, node := range p.Nodes {
		body.WriteByte(NODE_DEF)
		strings.write(&body, node.Name)
		body.WriteByte(uint8(node.Type))
		//
		for _, ports := range [][]string{node.Inputs, node.Outputs, node.Self} {
			if len(ports) > math.MaxUint8 {
				return nil, fmt.Errorf("node %s has too many ports", node.Name)
			}
			//
			body.WriteByte(uint8(len(ports)))
			//
			for _, port := range ports {
				strings.write(&body, port)
			}
		}
		//
		body.Write(binary.LittleEndian.AppendUint32(nil, offset))
		body.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(containers[i]))))
		body.WriteByte(BYTECODE_FORMAT)
		//
		offset += uint32(len(containers[i]))
	}
	//
	for _, c := range p.Connections {
		body.WriteByte(CONNECTION)
		strings.write(&body, c.From.Node)
		strings.write(&body, c.From.Port)
		strings.write(&body, c.To.Node)
		strings.write(&body, c.To.Port)
	}
	//
	body.WriteByte(END)
	//
	if len(strings.entries) > math.MaxUint16+1 {
		return nil, errors.New("too many strings")
	}
	// String table comes first
	meta := binary.LittleEndian.AppendUint32(nil, uint32(len(strings.entries)))
	//
	for _, s := range strings.entries {
		if len(s) > math.MaxUint16 {
			return nil, fmt.Errorf("string too long (%d bytes)", len(s))
		}
		//
		meta = binary.LittleEndian.AppendUint16(meta, uint16(len(s)))
		meta = append(meta, s...)
	}
	//
	return append(meta, body.Bytes()...), nil
}

// UnmarshalBinary initialises this package from a given set of data bytes.
// This should match exactly the encoding above.
func (p *Package) UnmarshalBinary(data []byte) error {
	if len(data) < PACKAGE_HEADER_SIZE {
		return fmt.Errorf("package too small (%d bytes)", len(data))
	} else if !IsPackage(data) {
		return fmt.Errorf("invalid package magic %q", data[:4])
	} else if data[4] > PACKAGE_VERSION {
		return fmt.Errorf("%w: package version %d", ErrIncompatible, data[4])
	}
	//
	var (
		metaSize  = int32(binary.LittleEndian.Uint32(data[8:]))
		nodeCount = int32(binary.LittleEndian.Uint32(data[12:]))
	)
	//
	if metaSize < 0 || PACKAGE_HEADER_SIZE+int64(metaSize) > int64(len(data)) {
		return fmt.Errorf("meta section exceeds package (size=%d, package=%d)", metaSize, len(data))
	}
	//
	r := &reader{data: data[PACKAGE_HEADER_SIZE : PACKAGE_HEADER_SIZE+metaSize]}
	//
	strings, err := readStringTable(r)
	if err != nil {
		return err
	}
	//
	nodes, connections, err := readMeta(r, strings, data)
	if err != nil {
		return err
	} else if int32(len(nodes)) != nodeCount {
		return fmt.Errorf("node count mismatch (header=%d, meta=%d)", nodeCount, len(nodes))
	}
	// Finally assign everything over
	p.Version, p.Flags = data[4], data[5]
	p.Nodes, p.Connections = nodes, connections
	//
	return nil
}

func readStringTable(r *reader) ([]string, error) {
	count := r.u32()
	//
	if r.err != nil {
		return nil, r.err
	} else if uint64(count) > uint64(len(r.data)) {
		return nil, fmt.Errorf("string table count %d exceeds meta section", count)
	}
	//
	strings := make([]string, count)
	//
	for i := range strings {
		n := r.u16()
		strings[i] = string(r.bytes(int(n)))
	}
	//
	return strings, r.err
}

func readMeta(r *reader, strings []string, data []byte) ([]Node, []Connection, error) {
	var (
		nodes       []Node
		connections []Connection
	)
	//
	for r.err == nil && r.remaining() > 0 {
		switch opcode := r.u8(); opcode {
		case NODE_DEF:
			node, err := readNode(r, strings, data)
			if err != nil {
				return nil, nil, err
			}
			//
			nodes = append(nodes, node)
		case CONNECTION:
			from := Endpoint{r.str(strings), r.str(strings)}
			to := Endpoint{r.str(strings), r.str(strings)}
			connections = append(connections, Connection{from, to})
		case END:
			return nodes, connections, r.err
		default:
			return nil, nil, fmt.Errorf("unknown meta opcode 0x%02x", opcode)
		}
	}
	//
	return nodes, connections, r.err
}

func readNode(r *reader, strings []string, data []byte) (Node, error) {
	var node Node
	//
	node.Name = r.str(strings)
	node.Type = vm.NodeType(r.u8())
	node.Inputs = r.ports(strings)
	node.Outputs = r.ports(strings)
	node.Self = r.ports(strings)
	//
	offset, size, format := r.u32(), r.u32(), r.u8()
	//
	if r.err != nil {
		return node, r.err
	} else if node.Type != vm.HARDWARE && node.Type != vm.SOFTWARE {
		return node, fmt.Errorf("unknown type %d for node %s", node.Type, node.Name)
	} else if format != BYTECODE_FORMAT {
		return node, fmt.Errorf("unsupported bytecode format %d for node %s", format, node.Name)
	} else if uint64(offset)+uint64(size) > uint64(len(data)) {
		return node, fmt.Errorf("code for node %s exceeds package (offset=%d, size=%d, package=%d)",
			node.Name, offset, size, len(data))
	}
	//
	if err := node.Container.UnmarshalBinary(data[offset : offset+size]); err != nil {
		return node, fmt.Errorf("node %s: %w", node.Name, err)
	} else if node.Container.Header.NodeType != node.Type {
		return node, fmt.Errorf("node %s: type mismatch (meta=%s, container=%s)", node.Name, node.Type,
			node.Container.Header.NodeType)
	}
	//
	return node, nil
}

// ============================================================================
// Helpers
// ============================================================================

// Interns strings in order of first use.
type stringTable struct {
	entries []string
	index   map[string]uint16
}

func (p *stringTable) write(w *bytes.Buffer, s string) {
	if p.index == nil {
		p.index = make(map[string]uint16)
	}
	//
	i, ok := p.index[s]
	//
	if !ok {
		i = uint16(len(p.entries))
		p.index[s] = i
		p.entries = append(p.entries, s)
	}
	//
	w.Write(binary.LittleEndian.AppendUint16(nil, i))
}

// A little-endian reader which latches the first error encountered, after
// which every read returns zero.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (p *reader) remaining() int {
	return len(p.data) - p.pos
}

func (p *reader) bytes(n int) []byte {
	if p.err != nil {
		return nil
	} else if n > p.remaining() {
		p.err = fmt.Errorf("meta section truncated at offset %d", p.pos)
		return nil
	}
	//
	chunk := p.data[p.pos : p.pos+n]
	p.pos += n
	//
	return chunk
}

func (p *reader) u8() uint8 {
	if b := p.bytes(1); b != nil {
		return b[0]
	}
	//
	return 0
}

func (p *reader) u16() uint16 {
	if b := p.bytes(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	//
	return 0
}

func (p *reader) u32() uint32 {
	if b := p.bytes(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	//
	return 0
}

func (p *reader) str(strings []string) string {
	i := p.u16()
	//
	if p.err == nil && int(i) >= len(strings) {
		p.err = fmt.Errorf("string index %d out of range", i)
	}
	//
	if p.err != nil {
		return ""
	}
	//
	return strings[i]
}

func (p *reader) ports(strings []string) []string {
	var (
		n     = p.u8()
		ports []string
	)
	//
	for i := uint8(0); i < n && p.err == nil; i++ {
		ports = append(ports, p.str(strings))
	}
	//
	return ports
}
