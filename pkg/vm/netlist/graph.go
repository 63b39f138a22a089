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
	"fmt"

	"github.com/consensys/go-solace/pkg/asm/hw"
	"github.com/consensys/go-solace/pkg/vm"
)

// Graph is a netlist of leaves whose ports are joined by wires.  Wires live in
// an arena owned by the graph, and ports refer to them by index.  A graph is
// evaluated one cycle at a time, where leaves are evaluated in the order they
// were declared.  Thus, a leaf reading a wire driven by a leaf declared after
// it observes the value from the previous cycle.  Correct combinational results
// therefore require drivers to be declared before their readers, with fifos
// used to break cycles.
type Graph struct {
	types map[string]Constructor
	nodes []*node
	index map[string]uint
	wires []Wire
	// Indices of fifo nodes, in declaration order.
	fifos []uint
	// Current cycle, where zero means no cycle has started.
	cycle uint64
}

type node struct {
	name string
	leaf Leaf
	// Wires attached to each connected port.
	wires map[string]WireId
	// Connected ports in the order they were connected.
	order []string
}

// NewGraph constructs an empty graph whose leaves can be drawn from the given
// types.  When no types are given, the built-in leaf types are used.
func NewGraph(types map[string]Constructor) *Graph {
	if types == nil {
		types = Builtins()
	}
	//
	return &Graph{types: types, index: make(map[string]uint)}
}

// AddLeaf adds a fresh leaf of a given type to this graph.
func (p *Graph) AddLeaf(typ string, name string) error {
	constructor, ok := p.types[typ]
	//
	if !ok {
		return fmt.Errorf("unknown leaf type %s", typ)
	} else if _, ok := p.index[name]; ok {
		return fmt.Errorf("duplicate leaf %s", name)
	}
	//
	leaf := constructor()
	p.index[name] = uint(len(p.nodes))
	//
	if _, ok := leaf.(*Fifo); ok {
		p.fifos = append(p.fifos, uint(len(p.nodes)))
	}
	//
	p.nodes = append(p.nodes, &node{name, leaf, make(map[string]WireId), nil})
	//
	return nil
}

// Connect two ports such that they share a wire.  If neither port is connected,
// a fresh wire is allocated.  If one is, the other joins its wire (which is how
// one output fans out to many inputs).  If both are, their wires are merged.  In
// all cases, a wire may have at most one driver.
func (p *Graph) Connect(fromLeaf, fromPort, toLeaf, toPort string) error {
	var (
		from, err1 = p.lookupPort(fromLeaf, fromPort)
		to, err2   = p.lookupPort(toLeaf, toPort)
	)
	//
	if err1 != nil {
		return err1
	} else if err2 != nil {
		return err2
	}
	//
	fromWire, fromOk := from.wires[fromPort]
	toWire, toOk := to.wires[toPort]
	//
	switch {
	case fromOk && toOk && fromWire == toWire:
		return nil
	case fromOk && toOk:
		return p.merge(fromWire, toWire)
	case fromOk:
		return p.attach(to, toPort, fromWire)
	case toOk:
		return p.attach(from, fromPort, toWire)
	}
	// Allocate fresh wire
	id := p.allocate()
	//
	if err := p.attach(from, fromPort, id); err != nil {
		return err
	}
	//
	return p.attach(to, toPort, id)
}

// ConnectImmediate binds a constant onto an unconnected input port.
func (p *Graph) ConnectImmediate(leaf, port string, value int32) error {
	n, err := p.lookupPort(leaf, port)
	//
	if err != nil {
		return err
	} else if _, ok := n.wires[port]; ok {
		return fmt.Errorf("port %s@%s already connected", leaf, port)
	} else if dir, _ := n.leaf.Port(port); dir != INPUT {
		return fmt.Errorf("cannot bind constant to output %s@%s", leaf, port)
	}
	//
	id := p.allocate()
	p.wires[id] = Wire{value: value, constant: true, driven: true}
	//
	return p.attach(n, port, id)
}

// Evaluate one cycle of this graph.  This fails with vm.ErrFifoEmpty, before
// anything has changed, if some fifo holds fewer values than it has output
// ports.  Otherwise, fifos first emit onto their outputs, then all other leaves
// are evaluated in declaration order, and finally fifos absorb fresh values
// from their inputs.
func (p *Graph) Evaluate() error {
	// Check every fifo can emit, before any dequeues
	for _, i := range p.fifos {
		n := p.nodes[i]
		fifo := n.leaf.(*Fifo)
		//
		if fifo.Len() < fifo.demand(n.order) {
			return vm.FifoEmpty(n.name)
		}
	}
	//
	p.cycle++
	//
	for _, i := range p.fifos {
		n := p.nodes[i]
		n.leaf.(*Fifo).emit(Ports{p, n}, n.order)
	}
	//
	for _, n := range p.nodes {
		if _, ok := n.leaf.(*Fifo); ok {
			continue
		} else if err := n.leaf.Evaluate(Ports{p, n}); err != nil {
			return fmt.Errorf("%s %s: %w", n.leaf.Type(), n.name, err)
		}
	}
	//
	for _, i := range p.fifos {
		n := p.nodes[i]
		n.leaf.(*Fifo).absorb(Ports{p, n}, n.order)
	}
	//
	return nil
}

// Fifo returns the fifo leaf of a given name.
func (p *Graph) Fifo(name string) (*Fifo, error) {
	if i, ok := p.index[name]; ok {
		if fifo, ok := p.nodes[i].leaf.(*Fifo); ok {
			return fifo, nil
		}
	}
	//
	return nil, vm.UnknownFifo(name)
}

// Push a value onto the back of a named fifo.
func (p *Graph) Push(name string, value int32) error {
	fifo, err := p.Fifo(name)
	if err != nil {
		return err
	}
	//
	fifo.Push(value)
	//
	return nil
}

// Pop a value from the front of a named fifo.
func (p *Graph) Pop(name string) (int32, error) {
	fifo, err := p.Fifo(name)
	if err != nil {
		return 0, err
	} else if value, ok := fifo.Pop(); ok {
		return value, nil
	}
	//
	return 0, vm.FifoEmpty(name)
}

// FifoSize returns the number of values queued in a named fifo.
func (p *Graph) FifoSize(name string) (uint, error) {
	fifo, err := p.Fifo(name)
	if err != nil {
		return 0, err
	}
	//
	return fifo.Len(), nil
}

// Fifos returns the names of all fifo leaves, in declaration order.
func (p *Graph) Fifos() []string {
	var names = make([]string, len(p.fifos))
	//
	for i, index := range p.fifos {
		names[i] = p.nodes[index].name
	}
	//
	return names
}

// Leaves returns the names of all leaves, in declaration order.
func (p *Graph) Leaves() []string {
	var names = make([]string, len(p.nodes))
	//
	for i, n := range p.nodes {
		names[i] = n.name
	}
	//
	return names
}

// Leaf returns the leaf of a given name, or nil if no such leaf exists.
func (p *Graph) Leaf(name string) Leaf {
	if i, ok := p.index[name]; ok {
		return p.nodes[i].leaf
	}
	//
	return nil
}

// Probe returns the current value on the wire attached to a given port, and
// whether that port is connected.
func (p *Graph) Probe(leaf, port string) (int32, bool) {
	if i, ok := p.index[leaf]; ok {
		if id, ok := p.nodes[i].wires[port]; ok {
			value, _ := p.wires[id].Value()
			return value, true
		}
	}
	//
	return 0, false
}

// Build a graph from a sequence of hardware instructions.
func Build(types map[string]Constructor, insns []hw.Instruction) (*Graph, error) {
	var graph = NewGraph(types)
	//
	for _, insn := range insns {
		var err error
		//
		switch insn := insn.(type) {
		case *hw.New:
			err = graph.AddLeaf(insn.Type, insn.Name)
		case *hw.Con:
			err = graph.Connect(insn.FromLeaf, insn.FromPort, insn.ToLeaf, insn.ToPort)
		case *hw.ImmCon:
			err = graph.ConnectImmediate(insn.Leaf, insn.Port, insn.Value)
		default:
			panic(fmt.Sprintf("unknown hardware instruction %T", insn))
		}
		//
		if err != nil {
			return nil, fmt.Errorf("%s: %w", insn.String(), err)
		}
	}
	//
	return graph, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (p *Graph) lookupPort(leaf, port string) (*node, error) {
	i, ok := p.index[leaf]
	//
	if !ok {
		return nil, fmt.Errorf("unknown leaf %s", leaf)
	}
	//
	n := p.nodes[i]
	//
	if _, ok := n.leaf.Port(port); !ok {
		return nil, fmt.Errorf("unknown port %s on %s %s", port, n.leaf.Type(), leaf)
	}
	//
	return n, nil
}

func (p *Graph) allocate() WireId {
	p.wires = append(p.wires, Wire{})
	return WireId(len(p.wires) - 1)
}

// Attach an unconnected port to an existing wire.
func (p *Graph) attach(n *node, port string, id WireId) error {
	var wire = &p.wires[id]
	//
	if dir, _ := n.leaf.Port(port); dir == OUTPUT {
		if wire.driven {
			return fmt.Errorf("wire at %s@%s has multiple drivers", n.name, port)
		}
		//
		wire.driven = true
	}
	//
	n.wires[port] = id
	n.order = append(n.order, port)
	//
	return nil
}

// Merge wire b into wire a, such that every port on b is moved to a.  Wire b is
// left orphaned in the arena.
func (p *Graph) merge(a, b WireId) error {
	var (
		wa = &p.wires[a]
		wb = &p.wires[b]
	)
	//
	if wa.driven && wb.driven {
		return fmt.Errorf("joining wires would give multiple drivers")
	}
	//
	if wb.driven {
		wa.value, wa.constant, wa.driven = wb.value, wb.constant, true
	}
	//
	for _, n := range p.nodes {
		for port, id := range n.wires {
			if id == b {
				n.wires[port] = a
			}
		}
	}
	//
	*wb = Wire{}
	//
	return nil
}
