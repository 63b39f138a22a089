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

import "fmt"

// WireId identifies a wire within the arena of the graph which owns it.  Ports
// sharing a wire hold the same identifier.
type WireId uint32

// Wire is a single-slot value carrier.  Sending overwrites the slot, whilst
// receiving returns whatever was last sent (if anything).  A constant wire is
// bound to an immediate, and carries that value on every cycle.
type Wire struct {
	value int32
	// Cycle in which a value was last sent, where zero means never.
	cycle uint64
	// Indicates whether this wire is bound to an immediate.
	constant bool
	// Indicates whether some output port (or immediate) drives this wire.
	driven bool
}

// Value returns the current value on this wire, and whether it has ever been
// set.
func (p *Wire) Value() (int32, bool) {
	return p.value, p.constant || p.cycle != 0
}

// Fresh determines whether this wire carries a value sent during a given cycle.
func (p *Wire) Fresh(cycle uint64) bool {
	return p.constant || p.cycle == cycle
}

func (p *Wire) send(value int32, cycle uint64) {
	p.value = value
	p.cycle = cycle
}

// Ports gives a leaf access to the wires attached to its ports whilst it is
// being evaluated.
type Ports struct {
	graph *Graph
	node  *node
}

// Name returns the name of the leaf being evaluated.
func (p Ports) Name() string {
	return p.node.name
}

// Receive reads the value on the wire attached to a given port, which is zero
// if nothing has been sent yet.  Reading a port without a wire is an error.
func (p Ports) Receive(port string) (int32, error) {
	id, ok := p.node.wires[port]
	//
	if !ok {
		return 0, fmt.Errorf("leaf %s reads unconnected port %s", p.node.name, port)
	}
	// Unset wires read as zero
	value, _ := p.graph.wires[id].Value()
	//
	return value, nil
}

// Determine the wire attached to a given port, which must exist.
func (p Ports) wire(port string) *Wire {
	return &p.graph.wires[p.node.wires[port]]
}

// Send writes a value onto the wire attached to a given port.  Sending on a port
// without a wire has no effect, since nothing could observe it.
func (p Ports) Send(port string, value int32) {
	if id, ok := p.node.wires[port]; ok {
		p.graph.wires[id].send(value, p.graph.cycle)
	}
}
