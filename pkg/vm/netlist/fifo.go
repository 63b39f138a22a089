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
	"strings"

	"github.com/consensys/go-solace/pkg/util/collection/queue"
)

// FIFO is the type name of the fifo leaf.
const FIFO = "Fifo"

// Fifo is the only stateful leaf, and the only source of blocking.  It has any
// number of input ports (named "in", "in1", etc) and output ports (named "out",
// "out1", etc), along with a "size" output.  At the start of each cycle one
// value is dequeued for each connected output port, and at the end of each
// cycle every input port carrying a fresh value is enqueued.
type Fifo struct {
	items *queue.Queue[int32]
}

// NewFifo constructs an empty fifo.
func NewFifo() *Fifo {
	return &Fifo{queue.NewQueue[int32]()}
}

// Type implementation for the Leaf interface.
func (p *Fifo) Type() string {
	return FIFO
}

// Port implementation for the Leaf interface.
func (p *Fifo) Port(name string) (Direction, bool) {
	switch {
	case name == "size":
		return OUTPUT, true
	case strings.HasPrefix(name, "out"):
		return OUTPUT, true
	case strings.HasPrefix(name, "in"):
		return INPUT, true
	}
	//
	return 0, false
}

// Evaluate implementation for the Leaf interface.  The queue itself is moved by
// the graph (see emit and absorb), hence there is nothing to do here.
func (p *Fifo) Evaluate(ports Ports) error {
	return nil
}

// Len returns the number of values queued in this fifo.
func (p *Fifo) Len() uint {
	return p.items.Len()
}

// Push a value onto the back of this fifo.
func (p *Fifo) Push(value int32) {
	p.items.Push(value)
}

// Pop a value from the front of this fifo, returning false if it is empty.
func (p *Fifo) Pop() (int32, bool) {
	if p.items.IsEmpty() {
		return 0, false
	}
	//
	return p.items.Pop(), true
}

// Items returns a snapshot of the queued values, front first.
func (p *Fifo) Items() []int32 {
	return p.items.Items()
}

// Determine the number of values this fifo emits per cycle, which is the
// number of its output ports which have wires.
func (p *Fifo) demand(ports []string) uint {
	var n uint
	//
	for _, port := range ports {
		if strings.HasPrefix(port, "out") {
			n++
		}
	}
	//
	return n
}

// Dequeue one value onto each connected output port, in the order they were
// connected, and then publish the resulting size.  The caller must already
// have checked there is enough data.
func (p *Fifo) emit(ports Ports, connected []string) {
	for _, port := range connected {
		if strings.HasPrefix(port, "out") {
			ports.Send(port, p.items.Pop())
		}
	}
	//
	ports.Send("size", int32(p.items.Len()))
}

// Enqueue values from each input port carrying a value sent this cycle, in the
// order the ports were connected.
func (p *Fifo) absorb(ports Ports, connected []string) {
	for _, port := range connected {
		if dir, _ := p.Port(port); dir != INPUT {
			continue
		} else if wire := ports.wire(port); wire.Fresh(ports.graph.cycle) {
			p.items.Push(wire.value)
		}
	}
}
