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
	"bufio"
	"fmt"
	"io"
)

type endpoint struct {
	leaf string
	port string
}

// WriteDot writes this graph in the DOT format understood by graphviz.  Each
// leaf becomes a box, and each wire becomes edges from its driver to each of
// its readers.  Constants become plain text nodes.  Wires without a driver are
// drawn from a point.
func (p *Graph) WriteDot(out io.Writer) error {
	var (
		w       = bufio.NewWriter(out)
		drivers = make(map[WireId]endpoint)
		readers = make(map[WireId][]endpoint)
		wires   []WireId
	)
	//
	for _, n := range p.nodes {
		for _, port := range n.order {
			id := n.wires[port]
			dir, _ := n.leaf.Port(port)
			//
			if _, seen := drivers[id]; !seen && len(readers[id]) == 0 {
				wires = append(wires, id)
			}
			//
			if dir == OUTPUT {
				drivers[id] = endpoint{n.name, port}
			} else {
				readers[id] = append(readers[id], endpoint{n.name, port})
			}
		}
	}
	//
	fmt.Fprintln(w, "digraph Netlist {")
	fmt.Fprintln(w, "  node [shape=rect,color=gray];")
	fmt.Fprintln(w, "  edge [color=gray];")
	//
	for _, n := range p.nodes {
		fmt.Fprintf(w, "  %q [label=\"%s : %s\"];\n", n.name, n.name, n.leaf.Type())
	}
	//
	for _, id := range wires {
		var (
			wire   = p.wires[id]
			source string
			label  string
		)
		//
		if driver, ok := drivers[id]; ok {
			source, label = fmt.Sprintf("%q", driver.leaf), driver.port
		} else {
			source = fmt.Sprintf("\"wire%d\"", id)
			//
			if wire.constant {
				fmt.Fprintf(w, "  %s [shape=plaintext,label=\"#%d\"];\n", source, wire.value)
			} else {
				fmt.Fprintf(w, "  %s [shape=point];\n", source)
			}
		}
		//
		for _, reader := range readers[id] {
			fmt.Fprintf(w, "  %s -> %q [taillabel=\"%s\",headlabel=\"%s\"];\n", source, reader.leaf, label, reader.port)
		}
	}
	//
	fmt.Fprintln(w, "}")
	//
	return w.Flush()
}
