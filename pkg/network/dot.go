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
package network

import (
	"bufio"
	"fmt"
	"io"

	"github.com/consensys/go-solace/pkg/binfile"
)

// WriteDot writes the topology of this network in the DOT format understood by
// graphviz.  Each node becomes a box, and each connection an edge labelled with
// its ports.  An output port feeding more than one connection is drawn through
// a point, whilst self ports are drawn as loops.
func (p *Network) WriteDot(out io.Writer) error {
	var (
		w       = bufio.NewWriter(out)
		fanout  = make(map[binfile.Endpoint]uint)
		emitted = make(map[binfile.Endpoint]bool)
	)
	//
	for _, conn := range p.connections {
		fanout[conn.From]++
	}
	//
	fmt.Fprintln(w, "digraph Network {")
	fmt.Fprintln(w, "  node [shape=rect,color=gray];")
	fmt.Fprintln(w, "  edge [color=gray];")
	//
	for _, n := range p.nodes {
		fmt.Fprintf(w, "  %q [label=\"%s : %s\"];\n", n.def.Name, n.def.Name, n.def.Type)
		//
		for _, port := range n.def.Self {
			fmt.Fprintf(w, "  %q -> %q [label=\"%s\"];\n", n.def.Name, n.def.Name, port)
		}
	}
	//
	for _, conn := range p.connections {
		if fanout[conn.From] == 1 {
			fmt.Fprintf(w, "  %q -> %q [taillabel=\"%s\",headlabel=\"%s\"];\n", conn.From.Node, conn.To.Node,
				conn.From.Port, conn.To.Port)
			//
			continue
		}
		// Fan out through a point
		point := conn.From.String()
		//
		if !emitted[conn.From] {
			emitted[conn.From] = true
			//
			fmt.Fprintf(w, "  %q [shape=point];\n", point)
			fmt.Fprintf(w, "  %q -> %q [taillabel=\"%s\",arrowhead=none];\n", conn.From.Node, point, conn.From.Port)
		}
		//
		fmt.Fprintf(w, "  %q -> %q [headlabel=\"%s\"];\n", point, conn.To.Node, conn.To.Port)
	}
	//
	fmt.Fprintln(w, "}")
	//
	return w.Flush()
}
