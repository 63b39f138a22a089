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
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/consensys/go-solace/pkg/binfile"
	"github.com/consensys/go-solace/pkg/vm"
	"github.com/consensys/go-solace/pkg/vm/backend"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Network is a set of nodes joined by connections, as described by a package.
// Each node runs on its own goroutine, and each connection is a bounded
// channel from an output port of one node to an input port of another.  Since
// the channels are bounded, a producer which outpaces its consumers is
// eventually held up.
type Network struct {
	config Config
	nodes  []*node
	index  map[string]*node
	// Connections in declaration order
	connections []binfile.Connection
	// Optional recorder of traffic
	sniffer *Sniffer
}

type node struct {
	def *binfile.Node
	// Number of successful ticks in the current run
	ticks atomic.Uint64
}

// Build constructs a network from a package, checking every connection joins
// an output port of some node to an input port of another (or the same) node.
func Build(pkg *binfile.Package, config Config) (*Network, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	//
	network := &Network{config: config, index: make(map[string]*node)}
	//
	for i := range pkg.Nodes {
		def := &pkg.Nodes[i]
		//
		if _, ok := network.index[def.Name]; ok {
			return nil, fmt.Errorf("duplicate node %s", def.Name)
		} else if def.Container.Header.NodeType != def.Type {
			return nil, fmt.Errorf("node %s is %s, but its code is %s", def.Name, def.Type,
				def.Container.Header.NodeType)
		}
		//
		n := &node{def: def}
		network.nodes = append(network.nodes, n)
		network.index[def.Name] = n
	}
	//
	for _, conn := range pkg.Connections {
		if err := network.checkEndpoint(conn.From, false); err != nil {
			return nil, err
		} else if err := network.checkEndpoint(conn.To, true); err != nil {
			return nil, err
		}
		//
		network.connections = append(network.connections, conn)
	}
	//
	return network, nil
}

func (p *Network) checkEndpoint(endpoint binfile.Endpoint, input bool) error {
	n, ok := p.index[endpoint.Node]
	//
	switch {
	case !ok:
		return fmt.Errorf("unknown node %s", endpoint.Node)
	case input && !slices.Contains(n.def.Inputs, endpoint.Port):
		return fmt.Errorf("%s is not an input port", endpoint)
	case !input && !slices.Contains(n.def.Outputs, endpoint.Port):
		return fmt.Errorf("%s is not an output port", endpoint)
	}
	//
	return nil
}

// Sniff records every value passing over a connection using a given sniffer,
// or stops recording when given nil.  This must be called before Run.
func (p *Network) Sniff(sniffer *Sniffer) {
	p.sniffer = sniffer
}

// Nodes returns the node definitions of this network, in declaration order.
func (p *Network) Nodes() []*binfile.Node {
	nodes := make([]*binfile.Node, len(p.nodes))
	//
	for i, n := range p.nodes {
		nodes[i] = n.def
	}
	//
	return nodes
}

// Connections returns the connections of this network, in declaration order.
func (p *Network) Connections() []binfile.Connection {
	return p.connections
}

// Ticks returns the number of successful ticks of a given node in the current
// (or most recent) run.  This is safe to call whilst the network is running.
func (p *Network) Ticks(name string) uint64 {
	if n, ok := p.index[name]; ok {
		return n.ticks.Load()
	}
	//
	return 0
}

// Run executes this network until the given context ends, the configured
// duration elapses, or some node fails.  Every node is initialised before any
// node runs, and any node which fails to initialise stops the network before
// it starts.  The end of the context is not considered a failure.
func (p *Network) Run(ctx context.Context) error {
	if d := p.config.Runtime.Duration.Duration; d > 0 {
		var cancel context.CancelFunc
		//
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	//
	procs, err := p.initialise()
	if err != nil {
		return err
	}
	//
	group, gctx := errgroup.WithContext(ctx)
	//
	p.connect(gctx, group, procs)
	//
	log.Infof("running %d node(s) over %d connection(s)", len(procs), len(p.connections))
	//
	for _, proc := range procs {
		group.Go(func() error { return proc.execute(gctx) })
	}
	//
	err = group.Wait()
	//
	if p.sniffer != nil {
		err = errors.Join(err, p.sniffer.Flush())
	}
	//
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Infof("network stopped: %v", err)
		return nil
	}
	//
	return err
}

// Construct and initialise the machine of every node.
func (p *Network) initialise() ([]*process, error) {
	procs := make([]*process, len(p.nodes))
	//
	for i, n := range p.nodes {
		machine, err := backend.New(n.def.Type, n.def.Container.Init, n.def.Container.Run)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.def.Name, err)
		}
		//
		machine.SetLogger(log.WithField("node", n.def.Name))
		fifos := machine.Fifos()
		//
		for _, ports := range [][]string{n.def.Inputs, n.def.Outputs, n.def.Self} {
			for _, port := range ports {
				if !slices.Contains(fifos, port) {
					return nil, fmt.Errorf("node %s has no fifo for port %s", n.def.Name, port)
				}
			}
		}
		//
		if status := machine.TryInit(); status == vm.Error {
			return nil, fmt.Errorf("node %s failed to initialise: %w", n.def.Name, machine.Fault())
		} else if status != vm.Success {
			return nil, fmt.Errorf("node %s failed to initialise (%s)", n.def.Name, status)
		}
		//
		n.ticks.Store(0)
		procs[i] = &process{
			node:     n,
			machine:  machine,
			capacity: p.config.Runtime.ChannelCapacity,
			outputs:  make(map[string][]chan<- int32),
		}
	}
	//
	return procs, nil
}

// Create the channel behind each connection, and attach its ends to the
// relevant processes.  When sniffing, each connection is split in two with a
// forwarding goroutine in between.
func (p *Network) connect(ctx context.Context, group *errgroup.Group, procs []*process) {
	var (
		capacity = p.config.Runtime.ChannelCapacity
		byName   = make(map[string]*process)
	)
	//
	for _, proc := range procs {
		byName[proc.node.def.Name] = proc
	}
	//
	for _, conn := range p.connections {
		var (
			src  = make(chan int32, capacity)
			dst  = src
			from = byName[conn.From.Node]
			to   = byName[conn.To.Node]
		)
		//
		if p.sniffer != nil {
			dst = make(chan int32, capacity)
			//
			group.Go(func() error { return p.forward(ctx, conn, src, dst) })
		}
		//
		from.outputs[conn.From.Port] = append(from.outputs[conn.From.Port], src)
		to.inputs = append(to.inputs, inbound{conn.To.Port, dst})
	}
}

// Forward values from one channel to another, recording each along the way.
func (p *Network) forward(ctx context.Context, conn binfile.Connection, src <-chan int32, dst chan<- int32) error {
	for {
		select {
		case value := <-src:
			if err := p.sniffer.Record(conn, value); err != nil {
				return fmt.Errorf("sniffing %s -> %s: %w", conn.From, conn.To, err)
			}
			//
			select {
			case dst <- value:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
