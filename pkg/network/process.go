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
	"fmt"
	"reflect"

	"github.com/consensys/go-solace/pkg/vm"
	log "github.com/sirupsen/logrus"
)

// process is the execution of a single node within a running network.  All
// access to the machine happens on the process's own goroutine.
type process struct {
	node    *node
	machine vm.Machine
	// Number of values an input fifo can hold before channels feeding it are
	// no longer drained.
	capacity uint
	// Channels feeding the input ports of this node
	inputs []inbound
	// Channels fed by each output port of this node
	outputs map[string][]chan<- int32
}

type inbound struct {
	port    string
	channel <-chan int32
}

// Execute the node until the context ends or the node fails.  Each iteration
// moves whatever input is available into the machine and attempts one tick.
// When blocked with nothing new to offer, the process sleeps until some input
// arrives.
func (p *process) execute(ctx context.Context) error {
	var (
		name  = p.node.def.Name
		cases = p.selectCases(ctx)
	)
	//
	for ctx.Err() == nil {
		drained, err := p.drain()
		if err != nil {
			return err
		}
		//
		switch p.machine.TryRun() {
		case vm.Success:
			p.node.ticks.Add(1)
			//
			if err := p.flush(ctx); err != nil {
				return err
			}
		case vm.Blocked:
			if drained == 0 {
				log.Debugf("node %s waiting for input", name)
				//
				if err := p.wait(ctx, cases); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("node %s failed after %d tick(s): %w", name, p.node.ticks.Load(), p.machine.Fault())
		}
	}
	//
	return ctx.Err()
}

// Move values already waiting on input channels into the machine, returning
// how many were moved.  At most the values present on entry are taken, so a
// fast producer cannot keep this going forever.  Likewise, a fifo already
// holding capacity values takes nothing, such that a stalled node eventually
// holds up its producers.
func (p *process) drain() (uint, error) {
	var count uint
	//
	for _, in := range p.inputs {
		for n := len(in.channel); n > 0; n-- {
			full, err := p.full(in.port)
			//
			if err != nil {
				return count, err
			} else if full {
				break
			} else if err := p.machine.Push(in.port, <-in.channel); err != nil {
				return count, err
			}
			//
			count++
		}
	}
	//
	return count, nil
}

// Check whether a given input fifo is at capacity.
func (p *process) full(port string) (bool, error) {
	size, err := p.machine.Size(port)
	//
	return size >= p.capacity, err
}

// Move the contents of every output port onto the channels it feeds, waiting
// for space where necessary.  Values produced on a port without connections
// are discarded.
func (p *process) flush(ctx context.Context) error {
	for _, port := range p.node.def.Outputs {
		values, err := vm.Drain(p.machine, port)
		if err != nil {
			return err
		}
		//
		channels := p.outputs[port]
		//
		if len(channels) == 0 && len(values) > 0 {
			log.Debugf("node %s discarding %d value(s) from port %s", p.node.def.Name, len(values), port)
		}
		//
		for _, value := range values {
			for _, ch := range channels {
				select {
				case ch <- value:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	//
	return nil
}

// Construct the cases for waiting on any input, where the final case is the
// end of the context.
func (p *process) selectCases(ctx context.Context) []reflect.SelectCase {
	cases := make([]reflect.SelectCase, len(p.inputs)+1)
	//
	for i, in := range p.inputs {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(in.channel)}
	}
	//
	cases[len(p.inputs)] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())}
	//
	return cases
}

// Wait until a value arrives on some input which is not at capacity, and push
// it into the machine.
func (p *process) wait(ctx context.Context, cases []reflect.SelectCase) error {
	for i, in := range p.inputs {
		full, err := p.full(in.port)
		if err != nil {
			return err
		}
		// A zero channel disables the case
		if full {
			cases[i].Chan = reflect.Value{}
		} else {
			cases[i].Chan = reflect.ValueOf(in.channel)
		}
	}
	//
	chosen, value, _ := reflect.Select(cases)
	//
	if chosen == len(p.inputs) {
		return ctx.Err()
	}
	//
	return p.machine.Push(p.inputs[chosen].port, int32(value.Int()))
}
