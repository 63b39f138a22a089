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
package vm

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ErrFifoEmpty signals that a fifo had insufficient data for evaluation to
// proceed.  This is the sole source of blocking in either backend.
var ErrFifoEmpty = errors.New("fifo empty")

// ErrUnknownFifo signals a port operation on a fifo which does not exist.
var ErrUnknownFifo = errors.New("unknown fifo")

// Status is the outcome of one attempt to initialise or run a machine.
type Status uint8

const (
	// Success indicates the phase completed, such that produced data can be
	// drained and new input supplied.
	Success Status = iota
	// Blocked indicates evaluation could not complete because a fifo had
	// insufficient data.  It is safe to try again later, typically after
	// supplying more input.
	Blocked
	// Error indicates a fault from which the machine cannot recover.  The
	// fault has already been logged, and is available from Fault.
	Error
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Blocked:
		return "blocked"
	default:
		return "error"
	}
}

// Machine is the contract shared by the hardware and software backends.  An
// external scheduler calls TryInit once, and then TryRun repeatedly, moving
// data in and out of the machine's fifos between calls.  A machine is not safe
// for concurrent use: at most one call may be in progress at any time.
type Machine interface {
	// TryInit attempts to execute the init phase.
	TryInit() Status
	// TryRun attempts to execute one tick of the run phase.
	TryRun() Status
	// Push a value onto the back of a named fifo.
	Push(fifo string, value int32) error
	// Pop a value from the front of a named fifo.  This returns ErrFifoEmpty
	// when there is nothing to pop.
	Pop(fifo string) (int32, error)
	// Size returns the number of values queued in a named fifo.
	Size(fifo string) (uint, error)
	// Fifos returns the names of all fifos visible to the scheduler.
	Fifos() []string
	// SetLogger directs the diagnostics of this machine to a given logger.
	SetLogger(logger log.FieldLogger)
	// Fault returns the cause of the most recent Error status, or nil.
	Fault() error
}

// RunAll runs a given machine until it stops succeeding, or n ticks have been
// executed, returning the number of successful ticks and the final status.
func RunAll[M Machine](machine M, n uint) (uint, Status) {
	var nticks uint
	//
	for nticks < n {
		if status := machine.TryRun(); status != Success {
			return nticks, status
		}
		//
		nticks++
	}
	//
	return nticks, Success
}

// Drain pops everything currently queued in a named fifo.
func Drain[M Machine](machine M, fifo string) ([]int32, error) {
	var values []int32
	//
	for {
		n, err := machine.Size(fifo)
		if err != nil {
			return values, err
		} else if n == 0 {
			return values, nil
		}
		//
		value, err := machine.Pop(fifo)
		if err != nil {
			return values, err
		}
		//
		values = append(values, value)
	}
}

// NodeType identifies which backend executes a node.
type NodeType uint8

const (
	// HARDWARE nodes are executed as a netlist.
	HARDWARE NodeType = 0
	// SOFTWARE nodes are executed on a stack machine.
	SOFTWARE NodeType = 1
)

func (t NodeType) String() string {
	switch t {
	case HARDWARE:
		return "hardware"
	case SOFTWARE:
		return "software"
	default:
		return fmt.Sprintf("nodetype(%d)", uint8(t))
	}
}

// ParseNodeType converts the name of a node type into a node type.
func ParseNodeType(name string) (NodeType, error) {
	switch name {
	case "hardware", "hw":
		return HARDWARE, nil
	case "software", "sw":
		return SOFTWARE, nil
	default:
		return 0, fmt.Errorf("unknown node type %q", name)
	}
}
