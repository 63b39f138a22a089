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
package interpreter

import (
	"fmt"
	"strconv"

	"github.com/consensys/go-solace/pkg/util/collection/queue"
)

// Value is something which can be held on the stack, being either an Int or a
// String.  Values are immutable.
type Value interface {
	// Type returns the type of this value.
	Type() Type
	// String returns the textual form of this value, as used for printing and
	// concatenation.
	String() string
}

// Int is a signed 32-bit integer value.
type Int int32

// Type implementation for the Value interface.
func (v Int) Type() Type { return INT }

func (v Int) String() string { return strconv.Itoa(int(v)) }

// String is a string value.
type String string

// Type implementation for the Value interface.
func (v String) Type() Type { return STRING }

func (v String) String() string { return string(v) }

// Type is the declared type of a variable.
type Type uint8

const (
	// INT variables hold an Int.
	INT Type = iota
	// STRING variables hold a String.
	STRING
	// FIFO variables hold a queue of Ints.
	FIFO
)

func (t Type) String() string {
	switch t {
	case INT:
		return "int"
	case STRING:
		return "string"
	default:
		return "fifo"
	}
}

// ParseType converts the name of a type into a type.
func ParseType(name string) (Type, error) {
	switch name {
	case "int":
		return INT, nil
	case "string":
		return STRING, nil
	case "fifo":
		return FIFO, nil
	default:
		return 0, fmt.Errorf("unknown type %s", name)
	}
}

// Variable is a typed slot in the variable table.  Fifo variables hold a queue
// rather than a single value.
type Variable struct {
	typ   Type
	value Value
	items *queue.Queue[int32]
}

func newVariable(typ Type) *Variable {
	switch typ {
	case INT:
		return &Variable{typ: typ, value: Int(0)}
	case STRING:
		return &Variable{typ: typ, value: String("")}
	default:
		return &Variable{typ: typ, items: queue.NewQueue[int32]()}
	}
}

// Type returns the declared type of this variable.
func (p *Variable) Type() Type {
	return p.typ
}

// Value returns the value held in a non-fifo variable.
func (p *Variable) Value() Value {
	return p.value
}

// Items returns a snapshot of the values queued in a fifo variable.
func (p *Variable) Items() []int32 {
	return p.items.Items()
}
