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
package sw

// BinaryOp identifies the operator of a Binary instruction.
type BinaryOp uint8

// Binary operators, in opcode order.
const (
	ADD_OP BinaryOp = iota
	SUB_OP
	MUL_OP
	DIV_OP
	MOD_OP
	LT_OP
	GT_OP
	LE_OP
	GE_OP
	EQ_OP
	NEQ_OP
	AND_OP
	OR_OP
)

var binaryMnemonics = [...]string{"add", "sub", "mul", "div", "mod", "lt", "gt", "le", "ge", "eq", "neq", "and", "or"}

// Mnemonic returns the mnemonic of this operator.
func (op BinaryOp) Mnemonic() string {
	return binaryMnemonics[op]
}

// Opcode returns the opcode of this operator.
func (op BinaryOp) Opcode() byte {
	return ADD + byte(op)
}

// UnaryOp identifies the operator of a Unary instruction.
type UnaryOp uint8

// Unary operators.
const (
	// NOT_OP maps zero to one, and everything else to zero.
	NOT_OP UnaryOp = iota
	// NEG_OP negates its operand.
	NEG_OP
)

// Mnemonic returns the mnemonic of this operator.
func (op UnaryOp) Mnemonic() string {
	if op == NOT_OP {
		return "not"
	}
	//
	return "neg"
}

// Opcode returns the opcode of this operator.
func (op UnaryOp) Opcode() byte {
	if op == NOT_OP {
		return NOT
	}
	//
	return NEG
}
