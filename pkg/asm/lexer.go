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
package asm

import (
	"slices"

	"github.com/consensys/go-solace/pkg/util/source"
	"github.com/consensys/go-solace/pkg/util/source/lex"
)

// END_OF signals "end of file"
const END_OF uint = 0

// WHITESPACE signals whitespace
const WHITESPACE uint = 1

// COMMENT signals "; ... \n"
const COMMENT uint = 2

// MNEMONIC signals the start of an instruction, such as ".add"
const MNEMONIC uint = 3

// IDENTIFIER signals a named operand, such as "$x"
const IDENTIFIER uint = 4

// TYPE signals a type operand, such as "%Adder"
const TYPE uint = 5

// IMMEDIATE signals an integer operand, such as "#-1"
const IMMEDIATE uint = 6

// STRING signals a string operand, such as +"hello"
const STRING uint = 7

// PORT signals a port selector, such as "@in1"
const PORT uint = 8

// INIT signals "?", which marks an instruction of the init phase
const INIT uint = 9

// Rule for describing whitespace
var whitespace lex.Scanner[rune] = lex.Many(lex.Or(lex.Unit(' '), lex.Unit('\t'), lex.Unit('\n'), lex.Unit('\r')))

var nameStart lex.Scanner[rune] = lex.Or(
	lex.Unit('_'),
	lex.Within('a', 'z'),
	lex.Within('A', 'Z'))

var nameRest lex.Scanner[rune] = lex.Many(lex.Or(
	lex.Unit('_'),
	lex.Within('0', '9'),
	lex.Within('a', 'z'),
	lex.Within('A', 'Z')))

// Mnemonics are more permissive than names, since the longest matching prefix
// is determined later.
var mnemonic lex.Scanner[rune] = lex.Sequence(lex.Unit('.'), lex.Many(lex.Or(
	lex.Unit('_'),
	lex.Within('0', '9'),
	lex.Within('a', 'z'),
	lex.Within('A', 'Z'))))

var (
	identifier = lex.SequenceNullableLast(lex.Unit('$'), nameStart, nameRest)
	typename   = lex.SequenceNullableLast(lex.Unit('%'), nameStart, nameRest)
	port       = lex.SequenceNullableLast(lex.Unit('@'), nameStart, nameRest)
	digits     = lex.Many(lex.Within('0', '9'))
	immediate  = lex.Or(
		lex.Sequence(lex.Unit('#', '-'), digits),
		lex.Sequence(lex.Unit('#'), digits),
	)
	strung = lex.Sequence(lex.Unit('+'), lex.Quoted('"', '\\'))
)

// Comments start with ';' and continue until a newline or EOF.
var comment lex.Scanner[rune] = lex.SequenceNullableLast(lex.Unit(';'), lex.Until('\n'))

// lexing rules
var rules []lex.LexRule[rune] = []lex.LexRule[rune]{
	lex.Rule(comment, COMMENT),
	lex.Rule(whitespace, WHITESPACE),
	lex.Rule(mnemonic, MNEMONIC),
	lex.Rule(identifier, IDENTIFIER),
	lex.Rule(typename, TYPE),
	lex.Rule(port, PORT),
	lex.Rule(immediate, IMMEDIATE),
	lex.Rule(strung, STRING),
	lex.Rule(lex.Unit('?'), INIT),
	lex.Rule(lex.Eof[rune](), END_OF),
}

// Lex a given source file into a sequence of zero or more tokens, along with
// any syntax errors arising.
func Lex(srcfile *source.File) ([]lex.Token, []source.SyntaxError) {
	var (
		lexer = lex.NewLexer(srcfile.Contents(), rules...)
		// Lex as many tokens as possible
		tokens = lexer.Collect()
	)
	// Check whether anything was left (if so this is an error)
	if lexer.Remaining() != 0 {
		start, end := lexer.Index(), lexer.Index()+lexer.Remaining()
		end = min(end, start+unknownTextWidth(srcfile.Contents()[start:]))
		err := srcfile.SyntaxError(source.NewSpan(int(start), int(end)), "unknown text encountered")
		// errors
		return nil, []source.SyntaxError{*err}
	}
	// Remove whitespace and comments
	tokens = slices.DeleteFunc(tokens, func(t lex.Token) bool {
		return t.Kind == WHITESPACE || t.Kind == COMMENT
	})
	// Done
	return tokens, nil
}

// Determine how much of the unknown text to highlight, which is everything up
// to the next whitespace character.
func unknownTextWidth(text []rune) uint {
	n := lex.Many(lex.Not(' ', '\t', '\n', '\r'))(text)
	//
	return max(1, n)
}
