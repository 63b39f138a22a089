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
package lex

import (
	"slices"
	"testing"

	"github.com/consensys/go-solace/pkg/util/assert"
	"github.com/consensys/go-solace/pkg/util/source"
)

func TestLexer_00(t *testing.T) {
	var tokens = []Token{
		{END_OF, source.NewSpan(0, 0)},
	}

	checkLexer(t, "", 0, tokens...)
}

func TestLexer_01(t *testing.T) {
	var tokens = []Token{
		{DOT, source.NewSpan(0, 1)},
		{END_OF, source.NewSpan(1, 1)},
	}

	checkLexer(t, ".", 0, tokens...)
}

func TestLexer_02(t *testing.T) {
	var tokens = []Token{
		{DOT, source.NewSpan(0, 1)},
		{WSPACE, source.NewSpan(1, 3)},
		{NUMBER, source.NewSpan(3, 5)},
		{END_OF, source.NewSpan(5, 5)},
	}

	checkLexer(t, ".  42", 0, tokens...)
}

func TestLexer_03(t *testing.T) {
	var tokens = []Token{}

	checkLexer(t, "x", 1, tokens...)
}

func TestLexer_04(t *testing.T) {
	var tokens = []Token{
		{QUOTED, source.NewSpan(0, 4)},
		{END_OF, source.NewSpan(4, 4)},
	}

	checkLexer(t, `"ab"`, 0, tokens...)
}

func TestLexer_05(t *testing.T) {
	var tokens = []Token{
		{QUOTED, source.NewSpan(0, 6)},
		{DOT, source.NewSpan(6, 7)},
		{END_OF, source.NewSpan(7, 7)},
	}

	checkLexer(t, `"a\"b".`, 0, tokens...)
}

func TestLexer_06(t *testing.T) {
	var tokens = []Token{}
	// unterminated quote
	checkLexer(t, `"ab`, 3, tokens...)
}

func TestLexerSequence(t *testing.T) {
	rule := Sequence(
		Unit('a'),
		Unit('b'),
		Unit('c'),
	)
	assert.Equal(t, 0, rule([]int32{'a', 'c', 'c'}))
	assert.Equal(t, 0, rule([]int32{'a', 'b', 'b'}))
	assert.Equal(t, 3, rule([]int32{'a', 'b', 'c', 'd'}))
}

func TestLexerSequenceNullableLast(t *testing.T) {
	rule := SequenceNullableLast(
		Unit('$'),
		Within('a', 'z'),
		Many(Within('0', '9')),
	)
	assert.Equal(t, 2, rule([]int32{'$', 'x'}))
	assert.Equal(t, 2, rule([]int32{'$', 'x', ' '}))
	assert.Equal(t, 4, rule([]int32{'$', 'x', '1', '2'}))
	assert.Equal(t, 0, rule([]int32{'$', ' '}))
	assert.Equal(t, 0, rule([]int32{'$'}))
}

func TestLexerNot(t *testing.T) {
	rule := Many(Not('"', '\\'))
	assert.Equal(t, 2, rule([]int32{'a', 'b', '"'}))
	assert.Equal(t, 0, rule([]int32{'\\'}))
}

// ==================================================================
// Framework
// ==================================================================

const END_OF uint = 0
const WSPACE uint = 1
const DOT uint = 2
const NUMBER uint = 3
const QUOTED uint = 4

// Rule for describing whitespace
var whitespace Scanner[rune] = Many(Or(Unit(' '), Unit('\t')))

// Rule for describing numbers
var number Scanner[rune] = Many(Within('0', '9'))

// lexing rules
var rules []LexRule[rune] = []LexRule[rune]{
	Rule(Unit('.'), DOT),
	Rule(whitespace, WSPACE),
	Rule(number, NUMBER),
	Rule(Quoted('"', '\\'), QUOTED),
	Rule(Eof[rune](), END_OF),
}

func checkLexer(t *testing.T, input string, remainder uint, expected ...Token) {
	items := []rune(input)
	// Construct text lexer
	lexer := NewLexer[rune](items, rules...)
	// Apply lexer
	tokens := lexer.Collect()
	// Keep scanning
	if !slices.Equal(tokens, expected) {
		t.Errorf("got %v, expected %v", tokens, expected)
	} else if lexer.Remaining() != remainder {
		n := len(items) - int(lexer.Remaining())
		t.Errorf("unmatched items: %v", items[n:])
	}
}
