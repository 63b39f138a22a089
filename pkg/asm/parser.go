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
	"strconv"

	"github.com/consensys/go-solace/pkg/util/source"
	"github.com/consensys/go-solace/pkg/util/source/lex"
)

// Split a given source file into its statements.  Statements begin at each
// mnemonic and extend up to the next, with an optional trailing '?' marking
// the init phase.  This is purely syntactic: neither the mnemonics nor the
// operand patterns are checked against any instruction set.
func Split(srcfile *source.File) ([]Statement, []source.SyntaxError) {
	parser := NewParser(srcfile)
	//
	return parser.Parse()
}

// ============================================================================
// Parser
// ============================================================================

// Parser is a parser for assembly statements.
type Parser struct {
	srcfile *source.File
	tokens  []lex.Token
	// Position within the tokens
	index int
}

// NewParser constructs a new parser for a given source file.
func NewParser(srcfile *source.File) *Parser {
	return &Parser{srcfile, nil, 0}
}

// Parse the given source file into a sequence of zero or more statements
// and/or some number of syntax errors.
func (p *Parser) Parse() ([]Statement, []source.SyntaxError) {
	var (
		statements []Statement
		stmt       Statement
		errors     []source.SyntaxError
	)
	// Convert source file into tokens
	if p.tokens, errors = Lex(p.srcfile); len(errors) > 0 {
		return nil, errors
	}
	// Continue going until all consumed
	for p.lookahead().Kind != END_OF {
		if stmt, errors = p.parseStatement(); len(errors) > 0 {
			return nil, errors
		}
		//
		statements = append(statements, stmt)
	}
	//
	return statements, nil
}

func (p *Parser) parseStatement() (Statement, []source.SyntaxError) {
	var (
		stmt    Statement
		start   = p.index
		operand Operand
		errs    []source.SyntaxError
	)
	//
	token, errs := p.expect(MNEMONIC)
	if len(errs) > 0 {
		return stmt, p.syntaxErrors(token, "expected instruction")
	}
	// Strip leading '.'
	stmt.Mnemonic = p.string(token)[1:]
	stmt.srcfile = p.srcfile
	// Parse operands
	for p.isOperand() {
		if operand, errs = p.parseOperand(); len(errs) > 0 {
			return stmt, errs
		}
		//
		stmt.Operands = append(stmt.Operands, operand)
	}
	// Parse optional init marker
	stmt.Init = p.match(INIT)
	// Sanity check
	if kind := p.lookahead().Kind; kind != MNEMONIC && kind != END_OF {
		return stmt, p.syntaxErrors(p.lookahead(), "unexpected token")
	}
	//
	stmt.Span = p.spanOf(start, p.index-1)
	//
	return stmt, nil
}

func (p *Parser) isOperand() bool {
	switch p.lookahead().Kind {
	case IDENTIFIER, TYPE, IMMEDIATE, STRING:
		return true
	default:
		return false
	}
}

func (p *Parser) parseOperand() (Operand, []source.SyntaxError) {
	var (
		token = p.lookahead()
		text  = p.string(token)
	)
	//
	p.index++
	//
	switch token.Kind {
	case IDENTIFIER:
		// Check for port selector
		if p.lookahead().Kind == PORT {
			port := p.lookahead()
			p.index++
			//
			return Operand{Kind: PORTREF, Name: text[1:], Port: p.string(port)[1:], Span: p.spanOf(p.index-2, p.index-1)}, nil
		}
		//
		return Operand{Kind: NAME, Name: text[1:], Span: token.Span}, nil
	case TYPE:
		return Operand{Kind: TYPENAME, Name: text[1:], Span: token.Span}, nil
	case IMMEDIATE:
		value, err := strconv.ParseInt(text[1:], 10, 32)
		if err != nil {
			return Operand{}, p.syntaxErrors(token, "immediate out of range")
		}
		//
		return Operand{Kind: NUMBER, Value: int32(value), Span: token.Span}, nil
	default:
		// Strip leading '+' and unquote
		value, err := strconv.Unquote(text[1:])
		if err != nil {
			return Operand{}, p.syntaxErrors(token, "malformed string")
		}
		//
		return Operand{Kind: TEXT, Name: value, Span: token.Span}, nil
	}
}

// Get the text representing the given token as a string.
func (p *Parser) string(token lex.Token) string {
	return p.srcfile.Text(token.Span)
}

// Lookahead returns the next token.  This must exist because EOF is always
// appended at the end of the token stream.
func (p *Parser) lookahead() lex.Token {
	return p.tokens[p.index]
}

// Expect returns an error if the next token is not what was expected.
func (p *Parser) expect(kind uint) (lex.Token, []source.SyntaxError) {
	lookahead := p.lookahead()
	//
	if lookahead.Kind != kind {
		errs := p.syntaxErrors(lookahead, "unexpected token")
		return lookahead, errs
	}
	//
	p.index++
	//
	return lookahead, nil
}

// Match attempts to match the given token.
func (p *Parser) match(kind uint) bool {
	if p.lookahead().Kind == kind {
		p.index++
		return true
	}
	//
	return false
}

func (p *Parser) spanOf(firstToken, lastToken int) source.Span {
	span := p.tokens[firstToken].Span
	//
	return span.Join(p.tokens[lastToken].Span)
}

func (p *Parser) syntaxErrors(token lex.Token, msg string) []source.SyntaxError {
	return []source.SyntaxError{*p.srcfile.SyntaxError(token.Span, msg)}
}
