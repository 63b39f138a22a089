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
	"fmt"

	"github.com/consensys/go-solace/pkg/util/source"
)

// IllegalInstruction is reported for any instruction which cannot be parsed,
// encoded or decoded.  This covers unknown mnemonics, unknown opcode bytes,
// malformed operands and records whose length field disagrees with their
// contents.
type IllegalInstruction struct {
	// Text is the offending fragment of assembly, or a hex dump of the
	// offending bytes.
	Text string
	// Reason describes what is wrong with it.
	Reason string
	// Location identifies where the fragment arose, when known.
	Location *source.SyntaxError
}

func (p *IllegalInstruction) Error() string {
	if p.Location != nil {
		line := p.Location.FirstEnclosingLine()
		span := p.Location.Span()
		col := span.Start() - line.Start() + 1
		//
		return fmt.Sprintf("%s:%d:%d: illegal instruction %q: %s", p.Location.SourceFile().Filename(),
			line.Number(), col, p.Text, p.Reason)
	}
	//
	return fmt.Sprintf("illegal instruction %q: %s", p.Text, p.Reason)
}

func illegalf(text string, reason string, args ...any) *IllegalInstruction {
	return &IllegalInstruction{text, fmt.Sprintf(reason, args...), nil}
}

// Convert a syntax error into an illegal instruction, retaining its location.
func illegalAt(err source.SyntaxError) *IllegalInstruction {
	text := err.SourceFile().Text(err.Span())
	//
	return &IllegalInstruction{text, err.Message(), &err}
}
