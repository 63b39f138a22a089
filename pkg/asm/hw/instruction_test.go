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
package hw

import (
	"math"
	"strings"
	"testing"

	"github.com/consensys/go-solace/pkg/util/assert"
)

func Test_Instruction_Coverage(t *testing.T) {
	t.Parallel()
	//
	covered := make(map[string]bool)
	//
	for _, insn := range samples(false) {
		covered[insn.Mnemonic()] = true
	}
	//
	for _, op := range ISA.Opcodes() {
		assert.True(t, covered[op.Mnemonic], "no sample for ."+op.Mnemonic)
	}
}

func Test_Instruction_Opcodes(t *testing.T) {
	t.Parallel()
	//
	expected := map[string]byte{"new": NEW, "con": CON, "immcon": IMMCON}
	//
	for _, insn := range samples(true) {
		records, err := ISA.Encode([]Instruction{insn})
		assert.NoError(t, err)
		assert.Equal(t, expected[insn.Mnemonic()], records[0].Opcode, insn.String())
	}
}

func Test_Instruction_Render(t *testing.T) {
	t.Parallel()
	//
	assert.Equal(t, ".new %Adder $add ?", (&New{"Adder", "add", true}).String())
	assert.Equal(t, ".con $add@out $x@in", (&Con{"add", "out", "x", "in", false}).String())
	assert.Equal(t, ".immcon $add@in2 #-2147483648", (&ImmCon{"add", "in2", math.MinInt32, false}).String())
}

func Test_Instruction_RoundTrip_Run(t *testing.T) {
	t.Parallel()
	checkRoundTrip(t, samples(false))
}

func Test_Instruction_RoundTrip_Init(t *testing.T) {
	t.Parallel()
	checkRoundTrip(t, samples(true))
}

func Test_Instruction_RoundTrip_Single(t *testing.T) {
	t.Parallel()
	//
	for _, init := range []bool{false, true} {
		for _, insn := range samples(init) {
			checkRoundTrip(t, []Instruction{insn})
		}
	}
}

// ============================================================================
// Test Helpers
// ============================================================================

func samples(init bool) []Instruction {
	return []Instruction{
		&New{"Fifo", "loop", init},
		&New{"Adder", "add_1", init},
		&New{"Mux2", "_m", init},
		&Con{"add_1", "out", "loop", "in", init},
		&Con{"loop", "out", "add_1", "in1", init},
		&ImmCon{"add_1", "in2", 0, init},
		&ImmCon{"_m", "sel", math.MinInt32, init},
		&ImmCon{"_m", "in0", math.MaxInt32, init},
	}
}

func checkRoundTrip(t *testing.T, insns []Instruction) {
	binary, err := ISA.EncodeBinary(insns)
	assert.NoError(t, err)
	text, err := ISA.EncodeText(insns)
	assert.NoError(t, err)
	//
	for _, bytes := range [][]byte{binary, text, []byte(render(insns))} {
		decoded, err := ISA.Load(bytes)
		assert.NoError(t, err)
		assert.Equal(t, render(insns), render(decoded))
		assert.Equal(t, insns, decoded)
	}
}

func render(insns []Instruction) string {
	var lines = make([]string, len(insns))
	//
	for i, insn := range insns {
		lines[i] = insn.String()
	}
	//
	return strings.Join(lines, "\n")
}
