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
package cmd

import (
	"os"
	"strings"
	"testing"

	"github.com/consensys/go-solace/pkg/asm/hw"
	"github.com/consensys/go-solace/pkg/asm/sw"
	"github.com/consensys/go-solace/pkg/util/assert"
	"github.com/consensys/go-solace/pkg/vm"
)

// Assembling and then disassembling gives the canonical assembly.
func Test_Asm_RoundTrip(t *testing.T) {
	t.Parallel()
	//
	for _, format := range []string{"hex", "bin"} {
		data := readTestFile(t, "../../testdata/hw/adder.hwasm")
		encoded, err := assemble(hw.ISA, "adder.hwasm", data, format)
		assert.NoError(t, err)
		//
		lines, err := disassemble(hw.ISA, encoded)
		assert.NoError(t, err)
		//
		insns, err := hw.ISA.ParseString(string(data))
		assert.NoError(t, err)
		assert.Equal(t, len(insns), len(lines))
		//
		for i, insn := range insns {
			assert.Equal(t, insn.String(), lines[i])
		}
	}
}

func Test_Asm_Errors(t *testing.T) {
	t.Parallel()
	//
	_, err := assemble(sw.ISA, "x.swasm", []byte(".push #1"), "xml")
	assert.ErrorContains(t, err, "unknown format \"xml\"")
	//
	_, err = assemble(sw.ISA, "x.swasm", []byte(".frobnicate"), "hex")
	assert.ErrorContains(t, err, "x.swasm:1:1")
}

func Test_Exec_ParsePush(t *testing.T) {
	t.Parallel()
	//
	port, value := parsePush("in=-12")
	assert.Equal(t, "in", port)
	assert.Equal(t, int32(-12), value)
}

func Test_Exec_StatusString(t *testing.T) {
	t.Parallel()
	//
	assert.Equal(t, "blocked", statusString(vm.Blocked, false))
	assert.Equal(t, "\033[32msuccess\033[0m", statusString(vm.Success, true))
	assert.True(t, strings.Contains(statusString(vm.Error, true), "\033[31m"))
}

// ============================================================================
// Test Helpers
// ============================================================================

func readTestFile(t *testing.T, filename string) []byte {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	//
	return bytes
}
