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
package backend

import (
	"os"
	"path"
	"testing"

	"github.com/consensys/go-solace/pkg/util/assert"
	"github.com/consensys/go-solace/pkg/vm"
)

// TestDir determines the (relative) location of the test directory.
const TestDir = "../../../testdata"

// Both backends behave identically on the same blocking scenario.
func Test_Backend_Adder(t *testing.T) {
	t.Parallel()
	checkAdder(t, vm.HARDWARE, "hw/adder.hwasm")
	checkAdder(t, vm.SOFTWARE, "sw/adder.swasm")
}

// Both backends count in the same way.
func Test_Backend_Counter(t *testing.T) {
	t.Parallel()
	checkCounter(t, vm.HARDWARE, "hw/counter.hwasm")
	checkCounter(t, vm.SOFTWARE, "sw/counter.swasm")
}

func Test_Backend_WrongISA(t *testing.T) {
	t.Parallel()
	// Software assembly is not valid hardware assembly
	_, err := New(vm.HARDWARE, readFixture(t, "sw/adder.swasm"))
	assert.True(t, err != nil)
	//
	_, err = New(vm.NodeType(7), nil)
	assert.ErrorContains(t, err, "unknown node type nodetype(7)")
}

// Assembled sections execute the same as the assembly itself.
func Test_Backend_Assemble(t *testing.T) {
	t.Parallel()
	//
	for _, kind := range []vm.NodeType{vm.HARDWARE, vm.SOFTWARE} {
		name := map[vm.NodeType]string{vm.HARDWARE: "hw/counter.hwasm", vm.SOFTWARE: "sw/counter.swasm"}[kind]
		initCode, runCode, err := Assemble(kind, string(readFixture(t, name)))
		assert.NoError(t, err)
		assert.True(t, len(initCode) > 0 && len(runCode) > 0, kind.String())
		//
		m, err := New(kind, initCode, runCode)
		assert.NoError(t, err)
		assert.Equal(t, vm.Success, m.TryInit())
		assert.Equal(t, vm.Success, m.TryRun())
		//
		values, err := vm.Drain(m, "numbers")
		assert.NoError(t, err)
		assert.Equal(t, []int32{1}, values, kind.String())
	}
	// Nothing in the init phase
	initCode, _, err := Assemble(vm.HARDWARE, ".new %Fifo $x")
	assert.NoError(t, err)
	assert.True(t, initCode == nil)
	//
	_, _, err = Assemble(vm.SOFTWARE, ".new %Fifo $x")
	assert.True(t, err != nil)
}

// ============================================================================
// Test Helpers
// ============================================================================

func checkAdder(t *testing.T, kind vm.NodeType, name string) {
	m, err := New(kind, readFixture(t, name))
	assert.NoError(t, err)
	assert.Equal(t, vm.Success, m.TryInit())
	assert.NoError(t, m.Push("a", 2))
	assert.Equal(t, vm.Blocked, m.TryRun(), kind.String())
	assert.NoError(t, m.Push("b", 4))
	assert.Equal(t, vm.Success, m.TryRun(), kind.String())
	//
	values, err := vm.Drain(m, "sum")
	assert.NoError(t, err)
	assert.Equal(t, []int32{6}, values, kind.String())
}

func checkCounter(t *testing.T, kind vm.NodeType, name string) {
	m, err := New(kind, readFixture(t, name))
	assert.NoError(t, err)
	assert.Equal(t, vm.Success, m.TryInit())
	//
	n, status := vm.RunAll(m, 4)
	assert.Equal(t, vm.Success, status)
	assert.Equal(t, 4, n)
	//
	values, err := vm.Drain(m, "numbers")
	assert.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4}, values, kind.String())
}

func readFixture(t *testing.T, name string) []byte {
	bytes, err := os.ReadFile(path.Join(TestDir, name))
	if err != nil {
		t.Fatal(err)
	}
	//
	return bytes
}
