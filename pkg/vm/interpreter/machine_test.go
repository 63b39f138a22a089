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
	"bytes"
	"os"
	"path"
	"testing"

	"github.com/consensys/go-solace/pkg/asm/sw"
	"github.com/consensys/go-solace/pkg/util/assert"
	"github.com/consensys/go-solace/pkg/vm"
)

// TestDir determines the (relative) location of the test directory.  That is
// where the software assembly fixtures can be found.
const TestDir = "../../../testdata/sw"

func Test_Adder_Blocking(t *testing.T) {
	t.Parallel()
	m := loadFixture(t, "adder.swasm")
	//
	assert.Equal(t, vm.Success, m.TryInit())
	assert.NoError(t, m.Push("a", 2))
	assert.Equal(t, vm.Blocked, m.TryRun())
	// The value read before blocking stays on the stack
	assert.Equal(t, []Value{Int(2)}, m.Stack())
	assert.NoError(t, m.Push("b", 4))
	assert.Equal(t, vm.Success, m.TryRun())
	checkDrain(t, m, "sum", 6)
	assert.Equal(t, 0, len(m.Stack()))
	// Retrying with nothing supplied blocks again
	assert.Equal(t, vm.Blocked, m.TryRun())
}

func Test_Counter_00(t *testing.T) {
	t.Parallel()
	m := loadFixture(t, "counter.swasm")
	//
	assert.Equal(t, vm.Success, m.TryInit())
	checkSize(t, m, "loop", 1)
	//
	n, status := vm.RunAll(m, 4)
	assert.Equal(t, vm.Success, status)
	assert.Equal(t, 4, n)
	checkDrain(t, m, "numbers", 1, 2, 3, 4)
	// Locals do not outlive their tick
	assert.True(t, m.Variable("x") == nil)
}

func Test_Loop_Branching(t *testing.T) {
	t.Parallel()
	m := loadFixture(t, "loop.swasm")
	//
	assert.Equal(t, vm.Success, m.TryInit())
	//
	for i := int32(9); i >= 0; i-- {
		assert.Equal(t, vm.Success, m.TryRun())
		checkDrain(t, m, "numbers", i)
	}
	//
	assert.Equal(t, vm.Success, m.TryRun())
	checkDrain(t, m, "numbers", 9)
}

func Test_Greeter_Print(t *testing.T) {
	t.Parallel()
	//
	var (
		buf bytes.Buffer
		m   = loadFixture(t, "greeter.swasm")
	)
	//
	m.SetOutput(&buf)
	assert.Equal(t, vm.Success, m.TryInit())
	assert.NoError(t, m.Push("in", 5))
	assert.NoError(t, m.Push("in", -1))
	n, status := vm.RunAll(m, 5)
	assert.Equal(t, vm.Blocked, status)
	assert.Equal(t, 2, n)
	assert.Equal(t, "value: 5\nvalue: -1\n", buf.String())
	checkDrain(t, m, "count", 1, 2)
	assert.Equal(t, Int(2), m.Variable("total").Value())
}

func Test_Add_Polymorphic(t *testing.T) {
	t.Parallel()
	checkStack(t, ".push #5 .push #3 .add", Int(8))
	checkStack(t, `.push #5 .push +"x" .add`, String("5x"))
	checkStack(t, `.push +"x" .push #5 .add`, String("x5"))
	checkStack(t, `.push +"a" .push +"b" .add`, String("ab"))
}

func Test_Arithmetic(t *testing.T) {
	t.Parallel()
	checkStack(t, ".push #5 .push #3 .sub", Int(2))
	checkStack(t, ".push #5 .push #3 .mul", Int(15))
	checkStack(t, ".push #-7 .push #2 .div", Int(-3))
	checkStack(t, ".push #-7 .push #2 .mod", Int(-1))
	checkStack(t, ".push #2147483647 .push #1 .add", Int(-2147483648))
	checkStack(t, ".push #5 .neg", Int(-5))
}

func Test_Comparison(t *testing.T) {
	t.Parallel()
	checkStack(t, ".push #1 .push #2 .lt", Int(1))
	checkStack(t, ".push #1 .push #2 .gt", Int(0))
	checkStack(t, ".push #2 .push #2 .le", Int(1))
	checkStack(t, ".push #1 .push #2 .ge", Int(0))
	checkStack(t, ".push #2 .push #2 .eq", Int(1))
	checkStack(t, ".push #2 .push #2 .neq", Int(0))
}

func Test_Logic(t *testing.T) {
	t.Parallel()
	checkStack(t, ".push #2 .push #3 .and", Int(1))
	checkStack(t, ".push #2 .push #0 .and", Int(0))
	checkStack(t, ".push #0 .push #7 .or", Int(1))
	checkStack(t, ".push #0 .push #0 .or", Int(0))
	checkStack(t, ".push #0 .not", Int(1))
	checkStack(t, ".push #9 .not", Int(0))
}

func Test_Variables(t *testing.T) {
	t.Parallel()
	checkStack(t, ".define %int $x .push $x", Int(0))
	checkStack(t, ".define %string $s .push $s", String(""))
	checkStack(t, ".define %int $x .push #3 .put $x .push $x .push $x", Int(3), Int(3))
	checkStack(t, ".define %fifo $f .pushsize $f .push #4 .put $f .pushsize $f .push $f", Int(0), Int(1), Int(4))
}

func Test_Faults(t *testing.T) {
	t.Parallel()
	checkError(t, ".push #1 .push #0 .div")
	checkError(t, ".push #1 .push #0 .mod")
	checkError(t, `.push #1 .push +"x" .sub`)
	checkError(t, `.push +"x" .neg`)
	checkError(t, `.push +"x" .not`)
	checkError(t, ".add")
	checkError(t, ".print")
	checkError(t, ".push $nope")
	checkError(t, ".push #1 .put $nope")
	checkError(t, ".pushsize $nope")
	checkError(t, ".define %int $x .pushsize $x")
	checkError(t, `.define %int $x .push +"x" .put $x`)
	checkError(t, `.define %fifo $f .push +"x" .put $f`)
	checkError(t, ".define %int $x .define %int $x")
	checkError(t, ".define %int $x .define %string $x")
	checkError(t, ".goto $nowhere")
	checkError(t, `.push +"x" .branch $a $b $c .label $a .label $b .label $c`)
}

func Test_Error_ResetsState(t *testing.T) {
	t.Parallel()
	//
	var buf bytes.Buffer
	m := loadString(t, `
		.define %fifo $in ?
		.push #42
		.print
		.push #1
		.push $in
		.div
		.print`)
	//
	m.SetOutput(&buf)
	assert.Equal(t, vm.Success, m.TryInit())
	assert.NoError(t, m.Push("in", 0))
	assert.Equal(t, vm.Error, m.TryRun())
	assert.Equal(t, 0, len(m.Stack()))
	// The next tick starts again from the beginning
	assert.NoError(t, m.Push("in", 1))
	assert.Equal(t, vm.Success, m.TryRun())
	assert.Equal(t, "42\n42\n1\n", buf.String())
}

func Test_Labels_AcrossPhases(t *testing.T) {
	t.Parallel()
	// Labels index the whole program, whose phases are interleaved.
	m := loadString(t, `
		.define %fifo $out ?
		.push #1
		.branch $yes $no $end
		.label $yes
		.define %int $unused ?
		.push #7
		.put $out
		.goto $end
		.label $no
		.push #8
		.put $out
		.label $end`)
	//
	assert.Equal(t, vm.Success, m.TryInit())
	assert.True(t, m.Variable("unused") != nil)
	assert.Equal(t, vm.Success, m.TryRun())
	checkDrain(t, m, "out", 7)
}

func Test_Labels_OtherPhase(t *testing.T) {
	t.Parallel()
	m := loadString(t, `
		.label $top ?
		.goto $top`)
	//
	assert.Equal(t, vm.Success, m.TryInit())
	assert.Equal(t, vm.Error, m.TryRun())
}

func Test_Labels_Duplicate(t *testing.T) {
	t.Parallel()
	//
	_, err := Load([]byte(".label $a .label $a ?"))
	assert.ErrorContains(t, err, "duplicate label a")
}

func Test_Define_UnknownType(t *testing.T) {
	t.Parallel()
	//
	_, err := Load([]byte(".define %float $a"))
	assert.ErrorContains(t, err, "unknown type float")
}

func Test_Phase_Order(t *testing.T) {
	t.Parallel()
	m := loadFixture(t, "counter.swasm")
	//
	assert.Equal(t, vm.Error, m.TryRun())
	assert.Equal(t, vm.Success, m.TryInit())
	assert.Equal(t, vm.Error, m.TryInit())
	checkSize(t, m, "loop", 1)
}

func Test_Init_Blocking(t *testing.T) {
	t.Parallel()
	m := loadString(t, `
		.define %fifo $seed ?
		.define %fifo $loop ?
		.push $seed ?
		.put $loop ?`)
	// Fifos exist before the init phase
	assert.Equal(t, []string{"seed", "loop"}, m.Fifos())
	assert.Equal(t, vm.Blocked, m.TryInit())
	assert.Equal(t, vm.Error, m.TryRun())
	assert.NoError(t, m.Push("seed", 3))
	assert.Equal(t, vm.Success, m.TryInit())
	checkDrain(t, m, "loop", 3)
}

func Test_UnknownFifo(t *testing.T) {
	t.Parallel()
	m := loadString(t, ".define %fifo $f ? .define %int $x ?")
	//
	assert.Equal(t, vm.Success, m.TryInit())
	assert.ErrorIs(t, m.Push("x", 1), vm.ErrUnknownFifo)
	_, err := m.Size("nope")
	assert.ErrorIs(t, err, vm.ErrUnknownFifo)
	_, err = m.Pop("f")
	assert.ErrorIs(t, err, vm.ErrFifoEmpty)
}

func Test_Load_Formats(t *testing.T) {
	t.Parallel()
	//
	insns, err := sw.ISA.ParseString(string(readFixture(t, "loop.swasm")))
	assert.NoError(t, err)
	binary, err := sw.ISA.EncodeBinary(insns)
	assert.NoError(t, err)
	hex, err := sw.ISA.EncodeText(insns)
	assert.NoError(t, err)
	//
	for _, code := range [][]byte{binary, hex} {
		m, err := Load(code)
		assert.NoError(t, err)
		assert.Equal(t, vm.Success, m.TryInit())
		assert.Equal(t, vm.Success, m.TryRun())
		checkDrain(t, m, "numbers", 9)
	}
}

// ============================================================================
// Test Helpers
// ============================================================================

func readFixture(t *testing.T, name string) []byte {
	bytes, err := os.ReadFile(path.Join(TestDir, name))
	if err != nil {
		t.Fatal(err)
	}
	//
	return bytes
}

func loadFixture(t *testing.T, name string) *Machine {
	return loadString(t, string(readFixture(t, name)))
}

func loadString(t *testing.T, text string) *Machine {
	m, err := Load([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	//
	return m
}

// Run a program as a single tick, and check the final stack.
func checkStack(t *testing.T, text string, expected ...Value) {
	m := loadString(t, text)
	//
	assert.Equal(t, vm.Success, m.TryInit())
	assert.Equal(t, vm.Success, m.TryRun(), text)
	assert.Equal(t, expected, m.Stack(), text)
}

// Run a program as a single tick, and check it fails.
func checkError(t *testing.T, text string) {
	m := loadString(t, text)
	//
	assert.Equal(t, vm.Success, m.TryInit())
	assert.Equal(t, vm.Error, m.TryRun(), text)
}

func checkSize(t *testing.T, m *Machine, fifo string, expected uint) {
	n, err := m.Size(fifo)
	assert.NoError(t, err)
	assert.Equal(t, expected, n, "size of "+fifo)
}

func checkDrain(t *testing.T, m *Machine, fifo string, expected ...int32) {
	values, err := vm.Drain(m, fifo)
	assert.NoError(t, err)
	assert.Equal(t, expected, values, "contents of "+fifo)
}
