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
	"fmt"

	"github.com/consensys/go-solace/pkg/asm"
	"github.com/consensys/go-solace/pkg/asm/hw"
	"github.com/consensys/go-solace/pkg/asm/sw"
	"github.com/consensys/go-solace/pkg/vm"
	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [flags] file",
	Short: "print the canonical assembly of a node.",
	Long: `Decode instruction records (hex-text or raw bytes) or parse assembly,
	and print the canonical assembly of each instruction.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			lines []string
			err   error
		)
		//
		checkArgs(cmd, args, 1)
		configure(cmd)
		//
		kind := readNodeType(cmd, args[0])
		data := readFile(args[0])
		//
		if kind == vm.HARDWARE {
			lines, err = disassemble(hw.ISA, data)
		} else {
			lines, err = disassemble(sw.ISA, data)
		}
		//
		if err != nil {
			reportCodeError(err)
		}
		//
		for _, line := range lines {
			fmt.Println(line)
		}
	},
}

func disassemble[T asm.Instruction](isa *asm.Catalog[T], data []byte) ([]string, error) {
	insns, err := isa.Load(data)
	if err != nil {
		return nil, err
	}
	//
	lines := make([]string, len(insns))
	//
	for i, insn := range insns {
		lines[i] = asm.Render(insn)
	}
	//
	return lines, nil
}

func init() {
	rootCmd.AddCommand(disasmCmd)
	disasmCmd.Flags().String("isa", "", "instruction set (hw or sw)")
}
