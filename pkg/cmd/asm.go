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
	"github.com/consensys/go-solace/pkg/util/source"
	"github.com/consensys/go-solace/pkg/vm"
	"github.com/spf13/cobra"
)

var asmCmd = &cobra.Command{
	Use:   "asm [flags] file",
	Short: "assemble a node into instruction records.",
	Long: `Assemble the code of a node into instruction records, either as
	hex-text (one record per line) or as raw bytes.  The instruction set is
	determined by the file extension (.hwasm or .swasm) unless given.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			encoded []byte
			err     error
		)
		//
		checkArgs(cmd, args, 1)
		configure(cmd)
		//
		kind := readNodeType(cmd, args[0])
		format := GetString(cmd, "format")
		data := readFile(args[0])
		//
		if kind == vm.HARDWARE {
			encoded, err = assemble(hw.ISA, args[0], data, format)
		} else {
			encoded, err = assemble(sw.ISA, args[0], data, format)
		}
		//
		if err != nil {
			reportCodeError(err)
		}
		//
		writeFile(GetString(cmd, "output"), encoded)
	},
}

// Parse assembly and encode it in a given format.
func assemble[T asm.Instruction](isa *asm.Catalog[T], filename string, data []byte, format string) ([]byte, error) {
	insns, err := isa.Parse(source.NewSourceFile(filename, data))
	if err != nil {
		return nil, err
	}
	//
	switch format {
	case "hex":
		return isa.EncodeText(insns)
	case "bin":
		return isa.EncodeBinary(insns)
	default:
		return nil, fmt.Errorf("unknown format %q (expected hex or bin)", format)
	}
}

func init() {
	rootCmd.AddCommand(asmCmd)
	asmCmd.Flags().String("isa", "", "instruction set (hw or sw)")
	asmCmd.Flags().String("format", "hex", "output format (hex or bin)")
	asmCmd.Flags().StringP("output", "o", "-", "output file")
}
