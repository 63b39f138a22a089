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
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/consensys/go-solace/pkg/util/termio"
	"github.com/consensys/go-solace/pkg/vm"
	"github.com/consensys/go-solace/pkg/vm/backend"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] file",
	Short: "execute a single node.",
	Long: `Execute a single node locally.  The node is initialised, values given
	via --push are queued on its fifos, and then it is run for a number of
	ticks (stopping early if it blocks or fails).  Afterwards, the contents of
	every fifo are printed.`,
	Run: func(cmd *cobra.Command, args []string) {
		checkArgs(cmd, args, 1)
		//
		colour := configure(cmd)
		kind := readNodeType(cmd, args[0])
		steps := GetUint(cmd, "steps")
		//
		machine, err := backend.New(kind, readFile(args[0]))
		if err != nil {
			reportCodeError(err)
		}
		//
		status := machine.TryInit()
		fmt.Printf("init: %s\n", statusString(status, colour))
		//
		if status == vm.Success {
			for _, push := range GetStringArray(cmd, "push") {
				port, value := parsePush(push)
				//
				if err := machine.Push(port, value); err != nil {
					fatalf("%v", err)
				}
			}
			//
			var ticks uint
			//
			ticks, status = vm.RunAll(machine, steps)
			fmt.Printf("run: %s after %d tick(s)\n", statusString(status, colour), ticks)
		}
		//
		printFifos(machine, colour)
		//
		if status == vm.Error {
			atexit.Exit(1)
		}
	},
}

// Parse a push of the form "port=value".
func parsePush(text string) (string, int32) {
	port, value, ok := strings.Cut(text, "=")
	if !ok {
		fatalf("invalid push %q (expected port=value)", text)
	}
	//
	n, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		fatalf("invalid push %q: %v", text, err)
	}
	//
	return port, int32(n)
}

// Print the contents of every fifo of a machine, leaving them empty.
func printFifos(machine vm.Machine, colour bool) {
	var (
		fifos = slices.Sorted(slices.Values(machine.Fifos()))
		table = termio.NewTablePrinter(2)
		title = termio.BoldAnsiEscape()
	)
	//
	table.AnsiEscapes(colour)
	table.SetEscape(0, table.AddRow("fifo", "contents"), title)
	table.SetMaxWidth(80)
	//
	for _, fifo := range fifos {
		values, err := vm.Drain(machine, fifo)
		if err != nil {
			fatalf("%v", err)
		}
		//
		contents := make([]string, len(values))
		for i, value := range values {
			contents[i] = strconv.Itoa(int(value))
		}
		//
		table.AddRow(fifo, strings.Join(contents, ", "))
	}
	//
	table.Print(os.Stdout)
}

// Render a status, coloured when enabled.
func statusString(status vm.Status, colour bool) string {
	var escape = termio.NewAnsiEscape()
	//
	switch status {
	case vm.Success:
		escape = escape.FgColour(termio.TERM_GREEN)
	case vm.Blocked:
		escape = escape.FgColour(termio.TERM_YELLOW)
	default:
		escape = escape.FgColour(termio.TERM_RED)
	}
	//
	return escape.Wrap(status.String(), colour)
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().String("isa", "", "instruction set (hw or sw)")
	execCmd.Flags().StringArray("push", nil, "queue a value on a fifo before running (port=value)")
	execCmd.Flags().Uint("steps", 1, "maximum number of ticks to run")
}
