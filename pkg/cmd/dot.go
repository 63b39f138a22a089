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

	"github.com/consensys/go-solace/pkg/binfile"
	"github.com/consensys/go-solace/pkg/network"
	"github.com/consensys/go-solace/pkg/vm"
	"github.com/consensys/go-solace/pkg/vm/netlist"
	"github.com/spf13/cobra"
)

var dotCmd = &cobra.Command{
	Use:   "dot [flags] file",
	Short: "print a graph of a network or netlist.",
	Long: `Print a graph (in the DOT format of graphviz) of either the topology of
	a package, or the netlist of a hardware node.`,
	Run: func(cmd *cobra.Command, args []string) {
		var err error
		//
		checkArgs(cmd, args, 1)
		configure(cmd)
		//
		data := readFile(args[0])
		//
		if binfile.IsPackage(data) {
			var net *network.Network
			//
			if net, err = network.Build(readPackage(args[0]), network.DefaultConfig()); err == nil {
				err = net.WriteDot(os.Stdout)
			}
		} else if kind := readNodeType(cmd, args[0]); kind != vm.HARDWARE {
			fatalf("only hardware nodes have a netlist")
		} else {
			var machine *netlist.Machine
			//
			if machine, err = netlist.Load(data); err != nil {
				reportCodeError(err)
			} else if GetFlag(cmd, "init") {
				err = machine.InitGraph().WriteDot(os.Stdout)
			} else {
				err = machine.RunGraph().WriteDot(os.Stdout)
			}
		}
		//
		if err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(dotCmd)
	dotCmd.Flags().String("isa", "", "instruction set (hw or sw)")
	dotCmd.Flags().Bool("init", false, "show the init phase netlist (rather than the run phase)")
}
