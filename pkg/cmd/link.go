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
	"strings"

	"github.com/consensys/go-solace/pkg/network"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link [flags] manifest_file",
	Short: "link a network into a package.",
	Long: `Assemble every node described by a manifest (in TOML form), and bundle
	them along with their connections into a single package file.`,
	Run: func(cmd *cobra.Command, args []string) {
		checkArgs(cmd, args, 1)
		configure(cmd)
		//
		output := GetString(cmd, "output")
		//
		if output == "" {
			output = strings.TrimSuffix(args[0], ".toml") + ".solpkg"
		}
		//
		manifest, err := network.LoadManifest(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		//
		pkg, err := manifest.Link()
		if err != nil {
			reportCodeError(err)
		}
		// Check the network is well-formed before writing it
		if _, err := network.Build(pkg, network.DefaultConfig()); err != nil {
			fatalf("%v", err)
		}
		//
		data, err := pkg.MarshalBinary()
		if err != nil {
			fatalf("%v", err)
		}
		//
		writeFile(output, data)
		log.Infof("linked %d node(s) into %s (%d bytes)", len(pkg.Nodes), output, len(data))
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
	linkCmd.Flags().StringP("output", "o", "", "output file (defaults to the manifest name with .solpkg)")
}
