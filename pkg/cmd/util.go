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
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/consensys/go-solace/pkg/asm"
	"github.com/consensys/go-solace/pkg/util/source"
	"github.com/consensys/go-solace/pkg/util/termio"
	"github.com/consensys/go-solace/pkg/vm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fatalf("%v", err)
	}
	//
	return r
}

// GetInt gets an expected int, or exits if an error arises.
func GetInt(cmd *cobra.Command, flag string) int {
	r, err := cmd.Flags().GetInt(flag)
	if err != nil {
		fatalf("%v", err)
	}
	//
	return r
}

// GetUint gets an expected uint, or exits if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fatalf("%v", err)
	}
	//
	return r
}

// GetString gets an expected string, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fatalf("%v", err)
	}
	//
	return r
}

// GetStringArray gets an expected string array, or exits if an error arises.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fatalf("%v", err)
	}
	//
	return r
}

// Configure the log level and colour output from the persistent flags,
// returning whether colour is enabled.
func configure(cmd *cobra.Command) bool {
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
	//
	return !GetFlag(cmd, "no-colour") && termio.AnsiEscapesEnabled(os.Stdout)
}

// Print an error and exit, running any registered exit handlers.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	atexit.Exit(2)
}

// Check the right number of arguments are given, otherwise print the usage and
// exit.
func checkArgs(cmd *cobra.Command, args []string, n int) {
	if len(args) != n {
		fmt.Println(cmd.UsageString())
		atexit.Exit(1)
	}
}

// Read a file, or exit if this fails.
func readFile(filename string) []byte {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		fatalf("%v", err)
	}
	//
	return bytes
}

// Write a file, where "-" means stdout, or exit if this fails.
func writeFile(filename string, data []byte) {
	var err error
	//
	if filename == "-" {
		_, err = os.Stdout.Write(data)
	} else {
		err = os.WriteFile(filename, data, 0644)
	}
	//
	if err != nil {
		fatalf("%v", err)
	}
}

// Determine the node type of a given file, either from the "--isa" flag or
// from its extension.
func readNodeType(cmd *cobra.Command, filename string) vm.NodeType {
	name := GetString(cmd, "isa")
	//
	if name == "" {
		switch path.Ext(filename) {
		case ".hwasm", ".hw":
			return vm.HARDWARE
		case ".swasm", ".sw":
			return vm.SOFTWARE
		default:
			fatalf("cannot determine instruction set of %s (use --isa)", filename)
		}
	}
	//
	kind, err := vm.ParseNodeType(name)
	if err != nil {
		fatalf("%v", err)
	}
	//
	return kind
}

// Report an error arising from code, highlighting the offending line of source
// when known.
func reportCodeError(err error) {
	var illegal *asm.IllegalInstruction
	//
	if errors.As(err, &illegal) && illegal.Location != nil {
		printSyntaxError(illegal.Location)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	//
	atexit.Exit(1)
}

// Print a syntax error with appropriate highlighting.
func printSyntaxError(err *source.SyntaxError) {
	var (
		span = err.Span()
		line = err.FirstEnclosingLine()
	)
	// Print error + line number
	fmt.Fprintf(os.Stderr, "%s:%d: %s\n", err.SourceFile().Filename(), line.Number(), err.Message())
	// Print line
	fmt.Fprintln(os.Stderr, line.String())
	// Print indent (todo: account for tabs)
	fmt.Fprint(os.Stderr, strings.Repeat(" ", span.Start()-line.Start()))
	// Print highlight
	fmt.Fprintln(os.Stderr, strings.Repeat("^", max(1, span.Length())))
}
