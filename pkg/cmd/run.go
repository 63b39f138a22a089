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
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/consensys/go-solace/pkg/binfile"
	"github.com/consensys/go-solace/pkg/network"
	"github.com/consensys/go-solace/pkg/util/termio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] package_file",
	Short: "run a network.",
	Long: `Run every node of a package concurrently, passing values over the
	connections between them, until interrupted, the configured duration
	elapses, or some node fails.  Traffic over connections can be recorded
	("sniffed") as text, CSV or CBOR.`,
	Run: func(cmd *cobra.Command, args []string) {
		checkArgs(cmd, args, 1)
		//
		colour := configure(cmd)
		pkg := readPackage(args[0])
		config := readConfig(cmd)
		//
		net, err := network.Build(pkg, config)
		if err != nil {
			fatalf("%v", err)
		}
		//
		if config.Sniff.Enabled {
			net.Sniff(openSniffer(config.Sniff))
		}
		//
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		//
		err = net.Run(ctx)
		//
		printTicks(net, colour)
		//
		if err != nil {
			fatalf("%v", err)
		}
	},
}

// Read a package file, or exit if this fails.
func readPackage(filename string) *binfile.Package {
	var pkg binfile.Package
	//
	if err := pkg.UnmarshalBinary(readFile(filename)); err != nil {
		fatalf("%s: %v", filename, err)
	}
	//
	return &pkg
}

// Read the configuration file (if given), and then apply any overriding
// flags.
func readConfig(cmd *cobra.Command) network.Config {
	var (
		config = network.DefaultConfig()
		flags  = cmd.Flags()
		err    error
	)
	//
	if filename := GetString(cmd, "config"); filename != "" {
		if config, err = network.LoadConfig(filename); err != nil {
			fatalf("%v", err)
		}
	}
	//
	if flags.Changed("channel-capacity") {
		config.Runtime.ChannelCapacity = GetUint(cmd, "channel-capacity")
	}
	//
	if flags.Changed("duration") {
		if err := config.Runtime.Duration.UnmarshalText([]byte(GetString(cmd, "duration"))); err != nil {
			fatalf("invalid duration: %v", err)
		}
	}
	//
	if flags.Changed("sniff") {
		config.Sniff.Enabled = GetFlag(cmd, "sniff")
	}
	//
	if flags.Changed("sniff-format") {
		config.Sniff.Format = GetString(cmd, "sniff-format")
	}
	//
	if flags.Changed("sniff-file") {
		config.Sniff.File = GetString(cmd, "sniff-file")
	}
	//
	if flags.Changed("sniff-limit") {
		config.Sniff.Limit = GetUint(cmd, "sniff-limit")
	}
	//
	if err := config.Validate(); err != nil {
		fatalf("%v", err)
	}
	// Explicit verbosity wins over the configured level
	if !GetFlag(cmd, "verbose") {
		config.ApplyLogLevel()
	}
	//
	return config
}

// Open the sniffer described by a configuration.  Records are flushed (and the
// file closed) on exit.
func openSniffer(config network.SniffConfig) *network.Sniffer {
	var out = os.Stdout
	//
	if config.File != "" {
		file, err := os.Create(config.File)
		if err != nil {
			fatalf("%v", err)
		}
		//
		out = file
	}
	//
	sniffer, err := network.NewSniffer(out, config.Format, config.Limit)
	if err != nil {
		fatalf("%v", err)
	}
	//
	atexit.Register(func() {
		if err := sniffer.Flush(); err != nil {
			log.Errorf("flushing sniffed records: %v", err)
		}
		//
		log.Infof("recorded %d value(s)", sniffer.Count())
		//
		if out != os.Stdout {
			out.Close()
		}
	})
	//
	return sniffer
}

// Print the number of ticks each node completed.
func printTicks(net *network.Network, colour bool) {
	table := termio.NewTablePrinter(3)
	table.AnsiEscapes(colour)
	table.SetEscape(0, table.AddRow("node", "type", "ticks"), termio.BoldAnsiEscape())
	//
	for _, node := range net.Nodes() {
		table.AddRow(node.Name, node.Type.String(), strconv.FormatUint(net.Ticks(node.Name), 10))
	}
	//
	fmt.Println()
	table.Print(os.Stdout)
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("config", "", "configuration file (TOML)")
	runCmd.Flags().String("duration", "0s", "how long to run for (0s means until interrupted)")
	runCmd.Flags().Uint("channel-capacity", network.DEFAULT_CHANNEL_CAPACITY, "capacity of each connection")
	runCmd.Flags().Bool("sniff", false, "record traffic over connections")
	runCmd.Flags().String("sniff-format", network.TEXT_FORMAT, "format of recorded traffic (text, csv or cbor)")
	runCmd.Flags().String("sniff-file", "", "file to record traffic into (defaults to stdout)")
	runCmd.Flags().Uint("sniff-limit", 0, "maximum number of records (0 means no limit)")
}
