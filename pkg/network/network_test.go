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
package network

import (
	"bytes"
	"context"
	"encoding/csv"
	"path"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/consensys/go-solace/pkg/binfile"
	"github.com/consensys/go-solace/pkg/util/assert"
	. "github.com/onsi/gomega"
)

// TestDir determines the (relative) location of the test directory.
const TestDir = "../../testdata/network"

// TIMEOUT bounds how long any asynchronous expectation can take.
const TIMEOUT = 5 * time.Second

func Test_Network_Pipeline(t *testing.T) {
	t.Parallel()
	//
	var (
		g       = NewWithT(t)
		network = buildFixture(t, "pipeline.toml", DefaultConfig())
		out     bytes.Buffer
	)
	//
	sniffer, err := NewSniffer(&out, CSV_FORMAT, 0)
	g.Expect(err).NotTo(HaveOccurred())
	network.Sniff(sniffer)
	//
	stop := start(network)
	g.Eventually(func() uint64 { return network.Ticks("sink") }).WithTimeout(TIMEOUT).
		Should(BeNumerically(">=", 10))
	g.Expect(stop()).To(Succeed())
	// Each connection preserves order
	records := readCsv(t, out.String())
	checkPrefix(t, records["counter.numbers -> doubler.in"], 1, 1)
	checkPrefix(t, records["doubler.out -> sink.in"], 2, 2)
	g.Expect(len(records["doubler.out -> sink.in"])).To(BeNumerically(">=", 10))
}

func Test_Network_FanOut(t *testing.T) {
	t.Parallel()
	//
	var (
		g       = NewWithT(t)
		network = buildFixture(t, "fanout.toml", DefaultConfig())
		out     bytes.Buffer
	)
	//
	sniffer, err := NewSniffer(&out, CSV_FORMAT, 0)
	g.Expect(err).NotTo(HaveOccurred())
	network.Sniff(sniffer)
	//
	stop := start(network)
	g.Eventually(func() uint64 { return min(network.Ticks("left"), network.Ticks("right")) }).
		WithTimeout(TIMEOUT).Should(BeNumerically(">=", 5))
	g.Expect(stop()).To(Succeed())
	// Both sinks see every value
	records := readCsv(t, out.String())
	checkPrefix(t, records["counter.numbers -> left.in"], 1, 1)
	checkPrefix(t, records["counter.numbers -> right.in"], 1, 1)
}

// A stalled consumer eventually holds up its producer.
func Test_Network_Backpressure(t *testing.T) {
	t.Parallel()
	//
	var (
		g      = NewWithT(t)
		config = DefaultConfig()
	)
	//
	config.Runtime.ChannelCapacity = 2
	network := buildFixture(t, "stall.toml", config)
	stop := start(network)
	// Two values in the fifo, two in the channel, and one being flushed.
	g.Eventually(func() uint64 { return network.Ticks("counter") }).WithTimeout(TIMEOUT).Should(Equal(uint64(5)))
	g.Consistently(func() uint64 { return network.Ticks("counter") }).
		WithTimeout(100 * time.Millisecond).Should(Equal(uint64(5)))
	g.Expect(network.Ticks("stall")).To(Equal(uint64(0)))
	g.Expect(stop()).To(Succeed())
}

func Test_Network_Fault(t *testing.T) {
	t.Parallel()
	//
	var (
		g       = NewWithT(t)
		network = buildFixture(t, "fault.toml", DefaultConfig())
		done    = make(chan error, 1)
	)
	//
	go func() { done <- network.Run(context.Background()) }()
	//
	g.Eventually(done).WithTimeout(TIMEOUT).Should(Receive(MatchError(And(
		ContainSubstring("node fault failed after 0 tick(s)"),
		ContainSubstring("division by zero")))))
}

func Test_Network_Duration(t *testing.T) {
	t.Parallel()
	//
	var (
		g      = NewWithT(t)
		config = DefaultConfig()
		done   = make(chan error, 1)
	)
	//
	config.Runtime.Duration = Duration{50 * time.Millisecond}
	network := buildFixture(t, "pipeline.toml", config)
	//
	go func() { done <- network.Run(context.Background()) }()
	//
	g.Eventually(done).WithTimeout(TIMEOUT).Should(Receive(BeNil()))
	g.Expect(network.Ticks("counter")).To(BeNumerically(">", 0))
}

func Test_Network_InitFailure(t *testing.T) {
	t.Parallel()
	// Reads an empty fifo during init
	network := buildString(t, `
		[[node]]
		name = "eager"
		type = "software"
		inputs = ["in"]
		code = """
		.define %fifo $in ?
		.push $in ?
		.put $in ?
		"""`, DefaultConfig())
	//
	assert.ErrorContains(t, network.Run(context.Background()), "node eager failed to initialise (blocked)")
}

func Test_Network_InitFault(t *testing.T) {
	t.Parallel()
	//
	network := buildString(t, `
		[[node]]
		name = "bad"
		type = "software"
		code = """
		.push #1 ?
		.push #0 ?
		.mod ?
		"""`, DefaultConfig())
	//
	err := network.Run(context.Background())
	assert.ErrorContains(t, err, "node bad failed to initialise: init failed")
	assert.ErrorContains(t, err, "modulo by zero")
}

func Test_Network_MissingFifo(t *testing.T) {
	t.Parallel()
	//
	network := buildString(t, `
		[[node]]
		name = "n"
		type = "hardware"
		outputs = ["nope"]
		code = ".new %Fifo $out"`, DefaultConfig())
	//
	assert.ErrorContains(t, network.Run(context.Background()), "node n has no fifo for port nope")
}

func Test_Network_BuildErrors(t *testing.T) {
	t.Parallel()
	//
	checkBuildError(t, []binfile.Connection{connection("x.numbers", "sink.in")}, "unknown node x")
	checkBuildError(t, []binfile.Connection{connection("counter.numbers", "y.in")}, "unknown node y")
	checkBuildError(t, []binfile.Connection{connection("counter.loop", "sink.in")},
		"counter.loop is not an output port")
	checkBuildError(t, []binfile.Connection{connection("counter.numbers", "sink.out")},
		"sink.out is not an input port")
	//
	pkg := testPackage(t)
	pkg.Nodes = append(pkg.Nodes, pkg.Nodes[0])
	_, err := Build(pkg, DefaultConfig())
	assert.ErrorContains(t, err, "duplicate node counter")
	//
	config := DefaultConfig()
	config.Runtime.ChannelCapacity = 0
	_, err = Build(testPackage(t), config)
	assert.ErrorContains(t, err, "channel capacity must be positive")
}

func Test_Network_WriteDot(t *testing.T) {
	t.Parallel()
	//
	var out strings.Builder
	//
	network := buildFixture(t, "fanout.toml", DefaultConfig())
	assert.NoError(t, network.WriteDot(&out))
	//
	expected := `digraph Network {
  node [shape=rect,color=gray];
  edge [color=gray];
  "counter" [label="counter : software"];
  "counter" -> "counter" [label="loop"];
  "left" [label="left : software"];
  "right" [label="right : software"];
  "counter.numbers" [shape=point];
  "counter" -> "counter.numbers" [taillabel="numbers",arrowhead=none];
  "counter.numbers" -> "left" [headlabel="in"];
  "counter.numbers" -> "right" [headlabel="in"];
}
`
	assert.Equal(t, expected, out.String())
	//
	out.Reset()
	assert.NoError(t, buildFixture(t, "stall.toml", DefaultConfig()).WriteDot(&out))
	assert.True(t, strings.Contains(out.String(), `"counter" -> "stall" [taillabel="numbers",headlabel="a"];`))
}

// ============================================================================
// Test Helpers
// ============================================================================

func buildFixture(t *testing.T, name string, config Config) *Network {
	manifest, err := LoadManifest(path.Join(TestDir, name))
	assert.NoError(t, err)
	//
	return link(t, manifest, config)
}

func buildString(t *testing.T, text string, config Config) *Network {
	manifest, err := ParseManifest(text, TestDir)
	assert.NoError(t, err)
	//
	return link(t, manifest, config)
}

func link(t *testing.T, manifest *Manifest, config Config) *Network {
	pkg, err := manifest.Link()
	assert.NoError(t, err)
	//
	network, err := Build(pkg, config)
	assert.NoError(t, err)
	//
	return network
}

// Start a network running, returning a function which stops it and reports
// the outcome.
func start(network *Network) func() error {
	var (
		ctx, cancel = context.WithCancel(context.Background())
		done        = make(chan error, 1)
	)
	//
	go func() { done <- network.Run(ctx) }()
	//
	return func() error {
		cancel()
		return <-done
	}
}

// Read sniffed records in CSV form, grouping values by connection.
func readCsv(t *testing.T, text string) map[string][]int32 {
	var (
		records = make(map[string][]int32)
		reader  = csv.NewReader(strings.NewReader(text))
	)
	//
	rows, err := reader.ReadAll()
	assert.NoError(t, err)
	assert.Equal(t, csvHeader, rows[0])
	//
	for _, row := range rows[1:] {
		key := row[1] + "." + row[2] + " -> " + row[3] + "." + row[4]
		value, err := strconv.ParseInt(row[5], 10, 32)
		assert.NoError(t, err)
		//
		records[key] = append(records[key], int32(value))
	}
	//
	return records
}

// Check a sequence of values is start, start+step, start+2*step, ...
func checkPrefix(t *testing.T, values []int32, start int32, step int32) {
	assert.True(t, len(values) > 0, "no values recorded")
	//
	for i, value := range values {
		assert.Equal(t, start+int32(i)*step, value)
	}
}

func checkBuildError(t *testing.T, connections []binfile.Connection, expected string) {
	pkg := testPackage(t)
	pkg.Connections = connections
	//
	_, err := Build(pkg, DefaultConfig())
	assert.ErrorContains(t, err, expected)
}

func testPackage(t *testing.T) *binfile.Package {
	manifest, err := LoadManifest(path.Join(TestDir, "pipeline.toml"))
	assert.NoError(t, err)
	// Drop the doubler, leaving counter and sink
	manifest.Nodes = []NodeEntry{manifest.Nodes[0], manifest.Nodes[2]}
	manifest.Connections = nil
	//
	pkg, err := manifest.Link()
	assert.NoError(t, err)
	//
	return pkg
}

func connection(from string, to string) binfile.Connection {
	var (
		src, _ = parseEndpoint(from)
		dst, _ = parseEndpoint(to)
	)
	//
	return binfile.Connection{From: src, To: dst}
}
