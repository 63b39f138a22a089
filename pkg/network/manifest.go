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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/consensys/go-solace/pkg/binfile"
	"github.com/consensys/go-solace/pkg/vm"
	"github.com/consensys/go-solace/pkg/vm/backend"
)

// Manifest describes a network in TOML form, from which a package is linked.
// For example:
//
//	[[node]]
//	name = "counter"
//	type = "hardware"
//	source = "counter.hwasm"
//	outputs = ["numbers"]
//	self = ["loop"]
//
//	[[connection]]
//	from = "counter.numbers"
//	to = "sink.in"
type Manifest struct {
	Nodes       []NodeEntry       `toml:"node"`
	Connections []ConnectionEntry `toml:"connection"`
	// Directory against which source files are resolved.
	Dir string `toml:"-"`
}

// NodeEntry describes one node of a manifest.  The assembly for the node is
// either read from a source file, or given inline.
type NodeEntry struct {
	Name    string   `toml:"name"`
	Type    string   `toml:"type"`
	Source  string   `toml:"source"`
	Code    string   `toml:"code"`
	Inputs  []string `toml:"inputs"`
	Outputs []string `toml:"outputs"`
	Self    []string `toml:"self"`
}

// ConnectionEntry joins two ports, each given as "node.port".
type ConnectionEntry struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// LoadManifest reads a manifest file, resolving source files relative to the
// directory containing it.
func LoadManifest(filename string) (*Manifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", filename, err)
	}
	//
	manifest, err := ParseManifest(string(data), filepath.Dir(filename))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	//
	return manifest, nil
}

// ParseManifest parses a manifest given in TOML form.
func ParseManifest(text string, dir string) (*Manifest, error) {
	var manifest Manifest
	//
	if err := toml.Unmarshal([]byte(text), &manifest); err != nil {
		return nil, err
	}
	//
	manifest.Dir = dir
	//
	return &manifest, nil
}

// Link assembles the code of every node, and bundles the results into a
// package.
func (p *Manifest) Link() (*binfile.Package, error) {
	pkg := binfile.NewPackage()
	//
	for _, entry := range p.Nodes {
		node, err := p.linkNode(entry)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", entry.Name, err)
		}
		//
		pkg.Nodes = append(pkg.Nodes, node)
	}
	//
	for _, entry := range p.Connections {
		from, err := parseEndpoint(entry.From)
		if err != nil {
			return nil, err
		}
		//
		to, err := parseEndpoint(entry.To)
		if err != nil {
			return nil, err
		}
		//
		pkg.Connections = append(pkg.Connections, binfile.Connection{From: from, To: to})
	}
	//
	return pkg, nil
}

func (p *Manifest) linkNode(entry NodeEntry) (binfile.Node, error) {
	var text = entry.Code
	//
	if entry.Name == "" {
		return binfile.Node{}, errors.New("missing name")
	}
	//
	kind, err := vm.ParseNodeType(entry.Type)
	if err != nil {
		return binfile.Node{}, err
	}
	//
	switch {
	case entry.Source != "" && entry.Code != "":
		return binfile.Node{}, errors.New("both source and code given")
	case entry.Source != "":
		data, err := os.ReadFile(filepath.Join(p.Dir, entry.Source))
		if err != nil {
			return binfile.Node{}, err
		}
		//
		text = string(data)
	}
	//
	initCode, runCode, err := backend.Assemble(kind, text)
	if err != nil {
		return binfile.Node{}, err
	}
	//
	return binfile.Node{
		Name:      entry.Name,
		Type:      kind,
		Inputs:    entry.Inputs,
		Outputs:   entry.Outputs,
		Self:      entry.Self,
		Container: *binfile.NewContainer(kind, initCode, runCode),
	}, nil
}

// Parse an endpoint of the form "node.port".
func parseEndpoint(text string) (binfile.Endpoint, error) {
	node, port, ok := strings.Cut(text, ".")
	//
	if !ok || node == "" || port == "" {
		return binfile.Endpoint{}, fmt.Errorf("invalid endpoint %q (expected node.port)", text)
	}
	//
	return binfile.Endpoint{Node: node, Port: port}, nil
}
