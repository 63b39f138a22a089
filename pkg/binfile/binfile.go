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
package binfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/consensys/go-solace/pkg/vm"
)

// ============================================================================
// Container Format
// ============================================================================

// Container wraps the init and run sections of a single node, behind a fixed
// 16-byte header.  Sections hold instruction records (typically hex-text),
// which are decoded by the backend for the container's node type.
type Container struct {
	// Header for the container
	Header ContainerHeader
	// Init section
	Init []byte
	// Run section
	Run []byte
}

// NewContainer constructs a container for the current version.
func NewContainer(kind vm.NodeType, init []byte, run []byte) *Container {
	return &Container{
		ContainerHeader{SOLB, CONTAINER_VERSION, kind, ISA_VERSION, 0},
		init,
		run,
	}
}

// ContainerHeader is the fixed part of a container.
type ContainerHeader struct {
	Magic    [4]byte
	Version  uint8
	NodeType vm.NodeType
	Isa      uint8
	Flags    uint8
}

// CONTAINER_HEADER_SIZE is the size (in bytes) of a container header, including
// both section sizes.
const CONTAINER_HEADER_SIZE = 16

// CONTAINER_VERSION is the version of the container format written.
const CONTAINER_VERSION uint8 = 1

// ISA_VERSION is the version of the instruction sets written.
const ISA_VERSION uint8 = 1

// SOLB identifies a container.  This just helps distinguish actual containers
// from corrupted files.
var SOLB [4]byte = [4]byte{'S', 'O', 'L', 'B'}

// IsContainer checks whether the given data begins with the container magic.
func IsContainer(data []byte) bool {
	return len(data) >= 4 && [4]byte(data[:4]) == SOLB
}

// MarshalBinary converts the container into a sequence of bytes.  Observe that
// all multi-byte fields are little-endian.
func (p *Container) MarshalBinary() ([]byte, error) {
	var (
		buffer bytes.Buffer
		sizes  [8]byte
	)
	//
	binary.LittleEndian.PutUint32(sizes[0:], uint32(len(p.Init)))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(len(p.Run)))
	// Write magic
	buffer.Write(p.Header.Magic[:])
	// Write versions, type and flags
	buffer.Write([]byte{p.Header.Version, uint8(p.Header.NodeType), p.Header.Isa, p.Header.Flags})
	// Write section sizes
	buffer.Write(sizes[:])
	// Write sections themselves
	buffer.Write(p.Init)
	buffer.Write(p.Run)
	// Done
	return buffer.Bytes(), nil
}

// UnmarshalBinary initialises this container from a given set of data bytes.
// This should match exactly the encoding above.  Any data following the run
// section is ignored.
func (p *Container) UnmarshalBinary(data []byte) error {
	if len(data) < CONTAINER_HEADER_SIZE {
		return fmt.Errorf("container too small (%d bytes)", len(data))
	} else if !IsContainer(data) {
		return fmt.Errorf("invalid container magic %q", data[:4])
	}
	//
	var (
		initSize = int32(binary.LittleEndian.Uint32(data[8:]))
		runSize  = int32(binary.LittleEndian.Uint32(data[12:]))
		header   = ContainerHeader{SOLB, data[4], vm.NodeType(data[5]), data[6], data[7]}
	)
	//
	if header.Version > CONTAINER_VERSION || header.Isa > ISA_VERSION {
		return fmt.Errorf("%w: container v%d, isa v%d", ErrIncompatible, header.Version, header.Isa)
	} else if header.NodeType != vm.HARDWARE && header.NodeType != vm.SOFTWARE {
		return fmt.Errorf("unknown node type %d in container", data[5])
	} else if initSize < 0 || runSize < 0 {
		return fmt.Errorf("negative section size (init=%d, run=%d)", initSize, runSize)
	}
	//
	end := CONTAINER_HEADER_SIZE + int64(initSize) + int64(runSize)
	//
	if end > int64(len(data)) {
		return fmt.Errorf("sections exceed container (expected at least %d bytes, got %d)", end, len(data))
	}
	// Finally assign everything over
	p.Header = header
	p.Init = section(data[CONTAINER_HEADER_SIZE : CONTAINER_HEADER_SIZE+initSize])
	p.Run = section(data[CONTAINER_HEADER_SIZE+initSize : end])
	// Done
	return nil
}

// Copy out a section, where empty sections are nil.
func section(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	//
	return bytes.Clone(data)
}

// ErrIncompatible signals a container or package of an unsupported version.
var ErrIncompatible = errors.New("incompatible version")
