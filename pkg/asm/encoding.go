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
package asm

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"unicode"
)

// RECORD_HEADER_SIZE is the number of bytes preceding the parameters of a
// binary record (one opcode byte, followed by a two byte length).
const RECORD_HEADER_SIZE = 3

// TEXT_HEADER_SIZE is the number of characters preceding the parameters of a
// hex-text record (two hex digits of opcode, followed by four of length).
const TEXT_HEADER_SIZE = 6

// Encoded is the compact form of a single instruction.  It carries no
// semantics of its own: the opcode is only meaningful with respect to a given
// instruction set.
type Encoded struct {
	Opcode byte
	// Length is always the number of bytes in Params.
	Length uint16
	Params []byte
}

// NewEncoded constructs an encoded instruction for a given opcode and
// parameter text, whilst ensuring the parameters fit.
func NewEncoded(opcode byte, params []byte) (Encoded, error) {
	if len(params) > math.MaxUint16 {
		return Encoded{}, illegalf(string(params[:16]), "parameters too long (%d bytes)", len(params))
	}
	//
	return Encoded{opcode, uint16(len(params)), params}, nil
}

func (p Encoded) String() string {
	return fmt.Sprintf("%02x%04x%s", p.Opcode, p.Length, p.Params)
}

// StripSpace removes all whitespace from some parameter text, except where it
// occurs within a string literal.
func StripSpace(text string) string {
	var (
		buffer  bytes.Buffer
		quoted  = false
		escaped = false
	)
	//
	for _, c := range text {
		switch {
		case escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case !quoted && unicode.IsSpace(c):
			continue
		}
		//
		buffer.WriteRune(c)
	}
	//
	return buffer.String()
}

// ============================================================================
// Binary form
// ============================================================================

// WriteBinary writes a sequence of records in binary form, where each record
// is an opcode byte followed by a little-endian length and the parameter bytes.
func WriteBinary(records []Encoded) []byte {
	var buffer bytes.Buffer
	//
	for _, r := range records {
		buffer.WriteByte(r.Opcode)
		_ = binary.Write(&buffer, binary.LittleEndian, r.Length)
		buffer.Write(r.Params)
	}
	//
	return buffer.Bytes()
}

// ReadBinary reads a sequence of records in binary form.
func ReadBinary(data []byte) ([]Encoded, error) {
	var records []Encoded
	//
	for index := 0; index < len(data); {
		if len(data)-index < RECORD_HEADER_SIZE {
			return nil, illegalf(hex.EncodeToString(data[index:]), "truncated record header at offset %d", index)
		}
		//
		var (
			opcode = data[index]
			length = binary.LittleEndian.Uint16(data[index+1:])
			start  = index + RECORD_HEADER_SIZE
			end    = start + int(length)
		)
		//
		if end > len(data) {
			return nil, illegalf(hex.EncodeToString(data[index:]),
				"length %d exceeds remaining %d bytes at offset %d", length, len(data)-start, index)
		}
		//
		records = append(records, Encoded{opcode, length, bytes.Clone(data[start:end])})
		index = end
	}
	//
	return records, nil
}

// ============================================================================
// Hex-text form
// ============================================================================

// WriteText writes a sequence of records in hex-text form, where each record
// is two hex digits of opcode, followed by four hex digits of length and then
// the parameter text.  This is the form in which code sections of containers
// are stored.
func WriteText(records []Encoded) []byte {
	var buffer bytes.Buffer
	//
	for _, r := range records {
		buffer.WriteString(r.String())
	}
	//
	return buffer.Bytes()
}

// ReadText reads a sequence of records in hex-text form.  Whitespace between
// records is ignored.
func ReadText(data []byte) ([]Encoded, error) {
	var records []Encoded
	//
	for index := skipSpace(data, 0); index < len(data); index = skipSpace(data, index) {
		if len(data)-index < TEXT_HEADER_SIZE {
			return nil, illegalf(string(data[index:]), "truncated record header at offset %d", index)
		}
		//
		opcode, err1 := strconv.ParseUint(string(data[index:index+2]), 16, 8)
		length, err2 := strconv.ParseUint(string(data[index+2:index+6]), 16, 16)
		//
		if err1 != nil || err2 != nil {
			return nil, illegalf(string(data[index:index+TEXT_HEADER_SIZE]), "malformed record header at offset %d", index)
		}
		//
		start := index + TEXT_HEADER_SIZE
		end := start + int(length)
		//
		if end > len(data) {
			return nil, illegalf(string(data[index:]),
				"length %d exceeds remaining %d bytes at offset %d", length, len(data)-start, index)
		}
		//
		records = append(records, Encoded{byte(opcode), uint16(length), bytes.Clone(data[start:end])})
		index = end
	}
	//
	return records, nil
}

func skipSpace(data []byte, index int) int {
	for index < len(data) && unicode.IsSpace(rune(data[index])) {
		index++
	}
	//
	return index
}
