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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/consensys/go-solace/pkg/binfile"
	"github.com/fxamacker/cbor/v2"
)

// Formats in which sniffed records can be written.
const (
	TEXT_FORMAT = "text"
	CSV_FORMAT  = "csv"
	CBOR_FORMAT = "cbor"
)

// Record describes a single value observed passing over a connection.
type Record struct {
	// Time of observation, in nanoseconds since the epoch.
	Timestamp int64  `cbor:"timestamp"`
	FromNode  string `cbor:"from_node"`
	FromPort  string `cbor:"from_port"`
	ToNode    string `cbor:"to_node"`
	ToPort    string `cbor:"to_port"`
	Value     int32  `cbor:"value"`
}

func (r Record) String() string {
	stamp := time.Unix(0, r.Timestamp).UTC().Format(time.RFC3339Nano)
	//
	return fmt.Sprintf("%s %s.%s -> %s.%s %d", stamp, r.FromNode, r.FromPort, r.ToNode, r.ToPort, r.Value)
}

var csvHeader = []string{"timestamp", "from_node", "from_port", "to_node", "to_port", "value"}

var cborEncMode cbor.EncMode

func init() {
	var err error
	// Canonical encoding so identical traffic gives identical files.
	if cborEncMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %v", err))
	}
}

// Sniffer writes a record for each value passing over a connection.  A sniffer
// is safe for concurrent use, since every connection of a network is forwarded
// by its own goroutine.
type Sniffer struct {
	mux    sync.Mutex
	format string
	out    io.Writer
	csv    *csv.Writer
	cbor   *cbor.Encoder
	// Maximum number of records (or 0 for no limit)
	limit uint
	count uint
	// Source of timestamps
	clock func() time.Time
}

// NewSniffer constructs a sniffer writing records of a given format into a
// given writer.
func NewSniffer(out io.Writer, format string, limit uint) (*Sniffer, error) {
	sniffer := &Sniffer{format: format, out: out, limit: limit, clock: time.Now}
	//
	switch format {
	case TEXT_FORMAT:
		// nothing to do
	case CSV_FORMAT:
		sniffer.csv = csv.NewWriter(out)
		if err := sniffer.csv.Write(csvHeader); err != nil {
			return nil, err
		}
	case CBOR_FORMAT:
		sniffer.cbor = cborEncMode.NewEncoder(out)
	default:
		return nil, fmt.Errorf("unknown sniff format %q", format)
	}
	//
	return sniffer, nil
}

// Check a format name is known.
func sniffFormat(format string) (string, error) {
	switch format {
	case TEXT_FORMAT, CSV_FORMAT, CBOR_FORMAT:
		return format, nil
	default:
		return "", fmt.Errorf("unknown sniff format %q", format)
	}
}

// Record a value observed on a given connection.  Once the limit is reached,
// further values are silently ignored.
func (p *Sniffer) Record(conn binfile.Connection, value int32) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	if p.limit != 0 && p.count >= p.limit {
		return nil
	}
	//
	p.count++
	//
	record := Record{p.clock().UnixNano(), conn.From.Node, conn.From.Port, conn.To.Node, conn.To.Port, value}
	//
	switch p.format {
	case CSV_FORMAT:
		return p.csv.Write([]string{
			strconv.FormatInt(record.Timestamp, 10),
			record.FromNode, record.FromPort,
			record.ToNode, record.ToPort,
			strconv.FormatInt(int64(record.Value), 10),
		})
	case CBOR_FORMAT:
		return p.cbor.Encode(record)
	default:
		_, err := fmt.Fprintln(p.out, record.String())
		return err
	}
}

// Count returns the number of records written so far.
func (p *Sniffer) Count() uint {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	return p.count
}

// Flush any buffered records.
func (p *Sniffer) Flush() error {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	if p.csv != nil {
		p.csv.Flush()
		return p.csv.Error()
	}
	//
	return nil
}
