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
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// DEFAULT_CHANNEL_CAPACITY is the number of values which can be in flight on a
// connection before its producer is held up.
const DEFAULT_CHANNEL_CAPACITY = 16

// Config determines how a network is executed, and whether (and how) traffic
// between nodes is recorded.
type Config struct {
	Runtime RuntimeConfig `toml:"runtime"`
	Sniff   SniffConfig   `toml:"sniff"`
}

// RuntimeConfig configures the scheduler.
type RuntimeConfig struct {
	// Capacity of the channel behind each connection.
	ChannelCapacity uint `toml:"channel-capacity"`
	// How long to run for, where zero means until cancelled.
	Duration Duration `toml:"duration"`
	// Logging level (e.g. "debug"), where empty leaves the level unchanged.
	LogLevel string `toml:"log-level"`
}

// SniffConfig configures the recording of values passing over connections.
type SniffConfig struct {
	Enabled bool `toml:"enabled"`
	// One of "text", "csv" or "cbor".
	Format string `toml:"format"`
	// File to write records into, where empty means stdout.
	File string `toml:"file"`
	// Maximum number of records to write, where zero means no limit.
	Limit uint `toml:"limit"`
}

// Duration is a time.Duration which reads from strings such as "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implementation for encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	//
	d.Duration, err = time.ParseDuration(string(text))
	//
	return err
}

// MarshalText implementation for encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Runtime: RuntimeConfig{ChannelCapacity: DEFAULT_CHANNEL_CAPACITY},
		Sniff:   SniffConfig{Format: TEXT_FORMAT},
	}
}

// LoadConfig reads a configuration file in TOML format.  Any key missing from
// the file retains its default value.
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", filename, err)
	}
	//
	return ParseConfig(string(data))
}

// ParseConfig parses a configuration given in TOML format.
func ParseConfig(text string) (Config, error) {
	config := DefaultConfig()
	//
	md, err := toml.Decode(text, &config)
	if err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	//
	for _, key := range md.Undecoded() {
		log.Warnf("ignoring unknown configuration key %s", key)
	}
	//
	return config, config.Validate()
}

// Validate checks a configuration is well-formed.
func (p *Config) Validate() error {
	if p.Runtime.ChannelCapacity == 0 {
		return errors.New("channel capacity must be positive")
	} else if p.Runtime.Duration.Duration < 0 {
		return fmt.Errorf("negative duration %s", p.Runtime.Duration)
	} else if _, err := sniffFormat(p.Sniff.Format); err != nil {
		return err
	} else if p.Runtime.LogLevel != "" {
		if _, err := log.ParseLevel(p.Runtime.LogLevel); err != nil {
			return err
		}
	}
	//
	return nil
}

// ApplyLogLevel sets the global logging level, if one is configured.
func (p *Config) ApplyLogLevel() {
	if level, err := log.ParseLevel(p.Runtime.LogLevel); err == nil && p.Runtime.LogLevel != "" {
		log.SetLevel(level)
	}
}
