/* Config.go: channel configuration loading and validation
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// DefaultConfigFile is where the daemon looks for channel definitions
const DefaultConfigFile = "/usr/share/ipmbbridge/ipmb-channels.json"

// ChannelType identifies a physical channel. The numeric value is the
// channel number used by RPC callers.
type ChannelType uint8

const (
	ChannelIpmb ChannelType = 0
	ChannelMe   ChannelType = 1
)

var channelTypeNames = map[ChannelType]string{
	ChannelIpmb: "ipmb",
	ChannelMe:   "me",
}

func (t ChannelType) String() string {
	if s, ok := channelTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ChannelType(%d)", uint8(t))
}

// ParseChannelType converts a configuration type string into a ChannelType
func ParseChannelType(s string) (ChannelType, error) {
	for t, n := range channelTypeNames {
		if n == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown channel type: %q", s)
}

// ChannelConfig is one entry of the channels list.
// Addresses are 8-bit wire addresses.
type ChannelConfig struct {
	Type       string `yaml:"type"`
	SlavePath  string `yaml:"slave-path"`
	BmcAddr    uint8  `yaml:"bmc-addr"`
	RemoteAddr uint8  `yaml:"remote-addr"`
}

// BusID extracts the I2C bus number from the slave path, e.g. /dev/ipmb-3 -> 3
func (cc ChannelConfig) BusID() (uint8, error) {
	i := strings.LastIndex(cc.SlavePath, "-")
	if i < 0 || i == len(cc.SlavePath)-1 {
		return 0, fmt.Errorf("no bus id in slave-path: %q", cc.SlavePath)
	}
	bus, e := strconv.ParseUint(cc.SlavePath[i+1:], 10, 8)
	if e != nil {
		return 0, fmt.Errorf("invalid bus id in slave-path %q: %w", cc.SlavePath, e)
	}
	return uint8(bus), nil
}

// Validate checks a single channel entry
func (cc ChannelConfig) Validate() error {
	if _, e := ParseChannelType(cc.Type); e != nil {
		return e
	}
	if cc.SlavePath == "" {
		return fmt.Errorf("empty slave-path")
	}
	_, e := cc.BusID()
	return e
}

// Config is the channel configuration document
type Config struct {
	Channels []ChannelConfig `yaml:"channels"`
}

// Validate checks every channel and rejects duplicate channel types
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("no channels configured")
	}
	seen := map[string]bool{}
	for i, cc := range c.Channels {
		if e := cc.Validate(); e != nil {
			return fmt.Errorf("channel %d: %w", i, e)
		}
		if seen[cc.Type] {
			return fmt.Errorf("channel %d: duplicate channel type %q", i, cc.Type)
		}
		seen[cc.Type] = true
	}
	return nil
}

// ParseConfig parses and validates a configuration document. JSON documents are
// valid YAML, so either syntax is accepted.
func ParseConfig(b []byte) (*Config, error) {
	c := &Config{}
	if e := yaml.Unmarshal(b, c); e != nil {
		return nil, fmt.Errorf("error parsing channel config: %w", e)
	}
	if e := c.Validate(); e != nil {
		return nil, e
	}
	return c, nil
}

// LoadConfig reads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	b, e := ioutil.ReadFile(path)
	if e != nil {
		return nil, fmt.Errorf("cannot read channel config: %w", e)
	}
	return ParseConfig(b)
}
