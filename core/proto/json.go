/* json.go: json encoding for the messages rendered by the web server and ipmbctl
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package proto

import (
	"github.com/kraken-hpc/ipmbbridge/lib/json"
)

// MarshalJSON creates a JSON version of a BroadcastEvent
func (m *BroadcastEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalJSON populates a BroadcastEvent from JSON
func (m *BroadcastEvent) UnmarshalJSON(j []byte) error {
	return json.Unmarshal(j, m)
}

// MarshalJSON creates a JSON version of a ChannelList
func (m *ChannelList) MarshalJSON() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalJSON populates a ChannelList from JSON
func (m *ChannelList) UnmarshalJSON(j []byte) error {
	return json.Unmarshal(j, m)
}

// MarshalJSON creates a JSON version of a SendRequestReply
func (m *SendRequestReply) MarshalJSON() ([]byte, error) {
	return json.Marshal(m)
}
