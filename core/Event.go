/* Event.go: events distributed to subscribers by an EventEmitter
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"fmt"
)

// EventType categorizes events
type EventType uint8

const (
	// EventBroadcast is emitted when a broadcast frame arrives on an ipmb channel
	EventBroadcast EventType = iota
)

func (t EventType) String() string {
	switch t {
	case EventBroadcast:
		return "BROADCAST"
	}
	return fmt.Sprintf("EventType(%d)", uint8(t))
}

// An Event is a single notification. URL names its source, e.g. /channel/ipmb/broadcast.
type Event struct {
	t    EventType
	url  string
	data interface{}
}

// NewEvent creates an Event
func NewEvent(t EventType, url string, data interface{}) *Event {
	return &Event{
		t:    t,
		url:  url,
		data: data,
	}
}

func (v *Event) Type() EventType   { return v.t }
func (v *Event) URL() string       { return v.url }
func (v *Event) Data() interface{} { return v.data }

// BroadcastReceived is the data of an EventBroadcast event
type BroadcastReceived struct {
	Channel ChannelType
	NetFn   uint8
	Cmd     uint8
	Data    []byte
}
