/* EventEmitter.go: event emitters fan events out to their subscribers
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"fmt"
	"sync"

	uuid "github.com/satori/go.uuid"
)

// EventEmitter delivers events of one type to any number of subscribers.
// Delivery never blocks the emitter: a subscriber whose channel is full misses the event.
type EventEmitter struct {
	mutex sync.RWMutex
	subs  map[string]chan<- *Event
	t     EventType
}

// NewEventEmitter creates an EventEmitter for events of type t
func NewEventEmitter(t EventType) *EventEmitter {
	return &EventEmitter{
		subs: make(map[string]chan<- *Event),
		t:    t,
	}
}

// Subscribe adds c under id
func (m *EventEmitter) Subscribe(id string, c chan<- *Event) (e error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.subs[id]; ok {
		return fmt.Errorf("subscription id already in use: %s", id)
	}
	m.subs[id] = c
	return
}

// SubscribeNew adds c under a fresh random id and returns the id
func (m *EventEmitter) SubscribeNew(c chan<- *Event) string {
	id := uuid.NewV4().String()
	m.mutex.Lock()
	m.subs[id] = c
	m.mutex.Unlock()
	return id
}

// Unsubscribe removes the subscription id
func (m *EventEmitter) Unsubscribe(id string) (e error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.subs[id]; !ok {
		return fmt.Errorf("cannot unsubscribe, no such subscription: %s", id)
	}
	delete(m.subs, id)
	return
}

// Subscribers is the current number of subscriptions
func (m *EventEmitter) Subscribers() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.subs)
}

// EventType is the type of events this emitter sends
func (m *EventEmitter) EventType() EventType { return m.t }

// Emit sends v to every subscriber. It returns the number of subscribers that received it.
func (m *EventEmitter) Emit(v *Event) (n int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, s := range m.subs {
		select {
		case s <- v:
			n++
		default:
		}
	}
	return
}
