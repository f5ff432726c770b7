/* ChannelRegistry.go: the configured channels, looked up by channel type
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrNoChannel means no channel of the requested type is configured
	ErrNoChannel = errors.New("requested channel does not exist")
	// ErrInvalidChannel means the channel does not support the operation
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrInvalidBus means the bus id does not match the channel
	ErrInvalidBus = errors.New("invalid bus id")
)

// ChannelRegistry routes by channel type. Channels are only added at startup.
type ChannelRegistry struct {
	mutex sync.RWMutex
	chans []*Channel
	log   *log.Entry
}

// NewChannelRegistry creates an empty ChannelRegistry. l may be nil.
func NewChannelRegistry(l *log.Entry) *ChannelRegistry {
	if l == nil {
		l = log.NewEntry(log.StandardLogger())
	}
	return &ChannelRegistry{
		log: l.WithField("module", "ChannelRegistry"),
	}
}

// Add registers a channel. Only one channel per type is allowed.
func (r *ChannelRegistry) Add(c *Channel) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, o := range r.chans {
		if o.Type() == c.Type() {
			return fmt.Errorf("duplicate channel type: %s", c.Type())
		}
	}
	r.chans = append(r.chans, c)
	return nil
}

// Find looks up a channel by type. It returns nil if there is none.
func (r *ChannelRegistry) Find(t ChannelType) *Channel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, c := range r.chans {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// Channels lists the registered channels in registration order
func (r *ChannelRegistry) Channels() []*Channel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]*Channel(nil), r.chans...)
}

// SendRequest routes a request to the channel of type t. target 0 means the
// channel's remote address.
func (r *ChannelRegistry) SendRequest(t ChannelType, target, netFn, lun, cmd uint8, data []byte) Result {
	c := r.Find(t)
	if c == nil {
		r.log.WithField("channel", t).Error("requested channel does not exist")
		return Result{Status: StatusInvalidParam}
	}
	return c.SendRequestTo(target, netFn, lun, cmd, data)
}

// SendBroadcast routes a broadcast send to the channel of type t
func (r *ChannelRegistry) SendBroadcast(t ChannelType, netFn, lun, cmd uint8, data []byte) error {
	c := r.Find(t)
	if c == nil {
		r.log.WithField("channel", t).Error("broadcast requested on a channel that does not exist")
		return fmt.Errorf("%w: %s", ErrNoChannel, t)
	}
	return c.SendBroadcast(netFn, lun, cmd, data)
}

// UpdateSlaveAddress changes the BMC slave address of the ipmb channel on bus
func (r *ChannelRegistry) UpdateSlaveAddress(t ChannelType, bus, addr uint8) error {
	c := r.Find(t)
	if c == nil || t != ChannelIpmb {
		r.log.WithField("channel", t).Error("slave address update on invalid channel")
		return fmt.Errorf("%w: %s", ErrInvalidChannel, t)
	}
	if bus != c.BusID() {
		r.log.WithFields(log.Fields{
			"channel": t,
			"bus":     bus,
		}).Error("slave address update with invalid bus id")
		return fmt.Errorf("%w: %d", ErrInvalidBus, bus)
	}
	return c.UpdateSlaveAddress(addr)
}

// Close closes every channel
func (r *ChannelRegistry) Close() {
	for _, c := range r.Channels() {
		if e := c.Close(); e != nil {
			r.log.WithError(e).WithField("channel", c.Type()).Warn("error closing channel")
		}
	}
}
