/* Channel.go: one physical IPMB channel and its outstanding request table
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
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/kraken-hpc/ipmbbridge/lib/ipmb"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrBusy means every sequence number of a channel is in use
	ErrBusy = errors.New("no free sequence number")
	// ErrChannelClosed is returned by channel I/O after Close
	ErrChannelClosed = errors.New("channel closed")
	// ErrNoDevice means the channel lost its slave device, e.g. in a failed address change
	ErrNoDevice = errors.New("channel has no slave device")
)

// Status is the result class of a request sent through a channel
type Status int32

const (
	StatusSuccess      Status = 0
	StatusError        Status = 1
	StatusInvalidParam Status = 2
	StatusBusy         Status = 3
	StatusTimeout      Status = 4
)

var statusNames = map[Status]string{
	StatusSuccess:      "SUCCESS",
	StatusError:        "ERROR",
	StatusInvalidParam: "INVALID_PARAM",
	StatusBusy:         "BUSY",
	StatusTimeout:      "TIMEOUT",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// Result is what a request caller gets back. Only StatusSuccess results carry
// response fields; all others are zero with an empty payload.
type Result struct {
	Status         Status
	NetFn          uint8
	Lun            uint8
	Cmd            uint8
	CompletionCode uint8
	Data           []byte
}

// ChannelOptions tune the retry protocol. Zero values take the defaults.
type ChannelOptions struct {
	// RetryTimeout is how long each attempt waits for a response
	RetryTimeout time.Duration
	// MaxTries is the number of attempts, each one transmission
	MaxTries int
	// I2CRetries is the number of extra writes made when a write fails
	I2CRetries int
}

// DefaultChannelOptions are the IPMB protocol timings
var DefaultChannelOptions = ChannelOptions{
	RetryTimeout: 250 * time.Millisecond,
	MaxTries:     6,
	I2CRetries:   2,
}

func (o ChannelOptions) withDefaults() ChannelOptions {
	if o.RetryTimeout <= 0 {
		o.RetryTimeout = DefaultChannelOptions.RetryTimeout
	}
	if o.MaxTries <= 0 {
		o.MaxTries = DefaultChannelOptions.MaxTries
	}
	if o.I2CRetries <= 0 {
		o.I2CRetries = DefaultChannelOptions.I2CRetries
	}
	return o
}

// ChannelStatus is a snapshot of a channel's configuration and load
type ChannelStatus struct {
	Type        ChannelType
	SlavePath   string
	BusID       uint8
	BmcAddr     uint8
	RemoteAddr  uint8
	Outstanding int
}

// pending is an occupied outstanding table slot. The slot owns the request;
// the goroutine driving the retries waits on done.
type pending struct {
	req  *ipmb.Request
	done chan *ipmb.Response
}

// A Channel owns one I2C slave device and the requests in flight on it
type Channel struct {
	t       ChannelType
	path    string
	bus     uint8
	opts    ChannelOptions
	filter  *ipmb.CommandFilter
	driver  SlaveDriver
	log     *log.Entry
	metrics *Metrics

	mutex       sync.Mutex // guards the fields below
	bmcAddr     uint8
	remoteAddr  uint8
	cursor      uint8
	outstanding int
	table       [ipmb.MaxOutstandingRequests]*pending

	dmu    sync.Mutex // guards dev, gen and closed; held for every write and rebind
	dev    Device
	gen    uint64
	closed bool
}

// NewChannel opens the slave device described by cfg.
// filter is shared by all channels of a bridge. l and m may be nil.
func NewChannel(cfg ChannelConfig, driver SlaveDriver, filter *ipmb.CommandFilter, opts ChannelOptions, l *log.Entry, m *Metrics) (*Channel, error) {
	if e := cfg.Validate(); e != nil {
		return nil, e
	}
	t, _ := ParseChannelType(cfg.Type)
	bus, _ := cfg.BusID()
	if l == nil {
		l = log.NewEntry(log.StandardLogger())
	}
	c := &Channel{
		t:          t,
		path:       cfg.SlavePath,
		bus:        bus,
		opts:       opts.withDefaults(),
		filter:     filter,
		driver:     driver,
		metrics:    m,
		bmcAddr:    cfg.BmcAddr,
		remoteAddr: cfg.RemoteAddr,
		log: l.WithFields(log.Fields{
			"module":  "Channel",
			"channel": t.String(),
			"bus":     bus,
		}),
	}
	dev, e := driver.Open(bus, cfg.SlavePath, cfg.BmcAddr)
	if e != nil {
		return nil, fmt.Errorf("%s channel: cannot open slave device: %w", t, e)
	}
	c.dev = dev
	c.log.WithField("path", cfg.SlavePath).Info("channel initialized")
	return c, nil
}

// Type is the channel type
func (c *Channel) Type() ChannelType { return c.t }

// BusID is the I2C bus number of the channel
func (c *Channel) BusID() uint8 { return c.bus }

// Filter is the command filter shared by the channel's bridge
func (c *Channel) Filter() *ipmb.CommandFilter { return c.filter }

// BmcAddr is the BMC's current 8-bit slave address on this channel
func (c *Channel) BmcAddr() uint8 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.bmcAddr
}

// Status returns a snapshot of the channel
func (c *Channel) Status() ChannelStatus {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return ChannelStatus{
		Type:        c.t,
		SlavePath:   c.path,
		BusID:       c.bus,
		BmcAddr:     c.bmcAddr,
		RemoteAddr:  c.remoteAddr,
		Outstanding: c.outstanding,
	}
}

// SendRequest sends a request to the channel's remote address and waits for
// its response. lun is the requester lun.
func (c *Channel) SendRequest(netFn, lun, cmd uint8, data []byte) Result {
	return c.SendRequestTo(ipmb.BroadcastAddress, netFn, lun, cmd, data)
}

// SendRequestTo is SendRequest to an explicit 8-bit target address.
// A target of 0 means the channel's remote address.
func (c *Channel) SendRequestTo(target, netFn, lun, cmd uint8, data []byte) Result {
	if len(data) > ipmb.MaxDataSize {
		c.log.WithField("size", len(data)).Error("request payload too large")
		return c.result(StatusError)
	}
	c.mutex.Lock()
	if target == ipmb.BroadcastAddress {
		target = c.remoteAddr
	}
	p, e := c.reserve(&ipmb.Request{
		TargetAddr: target,
		NetFn:      netFn,
		RsLun:      ipmb.RsLun,
		RqSA:       c.bmcAddr,
		RqLun:      ipmb.LunOf(lun),
		Cmd:        cmd,
		Data:       data,
	})
	c.mutex.Unlock()
	if e != nil {
		c.log.Warn("cannot add more requests to the outstanding table")
		return c.result(StatusBusy)
	}
	return c.requestAdd(p)
}

// reserve registers req in the first free slot after the cursor.
// c.mutex must be held.
func (c *Channel) reserve(req *ipmb.Request) (*pending, error) {
	seq := c.cursor
	for i := 0; i < ipmb.MaxOutstandingRequests; i++ {
		seq = ipmb.NextSeq(seq)
		if c.table[seq] != nil {
			continue
		}
		req.Seq = seq
		req.State = ipmb.StateValid
		p := &pending{
			req:  req,
			done: make(chan *ipmb.Response, 1),
		}
		c.table[seq] = p
		c.cursor = seq
		c.outstanding++
		return p, nil
	}
	return nil, ErrBusy
}

// release clears the slot held by p. c.mutex must be held.
func (c *Channel) release(p *pending) {
	if c.table[p.req.Seq] != p {
		return
	}
	c.table[p.req.Seq] = nil
	c.outstanding--
	if p.req.State == ipmb.StateValid {
		p.req.State = ipmb.StateInvalid
	}
}

// requestAdd drives the send/retry protocol for a registered request
func (c *Channel) requestAdd(p *pending) Result {
	l := c.log.WithField("seq", p.req.Seq)
	wire, e := p.req.Encode()
	if e != nil {
		l.WithError(e).Error("failed to encode request")
		c.mutex.Lock()
		c.release(p)
		c.mutex.Unlock()
		return c.result(StatusError)
	}
	if l.Logger.IsLevelEnabled(log.DebugLevel) {
		l.Debugf("sending request %s\n%s", p.req, spew.Sdump(wire))
	}
	for try := 0; try < c.opts.MaxTries; try++ {
		if e = c.send(wire); e != nil {
			l.WithError(e).Info("request write failed after retries")
		}
		t := time.NewTimer(c.opts.RetryTimeout)
		select {
		case rsp := <-p.done:
			t.Stop()
			return c.complete(p, rsp)
		case <-t.C:
		}
		// a response may have landed with the timer
		select {
		case rsp := <-p.done:
			return c.complete(p, rsp)
		default:
		}
	}
	c.mutex.Lock()
	c.release(p)
	c.mutex.Unlock()
	// matchResponse may have won the race for the lock
	select {
	case rsp := <-p.done:
		return c.complete(p, rsp)
	default:
	}
	l.Debug("request timed out")
	return c.result(StatusTimeout)
}

func (c *Channel) complete(p *pending, rsp *ipmb.Response) Result {
	c.mutex.Lock()
	c.release(p)
	c.mutex.Unlock()
	c.metrics.request(c.t, StatusSuccess)
	return Result{
		Status:         StatusSuccess,
		NetFn:          rsp.NetFn,
		Lun:            rsp.RsLun,
		Cmd:            rsp.Cmd,
		CompletionCode: rsp.CompletionCode,
		Data:           rsp.Data,
	}
}

func (c *Channel) result(s Status) Result {
	c.metrics.request(c.t, s)
	return Result{Status: s}
}

// matchResponse hands rsp to the request waiting on its sequence number.
// It reports false for late or stray responses.
func (c *Channel) matchResponse(rsp *ipmb.Response) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	p := c.table[rsp.Seq%ipmb.MaxOutstandingRequests]
	if p == nil || p.req.State != ipmb.StateValid || !p.req.Matches(rsp) {
		return false
	}
	p.req.State = ipmb.StateMatched
	p.req.Response = rsp
	p.done <- rsp
	return true
}

// send writes a frame, retrying failed writes inline
func (c *Channel) send(wire []byte) (e error) {
	for i := 0; i <= c.opts.I2CRetries; i++ {
		if e = c.write(wire); e == nil {
			return nil
		}
		if errors.Is(e, ErrChannelClosed) {
			break
		}
	}
	c.metrics.writeFailure(c.t)
	return
}

func (c *Channel) write(wire []byte) error {
	c.dmu.Lock()
	defer c.dmu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if c.dev == nil {
		return ErrNoDevice
	}
	_, e := c.dev.Write(wire)
	return e
}

// SendResponse frames and writes a response, with inline write retries
func (c *Channel) SendResponse(rsp *ipmb.Response) error {
	wire, e := rsp.Encode()
	if e != nil {
		return e
	}
	if e = c.send(wire); e != nil {
		c.log.WithError(e).WithField("target", fmt.Sprintf("%#02x", rsp.Address)).Error("send to I2C failed after retries")
	}
	return e
}

// SendBroadcast frames a request to the broadcast address and writes it.
// Broadcasts use sequence 0 and never enter the outstanding table.
func (c *Channel) SendBroadcast(netFn, lun, cmd uint8, data []byte) error {
	req := &ipmb.Request{
		TargetAddr: ipmb.BroadcastAddress,
		NetFn:      netFn,
		RsLun:      ipmb.RsLun,
		RqSA:       c.BmcAddr(),
		RqLun:      ipmb.LunOf(lun),
		Cmd:        cmd,
		Data:       data,
	}
	wire, e := req.Encode()
	if e != nil {
		return e
	}
	if e = c.send(wire); e != nil {
		c.log.WithError(e).Error("broadcast send to I2C failed after retries")
	}
	return e
}

// UpdateSlaveAddress moves the BMC to a new 8-bit slave address on this
// channel's bus: the device is closed, the driver is rebound, and the new
// device is opened. Requests in flight are left to time out.
// Updates are serialized on dmu; bmcAddr only changes under it.
func (c *Channel) UpdateSlaveAddress(addr uint8) error {
	c.dmu.Lock()
	defer c.dmu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	old := c.BmcAddr()
	if old == addr {
		c.log.WithField("addr", fmt.Sprintf("%#02x", addr)).Info("bmc slave address is unchanged, do nothing")
		return nil
	}
	if c.dev != nil {
		c.dev.Close()
		c.dev = nil
	}
	c.gen++
	dev, e := c.driver.Rebind(c.bus, old, addr)
	if e != nil {
		c.log.WithError(e).Error("failed to rebind slave driver")
		return e
	}
	c.dev = dev
	c.mutex.Lock()
	c.bmcAddr = addr
	c.mutex.Unlock()
	c.log.WithFields(log.Fields{
		"old": fmt.Sprintf("%#02x", old),
		"new": fmt.Sprintf("%#02x", addr),
	}).Info("bmc slave address updated")
	return nil
}

func (c *Channel) device() (Device, uint64, error) {
	c.dmu.Lock()
	defer c.dmu.Unlock()
	switch {
	case c.closed:
		return nil, c.gen, ErrChannelClosed
	case c.dev == nil:
		return nil, c.gen, ErrNoDevice
	}
	return c.dev, c.gen, nil
}

// Receive blocks until the next inbound frame arrives. It follows the device
// across slave address changes and returns ErrChannelClosed after Close.
func (c *Channel) Receive() ([]byte, error) {
	buf := make([]byte, ipmb.MaxFrameLength+1)
	for {
		dev, gen, e := c.device()
		if e != nil {
			return nil, e
		}
		n, e := dev.Read(buf)
		if e == nil {
			return append([]byte(nil), buf[:n]...), nil
		}
		// the device was swapped or closed under us
		if _, g, _ := c.device(); g != gen {
			continue
		}
		return nil, e
	}
}

// Close closes the slave device. Pending Receive calls return ErrChannelClosed.
func (c *Channel) Close() error {
	c.dmu.Lock()
	defer c.dmu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.gen++
	if c.dev == nil {
		return nil
	}
	e := c.dev.Close()
	c.dev = nil
	return e
}
