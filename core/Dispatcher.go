/* Dispatcher.go: classifies inbound frames and routes them
 *
 * Broadcasts become events, responses are matched against the channel's
 * outstanding table, and requests are answered locally (filtered) or
 * forwarded to the upstream IPMI responder.
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davecgh/go-spew/spew"
	"github.com/kraken-hpc/ipmbbridge/lib/ipmb"
	log "github.com/sirupsen/logrus"
)

// DefaultUpstreamTimeout bounds a single call to the upstream responder
const DefaultUpstreamTimeout = 10 * time.Second

// Dispatcher handles inbound traffic for every channel of a bridge
type Dispatcher struct {
	// UpstreamTimeout bounds a single upstream call
	UpstreamTimeout time.Duration

	filter   *ipmb.CommandFilter
	upstream Responder
	em       *EventEmitter
	metrics  *Metrics
	log      *log.Entry
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Broadcasts are emitted on em; m and l may be nil.
func NewDispatcher(filter *ipmb.CommandFilter, upstream Responder, em *EventEmitter, m *Metrics, l *log.Entry) *Dispatcher {
	if l == nil {
		l = log.NewEntry(log.StandardLogger())
	}
	return &Dispatcher{
		UpstreamTimeout: DefaultUpstreamTimeout,
		filter:          filter,
		upstream:        upstream,
		em:              em,
		metrics:         m,
		log:             l.WithField("module", "Dispatcher"),
	}
}

// Serve reads frames from c until it is closed or ctx is done.
// Transient read errors are retried with backoff.
func (d *Dispatcher) Serve(ctx context.Context, c *Channel) error {
	l := d.log.WithField("channel", c.Type().String())
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	l.Debug("serving channel")
	for {
		var frame []byte
		e := backoff.RetryNotify(func() (e error) {
			frame, e = c.Receive()
			if errors.Is(e, ErrChannelClosed) || errors.Is(e, ErrNoDevice) {
				return backoff.Permanent(e)
			}
			return e
		}, backoff.WithContext(b, ctx), func(e error, next time.Duration) {
			l.WithError(e).Warnf("slave device read failed, retrying in %s", next)
		})
		switch {
		case e == nil:
		case errors.Is(e, ErrChannelClosed), ctx.Err() != nil:
			l.Debug("channel closed, stopped serving")
			return nil
		default:
			l.WithError(e).Error("stopped serving channel")
			return e
		}
		d.HandleFrame(ctx, c, frame)
	}
}

// Wait blocks until all upstream forwards have finished
func (d *Dispatcher) Wait() { d.wg.Wait() }

func dropReason(e error) string {
	switch {
	case errors.Is(e, ipmb.ErrChecksum):
		return "checksum"
	case errors.Is(e, ipmb.ErrFrameTooShort):
		return "short"
	case errors.Is(e, ipmb.ErrFrameTooLong):
		return "long"
	}
	return "malformed"
}

// HandleFrame classifies one inbound wire frame, length prefix included
func (d *Dispatcher) HandleFrame(ctx context.Context, c *Channel, wire []byte) {
	l := d.log.WithField("channel", c.Type().String())
	hdr, e := ipmb.ParseHeader(wire)
	if e != nil {
		l.WithError(e).Debug("dropping invalid frame")
		d.metrics.drop(c.Type(), dropReason(e))
		return
	}
	if l.Logger.IsLevelEnabled(log.DebugLevel) {
		l.Debugf("received frame\n%s", spew.Sdump(wire))
	}
	switch {
	case hdr.IsBroadcast() && c.Type() == ChannelIpmb:
		d.broadcast(c, wire)
	case hdr.IsResponse():
		d.response(c, wire)
	default:
		d.request(ctx, c, wire)
	}
}

func (d *Dispatcher) broadcast(c *Channel, wire []byte) {
	req, e := ipmb.DecodeRequest(wire)
	if e != nil {
		d.log.WithError(e).Debug("dropping malformed broadcast")
		d.metrics.drop(c.Type(), dropReason(e))
		return
	}
	d.metrics.frame(c.Type(), "broadcast")
	ev := NewEvent(EventBroadcast, fmt.Sprintf("/channel/%s/broadcast", c.Type()), &BroadcastReceived{
		Channel: c.Type(),
		NetFn:   req.NetFn,
		Cmd:     req.Cmd,
		Data:    req.Data,
	})
	n := d.em.Emit(ev)
	d.log.WithFields(log.Fields{
		"netFn":       fmt.Sprintf("%#02x", req.NetFn),
		"cmd":         fmt.Sprintf("%#02x", req.Cmd),
		"subscribers": n,
	}).Debug("broadcast received")
}

func (d *Dispatcher) response(c *Channel, wire []byte) {
	rsp, e := ipmb.DecodeResponse(wire)
	if e != nil {
		d.log.WithError(e).Debug("dropping malformed response")
		d.metrics.drop(c.Type(), dropReason(e))
		return
	}
	d.metrics.frame(c.Type(), "response")
	if !c.matchResponse(rsp) {
		d.log.WithField("response", rsp.String()).Debug("discarding response with no outstanding request")
		d.metrics.drop(c.Type(), "unmatched")
	}
}

func (d *Dispatcher) request(ctx context.Context, c *Channel, wire []byte) {
	req, e := ipmb.DecodeRequest(wire)
	if e != nil {
		d.log.WithError(e).Debug("dropping malformed request")
		d.metrics.drop(c.Type(), dropReason(e))
		return
	}
	d.metrics.frame(c.Type(), "request")
	if d.filter.IsBlocked(req.NetFn, req.Cmd) {
		d.metrics.filter(c.Type())
		c.SendResponse(ipmb.InvalidCmdResponse(req, c.BmcAddr()))
		return
	}
	d.wg.Add(1)
	go d.forward(ctx, c, req)
}

// forward executes req upstream and relays the reply onto the bus
func (d *Dispatcher) forward(ctx context.Context, c *Channel, req *ipmb.Request) {
	defer d.wg.Done()
	l := d.log.WithFields(log.Fields{
		"channel": c.Type().String(),
		"request": req.String(),
	})
	cctx, cancel := context.WithTimeout(ctx, d.UpstreamTimeout)
	defer cancel()
	rep, e := d.upstream.Execute(cctx, req.NetFn, req.RsLun, req.Cmd, req.Data, ipmb.To7Bit(req.RqSA))
	if e != nil {
		l.WithError(e).Error("error getting response from IPMI")
		d.metrics.upstreamCall(c.Type(), "error")
		return
	}
	rsp := &ipmb.Response{
		Address:        req.RqSA,
		NetFn:          rep.NetFn,
		RqLun:          req.RqLun,
		RsSA:           c.BmcAddr(),
		Seq:            req.Seq,
		RsLun:          rep.Lun,
		Cmd:            rep.Cmd,
		CompletionCode: rep.CompletionCode,
		Data:           rep.Data,
	}
	if len(rep.Data) > ipmb.MaxDataSize {
		l.WithField("size", len(rep.Data)).Error("response exceeding maximum size")
		d.metrics.upstreamCall(c.Type(), "oversize")
		rsp.RsLun = ipmb.RsLun
		rsp.CompletionCode = ipmb.CmpRespNotProvided
		rsp.Data = nil
		c.SendResponse(rsp)
		return
	}
	if !ipmb.IsResponseNetFn(rep.NetFn) {
		l.WithField("netFn", fmt.Sprintf("%#02x", rep.NetFn)).Error("got a request instead of response")
		d.metrics.upstreamCall(c.Type(), "invalid")
		return
	}
	if rep.CompletionCode == ipmb.CmpInvalidCmd {
		if d.filter.Add(ipmb.RequestNetFn(rep.NetFn), rep.Cmd) {
			l.Info("command is not supported, filtering it")
		}
	}
	d.metrics.upstreamCall(c.Type(), "ok")
	c.SendResponse(rsp)
}
