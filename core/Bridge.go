/* Bridge.go: the Bridge object orchestrates the channels and the API surfaces
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/kraken-hpc/ipmbbridge/lib/ipmb"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

////////////////////////
// Auxilliary objects /
//////////////////////

// Context contains everything needed to build a Bridge
type Context struct {
	Logger   *log.Logger
	Config   *Config
	Driver   SlaveDriver
	Channel  ChannelOptions
	RPC      ContextRPC
	Web      ContextWeb
	Upstream ContextUpstream
	// Prometheus collects the bridge metrics. A nil registry disables metrics.
	Prometheus *prometheus.Registry
}

// ContextRPC describes the ipmb.Bridge gRPC listener
type ContextRPC struct {
	Network  string
	Addr     string // path for a unix socket
	Listener net.Listener
}

// ContextWeb describes the HTTP status listener. It is disabled if both fields are empty.
type ContextWeb struct {
	Addr     string
	Listener net.Listener
}

// ContextUpstream describes the IPMI responder that answers inbound requests
type ContextUpstream struct {
	Addr      string
	Timeout   time.Duration
	Responder Responder
}

// NewContext creates a Context with default settings
func NewContext() Context {
	return Context{
		Logger:  log.StandardLogger(),
		Driver:  NewSysfsSlaveDriver(DefaultSysfsRoot, DefaultDevRoot),
		Channel: DefaultChannelOptions,
		RPC: ContextRPC{
			Network: "unix",
			Addr:    "/run/ipmbbridge.sock",
		},
		Upstream: ContextUpstream{
			Addr:    "unix:///run/ipmi-host.sock",
			Timeout: DefaultUpstreamTimeout,
		},
		Prometheus: prometheus.NewRegistry(),
	}
}

///////////////////
// Bridge Object /
/////////////////

// A Bridge moves IPMI messages between IPMB channels and RPC callers
type Bridge struct {
	Ctx        Context
	Registry   *ChannelRegistry
	Filter     *ipmb.CommandFilter
	Dispatcher *Dispatcher
	Api        *APIServer
	Web        *WebServer
	Metrics    *Metrics

	// Un-exported
	em       *EventEmitter
	conn     *grpc.ClientConn
	log      *log.Entry
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBridge opens every configured channel. If any channel fails to open,
// the ones already opened are closed and an error is returned.
func NewBridge(ctx Context) (b *Bridge, e error) {
	if ctx.Logger == nil {
		ctx.Logger = log.StandardLogger()
	}
	if ctx.Config == nil {
		return nil, fmt.Errorf("no channel configuration")
	}
	if e = ctx.Config.Validate(); e != nil {
		return nil, e
	}
	if ctx.Driver == nil {
		ctx.Driver = NewSysfsSlaveDriver(DefaultSysfsRoot, DefaultDevRoot)
	}
	l := log.NewEntry(ctx.Logger)
	b = &Bridge{
		Ctx:    ctx,
		Filter: ipmb.NewCommandFilter(),
		em:     NewEventEmitter(EventBroadcast),
		log:    l.WithField("module", "Bridge"),
	}
	var reg prometheus.Registerer
	if ctx.Prometheus != nil {
		reg = ctx.Prometheus
	}
	b.Metrics = NewMetrics(reg)
	b.Registry = NewChannelRegistry(l)
	for i, cc := range ctx.Config.Channels {
		var c *Channel
		if c, e = NewChannel(cc, ctx.Driver, b.Filter, ctx.Channel, l, b.Metrics); e == nil {
			e = b.Registry.Add(c)
		}
		if e != nil {
			if c != nil {
				c.Close()
			}
			b.Registry.Close()
			return nil, fmt.Errorf("channel %d initialization failed: %w", i, e)
		}
	}
	up := ctx.Upstream.Responder
	if up == nil {
		// non-blocking; the responder does not need to be up yet
		if b.conn, e = grpc.Dial(ctx.Upstream.Addr, grpc.WithInsecure()); e != nil {
			b.Registry.Close()
			return nil, fmt.Errorf("could not connect to IPMI responder: %w", e)
		}
		up = NewGRPCResponder(b.conn)
	}
	b.Dispatcher = NewDispatcher(b.Filter, up, b.em, b.Metrics, l)
	if ctx.Upstream.Timeout > 0 {
		b.Dispatcher.UpstreamTimeout = ctx.Upstream.Timeout
	}
	b.Api = NewAPIServer(b.Registry, b.em, l)
	if ctx.Web.Addr != "" || ctx.Web.Listener != nil {
		var g prometheus.Gatherer = prometheus.NewRegistry()
		if ctx.Prometheus != nil {
			g = ctx.Prometheus
		}
		b.Web = NewWebServer(b.Registry, b.Filter, b.em, g, l)
	}
	if ctx.Prometheus != nil {
		ctx.Prometheus.MustRegister(newRegistryCollector(b.Registry, b.Filter))
	}
	return b, nil
}

// Emitter is the source of broadcast-received events
func (b *Bridge) Emitter() *EventEmitter { return b.em }

func (b *Bridge) listen() (rpc net.Listener, web net.Listener, e error) {
	if rpc = b.Ctx.RPC.Listener; rpc == nil {
		if b.Ctx.RPC.Network == "unix" {
			// clean up a stale socket
			os.Remove(b.Ctx.RPC.Addr)
		}
		if rpc, e = net.Listen(b.Ctx.RPC.Network, b.Ctx.RPC.Addr); e != nil {
			return nil, nil, fmt.Errorf("could not listen on %s %s: %w", b.Ctx.RPC.Network, b.Ctx.RPC.Addr, e)
		}
	}
	if b.Web == nil {
		return
	}
	if web = b.Ctx.Web.Listener; web == nil {
		if web, e = net.Listen("tcp", b.Ctx.Web.Addr); e != nil {
			rpc.Close()
			return nil, nil, fmt.Errorf("could not listen on %s: %w", b.Ctx.Web.Addr, e)
		}
	}
	return
}

// Run serves every channel and the API surfaces until ctx is done or the
// RPC listener fails. It always stops the bridge before returning.
func (b *Bridge) Run(ctx context.Context) error {
	rpc, web, e := b.listen()
	if e != nil {
		b.Stop()
		return e
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 2)
	for _, c := range b.Registry.Channels() {
		b.wg.Add(1)
		go func(c *Channel) {
			defer b.wg.Done()
			b.Dispatcher.Serve(ctx, c)
		}(c)
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if e := b.Api.Run(rpc); e != nil {
			errc <- e
		}
	}()
	if b.Web != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.Web.Run(web)
		}()
	}
	if ok, e := daemon.SdNotify(false, daemon.SdNotifyReady); e != nil {
		b.log.WithError(e).Warn("failed to notify systemd")
	} else if ok {
		b.log.Debug("notified systemd that we are ready")
	}
	b.log.WithField("channels", len(b.Registry.Channels())).Info("bridge is running")
	select {
	case <-ctx.Done():
	case e = <-errc:
	}
	cancel()
	b.Stop()
	b.wg.Wait()
	return e
}

// Stop closes the channels and stops the API surfaces. It is safe to call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.log.Info("stopping bridge")
		daemon.SdNotify(false, daemon.SdNotifyStopping)
		b.Api.Stop()
		if b.Web != nil {
			b.Web.Stop()
		}
		b.Registry.Close()
		b.Dispatcher.Wait()
		if b.conn != nil {
			b.conn.Close()
		}
	})
}
