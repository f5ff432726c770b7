/* ipmbbridged.go: the ipmbbridged daemon bridges IPMB channels to local gRPC clients
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kraken-hpc/ipmbbridge/core"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	configFile   = kingpin.Flag("config", "Channel configuration file (JSON or YAML).").Short('c').Default(core.DefaultConfigFile).String()
	rpcNetwork   = kingpin.Flag("rpc.network", "Network of the gRPC listener.").Default("unix").Enum("unix", "tcp")
	rpcAddress   = kingpin.Flag("rpc.address", "Address of the gRPC listener; a socket path for unix.").Default("/run/ipmbbridge.sock").String()
	upstreamAddr = kingpin.Flag("upstream.address", "gRPC target of the IPMI responder that answers inbound requests.").Default("unix:///run/ipmi-host.sock").String()
	upstreamTo   = kingpin.Flag("upstream.timeout", "Timeout for a single call to the IPMI responder.").Default(core.DefaultUpstreamTimeout.String()).Duration()
	webAddress   = kingpin.Flag("web.listen-address", "Address for HTTP status and metrics; empty disables it.").Default("").String()
	retryTimeout = kingpin.Flag("ipmb.retry-timeout", "Time to wait for a response before retransmitting a request.").Default(core.DefaultChannelOptions.RetryTimeout.String()).Duration()
	maxTries     = kingpin.Flag("ipmb.max-tries", "Transmissions of a request before it times out.").Default("6").Int()
	sysfsRoot    = kingpin.Flag("sysfs.root", "Root of the i2c sysfs device tree.").Default(core.DefaultSysfsRoot).String()
	devRoot      = kingpin.Flag("dev.root", "Directory holding the ipmb slave devnodes.").Default(core.DefaultDevRoot).String()
	logLevel     = kingpin.Flag("log.level", "Log level: "+strings.Join(core.LogLevels, ", ")+".").Default("info").Enum(core.LogLevels...)
	logFormat    = kingpin.Flag("log.format", "Log format: "+strings.Join(core.LogFormats, ", ")+".").Default("text").Enum(core.LogFormats...)
)

func main() {
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger, e := core.NewLogger(os.Stderr, *logLevel, *logFormat)
	if e != nil {
		log.Fatalf("failed to create logger: %v", e)
	}

	cfg, e := core.LoadConfig(*configFile)
	if e != nil {
		logger.WithError(e).Fatal("failed to load channel configuration")
	}

	ctx := core.NewContext()
	ctx.Logger = logger
	ctx.Config = cfg
	ctx.Driver = core.NewSysfsSlaveDriver(*sysfsRoot, *devRoot)
	ctx.Channel.RetryTimeout = *retryTimeout
	ctx.Channel.MaxTries = *maxTries
	ctx.RPC.Network = *rpcNetwork
	ctx.RPC.Addr = *rpcAddress
	ctx.Upstream.Addr = *upstreamAddr
	ctx.Upstream.Timeout = *upstreamTo
	ctx.Web.Addr = *webAddress

	b, e := core.NewBridge(ctx)
	if e != nil {
		logger.WithError(e).Fatal("failed to initialize bridge")
	}

	rctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logger.WithField("signal", s.String()).Info("caught signal, shutting down")
		cancel()
	}()

	if e = b.Run(rctx); e != nil {
		logger.WithError(e).Fatal("bridge stopped with error")
	}
	logger.Info("bridge stopped")
}
