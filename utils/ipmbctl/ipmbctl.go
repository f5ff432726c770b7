/* ipmbctl.go: command line client for the ipmbbridged gRPC API
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/golang/protobuf/ptypes/empty"
	"github.com/golang/protobuf/proto"
	pb "github.com/kraken-hpc/ipmbbridge/core/proto"
	"github.com/kraken-hpc/ipmbbridge/lib/json"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	app     = kingpin.New("ipmbctl", "Send IPMI messages through ipmbbridged.")
	socket  = app.Flag("socket", "gRPC target of ipmbbridged.").Short('s').Default("unix:///run/ipmbbridge.sock").String()
	timeout = app.Flag("timeout", "Timeout for unary calls.").Default("10s").Duration()

	send        = app.Command("send", "Send a request and print the response.")
	sendChannel = send.Flag("channel", "Channel number: 0 is ipmb, 1 is me.").Default("0").Uint32()
	sendLun     = send.Flag("lun", "Requester lun.").Default("0").Uint32()
	sendTarget  = send.Flag("target", "8-bit target address; 0 means the channel's remote address.").Default("0").Uint32()
	sendNetFn   = send.Arg("netfn", "Request netFn.").Required().String()
	sendCmd     = send.Arg("cmd", "Command.").Required().String()
	sendData    = send.Arg("data", "Payload bytes.").Strings()

	bcast        = app.Command("broadcast", "Send a broadcast request.")
	bcastChannel = bcast.Flag("channel", "Channel number.").Default("0").Uint32()
	bcastNetFn   = bcast.Arg("netfn", "Request netFn.").Required().String()
	bcastCmd     = bcast.Arg("cmd", "Command.").Required().String()
	bcastData    = bcast.Arg("data", "Payload bytes.").Strings()

	update     = app.Command("update-address", "Move the BMC to a new slave address on the ipmb channel.")
	updateBus  = update.Arg("bus", "I2C bus id of the ipmb channel.").Required().String()
	updateAddr = update.Arg("address", "New 8-bit slave address.").Required().String()

	watch    = app.Command("watch", "Print broadcasts as they arrive.")
	channels = app.Command("channels", "List the configured channels.")
)

// parseByte accepts decimal, 0x-prefixed hex and 0-prefixed octal
func parseByte(s string) (uint32, error) {
	v, e := strconv.ParseUint(s, 0, 8)
	if e != nil {
		return 0, fmt.Errorf("invalid byte %q: %w", s, e)
	}
	return uint32(v), nil
}

func parseBytes(ss []string) ([]byte, error) {
	b := make([]byte, 0, len(ss))
	for _, s := range ss {
		v, e := parseByte(s)
		if e != nil {
			return nil, e
		}
		b = append(b, byte(v))
	}
	return b, nil
}

// errFailed marks a request that reached the bridge but did not succeed
var errFailed = errors.New("request did not succeed")

func show(w io.Writer, m proto.Message) error {
	b, e := json.MarshalIndent(m)
	if e != nil {
		return fmt.Errorf("failed to marshal reply: %w", e)
	}
	_, e = fmt.Fprintln(w, string(b))
	return e
}

func watchBroadcasts(ctx context.Context, client pb.BridgeClient, w io.Writer) error {
	stream, e := client.WatchBroadcasts(ctx, &empty.Empty{})
	if e != nil {
		return fmt.Errorf("failed to establish broadcast stream: %w", e)
	}
	for {
		ev, e := stream.Recv()
		if e == io.EOF {
			return nil
		}
		if e != nil {
			return fmt.Errorf("broadcast stream failed: %w", e)
		}
		if e = show(w, ev); e != nil {
			return e
		}
	}
}

func sendRequest(ctx context.Context, client pb.BridgeClient, w io.Writer) error {
	netFn, e := parseByte(*sendNetFn)
	if e != nil {
		return e
	}
	cmd, e := parseByte(*sendCmd)
	if e != nil {
		return e
	}
	data, e := parseBytes(*sendData)
	if e != nil {
		return e
	}
	rep, e := client.SendRequest(ctx, &pb.SendRequestRequest{
		Channel:    *sendChannel,
		NetFn:      netFn,
		Lun:        *sendLun,
		Cmd:        cmd,
		Data:       data,
		TargetAddr: *sendTarget,
	})
	if e != nil {
		return fmt.Errorf("send request failed: %w", e)
	}
	if e = show(w, rep); e != nil {
		return e
	}
	if rep.GetStatus() != pb.Status_SUCCESS {
		return errFailed
	}
	return nil
}

func sendBroadcast(ctx context.Context, client pb.BridgeClient) error {
	netFn, e := parseByte(*bcastNetFn)
	if e != nil {
		return e
	}
	cmd, e := parseByte(*bcastCmd)
	if e != nil {
		return e
	}
	data, e := parseBytes(*bcastData)
	if e != nil {
		return e
	}
	if _, e = client.SendBroadcast(ctx, &pb.BroadcastRequest{
		Channel: *bcastChannel,
		NetFn:   netFn,
		Cmd:     cmd,
		Data:    data,
	}); e != nil {
		return fmt.Errorf("broadcast failed: %w", e)
	}
	return nil
}

func updateAddress(ctx context.Context, client pb.BridgeClient) error {
	bus, e := parseByte(*updateBus)
	if e != nil {
		return e
	}
	addr, e := parseByte(*updateAddr)
	if e != nil {
		return e
	}
	if _, e = client.UpdateSlaveAddress(ctx, &pb.UpdateSlaveAddressRequest{
		BusId:   bus,
		Address: addr,
	}); e != nil {
		return fmt.Errorf("slave address update failed: %w", e)
	}
	return nil
}

func listChannels(ctx context.Context, client pb.BridgeClient, w io.Writer) error {
	l, e := client.ListChannels(ctx, &empty.Empty{})
	if e != nil {
		return fmt.Errorf("list channels failed: %w", e)
	}
	return show(w, l)
}

// run executes a parsed command against the bridge, writing replies to w
func run(ctx context.Context, client pb.BridgeClient, command string, w io.Writer) error {
	if command == watch.FullCommand() {
		return watchBroadcasts(ctx, client, w)
	}
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	switch command {
	case send.FullCommand():
		return sendRequest(ctx, client, w)
	case bcast.FullCommand():
		return sendBroadcast(ctx, client)
	case update.FullCommand():
		return updateAddress(ctx, client)
	case channels.FullCommand():
		return listChannels(ctx, client, w)
	}
	return fmt.Errorf("unknown command %q", command)
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	conn, e := grpc.Dial(*socket, grpc.WithInsecure())
	if e != nil {
		log.Fatalf("failed to dial API: %v", e)
	}
	client := pb.NewBridgeClient(conn)

	e = run(context.Background(), client, command, os.Stdout)
	conn.Close()
	if errors.Is(e, errFailed) {
		os.Exit(1)
	}
	if e != nil {
		log.Fatal(e)
	}
}
