/* APIServer.go: provides the ipmb.Bridge RPC API.  All gRPC calls live here
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/golang/protobuf/ptypes/empty"
	pb "github.com/kraken-hpc/ipmbbridge/core/proto"
	"github.com/kraken-hpc/ipmbbridge/lib/ipmb"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// watchBuffer is how many broadcast events a slow watcher may fall behind
const watchBuffer = 64

var _ pb.BridgeServer = (*APIServer)(nil)

// APIServer is the gateway for gRPC calls into the bridge
type APIServer struct {
	reg *ChannelRegistry
	em  *EventEmitter
	log *log.Entry

	mutex   sync.Mutex
	srv     *grpc.Server
	stopped bool
}

// NewAPIServer creates a new, initialized API
func NewAPIServer(reg *ChannelRegistry, em *EventEmitter, l *log.Entry) *APIServer {
	if l == nil {
		l = log.NewEntry(log.StandardLogger())
	}
	return &APIServer{
		reg: reg,
		em:  em,
		log: l.WithField("module", "API"),
	}
}

func replyFromResult(r Result) *pb.SendRequestReply {
	if r.Status != StatusSuccess {
		return &pb.SendRequestReply{Status: int32(r.Status)}
	}
	return &pb.SendRequestReply{
		Status:         int32(r.Status),
		NetFn:          uint32(r.NetFn),
		Lun:            uint32(r.Lun),
		Cmd:            uint32(r.Cmd),
		CompletionCode: uint32(r.CompletionCode),
		Data:           r.Data,
	}
}

// validHeader checks that RPC fields fit their wire widths
func validHeader(channel, netFn, lun, cmd uint32) bool {
	return channel <= 0xff && netFn <= 0x3f && lun <= 0x03 && cmd <= 0xff
}

// SendRequest sends an IPMI request over a channel and waits for the response.
// Failures are reported in the reply status, not as RPC errors.
func (s *APIServer) SendRequest(ctx context.Context, in *pb.SendRequestRequest) (*pb.SendRequestReply, error) {
	if !validHeader(in.Channel, in.NetFn, in.Lun, in.Cmd) || in.TargetAddr > 0xff {
		s.log.WithField("request", in.String()).Warn("send request with out of range fields")
		return replyFromResult(Result{Status: StatusInvalidParam}), nil
	}
	r := s.reg.SendRequest(ChannelType(in.Channel), uint8(in.TargetAddr), uint8(in.NetFn), uint8(in.Lun), uint8(in.Cmd), in.Data)
	return replyFromResult(r), nil
}

// SendBroadcast frames and sends a broadcast on a channel
func (s *APIServer) SendBroadcast(ctx context.Context, in *pb.BroadcastRequest) (*empty.Empty, error) {
	if !validHeader(in.Channel, in.NetFn, in.Lun, in.Cmd) {
		return nil, status.Errorf(codes.InvalidArgument, "field out of range: %s", in)
	}
	e := s.reg.SendBroadcast(ChannelType(in.Channel), uint8(in.NetFn), uint8(in.Lun), uint8(in.Cmd), in.Data)
	switch {
	case e == nil:
		return &empty.Empty{}, nil
	case errors.Is(e, ErrNoChannel):
		return nil, status.Error(codes.NotFound, e.Error())
	case errors.Is(e, ipmb.ErrFrameTooLong):
		return nil, status.Error(codes.InvalidArgument, e.Error())
	}
	return nil, status.Error(codes.Unavailable, e.Error())
}

// UpdateSlaveAddress changes the BMC's slave address on the ipmb channel
func (s *APIServer) UpdateSlaveAddress(ctx context.Context, in *pb.UpdateSlaveAddressRequest) (*empty.Empty, error) {
	if in.Channel > 0xff || in.BusId > 0xff || in.Address > 0xff {
		return nil, status.Errorf(codes.InvalidArgument, "field out of range: %s", in)
	}
	e := s.reg.UpdateSlaveAddress(ChannelType(in.Channel), uint8(in.BusId), uint8(in.Address))
	switch {
	case e == nil:
		return &empty.Empty{}, nil
	case errors.Is(e, ErrInvalidChannel), errors.Is(e, ErrInvalidBus):
		return nil, status.Error(codes.InvalidArgument, e.Error())
	case errors.Is(e, ErrChannelClosed):
		return nil, status.Error(codes.Unavailable, e.Error())
	}
	return nil, status.Error(codes.Internal, e.Error())
}

// WatchBroadcasts streams broadcast-received events until the caller goes away
func (s *APIServer) WatchBroadcasts(in *empty.Empty, stream pb.Bridge_WatchBroadcastsServer) error {
	c := make(chan *Event, watchBuffer)
	id := s.em.SubscribeNew(c)
	defer s.em.Unsubscribe(id)
	l := s.log.WithField("subscription", id)
	l.Debug("broadcast watcher subscribed")
	for {
		select {
		case <-stream.Context().Done():
			l.Debug("broadcast watcher went away")
			return nil
		case ev := <-c:
			if e := stream.Send(BroadcastEventMessage(ev)); e != nil {
				return e
			}
		}
	}
}

// ListChannels describes every configured channel
func (s *APIServer) ListChannels(ctx context.Context, in *empty.Empty) (*pb.ChannelList, error) {
	return ChannelListMessage(s.reg), nil
}

// BroadcastEventMessage converts an EventBroadcast event for the wire
func BroadcastEventMessage(ev *Event) *pb.BroadcastEvent {
	b, ok := ev.Data().(*BroadcastReceived)
	if !ok {
		return &pb.BroadcastEvent{}
	}
	return &pb.BroadcastEvent{
		Channel: uint32(b.Channel),
		NetFn:   uint32(b.NetFn),
		Cmd:     uint32(b.Cmd),
		Data:    b.Data,
	}
}

// ChannelListMessage describes the channels of reg for the wire
func ChannelListMessage(reg *ChannelRegistry) *pb.ChannelList {
	out := &pb.ChannelList{}
	for _, c := range reg.Channels() {
		cs := c.Status()
		out.Channels = append(out.Channels, &pb.ChannelStatus{
			Type:        cs.Type.String(),
			Channel:     uint32(cs.Type),
			SlavePath:   cs.SlavePath,
			BusId:       uint32(cs.BusID),
			BmcAddr:     uint32(cs.BmcAddr),
			RemoteAddr:  uint32(cs.RemoteAddr),
			Outstanding: uint32(cs.Outstanding),
		})
	}
	return out
}

// Run serves the API on l until Stop is called
func (s *APIServer) Run(l net.Listener) error {
	s.log.WithField("address", l.Addr().String()).Info("starting API")
	srv := grpc.NewServer()
	pb.RegisterBridgeServer(srv, s)
	s.mutex.Lock()
	if s.stopped {
		s.mutex.Unlock()
		return nil
	}
	s.srv = srv
	s.mutex.Unlock()
	if e := srv.Serve(l); e != nil {
		s.log.WithError(e).Error("couldn't start API service")
		return e
	}
	return nil
}

// Stop stops the API server, closing open streams
func (s *APIServer) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stopped = true
	if s.srv != nil {
		s.srv.Stop()
	}
}
