/* bridge_grpc.go: service descriptors and stubs for ipmb.Bridge and ipmi.Host
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package proto

import (
	"context"

	empty "github.com/golang/protobuf/ptypes/empty"
	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

/*
 * ipmb.Bridge
 */

// BridgeClient is the client API for the ipmb.Bridge service
type BridgeClient interface {
	SendRequest(ctx context.Context, in *SendRequestRequest, opts ...grpc.CallOption) (*SendRequestReply, error)
	SendBroadcast(ctx context.Context, in *BroadcastRequest, opts ...grpc.CallOption) (*empty.Empty, error)
	UpdateSlaveAddress(ctx context.Context, in *UpdateSlaveAddressRequest, opts ...grpc.CallOption) (*empty.Empty, error)
	WatchBroadcasts(ctx context.Context, in *empty.Empty, opts ...grpc.CallOption) (Bridge_WatchBroadcastsClient, error)
	ListChannels(ctx context.Context, in *empty.Empty, opts ...grpc.CallOption) (*ChannelList, error)
}

type bridgeClient struct {
	cc grpc.ClientConnInterface
}

// NewBridgeClient wraps a connection in a BridgeClient
func NewBridgeClient(cc grpc.ClientConnInterface) BridgeClient {
	return &bridgeClient{cc}
}

func (c *bridgeClient) SendRequest(ctx context.Context, in *SendRequestRequest, opts ...grpc.CallOption) (*SendRequestReply, error) {
	out := new(SendRequestReply)
	if err := c.cc.Invoke(ctx, "/ipmb.Bridge/SendRequest", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bridgeClient) SendBroadcast(ctx context.Context, in *BroadcastRequest, opts ...grpc.CallOption) (*empty.Empty, error) {
	out := new(empty.Empty)
	if err := c.cc.Invoke(ctx, "/ipmb.Bridge/SendBroadcast", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bridgeClient) UpdateSlaveAddress(ctx context.Context, in *UpdateSlaveAddressRequest, opts ...grpc.CallOption) (*empty.Empty, error) {
	out := new(empty.Empty)
	if err := c.cc.Invoke(ctx, "/ipmb.Bridge/UpdateSlaveAddress", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bridgeClient) WatchBroadcasts(ctx context.Context, in *empty.Empty, opts ...grpc.CallOption) (Bridge_WatchBroadcastsClient, error) {
	stream, err := c.cc.NewStream(ctx, &_Bridge_serviceDesc.Streams[0], "/ipmb.Bridge/WatchBroadcasts", opts...)
	if err != nil {
		return nil, err
	}
	x := &bridgeWatchBroadcastsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Bridge_WatchBroadcastsClient receives broadcast events from the bridge
type Bridge_WatchBroadcastsClient interface {
	Recv() (*BroadcastEvent, error)
	grpc.ClientStream
}

type bridgeWatchBroadcastsClient struct {
	grpc.ClientStream
}

func (x *bridgeWatchBroadcastsClient) Recv() (*BroadcastEvent, error) {
	m := new(BroadcastEvent)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *bridgeClient) ListChannels(ctx context.Context, in *empty.Empty, opts ...grpc.CallOption) (*ChannelList, error) {
	out := new(ChannelList)
	if err := c.cc.Invoke(ctx, "/ipmb.Bridge/ListChannels", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// BridgeServer is the server API for the ipmb.Bridge service
type BridgeServer interface {
	SendRequest(context.Context, *SendRequestRequest) (*SendRequestReply, error)
	SendBroadcast(context.Context, *BroadcastRequest) (*empty.Empty, error)
	UpdateSlaveAddress(context.Context, *UpdateSlaveAddressRequest) (*empty.Empty, error)
	WatchBroadcasts(*empty.Empty, Bridge_WatchBroadcastsServer) error
	ListChannels(context.Context, *empty.Empty) (*ChannelList, error)
}

// UnimplementedBridgeServer can be embedded to have forward compatible implementations
type UnimplementedBridgeServer struct{}

func (*UnimplementedBridgeServer) SendRequest(context.Context, *SendRequestRequest) (*SendRequestReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendRequest not implemented")
}
func (*UnimplementedBridgeServer) SendBroadcast(context.Context, *BroadcastRequest) (*empty.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendBroadcast not implemented")
}
func (*UnimplementedBridgeServer) UpdateSlaveAddress(context.Context, *UpdateSlaveAddressRequest) (*empty.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UpdateSlaveAddress not implemented")
}
func (*UnimplementedBridgeServer) WatchBroadcasts(*empty.Empty, Bridge_WatchBroadcastsServer) error {
	return status.Errorf(codes.Unimplemented, "method WatchBroadcasts not implemented")
}
func (*UnimplementedBridgeServer) ListChannels(context.Context, *empty.Empty) (*ChannelList, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListChannels not implemented")
}

// RegisterBridgeServer attaches a BridgeServer to a grpc.Server
func RegisterBridgeServer(s *grpc.Server, srv BridgeServer) {
	s.RegisterService(&_Bridge_serviceDesc, srv)
}

func _Bridge_SendRequest_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SendRequestRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BridgeServer).SendRequest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/ipmb.Bridge/SendRequest",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BridgeServer).SendRequest(ctx, req.(*SendRequestRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Bridge_SendBroadcast_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BroadcastRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BridgeServer).SendBroadcast(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/ipmb.Bridge/SendBroadcast",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BridgeServer).SendBroadcast(ctx, req.(*BroadcastRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Bridge_UpdateSlaveAddress_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateSlaveAddressRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BridgeServer).UpdateSlaveAddress(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/ipmb.Bridge/UpdateSlaveAddress",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BridgeServer).UpdateSlaveAddress(ctx, req.(*UpdateSlaveAddressRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Bridge_WatchBroadcasts_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(empty.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(BridgeServer).WatchBroadcasts(m, &bridgeWatchBroadcastsServer{stream})
}

// Bridge_WatchBroadcastsServer sends broadcast events to a watcher
type Bridge_WatchBroadcastsServer interface {
	Send(*BroadcastEvent) error
	grpc.ServerStream
}

type bridgeWatchBroadcastsServer struct {
	grpc.ServerStream
}

func (x *bridgeWatchBroadcastsServer) Send(m *BroadcastEvent) error {
	return x.ServerStream.SendMsg(m)
}

func _Bridge_ListChannels_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(empty.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BridgeServer).ListChannels(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/ipmb.Bridge/ListChannels",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BridgeServer).ListChannels(ctx, req.(*empty.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var _Bridge_serviceDesc = grpc.ServiceDesc{
	ServiceName: "ipmb.Bridge",
	HandlerType: (*BridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendRequest",
			Handler:    _Bridge_SendRequest_Handler,
		},
		{
			MethodName: "SendBroadcast",
			Handler:    _Bridge_SendBroadcast_Handler,
		},
		{
			MethodName: "UpdateSlaveAddress",
			Handler:    _Bridge_UpdateSlaveAddress_Handler,
		},
		{
			MethodName: "ListChannels",
			Handler:    _Bridge_ListChannels_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchBroadcasts",
			Handler:       _Bridge_WatchBroadcasts_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "bridge.proto",
}

/*
 * ipmi.Host
 */

// HostClient is the client API for the ipmi.Host service, the upstream IPMI responder
type HostClient interface {
	Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteReply, error)
}

type hostClient struct {
	cc grpc.ClientConnInterface
}

// NewHostClient wraps a connection in a HostClient
func NewHostClient(cc grpc.ClientConnInterface) HostClient {
	return &hostClient{cc}
}

func (c *hostClient) Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteReply, error) {
	out := new(ExecuteReply)
	if err := c.cc.Invoke(ctx, "/ipmi.Host/Execute", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// HostServer is the server API for the ipmi.Host service
type HostServer interface {
	Execute(context.Context, *ExecuteRequest) (*ExecuteReply, error)
}

// RegisterHostServer attaches a HostServer to a grpc.Server
func RegisterHostServer(s *grpc.Server, srv HostServer) {
	s.RegisterService(&_Host_serviceDesc, srv)
}

func _Host_Execute_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ExecuteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HostServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/ipmi.Host/Execute",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HostServer).Execute(ctx, req.(*ExecuteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var _Host_serviceDesc = grpc.ServiceDesc{
	ServiceName: "ipmi.Host",
	HandlerType: (*HostServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler:    _Host_Execute_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bridge.proto",
}
