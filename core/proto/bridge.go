/* bridge.go: messages for the ipmb.Bridge and ipmi.Host RPC services
 *
 * These are plain proto3 messages described by struct tags; they travel with
 * the default gRPC proto codec.
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package proto

import (
	proto "github.com/golang/protobuf/proto"
)

// Status values carried in SendRequestReply.Status
const (
	Status_SUCCESS       int32 = 0
	Status_ERROR         int32 = 1
	Status_INVALID_PARAM int32 = 2
	Status_BUSY          int32 = 3
	Status_TIMEOUT       int32 = 4
)

// SendRequestRequest asks the bridge to send an IPMI command over IPMB
type SendRequestRequest struct {
	Channel    uint32 `protobuf:"varint,1,opt,name=channel,proto3" json:"channel,omitempty"`
	NetFn      uint32 `protobuf:"varint,2,opt,name=net_fn,json=netFn,proto3" json:"net_fn,omitempty"`
	Lun        uint32 `protobuf:"varint,3,opt,name=lun,proto3" json:"lun,omitempty"`
	Cmd        uint32 `protobuf:"varint,4,opt,name=cmd,proto3" json:"cmd,omitempty"`
	Data       []byte `protobuf:"bytes,5,opt,name=data,proto3" json:"data,omitempty"`
	TargetAddr uint32 `protobuf:"varint,6,opt,name=target_addr,json=targetAddr,proto3" json:"target_addr,omitempty"`
}

func (m *SendRequestRequest) Reset()         { *m = SendRequestRequest{} }
func (m *SendRequestRequest) String() string { return proto.CompactTextString(m) }
func (*SendRequestRequest) ProtoMessage()    {}

func (m *SendRequestRequest) GetChannel() uint32 {
	if m != nil {
		return m.Channel
	}
	return 0
}

func (m *SendRequestRequest) GetData() []byte {
	if m != nil {
		return m.Data
	}
	return nil
}

// SendRequestReply is the matched response, or only a status
type SendRequestReply struct {
	Status         int32  `protobuf:"varint,1,opt,name=status,proto3" json:"status,omitempty"`
	NetFn          uint32 `protobuf:"varint,2,opt,name=net_fn,json=netFn,proto3" json:"net_fn,omitempty"`
	Lun            uint32 `protobuf:"varint,3,opt,name=lun,proto3" json:"lun,omitempty"`
	Cmd            uint32 `protobuf:"varint,4,opt,name=cmd,proto3" json:"cmd,omitempty"`
	CompletionCode uint32 `protobuf:"varint,5,opt,name=completion_code,json=completionCode,proto3" json:"completion_code,omitempty"`
	Data           []byte `protobuf:"bytes,6,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *SendRequestReply) Reset()         { *m = SendRequestReply{} }
func (m *SendRequestReply) String() string { return proto.CompactTextString(m) }
func (*SendRequestReply) ProtoMessage()    {}

func (m *SendRequestReply) GetStatus() int32 {
	if m != nil {
		return m.Status
	}
	return Status_ERROR
}

func (m *SendRequestReply) GetNetFn() uint32 {
	if m != nil {
		return m.NetFn
	}
	return 0
}

func (m *SendRequestReply) GetCmd() uint32 {
	if m != nil {
		return m.Cmd
	}
	return 0
}

func (m *SendRequestReply) GetCompletionCode() uint32 {
	if m != nil {
		return m.CompletionCode
	}
	return 0
}

func (m *SendRequestReply) GetData() []byte {
	if m != nil {
		return m.Data
	}
	return nil
}

// BroadcastRequest asks the bridge to put a broadcast on a channel
type BroadcastRequest struct {
	Channel uint32 `protobuf:"varint,1,opt,name=channel,proto3" json:"channel,omitempty"`
	NetFn   uint32 `protobuf:"varint,2,opt,name=net_fn,json=netFn,proto3" json:"net_fn,omitempty"`
	Lun     uint32 `protobuf:"varint,3,opt,name=lun,proto3" json:"lun,omitempty"`
	Cmd     uint32 `protobuf:"varint,4,opt,name=cmd,proto3" json:"cmd,omitempty"`
	Data    []byte `protobuf:"bytes,5,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *BroadcastRequest) Reset()         { *m = BroadcastRequest{} }
func (m *BroadcastRequest) String() string { return proto.CompactTextString(m) }
func (*BroadcastRequest) ProtoMessage()    {}

// UpdateSlaveAddressRequest moves the BMC to a new slave address on a bus
type UpdateSlaveAddressRequest struct {
	Channel uint32 `protobuf:"varint,1,opt,name=channel,proto3" json:"channel,omitempty"`
	BusId   uint32 `protobuf:"varint,2,opt,name=bus_id,json=busId,proto3" json:"bus_id,omitempty"`
	Address uint32 `protobuf:"varint,3,opt,name=address,proto3" json:"address,omitempty"`
}

func (m *UpdateSlaveAddressRequest) Reset()         { *m = UpdateSlaveAddressRequest{} }
func (m *UpdateSlaveAddressRequest) String() string { return proto.CompactTextString(m) }
func (*UpdateSlaveAddressRequest) ProtoMessage()    {}

// BroadcastEvent is emitted for every broadcast received on an ipmb channel
type BroadcastEvent struct {
	Channel uint32 `protobuf:"varint,1,opt,name=channel,proto3" json:"channel,omitempty"`
	NetFn   uint32 `protobuf:"varint,2,opt,name=net_fn,json=netFn,proto3" json:"net_fn,omitempty"`
	Cmd     uint32 `protobuf:"varint,3,opt,name=cmd,proto3" json:"cmd,omitempty"`
	Data    []byte `protobuf:"bytes,4,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *BroadcastEvent) Reset()         { *m = BroadcastEvent{} }
func (m *BroadcastEvent) String() string { return proto.CompactTextString(m) }
func (*BroadcastEvent) ProtoMessage()    {}

// ChannelStatus describes one configured channel
type ChannelStatus struct {
	Type        string `protobuf:"bytes,1,opt,name=type,proto3" json:"type,omitempty"`
	Channel     uint32 `protobuf:"varint,2,opt,name=channel,proto3" json:"channel,omitempty"`
	SlavePath   string `protobuf:"bytes,3,opt,name=slave_path,json=slavePath,proto3" json:"slave_path,omitempty"`
	BusId       uint32 `protobuf:"varint,4,opt,name=bus_id,json=busId,proto3" json:"bus_id,omitempty"`
	BmcAddr     uint32 `protobuf:"varint,5,opt,name=bmc_addr,json=bmcAddr,proto3" json:"bmc_addr,omitempty"`
	RemoteAddr  uint32 `protobuf:"varint,6,opt,name=remote_addr,json=remoteAddr,proto3" json:"remote_addr,omitempty"`
	Outstanding uint32 `protobuf:"varint,7,opt,name=outstanding,proto3" json:"outstanding,omitempty"`
}

func (m *ChannelStatus) Reset()         { *m = ChannelStatus{} }
func (m *ChannelStatus) String() string { return proto.CompactTextString(m) }
func (*ChannelStatus) ProtoMessage()    {}

// ChannelList is every configured channel
type ChannelList struct {
	Channels []*ChannelStatus `protobuf:"bytes,1,rep,name=channels,proto3" json:"channels,omitempty"`
}

func (m *ChannelList) Reset()         { *m = ChannelList{} }
func (m *ChannelList) String() string { return proto.CompactTextString(m) }
func (*ChannelList) ProtoMessage()    {}

func (m *ChannelList) GetChannels() []*ChannelStatus {
	if m != nil {
		return m.Channels
	}
	return nil
}

// ExecuteRequest hands an inbound IPMB request to the IPMI responder
type ExecuteRequest struct {
	NetFn uint32 `protobuf:"varint,1,opt,name=net_fn,json=netFn,proto3" json:"net_fn,omitempty"`
	Lun   uint32 `protobuf:"varint,2,opt,name=lun,proto3" json:"lun,omitempty"`
	Cmd   uint32 `protobuf:"varint,3,opt,name=cmd,proto3" json:"cmd,omitempty"`
	Data  []byte `protobuf:"bytes,4,opt,name=data,proto3" json:"data,omitempty"`
	// RqSA is the 7-bit requester slave address
	RqSA uint32 `protobuf:"varint,5,opt,name=rq_sa,json=rqSa,proto3" json:"rq_sa,omitempty"`
}

func (m *ExecuteRequest) Reset()         { *m = ExecuteRequest{} }
func (m *ExecuteRequest) String() string { return proto.CompactTextString(m) }
func (*ExecuteRequest) ProtoMessage()    {}

// ExecuteReply is the IPMI responder's answer
type ExecuteReply struct {
	NetFn          uint32 `protobuf:"varint,1,opt,name=net_fn,json=netFn,proto3" json:"net_fn,omitempty"`
	Lun            uint32 `protobuf:"varint,2,opt,name=lun,proto3" json:"lun,omitempty"`
	Cmd            uint32 `protobuf:"varint,3,opt,name=cmd,proto3" json:"cmd,omitempty"`
	CompletionCode uint32 `protobuf:"varint,4,opt,name=completion_code,json=completionCode,proto3" json:"completion_code,omitempty"`
	Data           []byte `protobuf:"bytes,5,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *ExecuteReply) Reset()         { *m = ExecuteReply{} }
func (m *ExecuteReply) String() string { return proto.CompactTextString(m) }
func (*ExecuteReply) ProtoMessage()    {}
