/* Responder.go: the upstream IPMI responder that answers inbound requests
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"context"
	"fmt"

	pb "github.com/kraken-hpc/ipmbbridge/core/proto"
	"google.golang.org/grpc"
)

// An ExecuteReply is the upstream responder's answer to one request
type ExecuteReply struct {
	NetFn          uint8
	Lun            uint8
	Cmd            uint8
	CompletionCode uint8
	Data           []byte
}

// A Responder executes IPMI requests that arrive from the bus.
// rqSA is the requester's 7-bit slave address.
type Responder interface {
	Execute(ctx context.Context, netFn, lun, cmd uint8, data []byte, rqSA uint8) (*ExecuteReply, error)
}

// ResponderFunc adapts a function to the Responder interface
type ResponderFunc func(ctx context.Context, netFn, lun, cmd uint8, data []byte, rqSA uint8) (*ExecuteReply, error)

// Execute calls f
func (f ResponderFunc) Execute(ctx context.Context, netFn, lun, cmd uint8, data []byte, rqSA uint8) (*ExecuteReply, error) {
	return f(ctx, netFn, lun, cmd, data, rqSA)
}

var _ Responder = (*GRPCResponder)(nil)

// GRPCResponder calls ipmi.Host/Execute on a remote IPMI responder
type GRPCResponder struct {
	c pb.HostClient
}

// NewGRPCResponder creates a GRPCResponder on an existing connection
func NewGRPCResponder(cc grpc.ClientConnInterface) *GRPCResponder {
	return &GRPCResponder{
		c: pb.NewHostClient(cc),
	}
}

// Execute implements Responder
func (r *GRPCResponder) Execute(ctx context.Context, netFn, lun, cmd uint8, data []byte, rqSA uint8) (*ExecuteReply, error) {
	rep, e := r.c.Execute(ctx, &pb.ExecuteRequest{
		NetFn: uint32(netFn),
		Lun:   uint32(lun),
		Cmd:   uint32(cmd),
		Data:  data,
		RqSA:  uint32(rqSA),
	})
	if e != nil {
		return nil, fmt.Errorf("upstream execute failed: %w", e)
	}
	// netFn and lun share bytes on the bus: 6 and 2 bits
	if rep.NetFn > 0x3f || rep.Lun > 0x03 || rep.Cmd > 0xff || rep.CompletionCode > 0xff {
		return nil, fmt.Errorf("upstream reply field out of range: %s", rep)
	}
	return &ExecuteReply{
		NetFn:          uint8(rep.NetFn),
		Lun:            uint8(rep.Lun),
		Cmd:            uint8(rep.Cmd),
		CompletionCode: uint8(rep.CompletionCode),
		Data:           rep.Data,
	}, nil
}
