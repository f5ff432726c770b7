/* message.go: in-memory IPMB requests and responses
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package ipmb

import (
	"fmt"
)

// RequestState tracks a request through a channel's outstanding table
type RequestState uint8

const (
	// StateInvalid requests are not (or no longer) registered
	StateInvalid RequestState = iota
	// StateValid requests are registered and waiting for a response
	StateValid
	// StateMatched requests have a correlated response
	StateMatched
)

func (s RequestState) String() string {
	switch s {
	case StateInvalid:
		return "INVALID"
	case StateValid:
		return "VALID"
	case StateMatched:
		return "MATCHED"
	}
	return fmt.Sprintf("RequestState(%d)", uint8(s))
}

// A Request is one IPMB request transaction.
// TargetAddr and RqSA are 8-bit wire addresses.
type Request struct {
	TargetAddr uint8
	NetFn      uint8
	RsLun      uint8
	RqSA       uint8
	Seq        uint8
	RqLun      uint8
	Cmd        uint8
	Data       []byte

	State    RequestState
	Response *Response // only set once State == StateMatched
}

// A Response is one IPMB response transaction.
type Response struct {
	Address        uint8
	NetFn          uint8
	RqLun          uint8
	RsSA           uint8
	Seq            uint8
	RsLun          uint8
	Cmd            uint8
	CompletionCode uint8
	Data           []byte
}

// Encode builds the wire bytes for a request, including the length prefix
func (r *Request) Encode() ([]byte, error) {
	if len(r.Data) > MaxDataSize {
		return nil, fmt.Errorf("%w: %d byte payload", ErrFrameTooLong, len(r.Data))
	}
	body, e := packer.Pack(&RequestBody{
		RqSA:     r.RqSA,
		RqSeqLun: SeqLun(r.Seq, r.RqLun),
		Cmd:      r.Cmd,
		Data:     r.Data,
	})
	if e != nil {
		return nil, e
	}
	hdr, e := packer.Pack(&ConnectionHeader{
		Address:  r.TargetAddr,
		NetFnLun: NetFnLun(r.NetFn, r.RsLun),
		Data:     body,
	})
	if e != nil {
		return nil, e
	}
	return wrap(hdr)
}

// Matches reports whether rs is the response to r. The sequence number is
// the table index and is not compared here.
func (r *Request) Matches(rs *Response) bool {
	return ResponseNetFn(r.NetFn) == rs.NetFn &&
		r.RqLun == rs.RqLun &&
		r.RsLun == rs.RsLun &&
		r.Cmd == rs.Cmd
}

func (r *Request) String() string {
	return fmt.Sprintf("(netFn=%#02x cmd=%#02x seq=%d) %#02x -> %#02x [%s]", r.NetFn, r.Cmd, r.Seq, r.RqSA, r.TargetAddr, r.State)
}

// DecodeRequest parses and validates request wire bytes, including the length prefix
func DecodeRequest(wire []byte) (*Request, error) {
	hdr, e := ParseHeader(wire)
	if e != nil {
		return nil, e
	}
	body := &RequestBody{}
	if e = packer.Unpack(hdr.Data, body); e != nil {
		return nil, e
	}
	return &Request{
		TargetAddr: hdr.Address,
		NetFn:      hdr.NetFn(),
		RsLun:      hdr.Lun(),
		RqSA:       body.RqSA,
		Seq:        SeqOf(body.RqSeqLun),
		RqLun:      LunOf(body.RqSeqLun),
		Cmd:        body.Cmd,
		Data:       body.Data,
	}, nil
}

// Encode builds the wire bytes for a response, including the length prefix
func (r *Response) Encode() ([]byte, error) {
	if len(r.Data) > MaxDataSize {
		return nil, fmt.Errorf("%w: %d byte payload", ErrFrameTooLong, len(r.Data))
	}
	body, e := packer.Pack(&ResponseBody{
		RsSA:     r.RsSA,
		RsSeqLun: SeqLun(r.Seq, r.RsLun),
		Cmd:      r.Cmd,
		CompCode: r.CompletionCode,
		Data:     r.Data,
	})
	if e != nil {
		return nil, e
	}
	hdr, e := packer.Pack(&ConnectionHeader{
		Address:  r.Address,
		NetFnLun: NetFnLun(r.NetFn, r.RqLun),
		Data:     body,
	})
	if e != nil {
		return nil, e
	}
	return wrap(hdr)
}

func (r *Response) String() string {
	return fmt.Sprintf("(netFn=%#02x cmd=%#02x seq=%d cc=%#02x) %#02x -> %#02x", r.NetFn, r.Cmd, r.Seq, r.CompletionCode, r.RsSA, r.Address)
}

// DecodeResponse parses and validates response wire bytes, including the length prefix
func DecodeResponse(wire []byte) (*Response, error) {
	hdr, e := ParseHeader(wire)
	if e != nil {
		return nil, e
	}
	body := &ResponseBody{}
	if e = packer.Unpack(hdr.Data, body); e != nil {
		return nil, e
	}
	return &Response{
		Address:        hdr.Address,
		NetFn:          hdr.NetFn(),
		RqLun:          hdr.Lun(),
		RsSA:           body.RsSA,
		Seq:            SeqOf(body.RsSeqLun),
		RsLun:          LunOf(body.RsSeqLun),
		Cmd:            body.Cmd,
		CompletionCode: body.CompCode,
		Data:           body.Data,
	}, nil
}

// InvalidCmdResponse is the generic reply sent for commands known to be unsupported
func InvalidCmdResponse(req *Request, rsSA uint8) *Response {
	return &Response{
		Address:        req.RqSA,
		NetFn:          ResponseNetFn(req.NetFn),
		RqLun:          req.RqLun,
		RsSA:           rsSA,
		Seq:            req.Seq,
		RsLun:          RsLun,
		Cmd:            req.Cmd,
		CompletionCode: CmpInvalidCmd,
	}
}
