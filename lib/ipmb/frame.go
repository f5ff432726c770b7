/* frame.go: checksums and frame validation
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package ipmb

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameTooLong means a frame would exceed MaxFrameLength
	ErrFrameTooLong = errors.New("ipmb frame too long")
	// ErrFrameTooShort means a frame is truncated or below MinFrameLength
	ErrFrameTooShort = errors.New("ipmb frame too short")
	// ErrChecksum means one of the two frame checksums does not zero its region
	ErrChecksum = errors.New("ipmb checksum mismatch")
)

var packer = Packer{}

// Checksum is the two's-complement of the sum of b, modulo 256.
// A region followed by its checksum sums to zero.
func Checksum(b []byte) uint8 {
	var sum uint8
	for _, c := range b {
		sum += c
	}
	return -sum
}

// Unwrap strips the length prefix off of wire bytes and enforces the frame size bounds.
func Unwrap(wire []byte) (frame []byte, e error) {
	if len(wire)-PktLenSize < MinFrameLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(wire))
	}
	if len(wire) > MaxFrameLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(wire))
	}
	p := &I2CPacket{}
	if e = packer.Unpack(wire, p); e != nil {
		return
	}
	return p.Frame, nil
}

// wrap prefixes a frame with its length byte
func wrap(frame []byte) ([]byte, error) {
	if len(frame)+PktLenSize > MaxFrameLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(frame)+PktLenSize)
	}
	return packer.Pack(&I2CPacket{Frame: frame})
}

// ParseHeader validates both checksums of a wire frame and returns its
// connection header. The header's Data holds the rest of the frame.
func ParseHeader(wire []byte) (*ConnectionHeader, error) {
	frame, e := Unwrap(wire)
	if e != nil {
		return nil, e
	}
	hdr := &ConnectionHeader{}
	if e = packer.Unpack(frame, hdr); e != nil {
		return nil, e
	}
	if ck := Checksum(hdr.Data); ck != 0 {
		return nil, fmt.Errorf("%w: data region sums to %#02x", ErrChecksum, -ck)
	}
	return hdr, nil
}

// ValidateFrame returns nil iff both the connection header and the data
// region of a wire frame checksum to zero.
func ValidateFrame(wire []byte) error {
	_, e := ParseHeader(wire)
	return e
}

// NetFn is the netFn carried in the header
func (h *ConnectionHeader) NetFn() uint8 { return NetFnOf(h.NetFnLun) }

// Lun is the lun carried in the header
func (h *ConnectionHeader) Lun() uint8 { return LunOf(h.NetFnLun) }

// IsResponse reports whether the header carries a response netFn
func (h *ConnectionHeader) IsResponse() bool { return IsResponseNetFn(h.NetFn()) }

// IsBroadcast reports whether the frame is addressed to the broadcast address
func (h *ConnectionHeader) IsBroadcast() bool { return h.Address == BroadcastAddress }
