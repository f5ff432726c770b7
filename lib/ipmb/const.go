/* const.go: IPMB protocol constants and field helpers
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package ipmb

// IPMI NetFn codes
const (
	NetFnChassisReq   uint8 = 0x00
	NetFnChassisRes   uint8 = 0x01
	NetFnBridgeReq    uint8 = 0x02
	NetFnBridgeRes    uint8 = 0x03
	NetFnSensorReq    uint8 = 0x04
	NetFnSensorRes    uint8 = 0x05
	NetFnAppReq       uint8 = 0x06
	NetFnAppRes       uint8 = 0x07
	NetFnFirmwareReq  uint8 = 0x08
	NetFnFirmwareRes  uint8 = 0x09
	NetFnStorageReq   uint8 = 0x0a
	NetFnStorageRes   uint8 = 0x0b
	NetFnTransportReq uint8 = 0x0c
	NetFnTransportRes uint8 = 0x0d
	NetFnGroupReq     uint8 = 0x2c
	NetFnGroupRes     uint8 = 0x2d
	NetFnOEMReq       uint8 = 0x2e
	NetFnOEMRes       uint8 = 0x2f
)

// Completion codes
const (
	CmpNormal             uint8 = 0x00
	CmpBusy               uint8 = 0xc0
	CmpInvalidCmd         uint8 = 0xc1
	CmpTimeout            uint8 = 0xc3
	CmpRespNotProvided    uint8 = 0xce
	CmpUnspecifiedFailure uint8 = 0xff
	//...
)

// CmpString gives human readable completion codes
var CmpString = map[uint8]string{
	CmpNormal:             "Command completed normally.",
	CmpBusy:               "Node Busy.",
	CmpInvalidCmd:         "Invalid Command.",
	CmpTimeout:            "Timeout while processing command.",
	CmpRespNotProvided:    "Command response could not be provided.",
	CmpUnspecifiedFailure: "Unspecified error.",
}

// Frame layout
const (
	MaxDataSize              = 256
	PktLenSize               = 1
	ConnectionHeaderLength   = 3
	RequestDataHeaderLength  = 3
	ResponseDataHeaderLength = 4
	ChecksumSize             = 1
	// MinFrameLength excludes the length prefix
	MinFrameLength = 7
	MaxFrameLength = PktLenSize + ConnectionHeaderLength + ResponseDataHeaderLength +
		ChecksumSize + MaxDataSize
)

// Protocol bounds
const (
	MaxOutstandingRequests = 64
	BroadcastAddress uint8 = 0x00
	RsLun            uint8 = 0x00

	netFnResponseMask uint8 = 0x01
	lunMask           uint8 = 0x03
	seqMask           uint8 = 0x3f
)

// NetFnLun packs a netFn and lun into a single header byte
func NetFnLun(netFn, lun uint8) uint8 { return netFn<<2 | lun&lunMask }

// SeqLun packs a sequence number and lun into a single header byte
func SeqLun(seq, lun uint8) uint8 { return seq<<2 | lun&lunMask }

// NetFnOf extracts the netFn from a netFn/lun byte
func NetFnOf(netFnLun uint8) uint8 { return netFnLun >> 2 }

// SeqOf extracts the sequence number from a seq/lun byte
func SeqOf(seqLun uint8) uint8 { return seqLun >> 2 }

// LunOf extracts the lun from either a netFn/lun or seq/lun byte
func LunOf(b uint8) uint8 { return b & lunMask }

// ResponseNetFn gives the response netFn paired with a request netFn
func ResponseNetFn(netFn uint8) uint8 { return netFn | netFnResponseMask }

// RequestNetFn gives the request netFn paired with a response netFn
func RequestNetFn(netFn uint8) uint8 { return netFn &^ netFnResponseMask }

// IsResponseNetFn reports whether netFn is odd, i.e. a response
func IsResponseNetFn(netFn uint8) bool { return netFn&netFnResponseMask != 0 }

// To7Bit converts an 8-bit wire address into a 7-bit I2C address
func To7Bit(addr uint8) uint8 { return addr >> 1 }

// NextSeq advances a sequence cursor, wrapping within the sequence space
func NextSeq(seq uint8) uint8 { return (seq + 1) & seqMask }
