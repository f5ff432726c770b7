/* packets.go: the layers of an IPMB frame as seen by the i2c slave driver
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package ipmb

// I2CPacket is what the ipmb slave driver reads and writes: a length byte
// followed by the frame.
type I2CPacket struct {
	Len   uint8  `pack:"len=Frame"`
	Frame []byte `pack:"fill=0"`
}

// ConnectionHeader is the first checksummed region of a frame.
type ConnectionHeader struct {
	Address  uint8  `pack:""`
	NetFnLun uint8  `pack:""`
	Checksum uint8  `pack:"cksum"`
	Data     []byte `pack:"fill=0"`
}

// RequestBody is the second checksummed region of a request frame.
type RequestBody struct {
	RqSA     uint8  `pack:""`
	RqSeqLun uint8  `pack:""`
	Cmd      uint8  `pack:""`
	Data     []byte `pack:"fill=-1"`
	Checksum uint8  `pack:"cksum"`
}

// ResponseBody is the second checksummed region of a response frame.
type ResponseBody struct {
	RsSA     uint8  `pack:""`
	RsSeqLun uint8  `pack:""`
	Cmd      uint8  `pack:""`
	CompCode uint8  `pack:""`
	Data     []byte `pack:"fill=-1"`
	Checksum uint8  `pack:"cksum"`
}
