/* json.go: json handlers for messages
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package json

import (
	"bytes"

	"github.com/gogo/protobuf/jsonpb"
	"github.com/gogo/protobuf/proto"
)

// Marshaler is a global marshaler that sets our default options.
// Zero values are emitted so that a status of 0 (success) is visible.
var Marshaler = jsonpb.Marshaler{
	EmitDefaults: true,
	OrigName:     true,
}

// Unmarshaler is a global unmarshaler that sets our default options
var Unmarshaler = jsonpb.Unmarshaler{
	AllowUnknownFields: true,
}

// Marshal turns a proto.Message into json with the default marshaler
func Marshal(m proto.Message) ([]byte, error) {
	buf := bytes.NewBuffer([]byte{})
	e := Marshaler.Marshal(buf, m)
	return buf.Bytes(), e
}

// MarshalIndent is Marshal with two-space indentation, for humans
func MarshalIndent(m proto.Message) ([]byte, error) {
	buf := bytes.NewBuffer([]byte{})
	mi := Marshaler
	mi.Indent = "  "
	e := mi.Marshal(buf, m)
	return buf.Bytes(), e
}

// Unmarshal turns a json message into a proto.Message with the default unmarshaler
func Unmarshal(in []byte, m proto.Message) error {
	buf := bytes.NewBuffer(in)
	return Unmarshaler.Unmarshal(buf, m)
}
