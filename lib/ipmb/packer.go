/* packer.go: a struct-tag driven packer for IPMB frame layers
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package ipmb

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Packer packs and unpacks structs described by `pack` tags.
//
// Supported field kinds are uint8, []byte and [N]byte. Recognized flags:
//
//	cksum      the field holds the checksum of everything packed before it in the struct
//	len=Field  the field holds the byte length of Field
//	fill=N     a slice consumes the remaining input plus N (N is usually 0 or negative)
type Packer struct{}

func (p Packer) parseArgs(args string) map[string]string {
	r := make(map[string]string)
	for _, arg := range strings.Split(args, ",") {
		pair := strings.SplitN(arg, "=", 2)
		if len(pair) == 2 {
			r[strings.TrimSpace(pair[0])] = strings.TrimSpace(pair[1])
		} else {
			r[strings.TrimSpace(pair[0])] = ""
		}
	}
	return r
}

// Pack serializes packet, filling in any cksum and len fields as it goes.
func (p Packer) Pack(packet interface{}) (b []byte, e error) {
	sv := reflect.Indirect(reflect.ValueOf(packet))
	st := sv.Type()
	if st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("not a struct: %v", st)
	}
	buf := make([]byte, 0, MaxFrameLength)
	for i := 0; i < st.NumField(); i++ {
		ft := st.Field(i)
		fv := sv.Field(i)
		flagStr, ok := ft.Tag.Lookup("pack")
		if !ok {
			continue
		}
		flags := p.parseArgs(flagStr)

		switch ft.Type.Kind() {
		case reflect.Array, reflect.Slice:
			if ft.Type.Elem().Kind() != reflect.Uint8 {
				return nil, fmt.Errorf("%s: arrays must be of bytes", ft.Name)
			}
			for j := 0; j < fv.Len(); j++ {
				buf = append(buf, uint8(fv.Index(j).Uint()))
			}
		case reflect.Uint8:
			v := uint8(fv.Uint())
			if _, ok := flags["cksum"]; ok {
				v = Checksum(buf)
			}
			if ref, ok := flags["len"]; ok {
				refv := sv.FieldByName(ref)
				if !refv.IsValid() {
					return nil, fmt.Errorf("%s: len refers to unknown field %s", ft.Name, ref)
				}
				if refv.Kind() == reflect.Array || refv.Kind() == reflect.Slice {
					// the length byte is a single octet on the wire
					v = uint8(refv.Len())
				}
			}
			if fv.CanSet() {
				fv.SetUint(uint64(v))
			}
			buf = append(buf, v)
		default:
			return nil, fmt.Errorf("%s: unhandled kind: %v", ft.Name, ft.Type.Kind())
		}
	}
	return buf, nil
}

// Unpack parses b into packet. Checksum fields are verified and a mismatch
// is reported as ErrChecksum. Short input is reported as ErrFrameTooShort.
func (p Packer) Unpack(b []byte, packet interface{}) (e error) {
	sv := reflect.Indirect(reflect.ValueOf(packet))
	st := sv.Type()
	if st.Kind() != reflect.Struct {
		return fmt.Errorf("not a struct: %v", st)
	}
	last := 0
	for i := 0; i < st.NumField(); i++ {
		ft := st.Field(i)
		fv := sv.Field(i)
		flagStr, ok := ft.Tag.Lookup("pack")
		if !ok {
			continue
		}
		flags := p.parseArgs(flagStr)

		switch ft.Type.Kind() {
		case reflect.Array:
			if ft.Type.Elem().Kind() != reflect.Uint8 {
				return fmt.Errorf("%s: arrays must be of bytes", ft.Name)
			}
			n := ft.Type.Len()
			if last+n > len(b) {
				return fmt.Errorf("%w: %s needs %d bytes, have %d", ErrFrameTooShort, ft.Name, n, len(b)-last)
			}
			if fv.CanSet() {
				reflect.Copy(fv, reflect.ValueOf(b[last:last+n]))
			}
			last += n
		case reflect.Slice:
			if ft.Type.Elem().Kind() != reflect.Uint8 {
				return fmt.Errorf("%s: arrays must be of bytes", ft.Name)
			}
			n := len(b) - last
			if offStr, ok := flags["fill"]; ok {
				off, err := strconv.Atoi(offStr)
				if err != nil {
					return fmt.Errorf("%s: bad fill: %v", ft.Name, err)
				}
				n += off
			}
			if n < 0 {
				return fmt.Errorf("%w: no room for %s", ErrFrameTooShort, ft.Name)
			}
			if fv.CanSet() && n > 0 {
				fv.SetBytes(append([]byte{}, b[last:last+n]...))
			}
			last += n
		case reflect.Uint8:
			if last >= len(b) {
				return fmt.Errorf("%w: missing %s", ErrFrameTooShort, ft.Name)
			}
			if _, ok := flags["cksum"]; ok {
				if ck := Checksum(b[0:last]); ck != b[last] {
					return fmt.Errorf("%w: %s %#02x != %#02x", ErrChecksum, ft.Name, b[last], ck)
				}
			}
			if fv.CanSet() {
				fv.SetUint(uint64(b[last]))
			}
			last++
		default:
			return fmt.Errorf("%s: unhandled kind: %v", ft.Name, ft.Type.Kind())
		}
	}
	return
}
