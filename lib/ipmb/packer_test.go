package ipmb

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacker_Pack(t *testing.T) {
	p := Packer{}
	data := []byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 0x90}
	t.Run("I2CPacket(len)", func(t *testing.T) {
		r := I2CPacket{
			Frame: data,
		}
		b, e := p.Pack(&r)
		require.NoError(t, e)
		t.Logf("%v", hex.Dump(b))
		assert.Equal(t, uint8(len(data)), r.Len)
		assert.Equal(t, append([]byte{0x09}, data...), b)
	})
	t.Run("RequestBody(cksum)", func(t *testing.T) {
		r := RequestBody{
			RqSA:     0x01,
			RqSeqLun: 0x02,
			Cmd:      0x03,
			Data:     data,
		}
		b, e := p.Pack(&r)
		require.NoError(t, e)
		t.Logf("%v", hex.Dump(b))
		assert.Equal(t, uint8(0x2a), r.Checksum)
		assert.Equal(t, uint8(0), Checksum(b))
	})
	t.Run("ConnectionHeader(cksum)", func(t *testing.T) {
		r := ConnectionHeader{
			Address:  0x52,
			NetFnLun: 0x18,
			Data:     data,
		}
		b, e := p.Pack(r) // not addressable; the checksum must still be written
		require.NoError(t, e)
		assert.Equal(t, []byte{0x52, 0x18, 0x96}, b[:3])
		assert.Equal(t, data, b[3:])
	})
	t.Run("not a struct", func(t *testing.T) {
		_, e := p.Pack(data)
		assert.Error(t, e)
	})
}

func TestPacker_Unpack(t *testing.T) {
	p := Packer{}
	t.Run("RequestBody(cksum)", func(t *testing.T) {
		b := []byte{0x01, 0x02, 0x03, 0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 0x90, 0x2a}
		r := RequestBody{}
		require.NoError(t, p.Unpack(b, &r))
		t.Logf("%v", r)
		assert.Equal(t, uint8(0x01), r.RqSA)
		assert.Equal(t, uint8(0x03), r.Cmd)
		assert.Equal(t, b[3:12], r.Data)
		assert.Equal(t, uint8(0x2a), r.Checksum)
	})
	t.Run("RequestBody(bad cksum)", func(t *testing.T) {
		b := []byte{0x01, 0x02, 0x03, 0x10, 0x2b}
		r := RequestBody{}
		assert.ErrorIs(t, p.Unpack(b, &r), ErrChecksum)
	})
	t.Run("ResponseBody(truncated)", func(t *testing.T) {
		r := ResponseBody{}
		assert.ErrorIs(t, p.Unpack([]byte{0x01, 0x02}, &r), ErrFrameTooShort)
	})
	t.Run("ConnectionHeader(empty data)", func(t *testing.T) {
		r := ConnectionHeader{}
		require.NoError(t, p.Unpack([]byte{0x52, 0x18, 0x96}, &r))
		assert.Nil(t, r.Data)
	})
}
