package ipmb

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestMatches(t *testing.T) {
	req := &Request{
		NetFn: NetFnAppReq,
		RsLun: 1,
		RqLun: 2,
		Cmd:   0x01,
		Seq:   9,
	}
	good := func() *Response {
		return &Response{
			NetFn: NetFnAppRes,
			RqLun: 2,
			RsLun: 1,
			Cmd:   0x01,
			Seq:   9,
		}
	}
	assert.True(t, req.Matches(good()))

	tests := map[string]func(*Response){
		"netFn not response": func(r *Response) { r.NetFn = NetFnAppReq },
		"netFn":              func(r *Response) { r.NetFn = NetFnChassisRes },
		"rqLun":              func(r *Response) { r.RqLun = 0 },
		"rsLun":              func(r *Response) { r.RsLun = 0 },
		"cmd":                func(r *Response) { r.Cmd = 0x02 },
	}
	for name, mangle := range tests {
		t.Run(name, func(t *testing.T) {
			r := good()
			mangle(r)
			assert.False(t, req.Matches(r))
		})
	}
}

func TestInvalidCmdResponse(t *testing.T) {
	req := &Request{
		TargetAddr: 0x20,
		NetFn:      NetFnOEMReq,
		RsLun:      0,
		RqSA:       0xb0,
		Seq:        12,
		RqLun:      2,
		Cmd:        0x44,
	}
	rs := InvalidCmdResponse(req, 0x20)
	assert.Equal(t, &Response{
		Address:        0xb0,
		NetFn:          NetFnOEMRes,
		RqLun:          2,
		RsSA:           0x20,
		Seq:            12,
		RsLun:          RsLun,
		Cmd:            0x44,
		CompletionCode: CmpInvalidCmd,
	}, rs)
	_, e := rs.Encode()
	assert.NoError(t, e)
}

func TestRequestStateString(t *testing.T) {
	assert.Equal(t, "VALID", StateValid.String())
	assert.Equal(t, "RequestState(7)", RequestState(7).String())
}

func TestCommandFilter(t *testing.T) {
	f := NewCommandFilter()
	assert.False(t, f.IsBlocked(NetFnOEMReq, 0x44))
	assert.True(t, f.Add(NetFnOEMReq, 0x44))
	for i := 0; i < 5; i++ {
		assert.False(t, f.Add(NetFnOEMReq, 0x44))
	}
	assert.True(t, f.IsBlocked(NetFnOEMReq, 0x44))
	assert.False(t, f.IsBlocked(NetFnOEMReq, 0x45))
	assert.False(t, f.IsBlocked(NetFnOEMRes, 0x44))
	assert.Equal(t, 1, f.Len())

	f.Add(NetFnAppReq, 0x50)
	f.Add(NetFnAppReq, 0x02)
	assert.Equal(t, []FilterEntry{
		{NetFn: NetFnAppReq, Cmd: 0x02},
		{NetFn: NetFnAppReq, Cmd: 0x50},
		{NetFn: NetFnOEMReq, Cmd: 0x44},
	}, f.List())
}

func TestCommandFilterConcurrent(t *testing.T) {
	f := NewCommandFilter()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for c := 0; c < 64; c++ {
				f.Add(NetFnOEMReq, uint8(c))
				f.IsBlocked(NetFnOEMReq, uint8(i))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 64, f.Len())
}
