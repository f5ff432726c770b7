package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kraken-hpc/ipmbbridge/lib/ipmb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	netFn, lun, cmd uint8
	data            []byte
	rqSA            uint8
}

// recorder is a Responder that remembers its calls and answers with reply
type recorder struct {
	mutex sync.Mutex
	calls []execCall
	reply func(c execCall) (*ExecuteReply, error)
}

func (r *recorder) Execute(ctx context.Context, netFn, lun, cmd uint8, data []byte, rqSA uint8) (*ExecuteReply, error) {
	c := execCall{netFn, lun, cmd, data, rqSA}
	r.mutex.Lock()
	r.calls = append(r.calls, c)
	r.mutex.Unlock()
	return r.reply(c)
}

func (r *recorder) Calls() []execCall {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]execCall(nil), r.calls...)
}

// echo answers with the matching response netFn and the given cc and data
func echo(cc uint8, data []byte) func(c execCall) (*ExecuteReply, error) {
	return func(c execCall) (*ExecuteReply, error) {
		return &ExecuteReply{
			NetFn:          ipmb.ResponseNetFn(c.netFn),
			Lun:            c.lun,
			Cmd:            c.cmd,
			CompletionCode: cc,
			Data:           data,
		}, nil
	}
}

func encodeResponse(t *testing.T, rsp *ipmb.Response) []byte {
	b, e := rsp.Encode()
	require.NoError(t, e)
	return b
}

func inbound(t *testing.T, req *ipmb.Request) []byte {
	b, e := req.Encode()
	require.NoError(t, e)
	return b
}

// a request from the remote controller at 0x52 (7-bit 0x29) to the BMC at 0x20
func remoteRequest(netFn, cmd uint8, data []byte) *ipmb.Request {
	return &ipmb.Request{
		TargetAddr: 0x20,
		NetFn:      netFn,
		RsLun:      0,
		RqSA:       0x52,
		Seq:        0x11,
		RqLun:      2,
		Cmd:        cmd,
		Data:       data,
	}
}

func TestHandleFrameBroadcast(t *testing.T) {
	c, drv := newTestChannel(t, ipmbConfig, ChannelOptions{})
	up := &recorder{reply: echo(ipmb.CmpNormal, nil)}
	d, em := newTestDispatcher(c, up)
	events := make(chan *Event, 4)
	require.NoError(t, em.Subscribe("test", events))

	bc := &ipmb.Request{TargetAddr: ipmb.BroadcastAddress, NetFn: ipmb.NetFnAppReq, RqSA: 0x40, Cmd: 0x02, Data: []byte{0x01}}
	d.HandleFrame(context.Background(), c, inbound(t, bc))
	d.Wait()

	require.Len(t, events, 1)
	ev := <-events
	assert.Equal(t, EventBroadcast, ev.Type())
	assert.Equal(t, "/channel/ipmb/broadcast", ev.URL())
	assert.Equal(t, &BroadcastReceived{
		Channel: ChannelIpmb,
		NetFn:   ipmb.NetFnAppReq,
		Cmd:     0x02,
		Data:    []byte{0x01},
	}, ev.Data())
	assert.Empty(t, up.Calls())
	assert.Empty(t, drv.last().Writes())
	assert.Equal(t, 0, c.Status().Outstanding)
}

func TestHandleFrameBroadcastOnMe(t *testing.T) {
	c, drv := newTestChannel(t, meConfig, ChannelOptions{})
	up := &recorder{reply: echo(ipmb.CmpNormal, nil)}
	d, em := newTestDispatcher(c, up)
	events := make(chan *Event, 4)
	require.NoError(t, em.Subscribe("test", events))

	bc := &ipmb.Request{TargetAddr: ipmb.BroadcastAddress, NetFn: ipmb.NetFnAppReq, RqSA: 0x2c, Cmd: 0x02}
	d.HandleFrame(context.Background(), c, inbound(t, bc))
	d.Wait()

	assert.Empty(t, events, "only the ipmb channel emits broadcasts")
	assert.Len(t, up.Calls(), 1)
	assert.Len(t, drv.last().Writes(), 1)
}

func TestHandleFrameForward(t *testing.T) {
	c, drv := newTestChannel(t, ipmbConfig, ChannelOptions{})
	up := &recorder{reply: echo(ipmb.CmpNormal, []byte{0xde, 0xad})}
	d, _ := newTestDispatcher(c, up)

	req := remoteRequest(ipmb.NetFnSensorReq, 0x2d, []byte{0x05})
	d.HandleFrame(context.Background(), c, inbound(t, req))
	d.Wait()

	assert.Equal(t, []execCall{{
		netFn: ipmb.NetFnSensorReq,
		lun:   0,
		cmd:   0x2d,
		data:  []byte{0x05},
		rqSA:  0x29,
	}}, up.Calls())

	w := drv.last().Writes()
	require.Len(t, w, 1)
	rsp, e := ipmb.DecodeResponse(w[0])
	require.NoError(t, e)
	assert.Equal(t, &ipmb.Response{
		Address:        0x52,
		NetFn:          ipmb.NetFnSensorRes,
		RqLun:          2,
		RsSA:           0x20,
		Seq:            0x11,
		RsLun:          0,
		Cmd:            0x2d,
		CompletionCode: ipmb.CmpNormal,
		Data:           []byte{0xde, 0xad},
	}, rsp)
	assert.Equal(t, 0, c.Status().Outstanding)
}

func TestHandleFrameFiltered(t *testing.T) {
	c, drv := newTestChannel(t, ipmbConfig, ChannelOptions{})
	up := &recorder{reply: echo(ipmb.CmpNormal, nil)}
	d, _ := newTestDispatcher(c, up)
	c.Filter().Add(ipmb.NetFnOEMReq, 0x99)

	d.HandleFrame(context.Background(), c, inbound(t, remoteRequest(ipmb.NetFnOEMReq, 0x99, nil)))
	d.Wait()

	assert.Empty(t, up.Calls())
	w := drv.last().Writes()
	require.Len(t, w, 1)
	rsp, e := ipmb.DecodeResponse(w[0])
	require.NoError(t, e)
	assert.Equal(t, &ipmb.Response{
		Address:        0x52,
		NetFn:          ipmb.NetFnOEMRes,
		RqLun:          2,
		RsSA:           0x20,
		Seq:            0x11,
		RsLun:          0,
		Cmd:            0x99,
		CompletionCode: ipmb.CmpInvalidCmd,
	}, rsp)
}

func TestHandleFrameLearnsFilter(t *testing.T) {
	c, drv := newTestChannel(t, ipmbConfig, ChannelOptions{})
	up := &recorder{reply: echo(ipmb.CmpInvalidCmd, nil)}
	d, _ := newTestDispatcher(c, up)

	d.HandleFrame(context.Background(), c, inbound(t, remoteRequest(ipmb.NetFnOEMReq, 0x42, nil)))
	d.Wait()
	assert.True(t, c.Filter().IsBlocked(ipmb.NetFnOEMReq, 0x42))

	d.HandleFrame(context.Background(), c, inbound(t, remoteRequest(ipmb.NetFnOEMReq, 0x42, nil)))
	d.Wait()
	assert.Len(t, up.Calls(), 1, "filtered commands are answered locally")
	w := drv.last().Writes()
	require.Len(t, w, 2)
	for _, f := range w {
		rsp, e := ipmb.DecodeResponse(f)
		require.NoError(t, e)
		assert.Equal(t, ipmb.CmpInvalidCmd, rsp.CompletionCode)
	}
}

func TestHandleFrameOversizeReply(t *testing.T) {
	c, drv := newTestChannel(t, ipmbConfig, ChannelOptions{})
	up := &recorder{reply: echo(ipmb.CmpNormal, make([]byte, ipmb.MaxDataSize+1))}
	d, _ := newTestDispatcher(c, up)

	d.HandleFrame(context.Background(), c, inbound(t, remoteRequest(ipmb.NetFnStorageReq, 0x23, nil)))
	d.Wait()

	w := drv.last().Writes()
	require.Len(t, w, 1)
	rsp, e := ipmb.DecodeResponse(w[0])
	require.NoError(t, e)
	assert.Equal(t, ipmb.CmpRespNotProvided, rsp.CompletionCode)
	assert.Equal(t, ipmb.NetFnStorageRes, rsp.NetFn)
	assert.Empty(t, rsp.Data)
	assert.False(t, c.Filter().IsBlocked(ipmb.NetFnStorageReq, 0x23))
}

func TestHandleFrameNoReply(t *testing.T) {
	tests := map[string]func(c execCall) (*ExecuteReply, error){
		"upstream error": func(c execCall) (*ExecuteReply, error) {
			return nil, errors.New("connection refused")
		},
		"request netFn": func(c execCall) (*ExecuteReply, error) {
			return &ExecuteReply{NetFn: c.netFn, Cmd: c.cmd}, nil
		},
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			c, drv := newTestChannel(t, ipmbConfig, ChannelOptions{})
			up := &recorder{reply: reply}
			d, _ := newTestDispatcher(c, up)
			d.HandleFrame(context.Background(), c, inbound(t, remoteRequest(ipmb.NetFnAppReq, 0x01, nil)))
			d.Wait()
			assert.Len(t, up.Calls(), 1)
			assert.Empty(t, drv.last().Writes())
		})
	}
}

func TestHandleFrameUpstreamTimeout(t *testing.T) {
	c, drv := newTestChannel(t, ipmbConfig, ChannelOptions{})
	up := ResponderFunc(func(ctx context.Context, netFn, lun, cmd uint8, data []byte, rqSA uint8) (*ExecuteReply, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	d := NewDispatcher(c.Filter(), up, NewEventEmitter(EventBroadcast), nil, testLogger())
	d.UpstreamTimeout = 20 * time.Millisecond
	d.HandleFrame(context.Background(), c, inbound(t, remoteRequest(ipmb.NetFnAppReq, 0x01, nil)))
	d.Wait()
	assert.Empty(t, drv.last().Writes())
}

func TestHandleFrameInvalid(t *testing.T) {
	c, drv := newTestChannel(t, ipmbConfig, ChannelOptions{})
	up := &recorder{reply: echo(ipmb.CmpNormal, nil)}
	d, _ := newTestDispatcher(c, up)

	good := inbound(t, remoteRequest(ipmb.NetFnAppReq, 0x01, nil))
	badSum := append([]byte(nil), good...)
	badSum[len(badSum)-1]++
	for _, f := range [][]byte{badSum, good[:4], nil} {
		d.HandleFrame(context.Background(), c, f)
	}
	d.Wait()
	assert.Empty(t, up.Calls())
	assert.Empty(t, drv.last().Writes())
}

func TestHandleFrameResponse(t *testing.T) {
	c, drv := newTestChannel(t, ipmbConfig, ChannelOptions{RetryTimeout: time.Second, MaxTries: 1})
	up := &recorder{reply: echo(ipmb.CmpNormal, nil)}
	d, _ := newTestDispatcher(c, up)

	done := make(chan Result)
	go func() { done <- c.SendRequest(ipmb.NetFnAppReq, 0, 0x01, nil) }()
	var w []byte
	select {
	case w = <-drv.last().wch:
	case <-time.After(time.Second):
		t.Fatal("request was not written")
	}
	// a stray response for an unused sequence number is dropped
	stray, e := ipmb.DecodeResponse(respondTo(w, ipmb.CmpNormal, nil))
	require.NoError(t, e)
	stray.Seq = 0x30
	d.HandleFrame(context.Background(), c, encodeResponse(t, stray))

	d.HandleFrame(context.Background(), c, respondTo(w, ipmb.CmpNormal, []byte{0x51}))
	r := <-done
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, []byte{0x51}, r.Data)
	assert.Empty(t, up.Calls())
}

func TestServeContextCancel(t *testing.T) {
	c, _ := newTestChannel(t, ipmbConfig, ChannelOptions{})
	d, _ := newTestDispatcher(c, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() { errc <- d.Serve(ctx, c) }()
	cancel()
	// Serve notices the cancel on its next receive
	c.Close()
	select {
	case e := <-errc:
		assert.NoError(t, e)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}
