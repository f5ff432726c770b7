package core

import (
	"context"
	"net"
	"testing"

	pb "github.com/kraken-hpc/ipmbbridge/core/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

// staticHost answers every Execute with a fixed reply
type staticHost struct {
	reply *pb.ExecuteReply
	last  *pb.ExecuteRequest
}

func (h *staticHost) Execute(ctx context.Context, in *pb.ExecuteRequest) (*pb.ExecuteReply, error) {
	h.last = in
	return h.reply, nil
}

func newTestResponder(t *testing.T, h pb.HostServer) *GRPCResponder {
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	pb.RegisterHostServer(s, h)
	go s.Serve(lis)
	conn, e := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithInsecure(),
	)
	require.NoError(t, e)
	t.Cleanup(func() {
		conn.Close()
		s.Stop()
	})
	return NewGRPCResponder(conn)
}

func TestGRPCResponderExecute(t *testing.T) {
	h := &staticHost{reply: &pb.ExecuteReply{NetFn: 0x07, Lun: 0x02, Cmd: 0x01, CompletionCode: 0xc1, Data: []byte{0x20, 0x01}}}
	r := newTestResponder(t, h)

	rep, e := r.Execute(context.Background(), 0x06, 0x02, 0x01, []byte{0xaa}, 0x81)
	require.NoError(t, e)
	assert.Equal(t, &ExecuteReply{NetFn: 0x07, Lun: 0x02, Cmd: 0x01, CompletionCode: 0xc1, Data: []byte{0x20, 0x01}}, rep)
	require.NotNil(t, h.last)
	assert.Equal(t, uint32(0x06), h.last.NetFn)
	assert.Equal(t, uint32(0x02), h.last.Lun)
	assert.Equal(t, uint32(0x81), h.last.RqSA)
	assert.Equal(t, []byte{0xaa}, h.last.Data)
}

func TestGRPCResponderRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		reply *pb.ExecuteReply
	}{
		{"netfn", &pb.ExecuteReply{NetFn: 0x40, Cmd: 0x01}},
		{"lun", &pb.ExecuteReply{NetFn: 0x07, Lun: 0x04, Cmd: 0x01}},
		{"cmd", &pb.ExecuteReply{NetFn: 0x07, Cmd: 0x100}},
		{"completion code", &pb.ExecuteReply{NetFn: 0x07, Cmd: 0x01, CompletionCode: 0x100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResponder(t, &staticHost{reply: tt.reply})
			_, e := r.Execute(context.Background(), 0x06, 0, 0x01, nil, 0x81)
			assert.Error(t, e)
		})
	}
}

func TestGRPCResponderBoundaries(t *testing.T) {
	r := newTestResponder(t, &staticHost{reply: &pb.ExecuteReply{NetFn: 0x3f, Lun: 0x03, Cmd: 0xff, CompletionCode: 0xff}})
	rep, e := r.Execute(context.Background(), 0x3e, 0x03, 0xff, nil, 0x81)
	require.NoError(t, e)
	assert.Equal(t, uint8(0x3f), rep.NetFn)
	assert.Equal(t, uint8(0x03), rep.Lun)
}
