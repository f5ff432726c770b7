package core

import (
	"context"
	"testing"
	"time"

	"github.com/kraken-hpc/ipmbbridge/lib/ipmb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsNil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.frame(ChannelIpmb, "request")
		m.drop(ChannelIpmb, "checksum")
		m.request(ChannelIpmb, StatusTimeout)
		m.writeFailure(ChannelIpmb)
		m.filter(ChannelIpmb)
		m.upstreamCall(ChannelIpmb, "ok")
	})
}

func TestMetricsCount(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	drv := &fakeDriver{}
	c, e := NewChannel(ipmbConfig, drv, ipmb.NewCommandFilter(), ChannelOptions{RetryTimeout: 5 * time.Millisecond, MaxTries: 1}, testLogger(), m)
	require.NoError(t, e)
	defer c.Close()
	d := NewDispatcher(c.Filter(), &recorder{reply: echo(ipmb.CmpNormal, nil)}, NewEventEmitter(EventBroadcast), m, testLogger())

	c.SendRequest(ipmb.NetFnAppReq, 0, 0x01, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("ipmb", "TIMEOUT")))

	good := inbound(t, remoteRequest(ipmb.NetFnAppReq, 0x01, nil))
	bad := append([]byte(nil), good...)
	bad[len(bad)-1]++
	d.HandleFrame(context.Background(), c, bad)
	d.HandleFrame(context.Background(), c, good)
	d.Wait()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("ipmb", "checksum")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frames.WithLabelValues("ipmb", "request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstream.WithLabelValues("ipmb", "ok")))

	drv.last().setFailWrites(1000)
	c.SendBroadcast(ipmb.NetFnAppReq, 0, 0x01, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writeFailures.WithLabelValues("ipmb")))
}
