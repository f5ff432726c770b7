package core

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kraken-hpc/ipmbbridge/lib/ipmb"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var errBus = errors.New("i2c bus error")

// fakeDevice is an in-memory slave device. Frames passed to inject are
// returned by Read; successful writes are recorded and copied to wch.
type fakeDevice struct {
	mutex      sync.Mutex
	writes     [][]byte
	calls      int
	failWrites int
	wch        chan []byte
	rch        chan []byte
	closed     chan struct{}
	once       sync.Once
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		wch:    make(chan []byte, 256),
		rch:    make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (d *fakeDevice) Read(b []byte) (int, error) {
	select {
	case f := <-d.rch:
		return copy(b, f), nil
	case <-d.closed:
		return 0, os.ErrClosed
	}
}

func (d *fakeDevice) Write(b []byte) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	select {
	case <-d.closed:
		return 0, os.ErrClosed
	default:
	}
	d.calls++
	if d.failWrites > 0 {
		d.failWrites--
		return 0, errBus
	}
	c := append([]byte(nil), b...)
	d.writes = append(d.writes, c)
	select {
	case d.wch <- c:
	default:
	}
	return len(b), nil
}

func (d *fakeDevice) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func (d *fakeDevice) isClosed() bool {
	select {
	case <-d.closed:
		return true
	default:
		return false
	}
}

func (d *fakeDevice) inject(wire []byte) { d.rch <- wire }

func (d *fakeDevice) Writes() [][]byte {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([][]byte(nil), d.writes...)
}

func (d *fakeDevice) Calls() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.calls
}

func (d *fakeDevice) setFailWrites(n int) {
	d.mutex.Lock()
	d.failWrites = n
	d.mutex.Unlock()
}

type rebind struct {
	bus, from, to uint8
}

// fakeDriver hands out fakeDevices
type fakeDriver struct {
	mutex     sync.Mutex
	devs      []*fakeDevice
	rebinds   []rebind
	openErr   error
	rebindErr error
	// rebindDelay slows Rebind down, widening race windows
	rebindDelay time.Duration
}

func (f *fakeDriver) Open(bus uint8, path string, addr uint8) (Device, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	d := newFakeDevice()
	f.devs = append(f.devs, d)
	return d, nil
}

func (f *fakeDriver) Rebind(bus uint8, from, to uint8) (Device, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.rebinds = append(f.rebinds, rebind{bus, from, to})
	time.Sleep(f.rebindDelay)
	if f.rebindErr != nil {
		return nil, f.rebindErr
	}
	d := newFakeDevice()
	f.devs = append(f.devs, d)
	return d, nil
}

func (f *fakeDriver) last() *fakeDevice {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.devs[len(f.devs)-1]
}

func testLogger() *log.Entry {
	l := log.New()
	l.SetOutput(ioutil.Discard)
	return log.NewEntry(l)
}

var ipmbConfig = ChannelConfig{
	Type:       "ipmb",
	SlavePath:  "/dev/ipmb-0",
	BmcAddr:    0x20,
	RemoteAddr: 0x52,
}

var meConfig = ChannelConfig{
	Type:       "me",
	SlavePath:  "/dev/ipmb-4",
	BmcAddr:    0x20,
	RemoteAddr: 0x2c,
}

func newTestChannel(t *testing.T, cfg ChannelConfig, opts ChannelOptions) (*Channel, *fakeDriver) {
	drv := &fakeDriver{}
	c, e := NewChannel(cfg, drv, ipmb.NewCommandFilter(), opts, testLogger(), nil)
	require.NoError(t, e)
	t.Cleanup(func() { c.Close() })
	return c, drv
}

// respondTo answers a written request the way a remote controller would
func respondTo(wire []byte, cc uint8, data []byte) []byte {
	req, e := ipmb.DecodeRequest(wire)
	if e != nil {
		return nil
	}
	rsp := &ipmb.Response{
		Address:        req.RqSA,
		NetFn:          ipmb.ResponseNetFn(req.NetFn),
		RqLun:          req.RqLun,
		RsSA:           req.TargetAddr,
		Seq:            req.Seq,
		RsLun:          req.RsLun,
		Cmd:            req.Cmd,
		CompletionCode: cc,
		Data:           data,
	}
	b, _ := rsp.Encode()
	return b
}

// remote answers every request written to d until ctx is done
func remote(ctx context.Context, d *fakeDevice, cc uint8, data []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-d.wch:
			if rsp := respondTo(w, cc, data); rsp != nil {
				d.inject(rsp)
			}
		}
	}
}

// serve runs a dispatcher on c for the duration of the test
func serve(t *testing.T, c *Channel, d *Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Serve(ctx, c)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		c.Close()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("dispatcher did not stop")
		}
	})
}
