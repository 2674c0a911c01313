package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedCapture blocks in Start until the test answers on grant.
type gatedCapture struct {
	grant chan error

	mu       sync.Mutex
	cb       DataCallback
	starts   atomic.Int32
	stops    atomic.Int32
	closes   atomic.Int32
	cleareds atomic.Int32
}

func newGatedCapture() *gatedCapture {
	return &gatedCapture{grant: make(chan error, 1)}
}

func (g *gatedCapture) Start() error {
	g.starts.Add(1)
	return <-g.grant
}

func (g *gatedCapture) Stop()  { g.stops.Add(1) }
func (g *gatedCapture) Close() { g.closes.Add(1) }

func (g *gatedCapture) SetCallback(cb DataCallback) {
	g.mu.Lock()
	g.cb = cb
	g.mu.Unlock()
}

func (g *gatedCapture) ClearCallback() {
	g.cleareds.Add(1)
	g.mu.Lock()
	g.cb = nil
	g.mu.Unlock()
}

func (g *gatedCapture) DeviceID() string { return "gated-0" }

func (g *gatedCapture) feed(data []byte) {
	g.mu.Lock()
	cb := g.cb
	g.mu.Unlock()
	if cb != nil {
		cb(data, uint32(len(data)/2))
	}
}

type gatedContext struct {
	capture *gatedCapture
	config  CaptureConfig
	openErr error
}

func (c *gatedContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "gated-0", Name: "Gated Mic"}}, nil
}

func (c *gatedContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	c.config = config
	return c.capture, nil
}

func (c *gatedContext) Close() {}

func TestClassify(t *testing.T) {
	plain := errors.New("malgo: failed to access device buffer")
	tests := []struct {
		name   string
		err    error
		denied bool
		nodev  bool
	}{
		{name: "nil", err: nil},
		{name: "mentions access only", err: plain},
		{name: "device busy", err: errors.New("device or resource busy")},
		{name: "access denied", err: errors.New("Access denied by user"), denied: true},
		{name: "permission denied", err: errors.New("open /dev/snd: permission denied"), denied: true},
		{name: "not permitted", err: errors.New("operation not permitted"), denied: true},
		{name: "not authorized", err: errors.New("app is not authorized to record"), denied: true},
		{name: "no such entity", err: errors.New("pulse: No such entity"), nodev: true},
		{name: "device not found", err: errors.New("device not found"), nodev: true},
		{name: "wrapped sentinel", err: errors.Join(errors.New("start capture"), ErrPermissionDenied), denied: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.denied, errors.Is(got, ErrPermissionDenied))
			assert.Equal(t, tt.nodev, errors.Is(got, ErrNoDevice))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyLeavesUnknownErrorsUnchanged(t *testing.T) {
	err := errors.New("malgo: failed to access device buffer")
	assert.Same(t, err, classify(err))
}

func TestRequestStartsAndRoutesPCM(t *testing.T) {
	g := newGatedCapture()
	g.grant <- nil
	in := NewInput(&gatedContext{capture: g}, nil, CaptureConfig{SampleRate: 48000, Channels: 1})

	s, err := in.Request(context.Background(), DefaultConstraints)
	require.NoError(t, err)
	assert.Equal(t, "gated-0", s.DeviceID())

	var got [][]byte
	s.Connect(func(pcm []byte) { got = append(got, pcm) })
	g.feed([]byte{1, 2, 3, 4})
	require.Len(t, got, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, got[0])

	s.Stop()
	s.Stop()
	g.feed([]byte{5, 6})
	assert.Len(t, got, 1)
	assert.Equal(t, int32(1), g.stops.Load())
	assert.Equal(t, int32(1), g.closes.Load())
}

func TestRequestPassesConstraints(t *testing.T) {
	g := newGatedCapture()
	g.grant <- nil
	ctx := &gatedContext{capture: g}
	in := NewInput(ctx, nil, CaptureConfig{SampleRate: 48000, Channels: 1})

	s, err := in.Request(context.Background(), Constraints{NoiseSuppression: true})
	require.NoError(t, err)
	defer s.Stop()

	assert.Equal(t, uint32(48000), ctx.config.SampleRate)
	assert.Equal(t, Constraints{NoiseSuppression: true}, ctx.config.Constraints)
}

func TestRequestRefusedStartIsClassified(t *testing.T) {
	g := newGatedCapture()
	g.grant <- errors.New("pulse: permission denied")
	in := NewInput(&gatedContext{capture: g}, nil, CaptureConfig{})

	s, err := in.Request(context.Background(), DefaultConstraints)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, int32(0), g.stops.Load())
	assert.Equal(t, int32(1), g.closes.Load())
	assert.Equal(t, int32(1), g.cleareds.Load())
}

func TestRequestOpenFailureIsClassified(t *testing.T) {
	in := NewInput(&gatedContext{openErr: errors.New("device not found")}, nil, CaptureConfig{})

	_, err := in.Request(context.Background(), DefaultConstraints)
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestRequestCancelReleasesLateGrant(t *testing.T) {
	g := newGatedCapture()
	in := NewInput(&gatedContext{capture: g}, nil, CaptureConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		s   Stream
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := in.Request(ctx, DefaultConstraints)
		done <- result{s, err}
	}()

	require.Eventually(t, func() bool { return g.starts.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	var r result
	select {
	case r = <-done:
	case <-time.After(time.Second):
		t.Fatal("Request did not return after cancel")
	}
	assert.Nil(t, r.s)
	assert.ErrorIs(t, r.err, context.Canceled)
	assert.Equal(t, int32(0), g.closes.Load())

	// The platform grants access after the caller gave up.
	g.grant <- nil
	require.Eventually(t, func() bool { return g.closes.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), g.stops.Load())
	assert.Equal(t, int32(1), g.cleareds.Load())
}

func TestRequestCancelAfterLateRefusal(t *testing.T) {
	g := newGatedCapture()
	in := NewInput(&gatedContext{capture: g}, nil, CaptureConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := in.Request(ctx, DefaultConstraints)
		done <- err
	}()
	require.Eventually(t, func() bool { return g.starts.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	g.grant <- ErrPermissionDenied
	require.Eventually(t, func() bool { return g.closes.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), g.stops.Load())
}
