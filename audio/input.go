package audio

import (
	"context"
	"fmt"
	"sync"
)

// Stream is an acquired input stream. It owns the capture device until Stop.
type Stream interface {
	// DeviceID identifies the device backing the stream, "" if unknown.
	DeviceID() string
	// Connect routes captured PCM to sink for as long as the stream runs.
	Connect(sink func(pcm []byte))
	// Stop stops every track and releases the device. Safe to call twice.
	Stop()
}

// Input opens streams on one capture device of a Context.
type Input struct {
	ctx    Context
	device *DeviceInfo // nil selects the system default
	config CaptureConfig
}

func NewInput(ctx Context, device *DeviceInfo, config CaptureConfig) *Input {
	return &Input{ctx: ctx, device: device, config: config}
}

func (in *Input) Devices() ([]DeviceInfo, error) {
	return in.ctx.Devices()
}

// Request opens and starts a capture stream with the given processing
// constraints. It blocks until the platform grants or refuses access, or
// ctx is done.
func (in *Input) Request(ctx context.Context, c Constraints) (Stream, error) {
	cfg := in.config
	cfg.Constraints = c

	dev, err := in.ctx.NewCapture(in.device, cfg)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", classify(err))
	}

	s := &captureStream{dev: dev}
	dev.SetCallback(s.dispatch)

	started := make(chan error, 1)
	go func() { started <- dev.Start() }()

	select {
	case err := <-started:
		if err != nil {
			dev.ClearCallback()
			dev.Close()
			return nil, fmt.Errorf("start capture: %w", classify(err))
		}
	case <-ctx.Done():
		go func() {
			if <-started == nil {
				dev.Stop()
			}
			dev.ClearCallback()
			dev.Close()
		}()
		return nil, ctx.Err()
	}
	return s, nil
}

type captureStream struct {
	dev CaptureDevice

	mu      sync.Mutex
	sinks   []func([]byte)
	stopped bool
}

func (s *captureStream) dispatch(data []byte, _ uint32) {
	s.mu.Lock()
	sinks := s.sinks
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	for _, sink := range sinks {
		sink(data)
	}
}

func (s *captureStream) DeviceID() string {
	return s.dev.DeviceID()
}

func (s *captureStream) Connect(sink func(pcm []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

func (s *captureStream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.sinks = nil
	s.mu.Unlock()

	s.dev.Stop()
	s.dev.ClearCallback()
	s.dev.Close()
}
