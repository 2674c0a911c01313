package audio

import (
	"encoding/binary"
	"math"
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
	fakeSampleRate    = 48000
	FakeDeviceID      = "fake-0"
	FakeDeviceName    = "Fake Microphone"
)

// FakeContext replays PCM in a loop through a single fake device. It backs
// the --fake mode and tests that need a capture device without hardware.
type FakeContext struct {
	pcm      []byte
	realtime bool

	// StartErr, when set, is returned by every capture's Start.
	StartErr error

	mu       sync.Mutex
	captures []*FakeCapture
}

// NewFakeContext loads a 16-bit mono WAV file.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return &FakeContext{pcm: data, realtime: realtime}, nil
}

// NewToneContext feeds a continuous sine tone. amplitude is in [0,1].
func NewToneContext(freq, amplitude float64) *FakeContext {
	return &FakeContext{pcm: GenerateTone(freq, amplitude, fakeSampleRate, fakeSampleRate/10), realtime: true}
}

// NewSilenceContext feeds digital silence.
func NewSilenceContext() *FakeContext {
	return &FakeContext{pcm: make([]byte, fakeFrameSize*fakeBytesPerFrame), realtime: true}
}

// GenerateTone renders n samples of S16LE mono sine.
func GenerateTone(freq, amplitude float64, sampleRate, n int) []byte {
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := int16(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// Deny makes every later Start fail as if the user refused access.
func (f *FakeContext) Deny() *FakeContext {
	f.StartErr = ErrPermissionDenied
	return f
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: FakeDeviceID, Name: FakeDeviceName}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	c := &FakeCapture{pcm: f.pcm, realtime: f.realtime, startErr: f.StartErr}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

// Captures returns every capture opened so far.
func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

type FakeCapture struct {
	pcm      []byte
	realtime bool
	startErr error

	mu       sync.Mutex
	cb       DataCallback
	running  bool
	closed   bool
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceID() string { return FakeDeviceID }

// Running reports whether the capture is between Start and Stop.
func (f *FakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Closed reports whether the capture has been released.
func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeCapture) feedChunk(pos, chunkBytes int) int {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if len(f.pcm) == 0 {
		return 0
	}
	end := min(pos+chunkBytes, len(f.pcm))
	if cb != nil {
		chunk := make([]byte, end-pos)
		copy(chunk, f.pcm[pos:end])
		cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	}
	if end >= len(f.pcm) {
		return 0
	}
	return end
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.running = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stopCh, feedDone := f.stopCh, f.feedDone
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(fakeFrameSize) * time.Second / fakeSampleRate
	}

	go func() {
		defer close(feedDone)
		pos := 0
		for {
			pos = f.feedChunk(pos, chunkBytes)
			select {
			case <-stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stopCh, feedDone := f.stopCh, f.feedDone
	f.running = false
	f.mu.Unlock()
	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-feedDone
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
