package doctor

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mictest/audio"
	"mictest/frame"
	"mictest/instructions"
	"mictest/monitor"
)

func newMonitor(t *testing.T, ctx *audio.FakeContext) (*monitor.Monitor, func() ([]audio.DeviceInfo, error)) {
	t.Helper()
	input := audio.NewInput(ctx, nil, audio.CaptureConfig{SampleRate: 48000, Channels: 1})
	sched := frame.NewTickerScheduler(100)
	m := monitor.New(monitor.Config{
		Input:       input,
		Frames:      sched,
		Observation: 300 * time.Millisecond,
	})
	t.Cleanup(func() {
		m.Close()
		sched.Close()
	})
	return m, input.Devices
}

func run(t *testing.T, ctx *audio.FakeContext) (int, string) {
	m, devices := newMonitor(t, ctx)
	var out bytes.Buffer
	code := Run(context.Background(), Options{
		Out:         &out,
		Devices:     devices,
		Monitor:     m,
		System:      instructions.System{OS: instructions.Linux, Backend: "PulseAudio"},
		Observation: 300 * time.Millisecond,
		Poll:        10 * time.Millisecond,
	})
	return code, out.String()
}

func TestRunPasses(t *testing.T) {
	code, out := run(t, audio.NewToneContext(1000, 0.5))
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "PASS: 1 capture device(s)")
	assert.Contains(t, out, "PASS: microphone works")
	assert.Contains(t, out, audio.FakeDeviceName)
	assert.NotContains(t, out, "Troubleshooting tips")
}

func TestRunSilenceFails(t *testing.T) {
	code, out := run(t, audio.NewSilenceContext())
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "FAIL: "+monitor.ErrNoSignal.Error())
	assert.Contains(t, out, "Setup for Linux")
	assert.Contains(t, out, instructions.Steps(instructions.Linux)[0])
	assert.Contains(t, out, instructions.SupportURL)
}

func TestRunDenied(t *testing.T) {
	code, out := run(t, audio.NewSilenceContext().Deny())
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "FAIL: microphone access denied")
}

func TestRunNoDevices(t *testing.T) {
	var out bytes.Buffer
	code := Run(context.Background(), Options{
		Out:     &out,
		Devices: func() ([]audio.DeviceInfo, error) { return nil, nil },
		System:  instructions.System{OS: instructions.Unknown},
	})
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "FAIL: no capture devices found")

	out.Reset()
	code = Run(context.Background(), Options{
		Out:     &out,
		Devices: func() ([]audio.DeviceInfo, error) { return nil, errors.New("no server") },
	})
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "cannot list devices: no server")
}

func TestRunInterrupted(t *testing.T) {
	m, devices := newMonitor(t, audio.NewToneContext(1000, 0.5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	code := Run(ctx, Options{Out: &out, Devices: devices, Monitor: m, Poll: time.Millisecond})
	assert.Equal(t, 1, code)
	assert.Equal(t, monitor.Idle, m.Snapshot().Status)
}
