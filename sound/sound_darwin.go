//go:build darwin

package sound

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoPlayer struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	// Playback state, read from the device callback.
	samples atomic.Pointer[[]byte]
	pos     atomic.Uint32
	mu      sync.Mutex
}

func NewPlayer() (Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo init: %w", err)
	}
	p := &malgoPlayer{ctx: ctx}
	if err := p.initDevice(); err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, err
	}
	return p, nil
}

func (p *malgoPlayer) initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	dev, err := malgo.InitDevice(p.ctx.Context, config, malgo.DeviceCallbacks{Data: p.data})
	if err != nil {
		return err
	}
	p.device = dev
	return nil
}

func (p *malgoPlayer) data(out, _ []byte, frameCount uint32) {
	samples := p.samples.Load()
	if samples == nil || len(*samples) == 0 {
		clear(out)
		return
	}

	pos := p.pos.Load()
	total := uint32(len(*samples))
	n := frameCount * 2
	remaining := total - pos
	if remaining == 0 {
		p.samples.Store(nil)
		clear(out)
		return
	}
	n = min(n, remaining)

	copy(out[:n], (*samples)[pos:pos+n])
	p.pos.Store(pos + n)
	clear(out[n : frameCount*2])
}

func (p *malgoPlayer) Play(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return
	}

	p.device.Stop()
	p.pos.Store(0)
	p.samples.Store(&pcm)

	if err := p.device.Start(); err != nil {
		// Recreate the device after sleep/wake.
		p.device.Uninit()
		p.device = nil
		if err := p.initDevice(); err != nil {
			p.samples.Store(nil)
			return
		}
		if err := p.device.Start(); err != nil {
			p.samples.Store(nil)
		}
	}
}

func (p *malgoPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	p.ctx.Uninit()
	p.ctx.Free()
}
