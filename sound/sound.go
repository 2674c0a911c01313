// Package sound plays the short UI effects of the standoff theme.
package sound

import (
	"encoding/binary"
	"math"
	"sync"

	"mictest/settings"
)

const sampleRate = 44100

type Effect int

const (
	Click Effect = iota
	Hover
	Success
	Error
)

func (e Effect) String() string {
	switch e {
	case Click:
		return "click"
	case Hover:
		return "hover"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Player plays S16LE mono PCM at 44.1 kHz without blocking the caller.
type Player interface {
	Play(pcm []byte)
	Close()
}

type tone struct {
	freq     float64
	duration float64
	volume   float64
	decay    float64
}

var (
	clickTone   = tone{freq: 1500, duration: 0.03, volume: 0.5, decay: 80}
	hoverTone   = tone{freq: 2000, duration: 0.015, volume: 0.25, decay: 120}
	successLow  = tone{freq: 880, duration: 0.08, volume: 0.5, decay: 25}
	successHigh = tone{freq: 1320, duration: 0.12, volume: 0.5, decay: 20}
	errorTone   = tone{freq: 350, duration: 0.08, volume: 0.6, decay: 30}
)

func generateTick(t tone, gain float64) []int16 {
	n := int(sampleRate * t.duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		ts := float64(i) / sampleRate
		envelope := math.Exp(-ts * t.decay)
		samples[i] = int16(math.Sin(2*math.Pi*t.freq*ts) * 32767 * t.volume * gain * envelope)
	}
	return samples
}

func silence(seconds float64) []int16 {
	return make([]int16, int(sampleRate*seconds))
}

// Samples renders e scaled by gain in [0,1].
func Samples(e Effect, gain float64) []byte {
	gain = max(0, min(1, gain))
	var s []int16
	switch e {
	case Click:
		s = generateTick(clickTone, gain)
	case Hover:
		s = generateTick(hoverTone, gain)
	case Success:
		s = append(generateTick(successLow, gain), generateTick(successHigh, gain)...)
	case Error:
		beep := generateTick(errorTone, gain)
		s = append(append(append([]int16{}, beep...), silence(0.05)...), beep...)
	}
	buf := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

// Effects plays effects through a Player while the settings enable sounds,
// at the stored volume. It follows settings changes as they happen.
type Effects struct {
	player Player

	mu      sync.Mutex
	enabled bool
	volume  float64

	cancel func()
	done   chan struct{}
}

func NewEffects(p Player, store *settings.Store) *Effects {
	v := store.Values()
	ch, cancel := store.Subscribe()
	e := &Effects{
		player:  p,
		enabled: v.SoundsEnabled(),
		volume:  v.Volume,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go e.follow(ch)
	return e
}

func (e *Effects) follow(ch <-chan settings.Values) {
	defer close(e.done)
	for v := range ch {
		e.mu.Lock()
		e.enabled = v.SoundsEnabled()
		e.volume = v.Volume
		e.mu.Unlock()
	}
}

func (e *Effects) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

func (e *Effects) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *Effects) Play(effect Effect) {
	e.mu.Lock()
	enabled, volume := e.enabled, e.volume
	e.mu.Unlock()
	if !enabled || volume == 0 {
		return
	}
	e.player.Play(Samples(effect, volume))
}

func (e *Effects) Close() {
	e.cancel()
	<-e.done
	e.player.Close()
}
