// Package analyser turns captured PCM into per-bin byte magnitudes the way a
// real-time spectrum analyser node does: Blackman window, FFT, temporal
// smoothing, decibel conversion and a linear map onto [0,255].
package analyser

import (
	"encoding/binary"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"mictest/audio"
)

const (
	FFTSize           = 256
	FrequencyBinCount = FFTSize / 2

	DefaultSmoothing = 0.8
	MinDecibels      = -100.0
	MaxDecibels      = -30.0
)

type Analyser struct {
	mu     sync.Mutex
	ring   [FFTSize]float64
	pos    int
	closed bool

	fft      *fourier.FFT
	window   [FFTSize]float64
	seq      []float64
	coeff    []complex128
	smoothed [FrequencyBinCount]float64
}

func New() *Analyser {
	a := &Analyser{
		fft:   fourier.NewFFT(FFTSize),
		seq:   make([]float64, FFTSize),
		coeff: make([]complex128, FFTSize/2+1),
	}
	for i := range a.window {
		x := 2 * math.Pi * float64(i) / FFTSize
		a.window[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return a
}

// Attach creates an analyser fed by s.
func Attach(s audio.Stream) *Analyser {
	a := New()
	s.Connect(a.Write)
	return a
}

// Write appends S16LE mono samples to the time-domain buffer.
func (a *Analyser) Write(pcm []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		a.ring[a.pos] = float64(s) / 32768
		a.pos = (a.pos + 1) % FFTSize
	}
}

func (a *Analyser) FrequencyBinCount() int { return FrequencyBinCount }

// ByteFrequencyData fills dst with the current spectrum, one byte per bin.
// Each call advances the smoothing state. Bins beyond len(dst) are dropped.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		clear(dst)
		return
	}

	for i := 0; i < FFTSize; i++ {
		a.seq[i] = a.ring[(a.pos+i)%FFTSize] * a.window[i]
	}
	a.coeff = a.fft.Coefficients(a.coeff, a.seq)

	const scale = 255 / (MaxDecibels - MinDecibels)
	n := min(len(dst), FrequencyBinCount)
	for k := 0; k < FrequencyBinCount; k++ {
		mag := cmplxAbs(a.coeff[k]) / FFTSize
		a.smoothed[k] = DefaultSmoothing*a.smoothed[k] + (1-DefaultSmoothing)*mag
		if k >= n {
			continue
		}
		db := 20 * math.Log10(a.smoothed[k])
		v := math.Floor(scale * (db - MinDecibels))
		switch {
		case math.IsNaN(v) || v < 0:
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = byte(v)
		}
	}
}

// Close releases the analyser. Later reads yield zeros and writes are ignored.
func (a *Analyser) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.smoothed = [FrequencyBinCount]float64{}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
